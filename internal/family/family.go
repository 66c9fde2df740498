// Package family holds the AprilTag families compiled into the binary.
//
// Only 36h11 is always available. The remaining families are opt-in so the
// binary does not carry lookup tables nobody uses:
//
//	go build -tags=apriltag_36h9,apriltag_16h5 ./...
//	go build -tags=apriltag_all ./...
package family

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Default is the family used when the caller does not name one.
const Default = "36h11"

// ErrUnknownFamily is returned for identifiers outside the compiled set.
var ErrUnknownFamily = errors.New("unknown tag family")

// TagFamily describes one code table understood by the detection engine.
type TagFamily struct {
	// Name is the identifier callers use, e.g. "36h11".
	Name string
	// Dimension is the number of data bits along one side of the tag.
	Dimension int
	// MinHammingDistance is the minimum pairwise distance between codes.
	MinHammingDistance int
	// CodeCount is the number of valid codes (and therefore ids) in the table.
	CodeCount int
}

// Bits returns the payload size of a single code.
func (f TagFamily) Bits() int { return f.Dimension * f.Dimension }

// MaxID returns the largest id the family can report.
func (f TagFamily) MaxID() int { return f.CodeCount - 1 }

func (f TagFamily) String() string {
	return fmt.Sprintf("tag%s (%d bits, min hamming %d, %d codes)",
		f.Name, f.Bits(), f.MinHammingDistance, f.CodeCount)
}

// UnknownFamilyError reports a family identifier that is not compiled in.
// Names that exist upstream but were left out of this build fail the same way.
type UnknownFamilyError struct {
	Name      string
	Supported []string
}

func (e *UnknownFamilyError) Error() string {
	return fmt.Sprintf("unknown tag family %q (supported: %s)", e.Name, strings.Join(e.Supported, ", "))
}

// Is makes errors.Is(err, ErrUnknownFamily) hold.
func (e *UnknownFamilyError) Is(target error) bool { return target == ErrUnknownFamily }

// compiled is appended to by the init functions of the build-tagged files.
var compiled []TagFamily

var (
	registryOnce sync.Once
	registry     map[string]TagFamily
	names        []string
)

func load() {
	registryOnce.Do(func() {
		registry = make(map[string]TagFamily, len(compiled))
		for _, f := range compiled {
			registry[f.Name] = f
		}
		names = make([]string, 0, len(registry))
		for n := range registry {
			names = append(names, n)
		}
		sort.Strings(names)
	})
}

// Resolve returns the family registered under id.
func Resolve(id string) (TagFamily, error) {
	load()
	f, ok := registry[id]
	if !ok {
		return TagFamily{}, &UnknownFamilyError{Name: id, Supported: Supported()}
	}
	return f, nil
}

// Supported returns the sorted identifiers of every compiled-in family.
func Supported() []string {
	load()
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// All returns every compiled-in family sorted by name.
func All() []TagFamily {
	load()
	out := make([]TagFamily, 0, len(names))
	for _, n := range names {
		out = append(out, registry[n])
	}
	return out
}
