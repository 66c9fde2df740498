// Package output renders detection results for the CLI and batch runs.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
)

// Formats lists the accepted values for Format.
var Formats = []string{"text", "json", "csv", "yaml"}

// IsSupported reports whether format is one of Formats.
func IsSupported(format string) bool { return slices.Contains(Formats, format) }

// Format renders results. precision controls decimals of coordinates in text
// and csv; json and yaml keep full precision.
func Format(results []*detector.Result, format string, precision int) (string, error) {
	switch format {
	case "json":
		return formatJSON(results)
	case "yaml":
		return formatYAML(results)
	case "csv":
		return formatCSV(results, precision)
	case "text", "":
		return formatText(results, precision), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

type document struct {
	Images []*detector.Result `json:"images" yaml:"images"`
}

func formatJSON(results []*detector.Result) (string, error) {
	bts, err := json.MarshalIndent(document{Images: nonNil(results)}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatYAML(results []*detector.Result) (string, error) {
	bts, err := yaml.Marshal(document{Images: nonNil(results)})
	return string(bts), err
}

func nonNil(results []*detector.Result) []*detector.Result {
	out := make([]*detector.Result, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Detections == nil {
			c := *r
			c.Detections = []detector.TagDetection{}
			r = &c
		}
		out = append(out, r)
	}
	return out
}

func formatCSV(results []*detector.Result, precision int) (string, error) {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', precision, 64) }

	rows := [][]string{{
		"file", "family", "id", "hamming", "good", "center_x", "center_y",
		"c0_x", "c0_y", "c1_x", "c1_y", "c2_x", "c2_y", "c3_x", "c3_y", "error",
	}}
	for _, res := range results {
		if res == nil {
			continue
		}
		if len(res.Detections) == 0 {
			rows = append(rows, []string{res.Source, res.Family, "", "", "", "", "", "", "", "", "", "", "", "", "", res.Error})
			continue
		}
		for _, d := range res.Detections {
			row := []string{
				res.Source, res.Family,
				strconv.Itoa(d.ID), strconv.Itoa(d.HammingDistance), strconv.FormatBool(d.Good),
				f(d.Center[0]), f(d.Center[1]),
			}
			for _, c := range d.Corners {
				row = append(row, f(c[0]), f(c[1]))
			}
			rows = append(rows, append(row, ""))
		}
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func formatText(results []*detector.Result, precision int) string {
	var sb strings.Builder
	for i, res := range results {
		if res == nil {
			continue
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "# %s (%dx%d, tag%s, border %d)\n", res.Source, res.Width, res.Height, res.Family, res.BlackBorder)
		if res.Error != "" {
			fmt.Fprintf(&sb, "error: %s\n", res.Error)
			continue
		}
		if len(res.Detections) == 0 {
			sb.WriteString("no tags found\n")
			continue
		}
		for _, d := range res.Detections {
			fmt.Fprintf(&sb, "id=%d hamming=%d good=%t center=(%.*f, %.*f) side=%.*f\n",
				d.ID, d.HammingDistance, d.Good,
				precision, d.Center[0], precision, d.Center[1],
				precision, d.SideLength())
		}
	}
	return sb.String()
}
