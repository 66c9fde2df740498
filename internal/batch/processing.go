package batch

import (
	"log/slog"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/overlay"
	"github.com/MeKo-Tech/aprilgo/internal/utils"
)

// processSingleImage loads path and runs d on it. Failures are recorded on
// the returned result rather than returned.
func processSingleImage(d *detector.Detector, path, overlayDir string) *detector.Result {
	img, meta, err := utils.LoadImage(path)
	if err != nil {
		cfg := d.Config()
		return &detector.Result{
			Source:      path,
			Family:      cfg.Family().Name,
			BlackBorder: cfg.BlackBorder(),
			Error:       err.Error(),
		}
	}

	buf, w, h := utils.PackImage(img)
	res := d.DetectResult(path, buf, w, h)

	if overlayDir != "" && res.Error == "" {
		ov := overlay.Render(img, res.Detections, overlay.DefaultOptions())
		if out, err := overlay.Save(overlayDir, meta.Path, ov); err != nil {
			slog.Warn("Failed to save overlay", "file", path, "error", err)
		} else {
			slog.Debug("Overlay written", "file", out)
		}
	}
	return res
}
