// internal/portal/artifacts.go
package portal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// captureArtifact writes a full-page screenshot tagged with the operation
// that asked for it. Best effort: portal automation mostly fails on timing
// and overlays, and a screenshot is the fastest diagnosis, but a failed
// capture must never mask the error being reported.
func (c *Client) captureArtifact(ctx context.Context, tag string) {
	if c.cfg.ArtifactsDir == "" {
		return
	}

	var buf []byte
	if err := c.run(ctx, 10*time.Second, chromedp.FullScreenshot(&buf, 90)); err != nil {
		c.logger.Debug("screenshot capture failed", zap.String("tag", tag), zap.Error(err))
		return
	}

	if err := os.MkdirAll(c.cfg.ArtifactsDir, 0o755); err != nil {
		c.logger.Debug("artifacts dir unavailable", zap.Error(err))
		return
	}

	out := filepath.Join(c.cfg.ArtifactsDir, sanitizeTag(tag)+".png")
	if err := os.WriteFile(out, buf, 0o644); err != nil {
		c.logger.Debug("writing artifact failed", zap.String("path", out), zap.Error(err))
		return
	}
	c.logger.Info("captured artifact", zap.String("path", out))
}

// tagWithRef appends a correlating identifier (booking reference or form id)
// to an operation tag, so consecutive failures in one workflow do not
// overwrite each other's screenshots.
func tagWithRef(op, ref string) string {
	if ref == "" {
		return op
	}
	return op + "_" + ref
}

// sanitizeTag keeps artifact filenames portable across filesystems.
func sanitizeTag(tag string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, tag)
}
