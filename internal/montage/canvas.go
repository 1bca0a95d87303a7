package montage

import (
	"fmt"
	"math"

	"github.com/yungbote/socialreel-backend/internal/domain/media"
)

// Normalize fits a raw clip descriptor to the output canvas: scale so
// the height fills the canvas, then center-crop the width when the
// scaled source is wider than the canvas. Narrower sources keep their
// scaled width; the compositor pads them at render time. Still images
// get a fixed synthetic duration; videos below the minimum duration are
// rejected outright.
func Normalize(c SourceClip) (NormalizedClip, error) {
	if c.Width <= 0 || c.Height <= 0 {
		return NormalizedClip{}, fmt.Errorf("invalid source dimensions %dx%d", c.Width, c.Height)
	}

	duration := c.DurationSeconds
	switch c.Kind {
	case media.KindImage:
		duration = ImageDurationSeconds
	case media.KindVideo:
		if duration < MinClipDurationSeconds {
			return NormalizedClip{}, fmt.Errorf("%.2fs: %w", duration, ErrBelowMinDuration)
		}
	default:
		return NormalizedClip{}, fmt.Errorf("unsupported clip kind %q", c.Kind)
	}

	scaledWidth := int(math.Round(float64(c.Width) * float64(CanvasHeight) / float64(c.Height)))
	width := scaledWidth
	if scaledWidth >= CanvasWidth {
		width = CanvasWidth
	}

	return NormalizedClip{
		ItemID:          c.ItemID,
		LocalPath:       c.LocalPath,
		Kind:            c.Kind,
		Width:           width,
		Height:          CanvasHeight,
		DurationSeconds: duration,
	}, nil
}
