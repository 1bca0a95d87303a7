package montage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yungbote/socialreel-backend/internal/domain/media"
	"github.com/yungbote/socialreel-backend/internal/platform/localmedia"
	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

// Composer turns an ordered list of normalized clips into one local
// artifact. The output lands in the caller-owned jobDir; everything
// else the composer produces lives in a scoped directory that is
// released on every exit path.
type Composer interface {
	Compose(ctx context.Context, jobDir string, clips []NormalizedClip) (string, error)
}

type composer struct {
	log     *logger.Logger
	backend localmedia.Backend
}

func NewComposer(log *logger.Logger, backend localmedia.Backend) Composer {
	return &composer{
		log:     log.With("service", "Composer"),
		backend: backend,
	}
}

func (c *composer) Compose(ctx context.Context, jobDir string, clips []NormalizedClip) (string, error) {
	if len(clips) == 0 {
		return "", &CompositionError{Err: ErrNoUsableClips}
	}

	partsDir := filepath.Join(jobDir, "parts")
	if err := os.MkdirAll(partsDir, 0o755); err != nil {
		return "", &CompositionError{Err: fmt.Errorf("create parts dir: %w", err)}
	}
	defer os.RemoveAll(partsDir)

	partPaths := make([]string, 0, len(clips))
	for i, clip := range clips {
		partPath := filepath.Join(partsDir, "part_"+strconv.Itoa(i)+".mp4")
		spec := localmedia.ClipSpec{
			InputPath:    clip.LocalPath,
			OutputPath:   partPath,
			CanvasWidth:  CanvasWidth,
			CanvasHeight: CanvasHeight,
			FrameRate:    OutputFrameRate,
		}
		if clip.Kind == media.KindImage {
			spec.IsStill = true
			spec.StillDurationSeconds = clip.DurationSeconds
		}
		if err := c.backend.RenderClip(ctx, spec); err != nil {
			return "", &CompositionError{Err: err}
		}
		partPaths = append(partPaths, partPath)
	}

	outPath := filepath.Join(jobDir, "montage_output.mp4")
	if err := c.backend.Concat(ctx, partPaths, outPath, OutputFrameRate); err != nil {
		return "", &CompositionError{Err: err}
	}

	c.log.Info("Montage composed", "clips", len(clips), "output", outPath)
	return outPath, nil
}
