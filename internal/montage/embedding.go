package montage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/yungbote/socialreel-backend/internal/clients/embed"
	"github.com/yungbote/socialreel-backend/internal/platform/localmedia"
	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

// FrameEmbedder computes one feature vector per video by sampling a
// fixed number of frames and averaging their per-frame vectors. It
// never returns an error: per-item failures become an ItemEmbedding
// with an ExcludedReason, which the reconciler absorbs without failing
// the job.
type FrameEmbedder interface {
	EmbedVideo(ctx context.Context, itemID uuid.UUID, localPath string, durationSeconds float64) ItemEmbedding
}

type frameEmbedder struct {
	log     *logger.Logger
	backend localmedia.Backend
	client  embed.Client
}

func NewFrameEmbedder(log *logger.Logger, backend localmedia.Backend, client embed.Client) FrameEmbedder {
	return &frameEmbedder{
		log:     log.With("service", "FrameEmbedder"),
		backend: backend,
		client:  client,
	}
}

func (f *frameEmbedder) EmbedVideo(ctx context.Context, itemID uuid.UUID, localPath string, durationSeconds float64) ItemEmbedding {
	if durationSeconds < MinClipDurationSeconds {
		return ItemEmbedding{ItemID: itemID, ExcludedReason: ExcludedBelowMinDuration}
	}

	vec, err := f.embed(ctx, localPath, durationSeconds)
	if err != nil {
		f.log.Warn("Embedding failed, excluding item from sequencing",
			"item_id", itemID,
			"error", err,
		)
		return ItemEmbedding{ItemID: itemID, ExcludedReason: ExcludedEmbeddingFailed}
	}
	return ItemEmbedding{ItemID: itemID, Vector: vec}
}

func (f *frameEmbedder) embed(ctx context.Context, localPath string, durationSeconds float64) (FeatureVector, error) {
	framesDir := filepath.Join(filepath.Dir(localPath), ".frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	var sum []float64
	var dim int
	sampled := 0

	for i := 1; i <= FramesPerVideo; i++ {
		at := durationSeconds * float64(i) / float64(FramesPerVideo+1)
		framePath := filepath.Join(framesDir, fmt.Sprintf("%s_%d.jpg", filepath.Base(localPath), i))

		if err := f.backend.ExtractFrame(ctx, localPath, at, framePath); err != nil {
			return nil, fmt.Errorf("extract frame %d: %w", i, err)
		}
		frame, err := os.ReadFile(framePath)
		_ = os.Remove(framePath)
		if err != nil {
			return nil, fmt.Errorf("read frame %d: %w", i, err)
		}

		vec, err := f.client.EmbedFrame(ctx, frame)
		if err != nil {
			return nil, fmt.Errorf("embed frame %d: %w", i, err)
		}
		if sum == nil {
			dim = len(vec)
			sum = make([]float64, dim)
		}
		if len(vec) != dim {
			return nil, fmt.Errorf("frame %d vector dim %d != %d", i, len(vec), dim)
		}
		for j, v := range vec {
			sum[j] += float64(v)
		}
		sampled++
	}

	if sampled == 0 {
		return nil, fmt.Errorf("no frames sampled")
	}
	avg := make(FeatureVector, dim)
	for j := range sum {
		avg[j] = float32(sum[j] / float64(sampled))
	}
	return avg, nil
}
