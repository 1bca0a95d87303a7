package montage

import (
	"github.com/google/uuid"

	"github.com/yungbote/socialreel-backend/internal/domain/media"
)

// Output canvas contract: vertical 9:16 reel.
const (
	CanvasWidth     = 1080
	CanvasHeight    = 1920
	OutputFrameRate = 30

	ImageDurationSeconds   = 3.0
	MinClipDurationSeconds = 0.5
	FramesPerVideo         = 5
)

type FeatureVector []float32

// Exclusion reasons recorded when an item carries no usable vector or
// cannot be composed. They travel with the item to archival so operators
// can see why something never made it into the published reel.
const (
	ExcludedBelowMinDuration = "below_min_duration"
	ExcludedProbeFailed      = "probe_failed"
	ExcludedEmbeddingFailed  = "embedding_failed"
	ExcludedNormalizeFailed  = "normalize_failed"
	ExcludedUnsupportedKind  = "unsupported_kind"
)

// ItemEmbedding is the per-item embedding result: either a vector or an
// explicit reason why there is none. Absence of a vector is a valid
// state, not an error.
type ItemEmbedding struct {
	ItemID         uuid.UUID
	Vector         FeatureVector
	ExcludedReason string
}

func (e ItemEmbedding) HasVector() bool { return len(e.Vector) > 0 }

// SourceClip is the raw descriptor fed into canvas normalization.
type SourceClip struct {
	ItemID          uuid.UUID
	LocalPath       string
	Kind            media.Kind
	Width           int
	Height          int
	DurationSeconds float64
}

// NormalizedClip satisfies the canvas contract: height equals the
// canvas height; width equals the canvas width for wide sources and
// stays narrower for narrow ones (the compositor pads those at render
// time).
type NormalizedClip struct {
	ItemID          uuid.UUID
	LocalPath       string
	Kind            media.Kind
	Width           int
	Height          int
	DurationSeconds float64
}

// Artifact describes one published montage. One per successful job.
type Artifact struct {
	Name       string
	StorageKey string
	SizeBytes  int64
	MimeType   string
	LocalPath  string
}
