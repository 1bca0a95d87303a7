package montage

import (
	"errors"
	"fmt"
)

// Stage-level failures abort the rest of the job; the stage name tells
// the operator how far the run got and what state it left behind.

type DiscoveryError struct{ Err error }

func (e *DiscoveryError) Error() string { return fmt.Sprintf("discover pending items: %v", e.Err) }
func (e *DiscoveryError) Unwrap() error { return e.Err }

type DownloadError struct {
	Key string
	Err error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("download %s: %v", e.Key, e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

type CompositionError struct{ Err error }

func (e *CompositionError) Error() string { return fmt.Sprintf("compose montage: %v", e.Err) }
func (e *CompositionError) Unwrap() error { return e.Err }

type PublishError struct {
	Key string
	Err error
}

func (e *PublishError) Error() string { return fmt.Sprintf("publish %s: %v", e.Key, e.Err) }
func (e *PublishError) Unwrap() error { return e.Err }

// ArchiveError means the job stopped partway through archival:
// already-archived items stay archived, the rest remain pending for the
// next run.
type ArchiveError struct {
	Key string
	Err error
}

func (e *ArchiveError) Error() string { return fmt.Sprintf("archive %s: %v", e.Key, e.Err) }
func (e *ArchiveError) Unwrap() error { return e.Err }

// ErrNoUsableClips is wrapped in a CompositionError when every pending
// item was filtered out before composition.
var ErrNoUsableClips = errors.New("no usable video or image clips to compose")

// ErrBelowMinDuration marks a video too short to take part in the reel.
var ErrBelowMinDuration = errors.New("clip below minimum duration")
