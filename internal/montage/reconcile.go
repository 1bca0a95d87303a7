package montage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	types "github.com/yungbote/socialreel-backend/internal/domain"
	"github.com/yungbote/socialreel-backend/internal/domain/media"
	"github.com/yungbote/socialreel-backend/internal/platform/dbctx"
	"github.com/yungbote/socialreel-backend/internal/platform/gcp"
	"github.com/yungbote/socialreel-backend/internal/platform/localmedia"
	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

// Catalog is the slice of the media repo the reconciler needs; the
// concrete repo in data/repos/media satisfies it.
type Catalog interface {
	ListPendingIncoming(dbc dbctx.Context) ([]*types.MediaItem, error)
	UpdateStorageKey(dbc dbctx.Context, id uuid.UUID, newKey string) error
	UpdateDiagnostics(dbc dbctx.Context, id uuid.UUID, diagnostics datatypes.JSON) error
	InsertOutput(dbc dbctx.Context, item *types.MediaItem) (*types.MediaItem, error)
}

// ObjectStore is the slice of the bucket service the reconciler needs.
// Move must refuse to clobber an existing destination by returning an
// error matching gcp.ErrObjectExists.
type ObjectStore interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Move(ctx context.Context, srcKey, dstKey string) error
}

// MediaProbe reports raw clip geometry; localmedia.Backend satisfies it.
type MediaProbe interface {
	Probe(ctx context.Context, path string) (localmedia.ProbeInfo, error)
}

// Reconciler runs one build end to end: discover, download, embed,
// compose, publish, archive, update catalog. It is the unit of work the
// orchestrator schedules.
type Reconciler struct {
	log      *logger.Logger
	catalog  Catalog
	store    ObjectStore
	probe    MediaProbe
	embedder FrameEmbedder
	composer Composer
	workRoot string

	now func() time.Time
}

func NewReconciler(
	log *logger.Logger,
	catalog Catalog,
	store ObjectStore,
	probe MediaProbe,
	embedder FrameEmbedder,
	composer Composer,
	workRoot string,
) *Reconciler {
	return &Reconciler{
		log:      log.With("service", "Reconciler"),
		catalog:  catalog,
		store:    store,
		probe:    probe,
		embedder: embedder,
		composer: composer,
		workRoot: workRoot,
		now:      time.Now,
	}
}

type localEntry struct {
	item      *types.MediaItem
	localPath string

	embedding ItemEmbedding
	excluded  string
}

// RunOnce executes the six reconciliation steps strictly in order.
// Returns (nil, nil) when nothing is pending. Stage failures abort the
// remainder; per-item embedding failures do not. Archival is not atomic
// across items: a failure there leaves earlier items archived and later
// ones pending for the next run.
func (r *Reconciler) RunOnce(ctx context.Context) (*Artifact, error) {
	dbc := dbctx.New(ctx)

	// Step 1: discover.
	rows, err := r.catalog.ListPendingIncoming(dbc)
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}
	if len(rows) == 0 {
		r.log.Info("No pending items, nothing to build")
		return nil, nil
	}

	jobDir := filepath.Join(r.workRoot, fmt.Sprintf("job_%d_%d_%d", os.Getpid(), r.now().UnixMilli(), rand.Intn(1_000_000_000)))
	if err := os.MkdirAll(filepath.Join(jobDir, "inputs"), 0o755); err != nil {
		return nil, &DownloadError{Err: fmt.Errorf("create job dir: %w", err)}
	}
	defer os.RemoveAll(jobDir)

	// Step 2: download everything before any side effects.
	entries, err := r.downloadAll(ctx, jobDir, rows)
	if err != nil {
		return nil, err
	}

	// Step 3: per-video embeddings; failures recorded, never fatal.
	r.embedAll(ctx, entries)

	// Step 4: sequence, normalize, compose.
	outPath, err := r.compose(ctx, jobDir, entries)
	if err != nil {
		return nil, err
	}

	// Step 5: publish artifact + catalog record.
	ts := r.now().UTC().Format("20060102_150405")
	artifact, err := r.publish(ctx, dbc, outPath, ts)
	if err != nil {
		return nil, err
	}

	// Step 6: archive every downloaded input, used or not.
	if err := r.archiveAll(ctx, dbc, entries); err != nil {
		return nil, err
	}

	r.log.Info("Build complete",
		"artifact", artifact.StorageKey,
		"size_bytes", artifact.SizeBytes,
		"inputs", len(entries),
	)
	return artifact, nil
}

func (r *Reconciler) downloadAll(ctx context.Context, jobDir string, rows []*types.MediaItem) ([]*localEntry, error) {
	entries := make([]*localEntry, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, row := range rows {
		entries[i] = &localEntry{
			item:      row,
			localPath: filepath.Join(jobDir, "inputs", path.Base(row.StorageKey)),
		}
		entry := entries[i]
		g.Go(func() error {
			rc, err := r.store.Download(gctx, entry.item.StorageKey)
			if err != nil {
				return &DownloadError{Key: entry.item.StorageKey, Err: err}
			}
			defer rc.Close()

			f, err := os.Create(entry.localPath)
			if err != nil {
				return &DownloadError{Key: entry.item.StorageKey, Err: err}
			}
			if _, err := io.Copy(f, rc); err != nil {
				_ = f.Close()
				return &DownloadError{Key: entry.item.StorageKey, Err: err}
			}
			if err := f.Close(); err != nil {
				return &DownloadError{Key: entry.item.StorageKey, Err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Reconciler) embedAll(ctx context.Context, entries []*localEntry) {
	for _, entry := range entries {
		if entry.item.ItemKind() != media.KindVideo {
			continue
		}
		info, err := r.probe.Probe(ctx, entry.localPath)
		if err != nil {
			r.log.Warn("Probe failed, excluding video", "key", entry.item.StorageKey, "error", err)
			entry.excluded = ExcludedProbeFailed
			continue
		}
		entry.embedding = r.embedder.EmbedVideo(ctx, entry.item.ID, entry.localPath, info.DurationSeconds)
		if !entry.embedding.HasVector() {
			entry.excluded = entry.embedding.ExcludedReason
		}
	}
}

func (r *Reconciler) compose(ctx context.Context, jobDir string, entries []*localEntry) (string, error) {
	byID := make(map[uuid.UUID]*localEntry, len(entries))
	embeddings := make([]ItemEmbedding, 0, len(entries))
	for _, entry := range entries {
		byID[entry.item.ID] = entry
		if entry.item.ItemKind() == media.KindVideo && entry.embedding.HasVector() {
			embeddings = append(embeddings, entry.embedding)
		}
	}

	// Videos in tour order, then images in discovery order. Images
	// deliberately skip the similarity tour.
	sequenced := make([]*localEntry, 0, len(entries))
	for _, id := range Order(embeddings) {
		sequenced = append(sequenced, byID[id])
	}
	for _, entry := range entries {
		if entry.item.ItemKind() == media.KindImage {
			sequenced = append(sequenced, entry)
		}
	}
	for _, entry := range entries {
		if entry.item.ItemKind() == media.KindOther && entry.excluded == "" {
			entry.excluded = ExcludedUnsupportedKind
		}
	}

	clips := make([]NormalizedClip, 0, len(sequenced))
	for _, entry := range sequenced {
		info, err := r.probe.Probe(ctx, entry.localPath)
		if err != nil {
			r.log.Warn("Probe failed, excluding item from composition", "key", entry.item.StorageKey, "error", err)
			entry.excluded = ExcludedProbeFailed
			continue
		}
		clip, err := Normalize(SourceClip{
			ItemID:          entry.item.ID,
			LocalPath:       entry.localPath,
			Kind:            entry.item.ItemKind(),
			Width:           info.Width,
			Height:          info.Height,
			DurationSeconds: info.DurationSeconds,
		})
		if err != nil {
			if errors.Is(err, ErrBelowMinDuration) {
				entry.excluded = ExcludedBelowMinDuration
			} else if entry.excluded == "" {
				entry.excluded = ExcludedNormalizeFailed
			}
			r.log.Warn("Normalize failed, excluding item from composition", "key", entry.item.StorageKey, "error", err)
			continue
		}
		clips = append(clips, clip)
	}

	return r.composer.Compose(ctx, jobDir, clips)
}

func (r *Reconciler) publish(ctx context.Context, dbc dbctx.Context, outPath, ts string) (*Artifact, error) {
	outName := "montage_output_" + ts + ".mp4"
	outKey := types.PrefixOutputs + outName

	stat, err := os.Stat(outPath)
	if err != nil {
		return nil, &PublishError{Key: outKey, Err: err}
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, &PublishError{Key: outKey, Err: err}
	}
	defer f.Close()

	if err := r.store.Upload(ctx, outKey, f, "video/mp4"); err != nil {
		return nil, &PublishError{Key: outKey, Err: err}
	}

	row := &types.MediaItem{
		ID:         uuid.New(),
		Name:       outName,
		StorageKey: outKey,
		MimeType:   "video/mp4",
		SizeBytes:  stat.Size(),
	}
	if _, err := r.catalog.InsertOutput(dbc, row); err != nil {
		return nil, &PublishError{Key: outKey, Err: fmt.Errorf("insert catalog record: %w", err)}
	}

	return &Artifact{
		Name:       outName,
		StorageKey: outKey,
		SizeBytes:  stat.Size(),
		MimeType:   "video/mp4",
		LocalPath:  outPath,
	}, nil
}

func (r *Reconciler) archiveAll(ctx context.Context, dbc dbctx.Context, entries []*localEntry) error {
	ts := r.now().UTC().Format("20060102150405")
	for _, entry := range entries {
		srcKey := entry.item.StorageKey
		destKey := types.PrefixArchive + path.Base(srcKey) + "." + ts

		if err := r.store.Move(ctx, srcKey, destKey); err != nil {
			if !errors.Is(err, gcp.ErrObjectExists) {
				return &ArchiveError{Key: srcKey, Err: err}
			}
			// Destination taken; retry once with a finer timestamp.
			destKey = types.PrefixArchive + path.Base(srcKey) + "." + r.now().UTC().Format("20060102150405.000000000")
			if err := r.store.Move(ctx, srcKey, destKey); err != nil {
				return &ArchiveError{Key: srcKey, Err: err}
			}
		}

		if err := r.catalog.UpdateStorageKey(dbc, entry.item.ID, destKey); err != nil {
			return &ArchiveError{Key: srcKey, Err: fmt.Errorf("update catalog row: %w", err)}
		}

		if entry.excluded != "" {
			diag, _ := json.Marshal(map[string]string{"excluded_reason": entry.excluded})
			if err := r.catalog.UpdateDiagnostics(dbc, entry.item.ID, datatypes.JSON(diag)); err != nil {
				return &ArchiveError{Key: srcKey, Err: fmt.Errorf("update diagnostics: %w", err)}
			}
		}
	}
	return nil
}
