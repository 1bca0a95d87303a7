package montage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/socialreel-backend/internal/domain"
	"github.com/yungbote/socialreel-backend/internal/platform/dbctx"
	"github.com/yungbote/socialreel-backend/internal/platform/gcp"
	"github.com/yungbote/socialreel-backend/internal/platform/localmedia"
	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	return log
}

// ---- catalog fake ----

type fakeCatalog struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*types.MediaItem
	order   []uuid.UUID
	outputs []*types.MediaItem
	diags   map[uuid.UUID]string

	listErr   error
	insertErr error
	// fail the Nth UpdateStorageKey call (1-based); 0 disables
	failUpdateAt int
	updateCalls  int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		items: map[uuid.UUID]*types.MediaItem{},
		diags: map[uuid.UUID]string{},
	}
}

func (c *fakeCatalog) add(item *types.MediaItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
	c.order = append(c.order, item.ID)
}

func (c *fakeCatalog) ListPendingIncoming(dbc dbctx.Context) ([]*types.MediaItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	var out []*types.MediaItem
	for _, id := range c.order {
		it := c.items[id]
		if it.IsTrashed || !strings.HasPrefix(it.StorageKey, types.PrefixIncoming) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *fakeCatalog) UpdateStorageKey(dbc dbctx.Context, id uuid.UUID, newKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateCalls++
	if c.failUpdateAt > 0 && c.updateCalls == c.failUpdateAt {
		return fmt.Errorf("catalog update failed")
	}
	it, ok := c.items[id]
	if !ok {
		return fmt.Errorf("no item %s", id)
	}
	it.StorageKey = newKey
	return nil
}

func (c *fakeCatalog) UpdateDiagnostics(dbc dbctx.Context, id uuid.UUID, diagnostics datatypes.JSON) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return fmt.Errorf("no item %s", id)
	}
	c.diags[id] = string(diagnostics)
	return nil
}

func (c *fakeCatalog) InsertOutput(dbc dbctx.Context, item *types.MediaItem) (*types.MediaItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	c.outputs = append(c.outputs, item)
	return item, nil
}

// ---- object store fake ----

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	moves   [][2]string

	downloadErr map[string]error
	uploadErr   error
	moveErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, downloadErr: map[string]error{}}
}

func (s *fakeStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.downloadErr[key]; err != nil {
		return nil, err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object %q", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Move(ctx context.Context, srcKey, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moveErr != nil {
		return s.moveErr
	}
	if _, exists := s.objects[dstKey]; exists {
		return fmt.Errorf("move %s->%s: %w", srcKey, dstKey, gcp.ErrObjectExists)
	}
	data, ok := s.objects[srcKey]
	if !ok {
		return fmt.Errorf("no object %q", srcKey)
	}
	s.objects[dstKey] = data
	delete(s.objects, srcKey)
	s.moves = append(s.moves, [2]string{srcKey, dstKey})
	return nil
}

// ---- probe fake (keyed by base filename) ----

type fakeProbe struct {
	infos map[string]localmedia.ProbeInfo
	errs  map[string]error
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{infos: map[string]localmedia.ProbeInfo{}, errs: map[string]error{}}
}

func (p *fakeProbe) Probe(ctx context.Context, path string) (localmedia.ProbeInfo, error) {
	base := filepath.Base(path)
	if err := p.errs[base]; err != nil {
		return localmedia.ProbeInfo{}, err
	}
	info, ok := p.infos[base]
	if !ok {
		return localmedia.ProbeInfo{}, fmt.Errorf("no probe info for %q", base)
	}
	return info, nil
}

// ---- embedder fake (keyed by item id) ----

type fakeEmbedder struct {
	vectors map[uuid.UUID]FeatureVector
}

func (e *fakeEmbedder) EmbedVideo(ctx context.Context, itemID uuid.UUID, localPath string, durationSeconds float64) ItemEmbedding {
	if durationSeconds < MinClipDurationSeconds {
		return ItemEmbedding{ItemID: itemID, ExcludedReason: ExcludedBelowMinDuration}
	}
	if vec, ok := e.vectors[itemID]; ok {
		return ItemEmbedding{ItemID: itemID, Vector: vec}
	}
	return ItemEmbedding{ItemID: itemID, ExcludedReason: ExcludedEmbeddingFailed}
}

// ---- composer fake ----

type fakeComposer struct {
	mu       sync.Mutex
	composed [][]NormalizedClip
	output   []byte
	err      error
}

func (f *fakeComposer) Compose(ctx context.Context, jobDir string, clips []NormalizedClip) (string, error) {
	if len(clips) == 0 {
		return "", &CompositionError{Err: ErrNoUsableClips}
	}
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	f.composed = append(f.composed, clips)
	f.mu.Unlock()

	out := filepath.Join(jobDir, "montage_output.mp4")
	data := f.output
	if data == nil {
		data = []byte("mp4")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", err
	}
	return out, nil
}

// ---- localmedia backend fake ----

type fakeBackend struct {
	mu       sync.Mutex
	rendered []localmedia.ClipSpec
	concats  [][]string

	probeInfos map[string]localmedia.ProbeInfo
	frameData  []byte

	renderErr  error
	concatErr  error
	extractErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		probeInfos: map[string]localmedia.ProbeInfo{},
		frameData:  []byte("jpeg"),
	}
}

func (b *fakeBackend) AssertReady(ctx context.Context) error { return nil }

func (b *fakeBackend) Probe(ctx context.Context, path string) (localmedia.ProbeInfo, error) {
	info, ok := b.probeInfos[filepath.Base(path)]
	if !ok {
		return localmedia.ProbeInfo{}, fmt.Errorf("no probe info for %q", path)
	}
	return info, nil
}

func (b *fakeBackend) ExtractFrame(ctx context.Context, videoPath string, atSeconds float64, outPath string) error {
	if b.extractErr != nil {
		return b.extractErr
	}
	return os.WriteFile(outPath, b.frameData, 0o644)
}

func (b *fakeBackend) RenderClip(ctx context.Context, spec localmedia.ClipSpec) error {
	if b.renderErr != nil {
		return b.renderErr
	}
	b.mu.Lock()
	b.rendered = append(b.rendered, spec)
	b.mu.Unlock()
	return os.WriteFile(spec.OutputPath, []byte("part"), 0o644)
}

func (b *fakeBackend) Concat(ctx context.Context, partPaths []string, outPath string, frameRate int) error {
	if b.concatErr != nil {
		return b.concatErr
	}
	b.mu.Lock()
	b.concats = append(b.concats, partPaths)
	b.mu.Unlock()
	return os.WriteFile(outPath, []byte("montage"), 0o644)
}

// ---- item seeding ----

func seedItem(c *fakeCatalog, s *fakeStore, key string, createdAt time.Time) *types.MediaItem {
	item := &types.MediaItem{
		ID:         uuid.New(),
		Name:       filepath.Base(key),
		StorageKey: key,
		SizeBytes:  int64(len(key)),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	c.add(item)
	if s != nil {
		s.objects[key] = []byte("bytes-of-" + filepath.Base(key))
	}
	return item
}
