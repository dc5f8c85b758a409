package inventory

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shramba/internal/backend"
	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/model"
)

const testGroup = "kitchen42"

var testClock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingDocs counts writes and can fail or swallow them.
type recordingDocs struct {
	Documents

	mu      sync.Mutex
	creates int
	updates []model.ItemPatch
	deletes []string

	failCreate    error
	failUpdate    error
	failDelete    error
	swallowUpdate bool
}

func (r *recordingDocs) Create(ctx context.Context, groupID string, fields model.ItemFields) (string, uint64, error) {
	r.mu.Lock()
	r.creates++
	fail := r.failCreate
	r.mu.Unlock()
	if fail != nil {
		return "", 0, fail
	}
	return r.Documents.Create(ctx, groupID, fields)
}

func (r *recordingDocs) Update(ctx context.Context, groupID, id string, patch model.ItemPatch) (uint64, error) {
	r.mu.Lock()
	r.updates = append(r.updates, patch)
	fail, swallow := r.failUpdate, r.swallowUpdate
	r.mu.Unlock()
	if fail != nil {
		return 0, fail
	}
	if swallow {
		return 0, nil
	}
	return r.Documents.Update(ctx, groupID, id, patch)
}

func (r *recordingDocs) Delete(ctx context.Context, groupID, id string) (uint64, error) {
	r.mu.Lock()
	r.deletes = append(r.deletes, id)
	fail := r.failDelete
	r.mu.Unlock()
	if fail != nil {
		return 0, fail
	}
	return r.Documents.Delete(ctx, groupID, id)
}

func (r *recordingDocs) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates + len(r.updates) + len(r.deletes)
}

// mockBlobs is a testify mock of the image store.
type mockBlobs struct {
	mock.Mock
}

func (m *mockBlobs) Upload(ctx context.Context, groupID, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, groupID, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockBlobs) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

type fixture struct {
	db     *sql.DB
	coll   *backend.Collection
	blobs  *backend.Blobs
	docs   *recordingDocs
	engine *Engine
}

// newFixture builds a subscribed engine over an in-memory backend. A nil
// blobs argument uses the real blob store.
func newFixture(t *testing.T, blobs Blobs) *fixture {
	t.Helper()

	database := db.NewTestDB(t)
	f := &fixture{
		db:    database,
		coll:  backend.NewCollection(database),
		blobs: backend.NewBlobs(database, ""),
	}
	f.docs = &recordingDocs{Documents: Collection(f.coll)}
	if blobs == nil {
		blobs = f.blobs
	}

	e, err := New(model.Session{ID: "s1", GroupID: testGroup, SignedIn: true}, f.docs, blobs,
		WithLogger(discardLogger()), WithClock(func() time.Time { return testClock }))
	require.NoError(t, err)

	_, err = e.Subscribe(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	f.engine = e
	return f
}

// seed writes an item directly to the backend, as another client would,
// and waits for the engine to see it.
func (f *fixture) seed(t *testing.T, fields model.ItemFields) string {
	t.Helper()
	id, _, err := f.coll.Create(context.Background(), testGroup, fields)
	require.NoError(t, err)
	f.waitFor(t, func(items []model.Item) bool { return hasID(items, id) })
	return id
}

func (f *fixture) waitFor(t *testing.T, cond func([]model.Item) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(f.engine.Items()) }, 2*time.Second, 5*time.Millisecond)
}

func (f *fixture) waitForName(t *testing.T, name string) model.Item {
	t.Helper()
	var found model.Item
	f.waitFor(t, func(items []model.Item) bool {
		for _, item := range items {
			if item.Name == name {
				found = item
				return true
			}
		}
		return false
	})
	return found
}

func hasID(items []model.Item, id string) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func itemNames(items []model.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeFeed is a feed driven by the test.
type fakeFeed struct {
	ch   chan model.Snapshot
	once sync.Once

	mu  sync.Mutex
	err error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan model.Snapshot, 1)}
}

func (f *fakeFeed) Snapshots() <-chan model.Snapshot { return f.ch }

func (f *fakeFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeFeed) Close() error {
	f.end(nil)
	return nil
}

func (f *fakeFeed) end(err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.ch)
	})
}

// feedDocs serves a single fake feed.
type feedDocs struct {
	Documents
	feed *fakeFeed
}

func (d *feedDocs) Watch(ctx context.Context, groupID string) (Feed, error) {
	return d.feed, nil
}
