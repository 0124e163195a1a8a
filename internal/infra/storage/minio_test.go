package storage

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
)

// fakeS3 answers the handful of S3 calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// bucket-level calls arrive as "/<bucket>/"
	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case len(parts) == 2 && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	s, err := New(t.Context(), u.Host, "us-east-1", "scenarios", "key", "secret", false)
	require.NoError(t, err)
	return s, fake
}

func TestNewCreatesMissingBucket(t *testing.T) {
	_, fake := newTestStore(t)
	assert.True(t, fake.buckets["scenarios"])
}

func TestFakeS3BucketPaths(t *testing.T) {
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}}

	call := func(method, path string) int {
		rec := httptest.NewRecorder()
		fake.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, call(http.MethodHead, "/scenarios/"))
	assert.Equal(t, http.StatusOK, call(http.MethodPut, "/scenarios/"))
	assert.Equal(t, http.StatusOK, call(http.MethodHead, "/scenarios"))
	assert.Equal(t, http.StatusOK, call(http.MethodPut, "/scenarios/a/b.json"))
	assert.Contains(t, fake.objects, "/scenarios/a/b.json")
}

func TestArchive(t *testing.T) {
	s, fake := newTestStore(t)
	id := uuid.MustParse("6f1c2a5e-0000-4000-8000-000000000001")
	s.newID = func() uuid.UUID { return id }

	rec := &scenario.Record{
		ID:          42,
		Title:       "What if",
		Description: "What if",
		CreatedAt:   time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC),
	}
	loc, err := s.Archive(t.Context(), rec)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(loc, "/scenarios/scenarios/2026/03/07/42-"+id.String()+".json"), loc)

	stored := fake.objects["/scenarios/scenarios/2026/03/07/42-"+id.String()+".json"]
	// insecure uploads may arrive aws-chunked, so look for the payload inside the body
	assert.Contains(t, string(stored), `"id":42,"title":"What if"`)
}

func TestCheck(t *testing.T) {
	s, fake := newTestStore(t)
	require.NoError(t, s.Check(t.Context()))

	fake.mu.Lock()
	delete(fake.buckets, "scenarios")
	fake.mu.Unlock()
	assert.Error(t, s.Check(t.Context()))
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("00000000-0000-4000-8000-000000000000")
	rec := &scenario.Record{ID: 7, CreatedAt: time.Date(2026, 12, 31, 23, 59, 0, 0, time.FixedZone("X", -3600))}
	assert.Equal(t, "scenarios/2027/01/01/7-00000000-0000-4000-8000-000000000000.json", objectKey(rec, id))
}
