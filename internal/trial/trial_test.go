package trial

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/transcribeflow/internal/models"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	getErr error
	setErr error
}

func newMemStore(initial map[string]string) *memStore {
	s := &memStore{data: map[string][]byte{}}
	for k, v := range initial {
		s.data[k] = []byte(v)
	}
	return s
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.data[key], nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.sets++
	s.data[key] = value
	return nil
}

func (s *memStore) value(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data[key])
}

type fakeIdentity struct {
	user  *models.User
	err   error
	panic bool
	loads int
}

func (f *fakeIdentity) Load(context.Context) error {
	f.loads++
	if f.panic {
		panic("provider blew up")
	}
	return f.err
}

func (f *fakeIdentity) CurrentUser() *models.User { return f.user }

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newGate(t *testing.T, id Identity, store Store) *Gate {
	t.Helper()
	g := NewGate(id, store, quietLogger())
	g.Initialize(context.Background())
	return g
}

func TestGateTrialProgression(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(nil)
	g := newGate(t, &fakeIdentity{}, store)

	require.False(t, g.Authenticated())
	assert.Equal(t, models.ModeTrial, g.UploadMode())

	for i := range MaxTrialUploads {
		require.True(t, g.CanUpload(), "upload %d should be allowed", i+1)
		before := g.RemainingTrials()
		require.NoError(t, g.RecordSuccessfulUpload(ctx))
		assert.Equal(t, before-1, g.RemainingTrials())
	}

	assert.False(t, g.CanUpload())
	assert.Equal(t, 0, g.RemainingTrials())
	assert.Equal(t, "2", store.value(StorageKey))
}

func TestGateRemainingNeverNegative(t *testing.T) {
	g := newGate(t, nil, newMemStore(map[string]string{StorageKey: "7"}))

	assert.False(t, g.CanUpload())
	assert.Equal(t, 0, g.RemainingTrials())
	assert.Equal(t, 7, g.Used())
}

func TestGateFreshVisitorOneSuccess(t *testing.T) {
	store := newMemStore(nil)
	g := newGate(t, &fakeIdentity{}, store)

	assert.Equal(t, 2, g.RemainingTrials())
	require.NoError(t, g.RecordSuccessfulUpload(context.Background()))
	assert.Equal(t, 1, g.RemainingTrials())
	assert.Equal(t, "1", store.value(StorageKey))
}

func TestGateRoundTrip(t *testing.T) {
	store := newMemStore(nil)
	g := newGate(t, &fakeIdentity{}, store)
	require.NoError(t, g.RecordSuccessfulUpload(context.Background()))

	again := newGate(t, &fakeIdentity{}, store)
	assert.Equal(t, g.Used(), again.Used())
	assert.Equal(t, g.RemainingTrials(), again.RemainingTrials())
}

func TestGateProviderFailureIsNoUser(t *testing.T) {
	tc := []struct {
		name string
		id   Identity
	}{
		{name: "nil provider", id: nil},
		{name: "no user", id: &fakeIdentity{}},
		{name: "load error", id: &fakeIdentity{err: errors.New("network down"), user: &models.User{ID: "ignored"}}},
		{name: "panic", id: &fakeIdentity{panic: true}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(map[string]string{StorageKey: "1"})
			g := newGate(t, tt.id, store)

			assert.False(t, g.Authenticated())
			assert.Equal(t, models.ModeTrial, g.UploadMode())
			assert.Equal(t, 1, g.RemainingTrials())
			assert.True(t, g.CanUpload())
		})
	}
}

func TestGateAuthenticated(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(map[string]string{StorageKey: "2"})
	g := newGate(t, &fakeIdentity{user: &models.User{ID: "user-1"}}, store)

	require.True(t, g.Authenticated())
	assert.Equal(t, models.ModeAuthenticated, g.UploadMode())
	assert.True(t, g.CanUpload())

	require.NoError(t, g.RecordSuccessfulUpload(ctx))
	assert.True(t, g.CanUpload())
	assert.Equal(t, "2", store.value(StorageKey))
	assert.Zero(t, store.sets)
}

func TestGateCorruptOrMissingCount(t *testing.T) {
	tc := []struct {
		name   string
		stored map[string]string
	}{
		{name: "missing", stored: nil},
		{name: "not a number", stored: map[string]string{StorageKey: "abc"}},
		{name: "negative", stored: map[string]string{StorageKey: "-3"}},
		{name: "empty", stored: map[string]string{StorageKey: ""}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			g := newGate(t, &fakeIdentity{}, newMemStore(tt.stored))
			assert.Equal(t, 0, g.Used())
			assert.Equal(t, MaxTrialUploads, g.RemainingTrials())
		})
	}
}

func TestGateStorageErrors(t *testing.T) {
	t.Run("read error degrades to zero", func(t *testing.T) {
		store := newMemStore(map[string]string{StorageKey: "2"})
		store.getErr = errors.New("disk gone")

		g := newGate(t, &fakeIdentity{}, store)
		assert.Equal(t, 0, g.Used())
		assert.True(t, g.CanUpload())
	})

	t.Run("write error keeps in-memory count", func(t *testing.T) {
		store := newMemStore(nil)
		g := newGate(t, &fakeIdentity{}, store)
		store.setErr = errors.New("read-only")

		err := g.RecordSuccessfulUpload(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, g.Used())
		assert.Equal(t, 1, g.RemainingTrials())
	})
}

func TestGateConcurrentRecords(t *testing.T) {
	store := newMemStore(nil)
	g := newGate(t, &fakeIdentity{}, store)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.RecordSuccessfulUpload(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, g.Used())
	assert.Equal(t, "10", store.value(StorageKey))
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, 0, ParseCount(nil))
	assert.Equal(t, 3, ParseCount([]byte(" 3\n")))
	assert.Equal(t, 0, ParseCount([]byte("1.5")))
}
