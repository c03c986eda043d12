package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBackend records writes and fails them on demand.
type failingBackend struct {
	kb     *KnowledgeBase
	fail   bool
	writes int
}

func (b *failingBackend) Read(ctx context.Context) (*KnowledgeBase, error) {
	if b.kb == nil {
		return NewKnowledgeBase(), nil
	}
	return b.kb.Clone(), nil
}

func (b *failingBackend) Write(ctx context.Context, kb *KnowledgeBase) error {
	b.writes++
	if b.fail {
		return errors.New("disk on fire")
	}
	b.kb = kb.Clone()
	return nil
}

func (b *failingBackend) Name() string { return "fake" }
func (b *failingBackend) Close() error { return nil }

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := NewStore(NewFileStore(filepath.Join(t.TempDir(), "kb.json"), testPolicy()))

	kb, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, kb.Len())
}

func TestFileStoreCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := NewStore(NewFileStore(path, testPolicy()))
	kb, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrUnreadable)
	require.NotNil(t, kb)
	assert.Equal(t, 0, kb.Len())

	// Still usable; the next write replaces the corrupt file.
	require.NoError(t, store.Add(context.Background(), "q", "a"))
	reopened := NewStore(NewFileStore(path, testPolicy()))
	kb, err = reopened.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Question: "q", Answer: "a"}}, kb.Entries())
}

func TestFileStoreBlankFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))

	kb, err := NewFileStore(path, testPolicy()).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, kb.Len())
}

func TestFileStoreAddPersistsImmediately(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kb.json")

	store := NewStore(NewFileStore(path, testPolicy()))
	_, err := store.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Add(ctx, "how do bees communicate", "through dance"))
	require.NoError(t, store.Add(ctx, "what is the capital of france", "Paris"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"how do bees communicate\": \"through dance\",\n  \"what is the capital of france\": \"Paris\"\n}\n", string(data))

	// A fresh store sees the same entries in the same order.
	reopened := NewStore(NewFileStore(path, testPolicy()))
	kb, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"how do bees communicate", "what is the capital of france"}, kb.Questions())
}

func TestStoreAddOverwrites(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	store := NewStore(backend)

	require.NoError(t, store.Add(ctx, "q", "first"))
	require.NoError(t, store.Add(ctx, "q", "second"))

	assert.Equal(t, 1, store.Len())
	got, ok := store.Answer("q")
	require.True(t, ok)
	assert.Equal(t, "second", got)
	assert.Equal(t, 2, backend.writes)
}

func TestStoreAddValidation(t *testing.T) {
	tests := []struct {
		name     string
		question string
		answer   string
		wantErr  error
	}{
		{"empty question", "", "a", ErrEmptyQuestion},
		{"blank question", "   ", "a", ErrEmptyQuestion},
		{"empty answer", "q", "", ErrEmptyAnswer},
		{"blank answer", "q", "\t", ErrEmptyAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &failingBackend{}
			store := NewStore(backend)

			err := store.Add(context.Background(), tt.question, tt.answer)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, store.Len())
			assert.Equal(t, 0, backend.writes)
		})
	}
}

func TestStoreAddRollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("new entry is removed", func(t *testing.T) {
		backend := &failingBackend{}
		store := NewStore(backend)
		require.NoError(t, store.Add(ctx, "kept", "yes"))

		backend.fail = true
		err := store.Add(ctx, "lost", "no")
		require.Error(t, err)

		_, ok := store.Answer("lost")
		assert.False(t, ok)
		assert.Equal(t, []string{"kept"}, store.Snapshot().Questions())
	})

	t.Run("overwrite restores previous answer", func(t *testing.T) {
		backend := &failingBackend{}
		store := NewStore(backend)
		require.NoError(t, store.Add(ctx, "q", "old"))

		backend.fail = true
		require.Error(t, store.Add(ctx, "q", "new"))

		got, _ := store.Answer("q")
		assert.Equal(t, "old", got)
	})
}

func TestFileStoreWriteFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the file makes rename fail permanently.
	path := filepath.Join(dir, "kb.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0755))

	store := NewStore(NewFileStore(path, testPolicy()))
	err := store.Add(context.Background(), "q", "a")
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	store := NewStore(backend)
	require.NoError(t, store.Add(ctx, "old", "x"))

	replacement := NewKnowledgeBase(Entry{Question: "new", Answer: "y"})
	require.NoError(t, store.Save(ctx, replacement))

	assert.Equal(t, []string{"new"}, store.Snapshot().Questions())
	assert.Equal(t, []string{"new"}, backend.kb.Questions())

	// Mutating the caller's copy does not leak into the store.
	replacement.Set("sneaky", "z")
	assert.Equal(t, 1, store.Len())
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	store := NewStore(&failingBackend{})
	require.NoError(t, store.Add(context.Background(), "q", "a"))

	snap := store.Snapshot()
	snap.Set("other", "b")
	assert.Equal(t, 1, store.Len())
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")

	store, err := Open(Options{Backend: "sqlite", Path: path, MaxRetries: 1, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	kb, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, kb.Len())

	require.NoError(t, store.Add(ctx, "zebra", "stripes"))
	require.NoError(t, store.Add(ctx, "apple", "fruit"))
	require.NoError(t, store.Add(ctx, "zebra", "horse-like"))
	require.NoError(t, store.Close())

	reopened, err := Open(Options{Backend: "sqlite", Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	kb, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Question: "zebra", Answer: "horse-like"},
		{Question: "apple", Answer: "fruit"},
	}, kb.Entries())
}

func TestSaveOfLoadRoundTrips(t *testing.T) {
	seed := []Entry{
		{Question: "zebra", Answer: "stripes"},
		{Question: "how do bees communicate", Answer: "through \"dance\"\nand smell"},
		{Question: "apple", Answer: "fruit"},
	}

	for _, backend := range []string{"json", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "kb")
			open := func() *Store {
				s, err := Open(Options{Backend: backend, Path: path, MaxRetries: 1, RetryDelay: time.Millisecond})
				require.NoError(t, err)
				return s
			}

			store := open()
			require.NoError(t, store.Save(ctx, NewKnowledgeBase(seed...)))
			require.NoError(t, store.Close())

			store = open()
			first, err := store.Load(ctx)
			require.NoError(t, err)
			require.NoError(t, store.Save(ctx, first))
			require.NoError(t, store.Close())

			store = open()
			defer store.Close()
			second, err := store.Load(ctx)
			require.NoError(t, err)

			assert.Equal(t, first.Entries(), second.Entries())
			assert.Equal(t, seed, second.Entries())
		})
	}
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		backend string
		want    string
		wantErr bool
	}{
		{"default is json", "", "json", false},
		{"json", "json", "json", false},
		{"sqlite", "SQLite", "sqlite", false},
		{"unknown", "redis", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(Options{Backend: tt.backend, Path: filepath.Join(dir, tt.name)})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownBackend)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.Equal(t, tt.want, store.backend.Name())
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"not exist", os.ErrNotExist, false},
		{"permission", os.ErrPermission, false},
		{"generic", errors.New("temporary glitch"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.err))
		})
	}
}

func TestRetryPolicyRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyStopsOnPermanentErrors(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return os.ErrPermission
	})
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, 1, calls)
}
