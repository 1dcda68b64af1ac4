package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/github-users/internal/apperror"
	"github.com/sakif/github-users/internal/model"
	"github.com/sakif/github-users/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeStore serves a swappable in-memory dataset as the filtered snapshot.
type fakeStore struct {
	mu  sync.Mutex
	ds  model.Dataset
	err error
}

func (f *fakeStore) Save(ctx context.Context, name string, ds model.Dataset) error {
	return errors.New("not implemented")
}

func (f *fakeStore) Load(ctx context.Context, name string) (model.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if name != store.SnapshotFiltered {
		return nil, fmt.Errorf("unexpected snapshot name %q", name)
	}
	return f.ds, nil
}

func (f *fakeStore) set(ds model.Dataset, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ds, f.err = ds, err
}

func dataset(logins ...string) model.Dataset {
	ds := make(model.Dataset, len(logins))
	for i, login := range logins {
		ds[i] = model.UserRecord{
			Login:     login,
			ID:        int64(i + 1),
			CreatedAt: "2015-01-01T00:00:00Z",
			AvatarURL: "https://example.com/a.png",
			Bio:       "builds things",
		}
	}
	return ds
}

func TestUserService_QueriesBeforeLoadFail(t *testing.T) {
	svc := NewUserService(&fakeStore{}, testLogger())
	ctx := context.Background()

	_, err := svc.List(ctx)
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = svc.Get(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = svc.Search(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestUserService_ReloadThenQuery(t *testing.T) {
	st := &fakeStore{ds: dataset("alice", "bob")}
	svc := NewUserService(st, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Reload(ctx))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	rec, err := svc.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", rec.Login)

	_, err = svc.Get(ctx, "carol")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	matches, err := svc.Search(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = svc.Search(ctx, "al")
	assert.ErrorIs(t, err, apperror.ErrQueryTooShort)
}

// A failed reload must leave the previous catalog serving.
func TestUserService_FailedReloadKeepsOldCatalog(t *testing.T) {
	st := &fakeStore{ds: dataset("alice")}
	svc := NewUserService(st, testLogger())
	ctx := context.Background()
	require.NoError(t, svc.Reload(ctx))

	st.set(nil, errors.New("disk on fire"))
	assert.Error(t, svc.Reload(ctx))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "old catalog should still be active after a failed reload")
}

// Concurrent readers during reloads must each see a complete catalog from a
// single snapshot, never a mix.
func TestUserService_SnapshotSwapIsAtomic(t *testing.T) {
	// Two generations, distinguishable by bio. Every record in a response
	// must come from the same generation.
	gen := func(tag string, n int) model.Dataset {
		ds := make(model.Dataset, n)
		for i := range ds {
			ds[i] = model.UserRecord{
				Login: fmt.Sprintf("user%d", i),
				ID:    int64(i + 1),
				Bio:   tag,
			}
		}
		return ds
	}

	st := &fakeStore{ds: gen("gen-a", 5)}
	svc := NewUserService(st, testLogger())
	ctx := context.Background()
	require.NoError(t, svc.Reload(ctx))

	done := make(chan struct{})
	var writer sync.WaitGroup

	// Writer: flip between generations until the readers finish.
	writer.Add(1)
	go func() {
		defer writer.Done()
		tags := []string{"gen-a", "gen-b"}
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			st.set(gen(tags[i%2], 5), nil)
			if err := svc.Reload(ctx); err != nil {
				t.Errorf("Reload() error = %v", err)
				return
			}
		}
	}()

	// Readers: every response must be internally consistent.
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 500; i++ {
				list, err := svc.List(ctx)
				if err != nil {
					t.Errorf("List() error = %v", err)
					return
				}
				if len(list) != 5 {
					t.Errorf("List() returned %d records, want 5", len(list))
					return
				}
				tag := list[0].Bio
				for _, rec := range list {
					if rec.Bio != tag {
						t.Errorf("mixed generations in one response: %q and %q", tag, rec.Bio)
						return
					}
				}
			}
		}()
	}

	readers.Wait()
	close(done)
	writer.Wait()
}
