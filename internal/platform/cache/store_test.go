package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore[[]string](time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) ([]string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return []string{"#2J200GLG8", "#8QYQ0PU"}, nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "players:tags", loader)
			if err != nil {
				errCh <- err
				return
			}
			if len(v) != 2 {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	store := NewStore[int](time.Minute)
	var calls atomic.Int32
	errBoom := errors.New("boom")

	loader := func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, errBoom
		}
		return 7, nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); !errors.Is(err, errBoom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	got, err := store.GetOrLoad(context.Background(), "k", loader)
	if err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}
	if got != 7 {
		t.Fatalf("unexpected value: got=%d want=7", got)
	}
	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("third GetOrLoad error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("loader called %d times, want 2", calls.Load())
	}
}

func TestStore_ExpiryAndPrefixDelete(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	store.Set(ctx, "player:tag:#A", "a")
	store.Set(ctx, "player:tag:#B", "b")
	store.Set(ctx, "players:list", "all")

	store.DeletePrefix(ctx, "player:tag:")
	if _, ok := store.Get(ctx, "player:tag:#A"); ok {
		t.Fatalf("prefix delete should drop player:tag:#A")
	}
	if store.Len() != 1 {
		t.Fatalf("unexpected entry count: got=%d want=1", store.Len())
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(ctx, "players:list"); ok {
		t.Fatalf("entry should expire after ttl")
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")

func TestStore_DeleteDuringLoadIsNotStored(t *testing.T) {
	t.Parallel()

	store := NewStore[int](time.Minute)
	ctx := context.Background()
	loading := make(chan struct{})
	release := make(chan struct{})

	done := make(chan int, 1)
	go func() {
		v, _ := store.GetOrLoad(ctx, "battles:list", func(context.Context) (int, error) {
			close(loading)
			<-release
			return 1, nil
		})
		done <- v
	}()

	<-loading
	store.DeletePrefix(ctx, "battles:")
	close(release)

	if got := <-done; got != 1 {
		t.Fatalf("in-flight caller should still get its value, got %d", got)
	}
	if _, ok := store.Get(ctx, "battles:list"); ok {
		t.Fatalf("a load that overlapped a delete must not be cached")
	}

	got, err := store.GetOrLoad(ctx, "battles:list", func(context.Context) (int, error) { return 2, nil })
	if err != nil || got != 2 {
		t.Fatalf("reload: got=%d err=%v", got, err)
	}
	if v, ok := store.Get(ctx, "battles:list"); !ok || v != 2 {
		t.Fatalf("expected reloaded value cached, got=%d ok=%v", v, ok)
	}
}

func TestStore_Stats(t *testing.T) {
	t.Parallel()

	store := NewStore[string](0)
	ctx := context.Background()

	store.Get(ctx, "card:catalog")
	store.Set(ctx, "card:catalog", "v1")
	store.Get(ctx, "card:catalog")
	store.Get(ctx, "card:catalog")

	if got := store.Stats(); got.Hits != 2 || got.Misses != 1 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestStore_NilLoader(t *testing.T) {
	t.Parallel()

	if _, err := NewStore[int](0).GetOrLoad(context.Background(), "k", nil); !errors.Is(err, errNoLoader) {
		t.Fatalf("expected errNoLoader, got %v", err)
	}
}
