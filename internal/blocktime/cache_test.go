package blocktime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/ledger/ledgertest"
)

func TestCacheSingleFlight(t *testing.T) {
	fake := ledgertest.NewUniform(genesis, 15, 1000)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fake.SetHook(func(ctx context.Context, op, _ string) error {
		if op == ledgertest.OpHead {
			once.Do(func() { close(entered) })
			<-release
		}
		return nil
	})

	cache := NewCache(NewResolver(fake, Config{}, zap.NewNop()), zap.NewNop())
	target := time.UnixMilli(genesis*1000 + 100*15000)

	const callers = 4
	results := make([]uint64, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = cache.Resolve(context.Background(), target)
	}()
	<-entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Resolve(context.Background(), target)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != 100 {
			t.Fatalf("caller %d: index = %d, want 100", i, results[i])
		}
	}
	if got := fake.Calls(ledgertest.OpHead); got != 1 {
		t.Fatalf("searches = %d, want 1", got)
	}
}

func TestCacheMemoizes(t *testing.T) {
	fake := ledgertest.NewUniform(genesis, 15, 1000)
	cache := NewCache(NewResolver(fake, Config{}, zap.NewNop()), zap.NewNop())
	target := unix(genesis + 500*15)

	first, err := cache.Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	calls := fake.TotalCalls()

	second, err := cache.Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second || first != 500 {
		t.Fatalf("results = %d, %d, want 500", first, second)
	}
	if fake.TotalCalls() != calls {
		t.Fatalf("cached lookup hit the ledger")
	}
	if cache.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", cache.Len())
	}

	if _, err := cache.Resolve(context.Background(), target.Add(time.Millisecond)); err != nil {
		t.Fatalf("distinct key: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("cache len = %d, want 2", cache.Len())
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	fake := ledgertest.NewUniform(genesis, 15, 1000)
	cache := NewCache(NewResolver(fake, Config{}, zap.NewNop()), zap.NewNop())

	_, err := cache.Resolve(context.Background(), unix(genesis+20000))
	if !errors.Is(err, ErrResolutionFuture) {
		t.Fatalf("expected future, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatalf("failure was cached")
	}

	fake.FailNext(ledgertest.OpHead, 1)
	if _, err := cache.Resolve(context.Background(), unix(genesis+150)); !errors.Is(err, ledgertest.ErrInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	index, err := cache.Resolve(context.Background(), unix(genesis+150))
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if index != 10 {
		t.Fatalf("index = %d, want 10", index)
	}
}

func TestCacheCallerCancel(t *testing.T) {
	fake := ledgertest.NewUniform(genesis, 15, 1000)
	release := make(chan struct{})
	fake.SetHook(func(ctx context.Context, op, _ string) error {
		if op == ledgertest.OpHead {
			<-release
		}
		return nil
	})
	defer close(release)

	cache := NewCache(NewResolver(fake, Config{}, zap.NewNop()), zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := cache.Resolve(ctx, unix(genesis+150)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
