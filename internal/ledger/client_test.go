package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/ledger"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/ledger/ledgertest"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

func fastPolicy(retries int) ledger.RetryPolicy {
	return ledger.RetryPolicy{
		Retries:   retries,
		BaseDelay: time.Microsecond,
		MaxDelay:  time.Millisecond,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	fake := ledgertest.NewUniform(1_500_000_000, 15, 10)
	fake.FailNext(ledgertest.OpBlock, 2)
	client := ledger.NewRetryingClient(fake, fastPolicy(3), zap.NewNop())

	block, err := client.BlockByIndex(context.Background(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if block.Index != 4 || block.Timestamp != 1_500_000_060 {
		t.Fatalf("block mismatch: %+v", block)
	}
	if got := fake.Calls(ledgertest.OpBlock); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestRetryExhausted(t *testing.T) {
	fake := ledgertest.NewUniform(1_500_000_000, 15, 10)
	fake.FailNext(ledgertest.OpHead, 100)
	client := ledger.NewRetryingClient(fake, fastPolicy(3), zap.NewNop())

	_, err := client.HeadIndex(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	var transient *ledger.TransientFetchError
	if !errors.As(err, &transient) {
		t.Fatalf("expected TransientFetchError, got %T: %v", err, err)
	}
	if transient.Attempts != 4 {
		t.Fatalf("reported attempts = %d, want 4", transient.Attempts)
	}
	if !errors.Is(err, ledgertest.ErrInjected) {
		t.Fatalf("last cause not preserved: %v", err)
	}
	if got := fake.Calls(ledgertest.OpHead); got != 4 {
		t.Fatalf("attempts = %d, want 4", got)
	}
}

func TestRetryBudgetsAreIndependent(t *testing.T) {
	fake := ledgertest.NewUniform(1_500_000_000, 15, 10)
	client := ledger.NewRetryingClient(fake, fastPolicy(2), zap.NewNop())

	fake.FailNext(ledgertest.OpBlock, 2)
	if _, err := client.BlockByIndex(context.Background(), 1); err != nil {
		t.Fatalf("first call: %v", err)
	}
	fake.FailNext(ledgertest.OpBlock, 2)
	if _, err := client.BlockByIndex(context.Background(), 2); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if got := fake.Calls(ledgertest.OpBlock); got != 6 {
		t.Fatalf("attempts = %d, want 6", got)
	}
}

func TestRangeTooLargeIsNotRetried(t *testing.T) {
	fake := ledgertest.NewUniform(1_500_000_000, 15, 100)
	fake.SetMaxRange(10)
	client := ledger.NewRetryingClient(fake, fastPolicy(5), zap.NewNop())

	_, err := client.EventsInRange(context.Background(), model.KindTransfer, 0, 50)
	var rangeErr *ledger.RangeTooLargeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected RangeTooLargeError, got %v", err)
	}
	if rangeErr.From != 0 || rangeErr.To != 50 || rangeErr.Kind != model.KindTransfer {
		t.Fatalf("range error mismatch: %+v", rangeErr)
	}
	if ledger.IsTransient(err) {
		t.Fatalf("range error must not be transient")
	}
	if got := fake.Calls(ledgertest.OpEvents); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}

func TestAttemptTimeoutIsRetried(t *testing.T) {
	fake := ledgertest.NewUniform(1_500_000_000, 15, 10)
	hash := common.HexToHash("0x01")
	fake.AddTransaction(hash, 20, 21000, common.HexToAddress("0xaa"))

	slow := 1
	fake.SetHook(func(ctx context.Context, op, _ string) error {
		if op != ledgertest.OpTransaction || slow == 0 {
			return nil
		}
		slow--
		<-ctx.Done()
		return ctx.Err()
	})

	policy := fastPolicy(2)
	policy.AttemptTimeout = 10 * time.Millisecond
	client := ledger.NewRetryingClient(fake, policy, zap.NewNop())

	tx, err := client.TransactionByHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.GasPrice.Int64() != 20 {
		t.Fatalf("gas price mismatch: %s", tx.GasPrice)
	}
	if got := fake.Calls(ledgertest.OpTransaction); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	fake := ledgertest.NewUniform(1_500_000_000, 15, 10)
	fake.FailNext(ledgertest.OpHead, 100)
	policy := ledger.RetryPolicy{Retries: 10, BaseDelay: time.Hour}
	client := ledger.NewRetryingClient(fake, policy, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.HeadIndex(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if got := fake.Calls(ledgertest.OpHead); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}
