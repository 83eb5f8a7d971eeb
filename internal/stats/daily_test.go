package stats

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

func TestDailyAggregate(t *testing.T) {
	converter := addr(99)
	day := time.Date(2018, 6, 25, 0, 0, 0, 0, time.UTC)

	events := DayEvents{
		Date:   day,
		Blocks: model.BlockRange{From: 10, To: 20},
		Transfers: []model.EventRecord{
			{Kind: model.KindTransfer, From: addr(1), To: addr(2), Amount: ether(2)},
			{Kind: model.KindTransfer, From: addr(2), To: addr(3), Amount: ether(4)},
			{Kind: model.KindTransfer, From: common.Address{}, To: addr(4), Amount: ether(100)},
			{Kind: model.KindTransfer, From: addr(5), To: converter, Amount: ether(7)},
			{Kind: model.KindTransfer, From: converter, To: addr(6), Amount: ether(8)},
		},
		Conversions: []model.EventRecord{
			{Kind: model.KindConvertEthToMet, From: addr(6), Amount: ether(8)},
			{Kind: model.KindConvertMetToEth, From: addr(5), Amount: ether(7)},
		},
	}

	got := NewDailyAggregator(converter, 18).Aggregate(events)

	if !got.Date.Equal(day) || got.Blocks != events.Blocks {
		t.Fatalf("date/blocks mismatch: %+v", got)
	}
	if !approxEqual(got.AggregateVolume, 15) {
		t.Fatalf("volume = %v, want 15", got.AggregateVolume)
	}
	if got.TransferCount != 2 {
		t.Fatalf("transfers = %d, want 2", got.TransferCount)
	}
	if !approxEqual(got.AverageTransferValue, 3) {
		t.Fatalf("avg = %v, want 3", got.AverageTransferValue)
	}
	if got.UniqueAccountCount != 3 {
		t.Fatalf("accounts = %d, want 3", got.UniqueAccountCount)
	}
}

func TestDailyAggregateEmptyDay(t *testing.T) {
	got := NewDailyAggregator(addr(99), 18).Aggregate(DayEvents{Blocks: model.BlockRange{From: 5, To: 4}})
	if got.TransferCount != 0 || got.AggregateVolume != 0 || got.AverageTransferValue != 0 || got.UniqueAccountCount != 0 {
		t.Fatalf("expected zero metrics, got %+v", got)
	}
}
