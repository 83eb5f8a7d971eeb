package stats

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// DayEvents holds the events fetched for one day's block range.
type DayEvents struct {
	Date        time.Time
	Blocks      model.BlockRange
	Transfers   []model.EventRecord
	Conversions []model.EventRecord
}

// DailyAggregator computes the daily metrics row.
type DailyAggregator struct {
	converter     common.Address
	tokenDecimals uint8
}

// NewDailyAggregator builds a DailyAggregator. Transfers touching converter
// are conversions and are excluded from transfer metrics.
func NewDailyAggregator(converter common.Address, tokenDecimals uint8) *DailyAggregator {
	return &DailyAggregator{converter: converter, tokenDecimals: tokenDecimals}
}

// Aggregate reduces a day's events to a DayStats row.
func (a *DailyAggregator) Aggregate(day DayEvents) model.DayStats {
	volume := make([]*big.Int, 0, len(day.Conversions))
	for _, event := range day.Conversions {
		volume = append(volume, event.Amount)
	}

	transfers := a.FilterTransfers(day.Transfers)
	values := make([]*big.Int, 0, len(transfers))
	accounts := make(map[common.Address]struct{}, 2*len(transfers))
	for _, event := range transfers {
		values = append(values, event.Amount)
		accounts[event.From] = struct{}{}
		accounts[event.To] = struct{}{}
	}

	return model.DayStats{
		Date:                 day.Date.UTC(),
		Blocks:               day.Blocks,
		AggregateVolume:      descale(ratOf(sum(volume)), a.tokenDecimals),
		TransferCount:        len(transfers),
		AverageTransferValue: descale(mean(values), a.tokenDecimals),
		UniqueAccountCount:   len(accounts),
	}
}

// FilterTransfers drops mints and transfers to or from the converter.
func (a *DailyAggregator) FilterTransfers(events []model.EventRecord) []model.EventRecord {
	out := make([]model.EventRecord, 0, len(events))
	for _, event := range events {
		if event.From == (common.Address{}) {
			continue
		}
		if event.From == a.converter || event.To == a.converter {
			continue
		}
		out = append(out, event)
	}
	return out
}
