package stats

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// Aggregator reduces enriched records to a StatsResult.
type Aggregator struct {
	tokenDecimals uint8
}

// NewAggregator builds an Aggregator descaling amounts by 10^tokenDecimals.
// Fees are always descaled by 10^18.
func NewAggregator(tokenDecimals uint8) *Aggregator {
	return &Aggregator{tokenDecimals: tokenDecimals}
}

// Aggregate computes the stats record. An empty input yields zero values.
func (a *Aggregator) Aggregate(records []model.EnrichedRecord) model.StatsResult {
	if len(records) == 0 {
		return model.StatsResult{}
	}

	amounts := make([]*big.Int, 0, len(records))
	fees := make([]*big.Int, 0, len(records))
	senders := make(map[common.Address]struct{}, len(records))

	for _, record := range records {
		amounts = append(amounts, record.Event.Amount)
		fees = append(fees, record.Fee())
		senders[record.Sender] = struct{}{}
	}

	return model.StatsResult{
		TransactionsCount: len(records),
		UniqueAddresses:   len(senders),
		MedianAmount:      descale(median(amounts), a.tokenDecimals),
		AverageAmount:     descale(mean(amounts), a.tokenDecimals),
		SumAmount:         descale(ratOf(sum(amounts)), a.tokenDecimals),
		AverageFeePaid:    descale(mean(fees), DefaultDecimals),
	}
}
