package model

import "time"

// StatsResult summarizes enriched transfers over a block range.
type StatsResult struct {
	TransactionsCount int     `json:"transactionsCount"`
	UniqueAddresses   int     `json:"uniqueAddresses"`
	MedianAmount      float64 `json:"medianAmount"`
	AverageAmount     float64 `json:"averageAmount"`
	SumAmount         float64 `json:"sumAmount"`
	AverageFeePaid    float64 `json:"averageFeePaid"`
}

// DayStats is one row of the daily metrics dataset.
type DayStats struct {
	Date                 time.Time  `json:"date"`
	Blocks               BlockRange `json:"blocks"`
	AggregateVolume      float64    `json:"aggregateVolume"`
	TransferCount        int        `json:"transferCount"`
	AverageTransferValue float64    `json:"averageTransferValue"`
	UniqueAccountCount   int        `json:"uniqueAccountCount"`
}

// ItemFailure records an event that could not be enriched.
type ItemFailure struct {
	Index  int    `json:"index"`
	TxHash string `json:"tx_hash"`
	Error  string `json:"error"`
}
