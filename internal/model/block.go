package model

import "time"

// BlockRef is the block metadata needed for time resolution.
type BlockRef struct {
	Index     uint64 `json:"index"`
	Timestamp uint64 `json:"timestamp"`
}

// Time returns the block timestamp as UTC time.
func (b BlockRef) Time() time.Time {
	return time.Unix(int64(b.Timestamp), 0).UTC()
}

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Empty reports whether the range holds no blocks.
func (r BlockRange) Empty() bool {
	return r.To < r.From
}
