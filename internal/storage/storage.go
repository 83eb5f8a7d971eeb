package storage

import (
	"context"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// Sink receives daily metrics rows in date order.
type Sink interface {
	PutDays(ctx context.Context, rows []model.DayStats) error
}
