package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{
	"date",
	"fromBlock",
	"toBlock",
	"aggregateVolume",
	"transferCount",
	"averageTransferValue",
	"uniqueAccountCount",
}

// CsvStorage writes daily rows to a CSV file, emitting the header once.
type CsvStorage struct {
	path string
	mu   sync.Mutex
}

func NewCsvStorage(path string) *CsvStorage {
	return &CsvStorage{path: path}
}

// PutDays appends rows to the CSV file.
func (s *CsvStorage) PutDays(ctx context.Context, rows []model.DayStats) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ensureDir(s.path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat output file: %w", err)
	}

	writer := csv.NewWriter(file)
	if stat.Size() == 0 {
		if err := writer.Write(csvHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, row := range rows {
		if err := writer.Write(csvRecord(row)); err != nil {
			return fmt.Errorf("write day %s: %w", row.Date.Format(dateLayout), err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func csvRecord(row model.DayStats) []string {
	return []string{
		row.Date.UTC().Format(dateLayout),
		strconv.FormatUint(row.Blocks.From, 10),
		strconv.FormatUint(row.Blocks.To, 10),
		strconv.FormatFloat(row.AggregateVolume, 'f', -1, 64),
		strconv.Itoa(row.TransferCount),
		strconv.FormatFloat(row.AverageTransferValue, 'f', -1, 64),
		strconv.Itoa(row.UniqueAccountCount),
	}
}
