package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

func sampleDays() []model.DayStats {
	day := time.Date(2018, 6, 25, 0, 0, 0, 0, time.UTC)
	return []model.DayStats{
		{Date: day, Blocks: model.BlockRange{From: 100, To: 199}, AggregateVolume: 12.5, TransferCount: 3, AverageTransferValue: 0.25, UniqueAccountCount: 4},
		{Date: day.AddDate(0, 0, 1), Blocks: model.BlockRange{From: 200, To: 299}},
	}
}

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "daily.jsonl")
	sink := NewJsonlStorage(path)

	rows := sampleDays()
	if err := sink.PutDays(context.Background(), rows[:1]); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := sink.PutDays(context.Background(), rows[1:]); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var got model.DayStats
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Date.Equal(rows[0].Date) || got.TransferCount != 3 || got.Blocks.To != 199 {
		t.Fatalf("row mismatch: %+v", got)
	}
}

func TestCsvStorageWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.csv")
	sink := NewCsvStorage(path)

	rows := sampleDays()
	for _, row := range rows {
		if err := sink.PutDays(context.Background(), []model.DayStats{row}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "date,fromBlock,toBlock,aggregateVolume,transferCount,averageTransferValue,uniqueAccountCount\n" +
		"2018-06-25,100,199,12.5,3,0.25,4\n" +
		"2018-06-26,200,299,0,0,0,0\n"
	if string(data) != want {
		t.Fatalf("csv mismatch:\n%s\nwant:\n%s", data, want)
	}
}

func TestPutDaysEmptyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.csv")
	if err := NewCsvStorage(path).PutDays(context.Background(), nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file, got %v", err)
	}
}
