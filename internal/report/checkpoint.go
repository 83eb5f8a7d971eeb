package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/storage/postgres"
)

// Checkpoint persists the last day written to the sink.
type Checkpoint interface {
	Load(ctx context.Context) (time.Time, bool, error)
	Save(ctx context.Context, day time.Time) error
}

type checkpointRecord struct {
	LastDay   string `json:"last_day"`
	UpdatedAt string `json:"updated_at"`
}

// FileCheckpoint stores the checkpoint in a local JSON file.
type FileCheckpoint struct {
	path    string
	enabled bool
}

func NewFileCheckpoint(path string, enabled bool) *FileCheckpoint {
	return &FileCheckpoint{path: path, enabled: enabled}
}

func (c *FileCheckpoint) Load(ctx context.Context) (time.Time, bool, error) {
	if c == nil || !c.enabled || c.path == "" {
		return time.Time{}, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return time.Time{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var rec checkpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return time.Time{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	day, err := time.Parse(time.DateOnly, rec.LastDay)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse checkpoint day: %w", err)
	}
	return day, true, nil
}

func (c *FileCheckpoint) Save(ctx context.Context, day time.Time) error {
	if c == nil || !c.enabled || c.path == "" {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	rec := checkpointRecord{
		LastDay:   day.UTC().Format(time.DateOnly),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// StateName keys a metrics_state row by job and network, matching how rows
// are keyed in the metrics tables.
func StateName(job string, networkID uint64) string {
	return fmt.Sprintf("%s:%d", job, networkID)
}

// DBCheckpoint stores the checkpoint as unix seconds in the metrics_state table.
type DBCheckpoint struct {
	Store *postgres.Store
	Name  string
}

func (c *DBCheckpoint) Load(ctx context.Context) (time.Time, bool, error) {
	if c == nil || c.Store == nil {
		return time.Time{}, false, nil
	}
	ts, ok, err := c.Store.LoadState(ctx, c.Name)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	return time.Unix(int64(ts), 0).UTC(), true, nil
}

func (c *DBCheckpoint) Save(ctx context.Context, day time.Time) error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.SaveState(ctx, c.Name, uint64(day.Unix()))
}
