package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/equityrun/equityrun/internal/domain/snapshot"
)

// LoadSeries reads a JSON file of indicator snapshots and groups them into
// time-ordered batches. The file is a flat array; snapshots sharing a
// timestamp form one batch. Invalid snapshots are dropped, and a file that
// yields no valid batch is an error.
func LoadSeries(path string) ([]snapshot.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read series %s: %w", path, err)
	}

	var snaps []snapshot.Snapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, fmt.Errorf("parse series %s: %w", path, err)
	}

	grouped := make(map[time.Time][]snapshot.Snapshot)
	for _, s := range snaps {
		if s.Validate() != nil {
			continue
		}
		key := s.Timestamp.UTC()
		grouped[key] = append(grouped[key], s)
	}
	if len(grouped) == 0 {
		return nil, fmt.Errorf("series %s contains no valid snapshots", path)
	}

	stamps := make([]time.Time, 0, len(grouped))
	for ts := range grouped {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	series := make([]snapshot.Batch, 0, len(stamps))
	for _, ts := range stamps {
		batch, _ := snapshot.NewBatch(ts, grouped[ts])
		series = append(series, batch)
	}
	return series, nil
}
