package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// DateLayout is the day format stored in the broken DB.
const DateLayout = "2006-01-02"

// BrokenDB maps source IDs to the first day their imagery was seen broken.
type BrokenDB map[string]string

// ParseBrokenDB decodes a broken DB. Entries with unparseable dates are dropped.
func ParseBrokenDB(data []byte) (BrokenDB, error) {
	raw := map[string]string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse broken database: %w", err)
	}
	db := BrokenDB{}
	for id, day := range raw {
		if _, err := time.Parse(DateLayout, day); err != nil {
			continue
		}
		db[id] = day
	}
	return db, nil
}

// LoadBrokenDB reads a broken DB from disk. A missing file yields an empty DB.
func LoadBrokenDB(path string) (BrokenDB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return BrokenDB{}, nil
		}
		return nil, fmt.Errorf("failed to read broken database %s: %w", path, err)
	}
	return ParseBrokenDB(data)
}

// Marshal renders the DB as indented JSON. Keys are sorted by encoding/json.
func (db BrokenDB) Marshal() ([]byte, error) {
	if db == nil {
		db = BrokenDB{}
	}
	data, err := json.MarshalIndent(map[string]string(db), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Update derives the next broken DB from a report. Sources whose imagery is
// broken keep their earliest known date, or today when newly broken; all other
// entries are dropped. BrokenSince is set on the report's sources.
func Update(prev BrokenDB, r *Report, today time.Time) BrokenDB {
	day := today.UTC().Format(DateLayout)
	next := BrokenDB{}
	for i := range r.Sources {
		sr := &r.Sources[i]
		if !sr.ImageryBroken() {
			sr.BrokenSince = ""
			continue
		}
		since := day
		if d, ok := prev[sr.ID]; ok && d < since {
			since = d
		}
		next[sr.ID] = since
		sr.BrokenSince = since
	}
	return next
}

// FromReport rebuilds a broken DB from BrokenSince fields of a snapshot.
func FromReport(r *Report) BrokenDB {
	db := BrokenDB{}
	if r == nil {
		return db
	}
	for _, sr := range r.Sources {
		if sr.BrokenSince != "" && sr.ImageryBroken() {
			db[sr.ID] = sr.BrokenSince
		}
	}
	return db
}

// DaysBroken returns the number of whole days between the recorded date and today.
func (db BrokenDB) DaysBroken(id string, today time.Time) (int, bool) {
	d, ok := db[id]
	if !ok {
		return 0, false
	}
	since, err := time.Parse(DateLayout, d)
	if err != nil {
		return 0, false
	}
	now, _ := time.Parse(DateLayout, today.UTC().Format(DateLayout))
	return int(now.Sub(since).Hours() / 24), true
}
