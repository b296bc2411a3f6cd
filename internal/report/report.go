// Package report aggregates check results into the per-run snapshot and
// derives the views rendered from it: country groups, deltas against the
// previous run and the broken-since database.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"eliwatch/internal/checks"
	"eliwatch/internal/source"
)

// SnapshotVersion is bumped whenever the snapshot layout changes incompatibly.
const SnapshotVersion = 1

type Outcome struct {
	Status   checks.Status `json:"status"`
	Messages []string      `json:"messages"`
}

// NotCheckedOutcome is used for checks that produced no result.
func NotCheckedOutcome() Outcome {
	return Outcome{Status: checks.StatusWarning, Messages: []string{checks.NotChecked}}
}

type SourceResult struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Category    string             `json:"category,omitempty"`
	Path        string             `json:"path"`
	Directory   []string           `json:"directory"`
	Filename    string             `json:"filename"`
	Checks      map[string]Outcome `json:"checks"`
	BrokenSince string             `json:"broken_since,omitempty"`
}

// NewSourceResult records the results of one source. Every required check is
// present afterwards; checks without a result are reported as not checked.
func NewSourceResult(src *source.Source, results []checks.Result) SourceResult {
	sr := SourceResult{
		ID:        src.Key(),
		Name:      src.DisplayName(),
		Type:      src.Type,
		Category:  src.Category,
		Path:      src.Path,
		Directory: append([]string{}, src.Directory...),
		Filename:  src.Filename,
		Checks:    make(map[string]Outcome, len(checks.RequiredIDs)),
	}
	for _, res := range results {
		msgs := append([]string{}, res.Messages...)
		sr.Checks[res.CheckID] = Outcome{Status: res.Status, Messages: msgs}
	}
	for _, id := range checks.RequiredIDs {
		if _, ok := sr.Checks[id]; !ok {
			sr.Checks[id] = NotCheckedOutcome()
		}
	}
	return sr
}

// Outcome returns the outcome of a check, or a not checked warning.
func (r SourceResult) Outcome(checkID string) Outcome {
	if o, ok := r.Checks[checkID]; ok {
		return o
	}
	return NotCheckedOutcome()
}

func (r SourceResult) Region() string {
	return source.RegionOf(r.Directory)
}

func (r SourceResult) Country() string {
	return source.CountryOf(r.Directory)
}

// ImageryBroken reports whether the imagery check ended in error.
func (r SourceResult) ImageryBroken() bool {
	return r.Outcome(checks.IDImagery).Status == checks.StatusError
}

// RegistryPath is the path of the source file within the registry repository.
func (r SourceResult) RegistryPath() string {
	return "sources/" + r.Path
}

type Report struct {
	Version     int            `json:"version"`
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	SourcesDir  string         `json:"sources_dir"`
	Checks      []string       `json:"checks"`
	Sources     []SourceResult `json:"sources"`
	Delta       *Delta         `json:"delta,omitempty"`
}

func New(runID string, generatedAt time.Time, sourcesDir string, checkIDs []string) *Report {
	ids := append([]string{}, checkIDs...)
	sort.Strings(ids)
	return &Report{
		Version:     SnapshotVersion,
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		SourcesDir:  sourcesDir,
		Checks:      ids,
		Sources:     []SourceResult{},
	}
}

func (r *Report) Add(sr SourceResult) {
	r.Sources = append(r.Sources, sr)
}

// Sort orders sources by path so the snapshot is independent of completion order.
func (r *Report) Sort() {
	sort.SliceStable(r.Sources, func(i, j int) bool {
		return r.Sources[i].Path < r.Sources[j].Path
	})
}

// Index maps source IDs to their results.
func (r *Report) Index() map[string]*SourceResult {
	if r == nil {
		return map[string]*SourceResult{}
	}
	out := make(map[string]*SourceResult, len(r.Sources))
	for i := range r.Sources {
		out[r.Sources[i].ID] = &r.Sources[i]
	}
	return out
}

// Marshal renders the snapshot as indented JSON.
func Marshal(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse decodes a snapshot.
func Parse(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if r.Version > SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", r.Version)
	}
	for i := range r.Sources {
		if r.Sources[i].Checks == nil {
			r.Sources[i].Checks = make(map[string]Outcome)
		}
	}
	return &r, nil
}

// LoadSnapshot reads a snapshot file. A missing file yields (nil, nil).
func LoadSnapshot(path string) (*Report, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return Parse(data)
}
