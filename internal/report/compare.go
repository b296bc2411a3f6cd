package report

import "sort"

// Delta describes how a run differs from the previous snapshot.
type Delta struct {
	FirstRun    bool     `json:"first_run,omitempty"`
	NewlyBroken []string `json:"newly_broken"`
	Recovered   []string `json:"recovered"`
	Added       []string `json:"added"`
	Removed     []string `json:"removed"`
}

// Compare computes the delta from prev to curr. A nil prev marks the first run.
// Broken means the imagery check ended in error.
func Compare(prev, curr *Report) *Delta {
	d := &Delta{
		NewlyBroken: []string{},
		Recovered:   []string{},
		Added:       []string{},
		Removed:     []string{},
	}
	if prev == nil {
		d.FirstRun = true
		return d
	}

	before := prev.Index()
	after := curr.Index()

	for id, now := range after {
		was, existed := before[id]
		if !existed {
			d.Added = append(d.Added, id)
			if now.ImageryBroken() {
				d.NewlyBroken = append(d.NewlyBroken, id)
			}
			continue
		}
		switch {
		case now.ImageryBroken() && !was.ImageryBroken():
			d.NewlyBroken = append(d.NewlyBroken, id)
		case !now.ImageryBroken() && was.ImageryBroken():
			d.Recovered = append(d.Recovered, id)
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}

	sort.Strings(d.NewlyBroken)
	sort.Strings(d.Recovered)
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	return d
}

// Empty reports whether nothing changed.
func (d *Delta) Empty() bool {
	return d == nil || len(d.NewlyBroken)+len(d.Recovered)+len(d.Added)+len(d.Removed) == 0
}
