package checks

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Check)
	mu       sync.RWMutex
)

func Register(c Check) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[c.ID()]; exists {
		panic(fmt.Sprintf("check %s already registered", c.ID()))
	}
	// Every check gets allow.ids / allow.patterns support.
	registry[c.ID()] = &AllowListWrapper{Check: c}
}

func List() []Check {
	mu.RLock()
	defer mu.RUnlock()
	return listLocked()
}

func listLocked() []Check {
	var out []Check
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Lookup returns the registered check with the given ID.
func Lookup(id string) (Check, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[strings.TrimSpace(id)]
	return c, ok
}

// Resolve turns a comma separated selector into checks. An empty selector selects all.
func Resolve(selector string) ([]Check, error) {
	mu.RLock()
	defer mu.RUnlock()

	if strings.TrimSpace(selector) == "" {
		return listLocked(), nil
	}

	seen := make(map[string]bool)
	var selected []Check
	for _, id := range strings.Split(selector, ",") {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		c, ok := registry[id]
		if !ok {
			return nil, fmt.Errorf("check not found: %s", id)
		}
		seen[id] = true
		selected = append(selected, c)
	}
	return selected, nil
}
