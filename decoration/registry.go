package decoration

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/jonwraymond/listicons/identity"
)

// Registry holds the ordered rule set.
//
// Contract:
//   - Concurrency: Select and Rules are lock-free and safe alongside Register
//     and Reload; writers are serialised.
//   - Ordering: priority descending, then registration order.
//   - Determinism: for a fixed rule set and predicate outcomes, Select always
//     returns the same rule.
type Registry struct {
	mu       sync.Mutex // serialises writers
	snapshot atomic.Pointer[[]entry]
	seq      uint64
}

type entry struct {
	rule Rule
	seq  uint64
}

// NewRegistry creates a registry holding rules in the given order.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{}
	empty := []entry{}
	r.snapshot.Store(&empty)
	if len(rules) > 0 {
		if err := r.Reload(rules...); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a rule after all previously registered rules of equal priority.
func (r *Registry) Register(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.snapshot.Load()
	next := make([]entry, 0, len(current)+1)
	next = append(next, current...)
	r.seq++
	next = append(next, entry{rule: rule, seq: r.seq})
	sortEntries(next)
	r.snapshot.Store(&next)
	return nil
}

// Reload replaces the whole rule set. rules are numbered in argument order.
// On a validation error the current set is kept.
func (r *Registry) Reload(rules ...Rule) error {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]entry, 0, len(rules))
	for _, rule := range rules {
		r.seq++
		next = append(next, entry{rule: rule, seq: r.seq})
	}
	sortEntries(next)
	r.snapshot.Store(&next)
	return nil
}

// Select returns the first rule, in order, whose predicate accepts player.
func (r *Registry) Select(ctx context.Context, player identity.Player) (Rule, bool) {
	for _, e := range *r.snapshot.Load() {
		if e.rule.Predicate(ctx, player) {
			return e.rule, true
		}
	}
	return Rule{}, false
}

// Rules returns the rules in selection order.
func (r *Registry) Rules() []Rule {
	entries := *r.snapshot.Load()
	rules := make([]Rule, len(entries))
	for i, e := range entries {
		rules[i] = e.rule
	}
	return rules
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(*r.snapshot.Load())
}

func sortEntries(entries []entry) {
	slices.SortStableFunc(entries, func(a, b entry) int {
		if a.rule.Priority != b.rule.Priority {
			if a.rule.Priority > b.rule.Priority {
				return -1
			}
			return 1
		}
		if a.seq < b.seq {
			return -1
		}
		if a.seq > b.seq {
			return 1
		}
		return 0
	})
}
