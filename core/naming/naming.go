// Package naming builds canonical output filenames and resolves in-batch
// collisions.
package naming

import (
	"fmt"
	"sync"
	"time"
)

// NameFormat is the timestamp half of a canonical name,
// e.g. "2023-01-23_1430".
const NameFormat = "2006-01-02_1504"

// DateFormat is the rendering used for the burned-in date stamp.
const DateFormat = "2006-01-02"

// Canonical combines a capture timestamp and a content digest into the
// canonical base name: YYYY-MM-DD_HHMM_xxxxxxxx (no extension).
func Canonical(ts time.Time, digest string) string {
	return ts.Format(NameFormat) + "_" + digest
}

// Registry tracks names already assigned within a single batch. Safe for
// concurrent use; this is the only shared mutable state between workers.
type Registry struct {
	mu    sync.Mutex
	taken map[string]bool
}

// NewRegistry returns an empty per-batch registry.
func NewRegistry() *Registry {
	return &Registry{taken: make(map[string]bool)}
}

// Claim reserves name for the caller. When the name is already taken within
// the batch, the first free numeric-suffix variant (name_1, name_2, ...) is
// reserved and returned instead; collided reports that this happened.
// Resolution is deterministic for a given claim order: the later claimant
// gets the suffix.
func (r *Registry) Claim(name string) (assigned string, collided bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.taken[name] {
		r.taken[name] = true
		return name, false
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !r.taken[candidate] {
			r.taken[candidate] = true
			return candidate, true
		}
	}
}
