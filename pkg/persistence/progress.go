package persistence

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
)

// DefaultProgressKey is the storage key for course progress.
const DefaultProgressKey = "course-progress"

// ErrUnknownSection is returned when a section id is not part of the course.
var ErrUnknownSection = errors.New("persistence: unknown section")

// Snapshot is the persisted progress record. Field names are part of the
// stored format.
type Snapshot struct {
	Completadas []string `json:"completadas"`
	Progreso    float64  `json:"progreso"`
}

// EmptySnapshot is the default when nothing valid is stored.
func EmptySnapshot() Snapshot {
	return Snapshot{Completadas: []string{}, Progreso: 0}
}

// Normalized replaces a missing list with an empty one and clamps the
// percentage into [0,100].
func (s Snapshot) Normalized() Snapshot {
	if s.Completadas == nil {
		s.Completadas = []string{}
	}
	if math.IsNaN(s.Progreso) || s.Progreso < 0 {
		s.Progreso = 0
	}
	if s.Progreso > 100 {
		s.Progreso = 100
	}
	return s
}

// NewProgressAdapter returns an adapter for snapshots stored under key.
func NewProgressAdapter(store Store, key string, opts ...AdapterOption) *Adapter[Snapshot] {
	if key == "" {
		key = DefaultProgressKey
	}
	return NewAdapter(store, key, EmptySnapshot, opts...)
}

// Progress tracks completed sections of a fixed course outline and writes a
// snapshot after each change.
type Progress struct {
	mu        sync.Mutex
	adapter   *Adapter[Snapshot]
	sections  []string
	known     map[string]struct{}
	completed []string
	percent   float64
}

// NewProgress loads the stored snapshot as-is apart from repeated ids, which
// are collapsed. Unknown ids found in storage are kept but do not count toward
// the percentage once it is recomputed.
func NewProgress(ctx context.Context, adapter *Adapter[Snapshot], sections []string) *Progress {
	p := &Progress{
		adapter:  adapter,
		sections: slices.Clone(sections),
		known:    make(map[string]struct{}, len(sections)),
	}
	for _, id := range sections {
		p.known[id] = struct{}{}
	}
	snap := adapter.Load(ctx)
	p.completed = dedupe(snap.Completadas)
	p.percent = snap.Progreso
	return p
}

// Sections returns the course outline.
func (p *Progress) Sections() []string {
	return slices.Clone(p.sections)
}

// Snapshot returns the current record.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// IsComplete reports whether id was marked complete.
func (p *Progress) IsComplete(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.completed, id)
}

// Complete marks id complete. Completing twice is a no-op.
func (p *Progress) Complete(ctx context.Context, id string) (Snapshot, error) {
	return p.update(ctx, id, func() bool {
		if slices.Contains(p.completed, id) {
			return false
		}
		p.completed = append(p.completed, id)
		return true
	})
}

// Uncomplete clears id.
func (p *Progress) Uncomplete(ctx context.Context, id string) (Snapshot, error) {
	return p.update(ctx, id, func() bool {
		return p.removeLocked(id)
	})
}

// Toggle flips the completion state of id.
func (p *Progress) Toggle(ctx context.Context, id string) (Snapshot, error) {
	return p.update(ctx, id, func() bool {
		if !p.removeLocked(id) {
			p.completed = append(p.completed, id)
		}
		return true
	})
}

// Reset clears every section and stores the empty snapshot.
func (p *Progress) Reset(ctx context.Context) Snapshot {
	p.mu.Lock()
	p.completed = []string{}
	p.percent = 0
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.adapter.Save(ctx, snap)
	return snap
}

func (p *Progress) update(ctx context.Context, id string, mutate func() bool) (Snapshot, error) {
	if _, ok := p.known[id]; !ok {
		return p.Snapshot(), fmt.Errorf("%w: %q", ErrUnknownSection, id)
	}

	p.mu.Lock()
	changed := mutate()
	if changed {
		p.percent = percent(p.countKnownLocked(), len(p.sections))
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	if changed {
		p.adapter.Save(ctx, snap)
	}
	return snap, nil
}

func (p *Progress) removeLocked(id string) bool {
	before := len(p.completed)
	p.completed = slices.DeleteFunc(p.completed, func(done string) bool { return done == id })
	return len(p.completed) != before
}

// countKnownLocked counts distinct completed sections of the outline.
func (p *Progress) countKnownLocked() int {
	seen := make(map[string]struct{}, len(p.completed))
	for _, id := range p.completed {
		if _, ok := p.known[id]; ok {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func (p *Progress) snapshotLocked() Snapshot {
	completed := slices.Clone(p.completed)
	if completed == nil {
		completed = []string{}
	}
	return Snapshot{Completadas: completed, Progreso: p.percent}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(100 * float64(done) / float64(total))
}
