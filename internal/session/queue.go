package session

import (
	"context"
	"sync"

	"github.com/remoteframe/fbridge/internal/fb"
)

// UpdateKind identifies which display field an update carries.
type UpdateKind uint8

const (
	// UpdateColorMap carries a palette delta.
	UpdateColorMap UpdateKind = iota
	// UpdateCursor carries a cursor delta (position, size and/or image).
	UpdateCursor
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateColorMap:
		return "colormap"
	case UpdateCursor:
		return "cursor"
	default:
		return "invalid"
	}
}

// ColorMapDelta is a contiguous run of changed palette entries.
type ColorMapDelta struct {
	First  int        `json:"first"`
	Colors []fb.Color `json:"colors"`
}

// CursorDelta is a cursor change. Flags selects which fields changed;
// a multi-field device call produces a single delta so the peer never
// observes a partially updated cursor.
type CursorDelta struct {
	Flags fb.SetCursorFlags `json:"flags"`
	Pos   fb.CursorPos      `json:"pos"`
	Size  fb.CursorSize     `json:"size"`
	Image fb.CursorImage    `json:"image"`
}

// Update is one pending record in the outgoing queue. Seq increases
// monotonically in the order writes were accepted.
type Update struct {
	Seq      uint64         `json:"seq"`
	Kind     UpdateKind     `json:"kind"`
	ColorMap *ColorMapDelta `json:"colormap,omitempty"`
	Cursor   *CursorDelta   `json:"cursor,omitempty"`
}

// Queue is the outgoing update queue of one session. The device side
// appends, the transport drains; appends never block. When the queue is
// at capacity a new record coalesces with the newest pending record of
// the same kind, since only the latest state needs to reach the peer.
type Queue struct {
	mu      sync.Mutex
	pending []Update
	depth   int
	seq     uint64
	ready   chan struct{}
}

// NewQueue creates a queue with the given depth. Depth is a soft bound:
// an append that has no same-kind record to coalesce with is accepted
// rather than failing the device caller.
func NewQueue(depth int) *Queue {
	if depth < 1 {
		depth = 1
	}
	return &Queue{
		pending: make([]Update, 0, depth),
		depth:   depth,
		ready:   make(chan struct{}, 1),
	}
}

// Append enqueues u, assigning its sequence number, and returns it.
func (q *Queue) Append(u Update) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) >= q.depth {
		if i := q.lastMergeable(u); i >= 0 {
			u = merge(q.pending[i], u)
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
		}
	}

	q.seq++
	u.Seq = q.seq
	q.pending = append(q.pending, u)
	q.signal()
	return u.Seq
}

// Next returns the oldest pending update, blocking until one is
// available or ctx is done.
func (q *Queue) Next(ctx context.Context) (Update, error) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			u := q.pending[0]
			q.pending = q.pending[1:]
			if len(q.pending) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return u, nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Update{}, ctx.Err()
		}
	}
}

// Len returns the number of pending updates.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// signal wakes one waiting consumer. Callers hold q.mu.
func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// lastMergeable returns the index of the newest pending record that u
// can coalesce with, or -1. Callers hold q.mu.
func (q *Queue) lastMergeable(u Update) int {
	for i := len(q.pending) - 1; i >= 0; i-- {
		if canMerge(q.pending[i], u) {
			return i
		}
	}
	return -1
}

// canMerge reports whether next can absorb prev without inventing
// data. Colormap deltas combine only when their ranges overlap or
// touch; a merged record spanning a gap would carry entries nobody
// wrote.
func canMerge(prev, next Update) bool {
	if prev.Kind != next.Kind {
		return false
	}
	if next.Kind == UpdateColorMap {
		p, n := prev.ColorMap, next.ColorMap
		return p.First <= n.First+len(n.Colors) && n.First <= p.First+len(p.Colors)
	}
	return true
}

// merge folds the older record into the newer one. For colormaps the
// result covers the union range with the newer entries overlaid; for
// cursors the newer fields win and the flag sets are combined.
func merge(prev, next Update) Update {
	switch next.Kind {
	case UpdateColorMap:
		next.ColorMap = mergeColorMap(prev.ColorMap, next.ColorMap)
	case UpdateCursor:
		next.Cursor = mergeCursor(prev.Cursor, next.Cursor)
	}
	return next
}

func mergeColorMap(prev, next *ColorMapDelta) *ColorMapDelta {
	first := min(prev.First, next.First)
	end := max(prev.First+len(prev.Colors), next.First+len(next.Colors))

	colors := make([]fb.Color, end-first)
	copy(colors[prev.First-first:], prev.Colors)
	copy(colors[next.First-first:], next.Colors)
	return &ColorMapDelta{First: first, Colors: colors}
}

func mergeCursor(prev, next *CursorDelta) *CursorDelta {
	merged := *next
	merged.Flags = prev.Flags | next.Flags
	if next.Flags&fb.CursorSetPosition == 0 {
		merged.Pos = prev.Pos
	}
	if next.Flags&fb.CursorSetSize == 0 {
		merged.Size = prev.Size
	}
	if next.Flags&fb.CursorSetImage == 0 {
		merged.Image = prev.Image
	}
	return &merged
}
