package grid

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Metrics describe how grid cells map onto the container.
type Metrics struct {
	RowHeight int
	Margin    int
}

var (
	LockedMetrics   = Metrics{RowHeight: 60, Margin: 4}
	UnlockedMetrics = Metrics{RowHeight: 70, Margin: 20}
)

// Options configure a Board.
type Options struct {
	Store  Store
	Logger *zap.Logger
	// NewID generates panel ids. Defaults to random UUIDs.
	NewID func() string
	// Locked is the starting mode.
	Locked bool
}

// Board is the dashboard grid: the undo history of arrangements plus the
// edit-mode state around it. A Board is owned by a single goroutine.
type Board struct {
	history    History
	store      Store
	l          *zap.Logger
	newID      func() string
	locked     bool
	pickerOpen bool
	deleteMode bool
}

// NewBoard creates an empty board. Mount must be called before use; layout
// changes made before then are ignored and nothing is written to the store.
func NewBoard(opts Options) *Board {
	b := &Board{
		store:  opts.Store,
		l:      opts.Logger,
		newID:  opts.NewID,
		locked: opts.Locked,
	}
	if b.l == nil {
		b.l = zap.NewNop()
	}
	if b.newID == nil {
		b.newID = uuid.NewString
	}
	return b
}

// Mount seeds the history from the store, falling back to the default layout
// for a container of the given height (in dp) when nothing usable is stored.
// Calling Mount again has no effect.
func (b *Board) Mount(containerHeight float64) {
	if !b.history.Empty() {
		return
	}
	var initial Snapshot
	if b.store != nil {
		blob, err := b.store.Get(StorageKey)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			b.l.Warn("Failed reading stored layout", zap.Error(err))
		default:
			initial, err = Unmarshal(blob)
			if err != nil {
				b.l.Warn("Discarding malformed stored layout", zap.Error(err))
				initial = nil
			}
		}
	}
	if initial == nil {
		initial = DefaultLayout(containerHeight, b.locked, b.newID)
		b.l.Debug("Using default layout", zap.Float64("height", containerHeight), zap.Int("panels", len(initial)))
	}
	b.dispatch(Initialize{Snapshot: initial})
}

// dispatch applies a to the history and persists the new head if it changed.
func (b *Board) dispatch(a Action) {
	if _, ok := a.(Initialize); !ok && !b.Mounted() {
		return
	}
	prev := b.history
	b.history = Reduce(b.history, a)
	if b.history.Empty() {
		return
	}
	if prev.Len() == b.history.Len() && prev.Cursor() == b.history.Cursor() && !prev.Empty() {
		return
	}
	b.persist()
}

func (b *Board) persist() {
	if b.store == nil {
		return
	}
	blob, err := Marshal(b.history.Current())
	if err != nil {
		b.l.Warn("Failed encoding layout", zap.Error(err))
		return
	}
	if err := b.store.Set(StorageKey, blob); err != nil {
		b.l.Warn("Failed writing layout", zap.Error(err))
	}
}

// Mounted reports whether Mount has seeded the history.
func (b *Board) Mounted() bool {
	return !b.history.Empty()
}

// Panels returns a copy of the visible arrangement.
func (b *Board) Panels() Snapshot {
	return b.history.Current()
}

// History returns the current history value.
func (b *Board) History() History {
	return b.history
}

// Locked reports whether the board is in view-only mode.
func (b *Board) Locked() bool {
	return b.locked
}

// Metrics returns the cell geometry for the current mode.
func (b *Board) Metrics() Metrics {
	if b.locked {
		return LockedMetrics
	}
	return UnlockedMetrics
}

// PickerOpen reports whether the add-panel picker is showing.
func (b *Board) PickerOpen() bool {
	return b.pickerOpen
}

// DeleteMode reports whether clicking a panel removes it.
func (b *Board) DeleteMode() bool {
	return b.deleteMode
}

// TogglePicker opens or closes the add-panel picker. It is a no-op while locked.
func (b *Board) TogglePicker() {
	if b.locked {
		return
	}
	b.pickerOpen = !b.pickerOpen
}

// ToggleDeleteMode enters or leaves delete mode. It is a no-op while locked.
func (b *Board) ToggleDeleteMode() {
	if b.locked {
		return
	}
	b.deleteMode = !b.deleteMode
}

// SetLocked switches between view-only and edit mode, rewriting the
// interaction flags of every panel as a single history entry.
func (b *Board) SetLocked(locked bool) {
	b.locked = locked
	if locked {
		b.pickerOpen = false
		b.deleteMode = false
	}
	next := b.history.Current()
	for i := range next {
		next[i].Draggable = !locked
		next[i].Resizable = !locked
	}
	b.dispatch(Append{Snapshot: next})
}

// ToggleLock flips the lock state.
func (b *Board) ToggleLock() {
	b.SetLocked(!b.locked)
}

// AddPanel places a new panel of the given kind and returns it.
func (b *Board) AddPanel(view ViewKind) Panel {
	current := b.history.Current()
	p := Panel{
		ID:        b.newID(),
		View:      view,
		Rect:      Place(current, Columns, NewPanelW, NewPanelH),
		Draggable: !b.locked,
		Resizable: !b.locked,
	}
	b.dispatch(Append{Snapshot: append(current, p)})
	b.pickerOpen = false
	return p
}

// RemovePanel deletes the panel with the given id. Unknown ids are ignored.
func (b *Board) RemovePanel(id string) {
	current := b.history.Current()
	i := current.Index(id)
	if i < 0 {
		return
	}
	next := append(current[:i:i], current[i+1:]...)
	b.dispatch(Append{Snapshot: next})
}

// UpdateLayout applies rectangles reported by the host after a drag or resize.
// Panels missing from rects keep their position; unknown ids are ignored.
func (b *Board) UpdateLayout(rects map[string]Rect) {
	next := b.history.Current()
	for i, p := range next {
		if r, ok := rects[p.ID]; ok {
			next[i].Rect = r
		}
	}
	b.dispatch(Append{Snapshot: next})
}

// Undo steps back in the layout history.
func (b *Board) Undo() {
	b.dispatch(Undo{})
}

// Redo steps forward in the layout history.
func (b *Board) Redo() {
	b.dispatch(Redo{})
}
