package grid

type (
	// Action is one transition of the layout history. The set of actions is
	// closed: Initialize, Append, Undo and Redo.
	Action interface {
		isAction()
	}

	// Initialize seeds an empty history with its first snapshot.
	Initialize struct {
		Snapshot Snapshot
	}
	// Append records a new arrangement after the cursor.
	Append struct {
		Snapshot Snapshot
	}
	// Undo moves the cursor one snapshot back.
	Undo struct{}
	// Redo moves the cursor one snapshot forward.
	Redo struct{}
)

func (Initialize) isAction() {}
func (Append) isAction()     {}
func (Undo) isAction()       {}
func (Redo) isAction()       {}

// History is a linear undo log of snapshots. The zero value is the empty
// history. History values are immutable: Reduce returns a new value and never
// writes through the slices of its input.
type History struct {
	snapshots []Snapshot
	cursor    int
}

// Empty reports whether the history holds no snapshots yet.
func (h History) Empty() bool {
	return len(h.snapshots) == 0
}

// Len returns the number of recorded snapshots.
func (h History) Len() int {
	return len(h.snapshots)
}

// Cursor returns the index of the current snapshot.
func (h History) Cursor() int {
	return h.cursor
}

// Current returns a copy of the visible snapshot, or nil for an empty history.
func (h History) Current() Snapshot {
	if h.Empty() {
		return nil
	}
	return h.snapshots[h.cursor].Clone()
}

// CanUndo reports whether Undo would move the cursor.
func (h History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether Redo would move the cursor.
func (h History) CanRedo() bool {
	return !h.Empty() && h.cursor < len(h.snapshots)-1
}

// Reduce applies a to h and returns the resulting history.
func Reduce(h History, a Action) History {
	switch a := a.(type) {
	case Initialize:
		if !h.Empty() {
			return h
		}
		return History{snapshots: []Snapshot{a.Snapshot.Clone()}}
	case Append:
		if h.Empty() {
			return Reduce(h, Initialize(a))
		}
		// Undo and Redo only move the cursor, so the snapshot they produced is
		// still the head here; comparing against the head also suppresses the
		// echo a host re-render sends after travelling through the history.
		head := h.snapshots[h.cursor]
		if a.Snapshot.Equal(head) {
			return h
		}
		next := make([]Snapshot, h.cursor+1, h.cursor+2)
		copy(next, h.snapshots[:h.cursor+1])
		next = append(next, a.Snapshot.Clone())
		return History{snapshots: next, cursor: len(next) - 1}
	case Undo:
		if h.cursor == 0 {
			return h
		}
		h.cursor--
		return h
	case Redo:
		if h.Empty() || h.cursor == len(h.snapshots)-1 {
			return h
		}
		h.cursor++
		return h
	default:
		return h
	}
}
