package grid

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestBoard(t *testing.T, store Store, locked bool) *Board {
	t.Helper()
	return NewBoard(Options{
		Store:  store,
		Logger: zaptest.NewLogger(t),
		NewID:  sequentialIDs(),
		Locked: locked,
	})
}

func storedSnapshot(t *testing.T, store MemStore) Snapshot {
	t.Helper()
	blob, err := store.Get(StorageKey)
	require.NoError(t, err)
	s, err := Unmarshal(blob)
	require.NoError(t, err)
	return s
}

func TestBoardMountDefaults(t *testing.T) {
	for _, tc := range []struct {
		height float64
		tmpl   []templatePanel
	}{
		{height: 500, tmpl: shortTemplate},
		{height: 730, tmpl: shortTemplate},
		{height: 731, tmpl: mediumTemplate},
		{height: 1200, tmpl: mediumTemplate},
		{height: 1201, tmpl: tallTemplate},
	} {
		t.Run(fmt.Sprint(tc.height), func(t *testing.T) {
			store := MemStore{}
			b := newTestBoard(t, store, true)
			b.Mount(tc.height)
			panels := b.Panels()
			require.Len(t, panels, len(tc.tmpl))
			for i, p := range panels {
				assert.Equal(t, tc.tmpl[i].rect, p.Rect)
				assert.Equal(t, tc.tmpl[i].view, p.View)
				assert.False(t, p.Draggable)
			}
			assert.True(t, panels.Equal(storedSnapshot(t, store)))
		})
	}
}

func TestBoardDefaultHeightsGrow(t *testing.T) {
	tallest := func(tmpl []templatePanel) int {
		out := 0
		for _, p := range tmpl {
			out = max(out, p.rect.Y+p.rect.H)
		}
		return out
	}
	assert.Less(t, tallest(shortTemplate), tallest(mediumTemplate))
	assert.Less(t, tallest(mediumTemplate), tallest(tallTemplate))
}

func TestBoardMountFromStore(t *testing.T) {
	want := Snapshot{{ID: "saved", View: CameraView, Rect: Rect{X: 3, Y: 1, W: 2, H: 2}}}
	blob, err := Marshal(want)
	require.NoError(t, err)
	b := newTestBoard(t, MemStore{StorageKey: blob}, true)
	b.Mount(2000)
	assert.True(t, want.Equal(b.Panels()))

	// Mounting twice keeps the existing history.
	b.Mount(100)
	assert.Equal(t, 1, b.History().Len())
}

func TestBoardIgnoresChangesBeforeMount(t *testing.T) {
	want := Snapshot{{ID: "saved", View: CameraView, Rect: Rect{X: 3, Y: 1, W: 2, H: 2}}}
	blob, err := Marshal(want)
	require.NoError(t, err)
	store := MemStore{StorageKey: blob}
	b := newTestBoard(t, store, false)

	b.Undo()
	b.Redo()
	b.HandleKey(KeyPress{Name: "Z", Modifiers: Modifiers{Ctrl: true}}, "linux")
	b.UpdateLayout(map[string]Rect{"saved": {X: 0, Y: 0, W: 1, H: 1}})
	b.RemovePanel("saved")
	b.AddPanel(GraphView)
	b.SetLocked(true)
	assert.False(t, b.Mounted())
	assert.Equal(t, blob, store[StorageKey])

	b.Mount(800)
	require.True(t, b.Mounted())
	assert.True(t, want.Equal(b.Panels()))
	assert.Equal(t, 1, b.History().Len())
	assert.True(t, b.Locked())
}

func TestBoardMountMalformedFallsBack(t *testing.T) {
	b := newTestBoard(t, MemStore{StorageKey: "not json"}, false)
	b.Mount(800)
	assert.Len(t, b.Panels(), len(mediumTemplate))
}

type failingStore struct{ writes int }

func (f *failingStore) Get(string) (string, error) { return "", errors.New("disk on fire") }
func (f *failingStore) Set(string, string) error {
	f.writes++
	return errors.New("disk on fire")
}

func TestBoardStoreFailuresAreNotFatal(t *testing.T) {
	store := &failingStore{}
	b := newTestBoard(t, store, false)
	b.Mount(800)
	b.AddPanel(GraphView)
	assert.Len(t, b.Panels(), len(mediumTemplate)+1)
	assert.Equal(t, 2, store.writes)
}

func TestBoardAddRemoveUndo(t *testing.T) {
	store := MemStore{StorageKey: "[]"}
	b := newTestBoard(t, store, false)
	b.Mount(800)
	require.Empty(t, b.Panels())

	b.TogglePicker()
	require.True(t, b.PickerOpen())
	first := b.AddPanel(FieldView)
	assert.False(t, b.PickerOpen())
	assert.Equal(t, Rect{X: 0, Y: 0, W: 2, H: 4}, first.Rect)
	assert.True(t, first.Draggable)
	assert.True(t, first.Resizable)

	second := b.AddPanel(GraphView)
	assert.Equal(t, Rect{X: 2, Y: 0, W: 2, H: 4}, second.Rect)
	assert.Len(t, storedSnapshot(t, store), 2)

	b.RemovePanel(first.ID)
	b.RemovePanel("missing")
	require.Len(t, b.Panels(), 1)
	assert.Equal(t, second.ID, b.Panels()[0].ID)
	assert.Len(t, storedSnapshot(t, store), 1)

	b.Undo()
	assert.Len(t, b.Panels(), 2)
	assert.Len(t, storedSnapshot(t, store), 2)
	b.Redo()
	assert.Len(t, b.Panels(), 1)
}

func TestBoardUpdateLayout(t *testing.T) {
	b := newTestBoard(t, MemStore{StorageKey: "[]"}, false)
	b.Mount(800)
	p := b.AddPanel(TelemetryView)
	length := b.History().Len()

	b.UpdateLayout(map[string]Rect{p.ID: p.Rect})
	assert.Equal(t, length, b.History().Len(), "unchanged layout must not grow history")

	moved := Rect{X: 4, Y: 2, W: 2, H: 5}
	b.UpdateLayout(map[string]Rect{p.ID: moved, "ghost": {}})
	assert.Equal(t, moved, b.Panels()[0].Rect)
	assert.Equal(t, length+1, b.History().Len())
}

func TestBoardLockToggle(t *testing.T) {
	b := newTestBoard(t, MemStore{}, false)
	b.Mount(800)
	b.TogglePicker()
	b.ToggleDeleteMode()
	length := b.History().Len()

	b.ToggleLock()
	assert.True(t, b.Locked())
	assert.False(t, b.PickerOpen())
	assert.False(t, b.DeleteMode())
	assert.Equal(t, LockedMetrics, b.Metrics())
	assert.Equal(t, length+1, b.History().Len(), "lock toggle is one history entry")
	for _, p := range b.Panels() {
		assert.False(t, p.Draggable)
		assert.False(t, p.Resizable)
	}

	// Locked boards refuse edit affordances and shortcuts.
	b.TogglePicker()
	b.ToggleDeleteMode()
	assert.False(t, b.PickerOpen())
	assert.False(t, b.DeleteMode())
	assert.False(t, b.HandleKey(KeyPress{Name: "z", Modifiers: Modifiers{Ctrl: true}}, "linux"))

	added := b.AddPanel(GraphView)
	assert.False(t, added.Draggable)

	b.ToggleLock()
	assert.Equal(t, UnlockedMetrics, b.Metrics())
	for _, p := range b.Panels() {
		assert.True(t, p.Draggable)
		assert.True(t, p.Resizable)
	}
}

func TestShortcutAction(t *testing.T) {
	for _, tc := range []struct {
		name string
		key  KeyPress
		goos string
		want Action
	}{
		{"ctrl z", KeyPress{Name: "Z", Modifiers: Modifiers{Ctrl: true}}, "linux", Undo{}},
		{"ctrl shift z", KeyPress{Name: "Z", Modifiers: Modifiers{Ctrl: true, Shift: true}}, "windows", Redo{}},
		{"ctrl y", KeyPress{Name: "y", Modifiers: Modifiers{Ctrl: true}}, "linux", Redo{}},
		{"cmd z", KeyPress{Name: "z", Modifiers: Modifiers{Command: true}}, "darwin", Undo{}},
		{"cmd shift z", KeyPress{Name: "Z", Modifiers: Modifiers{Command: true, Shift: true}}, "darwin", Redo{}},
		{"ctrl z on mac", KeyPress{Name: "Z", Modifiers: Modifiers{Ctrl: true}}, "darwin", nil},
		{"cmd z on linux", KeyPress{Name: "Z", Modifiers: Modifiers{Command: true}}, "linux", nil},
		{"bare z", KeyPress{Name: "Z"}, "linux", nil},
		{"ctrl x", KeyPress{Name: "X", Modifiers: Modifiers{Ctrl: true}}, "linux", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ShortcutAction(tc.key, tc.goos)
			assert.Equal(t, tc.want != nil, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBoardHandleKey(t *testing.T) {
	b := newTestBoard(t, MemStore{StorageKey: "[]"}, false)
	b.Mount(800)
	b.AddPanel(GraphView)
	require.True(t, b.HandleKey(KeyPress{Name: "Z", Modifiers: Modifiers{Ctrl: true}}, "linux"))
	assert.Empty(t, b.Panels())
	require.True(t, b.HandleKey(KeyPress{Name: "Y", Modifiers: Modifiers{Ctrl: true}}, "linux"))
	assert.Len(t, b.Panels(), 1)
	assert.False(t, b.HandleKey(KeyPress{Name: "Q", Modifiers: Modifiers{Ctrl: true}}, "linux"))
}
