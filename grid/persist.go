package grid

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StorageKey is the key the layout blob is stored under.
const StorageKey = "configurableLayoutStorage"

// ErrNotFound is returned by a Store that holds no value for a key.
var ErrNotFound = errors.New("key not found")

// Store is a key-value string store. Implementations return ErrNotFound (or an
// error wrapping it) for missing keys.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

type persistedLayout struct {
	X           int  `json:"x"`
	Y           int  `json:"y"`
	W           int  `json:"w"`
	H           int  `json:"h"`
	IsDraggable bool `json:"isDraggable"`
	IsResizable bool `json:"isResizable"`
}

type persistedPanel struct {
	ID     string          `json:"id"`
	View   string          `json:"view"`
	Layout persistedLayout `json:"layout"`
}

// Marshal encodes a snapshot as the persisted layout blob.
func Marshal(s Snapshot) (string, error) {
	out := make([]persistedPanel, 0, len(s))
	for _, p := range s {
		if p.View >= numViewKinds {
			return "", fmt.Errorf("panel %q: invalid view kind %d", p.ID, p.View)
		}
		out = append(out, persistedPanel{
			ID:   p.ID,
			View: p.View.String(),
			Layout: persistedLayout{
				X:           p.Rect.X,
				Y:           p.Rect.Y,
				W:           p.Rect.W,
				H:           p.Rect.H,
				IsDraggable: p.Draggable,
				IsResizable: p.Resizable,
			},
		})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed encoding layout: %w", err)
	}
	return string(b), nil
}

// Unmarshal decodes a persisted layout blob.
func Unmarshal(blob string) (Snapshot, error) {
	var in []persistedPanel
	if err := json.Unmarshal([]byte(blob), &in); err != nil {
		return nil, fmt.Errorf("failed decoding layout: %w", err)
	}
	if in == nil {
		return nil, errors.New("layout blob is not a panel list")
	}
	out := make(Snapshot, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, p := range in {
		view, err := ParseViewKind(p.View)
		if err != nil {
			return nil, fmt.Errorf("panel %d: %w", i, err)
		}
		if p.ID == "" || seen[p.ID] {
			return nil, fmt.Errorf("panel %d: missing or duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		out = append(out, Panel{
			ID:   p.ID,
			View: view,
			Rect: Rect{
				X: p.Layout.X,
				Y: p.Layout.Y,
				W: p.Layout.W,
				H: p.Layout.H,
			},
			Draggable: p.Layout.IsDraggable,
			Resizable: p.Layout.IsResizable,
		})
	}
	return out, nil
}

// MemStore is an in-memory Store.
type MemStore map[string]string

func (m MemStore) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m MemStore) Set(key, value string) error {
	m[key] = value
	return nil
}
