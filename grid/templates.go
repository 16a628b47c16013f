package grid

// Container heights, in dp, separating the three default layouts.
const (
	ShortViewportMax  = 730
	MediumViewportMax = 1200
)

type templatePanel struct {
	view ViewKind
	rect Rect
}

var (
	shortTemplate = []templatePanel{
		{OpModeView, Rect{X: 0, Y: 0, W: 2, H: 3}},
		{FieldView, Rect{X: 0, Y: 3, W: 2, H: 6}},
		{GraphView, Rect{X: 2, Y: 0, W: 2, H: 9}},
		{ConfigView, Rect{X: 4, Y: 0, W: 2, H: 5}},
		{TelemetryView, Rect{X: 4, Y: 5, W: 2, H: 4}},
	}
	mediumTemplate = []templatePanel{
		{OpModeView, Rect{X: 0, Y: 0, W: 2, H: 4}},
		{FieldView, Rect{X: 0, Y: 4, W: 2, H: 9}},
		{GraphView, Rect{X: 2, Y: 0, W: 2, H: 13}},
		{ConfigView, Rect{X: 4, Y: 0, W: 2, H: 7}},
		{TelemetryView, Rect{X: 4, Y: 7, W: 2, H: 6}},
	}
	tallTemplate = []templatePanel{
		{OpModeView, Rect{X: 0, Y: 0, W: 2, H: 5}},
		{FieldView, Rect{X: 0, Y: 5, W: 2, H: 13}},
		{GraphView, Rect{X: 2, Y: 0, W: 2, H: 18}},
		{ConfigView, Rect{X: 4, Y: 0, W: 2, H: 10}},
		{TelemetryView, Rect{X: 4, Y: 10, W: 2, H: 8}},
	}
)

// DefaultLayout returns the starting arrangement for a container of the given
// height in dp. Taller containers get taller panels. Every panel gets a fresh
// id from newID and interaction flags matching the lock state.
func DefaultLayout(containerHeight float64, locked bool, newID func() string) Snapshot {
	tmpl := tallTemplate
	switch {
	case containerHeight <= ShortViewportMax:
		tmpl = shortTemplate
	case containerHeight <= MediumViewportMax:
		tmpl = mediumTemplate
	}
	out := make(Snapshot, 0, len(tmpl))
	for _, t := range tmpl {
		out = append(out, Panel{
			ID:        newID(),
			View:      t.view,
			Rect:      t.rect,
			Draggable: !locked,
			Resizable: !locked,
		})
	}
	return out
}
