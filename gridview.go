package main

import (
	"image"
	"image/color"

	"gioui.org/f32"
	"gioui.org/gesture"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/component"
	"go.uber.org/zap"

	"git.sr.ht/~whereswaldon/robodash/grid"
)

var (
	panelBg       = color.NRGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	panelBorder   = color.NRGBA{R: 0xc8, G: 0xc8, B: 0xc8, A: 0xff}
	placeholderBg = color.NRGBA{R: 0x29, G: 0x79, B: 0xff, A: 0x40}
	deleteTint    = color.NRGBA{R: 0xdd, G: 0x2c, B: 0x00, A: 0x30}
)

// panelState is the widget state of one panel, kept across frames by id.
type panelState struct {
	move, resize     gesture.Drag
	moving, resizing bool
	start, delta     f32.Point
	remove           widget.Clickable
	// table backs the telemetry view.
	table component.GridState
}

func (p *panelState) reset() {
	p.moving, p.resizing = false, false
	p.start, p.delta = f32.Point{}, f32.Point{}
}

// panelContent lays out the body of a panel.
type panelContent func(gtx C, p grid.Panel, st *panelState) D

// gridView draws the panels of a board and turns pointer gestures into layout
// changes.
type gridView struct {
	board  *grid.Board
	l      *zap.Logger
	panels map[string]*panelState
}

func newGridView(board *grid.Board, l *zap.Logger) *gridView {
	return &gridView{
		board:  board,
		l:      l,
		panels: make(map[string]*panelState),
	}
}

func (v *gridView) state(id string) *panelState {
	st, ok := v.panels[id]
	if !ok {
		st = new(panelState)
		v.panels[id] = st
	}
	return st
}

func (v *gridView) geometry(gtx C) cellGeometry {
	m := v.board.Metrics()
	return newCellGeometry(gtx.Constraints.Max.X, grid.Columns,
		gtx.Dp(unit.Dp(m.RowHeight)), gtx.Dp(unit.Dp(m.Margin)))
}

// Update processes gestures of the previous frame. Finished drags and resizes
// are applied to the board as one layout change.
func (v *gridView) Update(gtx C) {
	geo := v.geometry(gtx)
	panels := v.board.Panels()
	changed := make(map[string]grid.Rect)
	var removed []string
	for _, p := range panels {
		st := v.state(p.ID)
		if st.remove.Clicked(gtx) && v.board.DeleteMode() {
			removed = append(removed, p.ID)
			continue
		}
		for {
			ev, ok := st.move.Update(gtx.Metric, gtx.Source, gesture.Both)
			if !ok {
				break
			}
			if r, done := v.track(st, &st.moving, ev); done {
				if next := geo.move(p.Rect, r); next != p.Rect {
					changed[p.ID] = next
				}
			}
		}
		for {
			ev, ok := st.resize.Update(gtx.Metric, gtx.Source, gesture.Both)
			if !ok {
				break
			}
			if r, done := v.track(st, &st.resizing, ev); done {
				if next := geo.resize(p.Rect, r); next != p.Rect {
					changed[p.ID] = next
				}
			}
		}
	}
	for _, id := range removed {
		v.board.RemovePanel(id)
	}
	if len(changed) > 0 {
		v.l.Debug("Applying layout change", zap.Int("panels", len(changed)))
		v.board.UpdateLayout(changed)
	}
	// Forget panels that are gone.
	current := v.board.Panels()
	for id := range v.panels {
		if current.Index(id) < 0 {
			delete(v.panels, id)
		}
	}
}

// track follows one drag gesture and returns its total offset once released.
func (v *gridView) track(st *panelState, active *bool, ev pointer.Event) (delta f32.Point, done bool) {
	switch ev.Kind {
	case pointer.Press:
		*active = true
		st.start = ev.Position
		st.delta = f32.Point{}
	case pointer.Drag:
		if *active {
			st.delta = ev.Position.Sub(st.start)
		}
	case pointer.Release:
		if *active {
			delta = ev.Position.Sub(st.start)
			st.reset()
			return delta, true
		}
	case pointer.Cancel:
		st.reset()
	}
	return f32.Point{}, false
}

// Layout draws every panel. The grid area grows to fit the lowest panel.
func (v *gridView) Layout(gtx C, th *material.Theme, content panelContent) D {
	geo := v.geometry(gtx)
	panels := v.board.Panels()
	deleting := v.board.DeleteMode()
	for _, p := range panels {
		st := v.state(p.ID)
		committed := geo.bounds(p.Rect)
		visual := committed
		switch {
		case st.moving:
			v.layoutPlaceholder(gtx, geo.bounds(geo.move(p.Rect, st.delta)))
			visual = committed.Add(image.Pt(roundPx(st.delta.X), roundPx(st.delta.Y)))
		case st.resizing:
			v.layoutPlaceholder(gtx, geo.bounds(geo.resize(p.Rect, st.delta)))
			visual.Max = visual.Max.Add(image.Pt(roundPx(st.delta.X), roundPx(st.delta.Y)))
			visual.Max.X = max(visual.Max.X, visual.Min.X+gtx.Dp(32))
			visual.Max.Y = max(visual.Max.Y, visual.Min.Y+gtx.Dp(32))
		}
		v.layoutPanel(gtx, th, visual, p, st, content)
		if deleting {
			v.layoutRemoveArea(gtx, committed, st)
			continue
		}
		// Input areas stay at the committed position so drag positions
		// remain stable while the panel follows the pointer.
		if p.Draggable {
			area := clip.Rect(committed).Push(gtx.Ops)
			st.move.Add(gtx.Ops)
			pointer.CursorGrab.Add(gtx.Ops)
			area.Pop()
		}
		if p.Resizable {
			handle := gtx.Dp(16)
			corner := image.Rectangle{Min: committed.Max.Sub(image.Pt(handle, handle)), Max: committed.Max}
			area := clip.Rect(corner).Push(gtx.Ops)
			st.resize.Add(gtx.Ops)
			pointer.CursorSouthEastResize.Add(gtx.Ops)
			area.Pop()
			paint.FillShape(gtx.Ops, panelBorder, clip.Rect(corner).Op())
		}
	}
	height := max(geo.contentHeight(panels), gtx.Constraints.Min.Y)
	return D{Size: image.Pt(gtx.Constraints.Max.X, height)}
}

func (v *gridView) layoutPlaceholder(gtx C, r image.Rectangle) {
	paint.FillShape(gtx.Ops, placeholderBg, clip.UniformRRect(r, gtx.Dp(4)).Op(gtx.Ops))
}

func (v *gridView) layoutRemoveArea(gtx C, r image.Rectangle, st *panelState) {
	defer op.Offset(r.Min).Push(gtx.Ops).Pop()
	gtx.Constraints = layout.Exact(r.Size())
	st.remove.Layout(gtx, func(gtx C) D {
		paint.FillShape(gtx.Ops, deleteTint, clip.Rect{Max: gtx.Constraints.Min}.Op())
		pointer.CursorPointer.Add(gtx.Ops)
		return D{Size: gtx.Constraints.Min}
	})
}

func (v *gridView) layoutPanel(gtx C, th *material.Theme, r image.Rectangle, p grid.Panel, st *panelState, content panelContent) {
	defer op.Offset(r.Min).Push(gtx.Ops).Pop()
	gtx.Constraints = layout.Exact(r.Size())
	radius := gtx.Dp(4)
	defer clip.UniformRRect(image.Rectangle{Max: r.Size()}, radius).Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, panelBg)
	widget.Border{Color: panelBorder, Width: 1, CornerRadius: 4}.Layout(gtx, func(gtx C) D {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(func(gtx C) D {
				return layout.UniformInset(6).Layout(gtx, material.Body2(th, p.View.Title()).Layout)
			}),
			layout.Flexed(1, func(gtx C) D {
				return content(gtx, p, st)
			}),
		)
	})
}
