package main

import (
	"image"
	"strconv"

	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/widget/material"
	"gioui.org/x/component"

	"git.sr.ht/~whereswaldon/robodash/giosurface"
	"git.sr.ht/~whereswaldon/robodash/grid"
)

// layoutPanelBody draws the visualization of a panel.
func (ui *UI) layoutPanelBody(gtx C, p grid.Panel, st *panelState) D {
	switch p.View {
	case grid.GraphView:
		return ui.layoutGraph(gtx)
	case grid.TelemetryView:
		return ui.layoutTelemetry(gtx, st)
	default:
		return layoutPlaceholder(gtx, ui.th, p.View.Title()+" view")
	}
}

func layoutPlaceholder(gtx C, th *material.Theme, msg string) D {
	l := material.Body2(th, msg)
	l.Color.A = 150
	return layout.Center.Layout(gtx, l.Layout)
}

// layoutGraph renders the shared graph into the panel, animating for as long
// as there is data in the window.
func (ui *UI) layoutGraph(gtx C) D {
	size := gtx.Constraints.Max
	s := giosurface.New(gtx, ui.th.Shaper)
	s.Background = panelBg
	drawn := ui.graph.Render(s)
	s.Close()
	ui.metrics.graphRendered(drawn)
	if !drawn {
		return layoutPlaceholder(gtx, ui.th, "Waiting for telemetry")
	}
	gtx.Execute(op.InvalidateCmd{})
	return D{Size: size}
}

func (ui *UI) layoutTelemetry(gtx C, st *panelState) D {
	names := ui.graph.Names()
	if len(names) == 0 {
		return layoutPlaceholder(gtx, ui.th, "Waiting for telemetry")
	}
	th := ui.th
	table := component.Table(th, &st.table)
	table.HScrollbarStyle.Indicator.MinorWidth = 0
	table.HScrollbarStyle.Track.MinorPadding = 0
	colorColWidth := gtx.Dp(24)
	valueColWidth := gtx.Dp(80)
	nameColWidth := gtx.Constraints.Max.X - colorColWidth - valueColWidth - gtx.Dp(table.VScrollbarStyle.Width())
	rowHeight := gtx.Sp(20)
	const (
		colorCol = iota
		nameCol
		valueCol
		numCols
	)
	return table.Layout(gtx, len(names), numCols,
		func(axis layout.Axis, index, constraint int) int {
			if axis == layout.Vertical {
				return min(constraint, rowHeight)
			}
			var size int
			switch index {
			case colorCol:
				size = colorColWidth
			case nameCol:
				size = max(nameColWidth, 0)
			case valueCol:
				size = valueColWidth
			}
			return min(size, constraint)
		},
		func(gtx C, index int) D {
			var l material.LabelStyle
			switch index {
			case nameCol:
				l = material.Body2(th, "Name")
			case valueCol:
				l = material.Body2(th, "Value")
				l.Alignment = text.End
			default:
				return D{Size: gtx.Constraints.Min}
			}
			return layout.UniformInset(2).Layout(gtx, l.Layout)
		},
		func(gtx C, row, col int) (dims D) {
			defer func() {
				dims.Size = gtx.Constraints.Constrain(dims.Size)
			}()
			name := names[row]
			return layout.UniformInset(2).Layout(gtx, func(gtx C) D {
				switch col {
				case colorCol:
					return layout.Center.Layout(gtx, func(gtx C) D {
						side := gtx.Dp(10)
						sz := image.Pt(side, side)
						c, _ := ui.graph.Color(name)
						paint.FillShape(gtx.Ops, c, clip.Rect{Max: sz}.Op())
						return D{Size: sz}
					})
				case nameCol:
					return material.Body2(th, name).Layout(gtx)
				default:
					v, ok := ui.latest[name]
					txt := "-"
					if ok {
						txt = strconv.FormatFloat(v, 'g', 6, 64)
					}
					l := material.Body2(th, txt)
					l.Alignment = text.End
					return l.Layout(gtx)
				}
			})
		},
	)
}
