package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"gioui.org/font/gofont"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/explorer"
	"git.sr.ht/~gioverse/skel/stream"
	"go.uber.org/zap"
	"golang.org/x/exp/shiny/materialdesign/icons"

	"git.sr.ht/~whereswaldon/robodash/backend"
	"git.sr.ht/~whereswaldon/robodash/graph"
	"git.sr.ht/~whereswaldon/robodash/grid"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

func mustIcon(data []byte) *widget.Icon {
	icon, _ := widget.NewIcon(data)
	return icon
}

var (
	lockIcon   = mustIcon(icons.ActionLock)
	unlockIcon = mustIcon(icons.ActionLockOpen)
	undoIcon   = mustIcon(icons.ContentUndo)
	redoIcon   = mustIcon(icons.ContentRedo)
	addIcon    = mustIcon(icons.ContentAdd)
	deleteIcon = mustIcon(icons.ActionDelete)
	openIcon   = mustIcon(icons.FileFolderOpen)
)

var (
	headerBg = color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	errColor = color.NRGBA{R: 150, A: 255}
)

// UIOptions configure the dashboard.
type UIOptions struct {
	// Context bounds background work started from the UI.
	Context context.Context
	// Window is the visible span of graph panels.
	Window time.Duration
	Locked bool
	// Now is the wall clock driving graph scrolling. Default time.Now.
	Now     func() time.Time
	Logger  *zap.Logger
	Metrics *renderMetrics
}

// UI is responsible for holding the state of and drawing the top-level UI.
type UI struct {
	ws      backend.WindowState
	appCtx  context.Context
	expl    *explorer.Explorer
	l       *zap.Logger
	metrics *renderMetrics
	th      *material.Theme

	board     *grid.Board
	grid      *gridView
	mounted   bool
	graphOpts graph.Options
	graph     *graph.Graph
	latest    map[string]float64

	lockBtn, undoBtn, redoBtn  widget.Clickable
	addBtn, deleteBtn, openBtn widget.Clickable
	pickerBtns                 []widget.Clickable
	choosing                   atomic.Bool

	statusStream *stream.Stream[backend.Status]
	status       backend.Status
}

func NewUI(ws backend.WindowState, expl *explorer.Explorer, opts UIOptions) *UI {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = newRenderMetrics()
	}
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()), text.NoSystemFonts())
	board := grid.NewBoard(grid.Options{
		Store:  ws.Bundle.Store,
		Logger: opts.Logger.Named("board"),
		Locked: opts.Locked,
	})
	graphOpts := graph.Options{
		Window: opts.Window,
		Now:    opts.Now,
		Logger: opts.Logger.Named("graph"),
	}
	return &UI{
		ws:           ws,
		appCtx:       opts.Context,
		expl:         expl,
		l:            opts.Logger,
		metrics:      opts.Metrics,
		th:           th,
		board:        board,
		grid:         newGridView(board, opts.Logger.Named("grid")),
		graphOpts:    graphOpts,
		graph:        graph.New(graphOpts),
		latest:       make(map[string]float64),
		pickerBtns:   make([]widget.Clickable, len(grid.ViewKinds())),
		statusStream: stream.New(ws.Controller, ws.Bundle.Datasource.Status),
	}
}

// ListenEvents forwards window events to the file chooser.
func (ui *UI) ListenEvents(ev event.Event) {
	if ui.expl != nil {
		ui.expl.ListenEvents(ev)
	}
}

// Apply handles one delivery from the data source.
func (ui *UI) Apply(u backend.Update) {
	if u.Reset {
		ui.Reset()
	}
	ui.Insert(u.Batch)
}

// Reset starts a fresh graph session for a recording with its own timeline.
func (ui *UI) Reset() {
	if _, anchored := ui.graph.Now(); !anchored && len(ui.latest) == 0 {
		return
	}
	ui.l.Debug("Starting new graph session")
	ui.graph = graph.New(ui.graphOpts)
	clear(ui.latest)
}

// Insert adds a telemetry batch to the graph and the latest values.
func (ui *UI) Insert(batch graph.Batch) {
	ui.graph.Add(batch)
	for _, sample := range batch {
		if _, ok := sample.Time(); !ok {
			continue
		}
		for _, e := range sample {
			if e.Name == graph.TimeKey || math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
				continue
			}
			ui.latest[e.Name] = e.Value
		}
	}
}

// canOpen reports whether a recording may be picked: nothing is streaming.
func (ui *UI) canOpen() bool {
	if ui.expl == nil || ui.choosing.Load() {
		return false
	}
	switch ui.status.Mode {
	case backend.ModeLive:
		return false
	case backend.ModeReplaying:
		return !ui.status.Connected
	}
	return true
}

func (ui *UI) openRecording() {
	if !ui.choosing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer ui.choosing.Store(false)
		f, err := ui.expl.ChooseFile(".csv")
		if err != nil {
			if !errors.Is(err, explorer.ErrUserDecline) {
				ui.l.Warn("Failed choosing recording", zap.Error(err))
			}
			return
		}
		name := "recording"
		if named, ok := f.(interface{ Name() string }); ok {
			name = filepath.Base(named.Name())
		}
		ui.l.Info("Replaying recording", zap.String("name", name))
		ui.ws.Bundle.Datasource.ReplayStream(ui.appCtx, name, f, true)
	}()
}

// Update the state of the UI from the events of the last frame.
func (ui *UI) Update(gtx C) {
	ui.statusStream.ReadInto(gtx, &ui.status, backend.Status{})
	for {
		ev, ok := gtx.Event(
			key.Filter{Name: "Z", Optional: key.ModCtrl | key.ModCommand | key.ModShift},
			key.Filter{Name: "Y", Optional: key.ModCtrl | key.ModCommand | key.ModShift},
		)
		if !ok {
			break
		}
		if e, ok := ev.(key.Event); ok && e.State == key.Press {
			ui.board.HandleKey(keyPress(e), runtime.GOOS)
		}
	}
	if ui.lockBtn.Clicked(gtx) {
		ui.board.ToggleLock()
	}
	if ui.undoBtn.Clicked(gtx) {
		ui.board.Undo()
	}
	if ui.redoBtn.Clicked(gtx) {
		ui.board.Redo()
	}
	if ui.addBtn.Clicked(gtx) {
		ui.board.TogglePicker()
	}
	if ui.deleteBtn.Clicked(gtx) {
		ui.board.ToggleDeleteMode()
	}
	if ui.openBtn.Clicked(gtx) && ui.canOpen() {
		ui.openRecording()
	}
	for i, kind := range grid.ViewKinds() {
		if ui.pickerBtns[i].Clicked(gtx) {
			p := ui.board.AddPanel(kind)
			ui.l.Debug("Added panel", zap.String("id", p.ID), zap.Stringer("view", p.View))
		}
	}
	ui.grid.Update(gtx)
}

func (ui *UI) iconButton(gtx C, btn *widget.Clickable, icon *widget.Icon, desc string, enabled bool) D {
	if !enabled {
		gtx = gtx.Disabled()
	}
	b := material.IconButton(ui.th, btn, icon, desc)
	b.Size = 20
	b.Inset = layout.UniformInset(6)
	return layout.UniformInset(2).Layout(gtx, b.Layout)
}

func (ui *UI) layoutHeader(gtx C) D {
	locked := ui.board.Locked()
	history := ui.board.History()
	return layout.Background{}.Layout(gtx,
		func(gtx C) D {
			paint.FillShape(gtx.Ops, headerBg, clip.Rect{Max: gtx.Constraints.Min}.Op())
			return D{Size: gtx.Constraints.Min}
		},
		func(gtx C) D {
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
				layout.Rigid(func(gtx C) D {
					icon, desc := unlockIcon, "Lock layout"
					if locked {
						icon, desc = lockIcon, "Edit layout"
					}
					return ui.iconButton(gtx, &ui.lockBtn, icon, desc, true)
				}),
				layout.Rigid(func(gtx C) D {
					if locked {
						return D{}
					}
					return layout.Flex{}.Layout(gtx,
						layout.Rigid(func(gtx C) D {
							return ui.iconButton(gtx, &ui.undoBtn, undoIcon, "Undo", history.CanUndo())
						}),
						layout.Rigid(func(gtx C) D {
							return ui.iconButton(gtx, &ui.redoBtn, redoIcon, "Redo", history.CanRedo())
						}),
						layout.Rigid(func(gtx C) D {
							return ui.iconButton(gtx, &ui.addBtn, addIcon, "Add panel", true)
						}),
						layout.Rigid(func(gtx C) D {
							return ui.iconButton(gtx, &ui.deleteBtn, deleteIcon, "Remove panels", true)
						}),
					)
				}),
				layout.Flexed(1, func(gtx C) D {
					l := material.Body1(ui.th, ui.status.String())
					if ui.status.Err != nil {
						l.Color = errColor
					}
					l.MaxLines = 1
					return layout.Inset{Left: 12, Right: 12}.Layout(gtx, l.Layout)
				}),
				layout.Rigid(func(gtx C) D {
					if ui.expl == nil {
						return D{}
					}
					return ui.iconButton(gtx, &ui.openBtn, openIcon, "Open recording", ui.canOpen())
				}),
			)
		},
	)
}

func (ui *UI) layoutPicker(gtx C) D {
	if !ui.board.PickerOpen() {
		return D{}
	}
	kinds := grid.ViewKinds()
	children := make([]layout.FlexChild, len(kinds))
	for i, kind := range kinds {
		i, kind := i, kind
		children[i] = layout.Rigid(func(gtx C) D {
			return layout.UniformInset(4).Layout(gtx,
				material.Button(ui.th, &ui.pickerBtns[i], kind.Title()).Layout)
		})
	}
	return layout.Flex{}.Layout(gtx, children...)
}

func (ui *UI) layoutDeleteHint(gtx C) D {
	if !ui.board.DeleteMode() {
		return D{}
	}
	l := material.Body2(ui.th, "Click a panel to remove it.")
	l.Color = errColor
	return layout.UniformInset(4).Layout(gtx, l.Layout)
}

func (ui *UI) layoutGrid(gtx C) D {
	if !ui.mounted {
		ui.mounted = true
		ui.board.Mount(float64(gtx.Metric.PxToDp(gtx.Constraints.Max.Y)))
	}
	defer clip.Rect{Max: gtx.Constraints.Max}.Push(gtx.Ops).Pop()
	gtx.Constraints.Min = image.Point{}
	ui.grid.Layout(gtx, ui.th, ui.layoutPanelBody)
	return D{Size: gtx.Constraints.Max}
}

// Layout the UI into the provided context.
func (ui *UI) Layout(gtx C) D {
	ui.metrics.frames.Inc()
	ui.Update(gtx)
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(ui.layoutHeader),
		layout.Rigid(ui.layoutPicker),
		layout.Rigid(ui.layoutDeleteHint),
		layout.Flexed(1, func(gtx C) D {
			return layout.Inset{Top: unit.Dp(4)}.Layout(gtx, ui.layoutGrid)
		}),
	)
}
