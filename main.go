// Command robodash is a configurable robot telemetry dashboard.
//
// Usage:
//
//	robodash --url ws://127.0.0.1:8765/telemetry
//	robodash --replay match.csv --follow
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/x/explorer"
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"git.sr.ht/~whereswaldon/robodash/backend"
	"git.sr.ht/~whereswaldon/robodash/debug"
	"git.sr.ht/~whereswaldon/robodash/logging"
)

var cli struct {
	URL       string        `default:""   help:"Websocket telemetry endpoint, e.g. ws://127.0.0.1:8765/telemetry."`
	Replay    string        `default:""   help:"Replay telemetry from a CSV file instead of a live feed."`
	Follow    bool          `default:"false" help:"Keep reading the replay file as it grows."`
	Pace      bool          `default:"true"  help:"Pace replayed samples by their timestamps." negatable:""`
	StateDir  string        `default:""   help:"Directory for persisted dashboard state; empty keeps it in memory."`
	Window    time.Duration `default:"5s" help:"Visible time span of graph panels."`
	Locked    bool          `default:"false" help:"Start in view-only mode."`
	DebugAddr string        `default:""   help:"Listen address for the metrics handler."`

	Log struct {
		Level  string `default:"info"    help:"${help_log_level}"`
		Format string `default:"console" help:"${help_log_format}" enum:"${enum_log_format}"`
	} `embed:"" prefix:"log-"`
}

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	kong.Parse(&cli,
		kong.Description("Configurable robot telemetry dashboard."),
		kong.Vars{
			"enum_log_format": strings.Join(logging.Formats, ","),
			"help_log_format": fmt.Sprintf("Log format: '%s'.", strings.Join(logging.Formats, "', '")),
			"help_log_level":  fmt.Sprintf("Log level: '%s'.", strings.Join(logging.Levels, "', '")),
		},
		kong.DefaultEnvars("ROBODASH"),
	)

	l, err := logging.New(cli.Log.Level, cli.Log.Format)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		defer l.Sync()
		if err := run(l); err != nil {
			l.Fatal("Dashboard failed", zap.Error(err))
		}
		os.Exit(0)
	}()
	app.Main()
}

func run(l *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := new(app.Window)
	w.Option(app.Title("robodash"), app.Size(unit.Dp(1280), unit.Dp(800)))

	r := prometheus.NewRegistry()
	dsMetrics := backend.NewMetrics()
	frameMetrics := newRenderMetrics()
	r.MustRegister(dsMetrics, frameMetrics, collectors.NewGoCollector())
	if cli.DebugAddr != "" {
		go func() {
			if err := debug.RunHandler(ctx, cli.DebugAddr, r, l.Named("debug")); err != nil {
				l.Warn("Debug handler failed", zap.Error(err))
			}
		}()
	}

	store, err := backend.OpenKVStore(cli.StateDir, l.Named("store"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Warn("Failed closing store", zap.Error(err))
		}
	}()

	ds := backend.NewDatasource(backend.Options{
		URL:        cli.URL,
		Invalidate: w.Invalidate,
		Logger:     l.Named("datasource"),
		Metrics:    dsMetrics,
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		var err error
		switch {
		case cli.Replay != "":
			err = ds.Replay(ctx, cli.Replay, backend.ReplayOptions{Follow: cli.Follow, Pace: cli.Pace})
		case cli.URL != "":
			err = ds.Run(ctx)
		default:
			l.Info("No data source configured; pass --url or --replay")
			return
		}
		if err != nil {
			l.Warn("Data source stopped", zap.Error(err))
		}
	}()

	bundle := backend.NewBundle(ds, store)
	ui := NewUI(backend.NewWindowState(ctx, bundle, w), explorer.NewExplorer(w), UIOptions{
		Context: ctx,
		Window:  cli.Window,
		Locked:  cli.Locked,
		Logger:  l,
		Metrics: frameMetrics,
	})
	err = loop(w, ui, ds.Updates())
	cancel()
	<-done
	return err
}

func loop(w *app.Window, ui *UI, updates <-chan backend.Update) error {
	var ops op.Ops
	for {
		e := w.Event()
		ui.ListenEvents(e)
		switch ev := e.(type) {
		case app.DestroyEvent:
			return ev.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, ev)
		drain:
			for {
				select {
				case u := <-updates:
					ui.Apply(u)
				default:
					break drain
				}
			}
			ui.Layout(gtx)
			ev.Frame(gtx.Ops)
		}
	}
}
