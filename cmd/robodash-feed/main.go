// Command robodash-feed serves synthetic robot telemetry for the dashboard.
//
// Usage:
//
//	robodash-feed --listen 127.0.0.1:8765 --signal sine:arm:2s:90:deg
//	robodash --url ws://127.0.0.1:8765/telemetry
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"git.sr.ht/~whereswaldon/robodash/debug"
	"git.sr.ht/~whereswaldon/robodash/feed"
	"git.sr.ht/~whereswaldon/robodash/logging"
	"git.sr.ht/~whereswaldon/robodash/sensors"
)

var cli struct {
	Listen    string        `default:"127.0.0.1:8765" help:"Listen TCP address; telemetry is served at /telemetry."`
	Interval  time.Duration `default:"50ms"           help:"Interval between samples."`
	Signal    []string      `default:"sine:armAngle:2s:90:deg,square:intake:3s:1:A,ramp:battery:10s:12:V" help:"Signals as wave:name[:period[:amplitude[:unit]]]."`
	Output    string        `default:""               help:"Also record samples as CSV to this file ('-' for stdout)."`
	DebugAddr string        `default:""               help:"Listen address for the metrics handler."`

	Log struct {
		Level  string `default:"info"    help:"${help_log_level}"`
		Format string `default:"console" help:"${help_log_format}" enum:"${enum_log_format}"`
	} `embed:"" prefix:"log-"`
}

func main() {
	kong.Parse(&cli,
		kong.Vars{
			"enum_log_format": strings.Join(logging.Formats, ","),
			"help_log_format": fmt.Sprintf("Log format: '%s'.", strings.Join(logging.Formats, "', '")),
			"help_log_level":  fmt.Sprintf("Log level: '%s'.", strings.Join(logging.Levels, "', '")),
		},
		kong.DefaultEnvars("ROBODASH_FEED"),
	)

	l, err := logging.New(cli.Log.Level, cli.Log.Format)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Sync()

	if err := run(l); err != nil {
		l.Fatal("Feed failed", zap.Error(err))
	}
}

func run(l *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	sensorList := make([]sensors.Sensor, 0, len(cli.Signal))
	for _, spec := range cli.Signal {
		s, err := sensors.ParseSignal(spec)
		if err != nil {
			return err
		}
		s.Start = start
		sensorList = append(sensorList, s)
		l.Info("Serving signal", zap.String("name", s.Name()), zap.Stringer("unit", s.Unit()))
	}
	if len(sensorList) < 1 {
		return errors.New("no signals configured")
	}

	var record io.Writer
	switch cli.Output {
	case "":
	case "-":
		record = os.Stdout
	default:
		f, err := os.Create(cli.Output)
		if err != nil {
			return fmt.Errorf("failed opening output file %q: %w", cli.Output, err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				l.Warn("Failed closing output", zap.Error(err))
			}
		}()
		record = f
	}

	server := feed.NewServer(feed.Options{
		Sensors:  sensorList,
		Interval: cli.Interval,
		Record:   record,
		Logger:   l.Named("feed"),
	})

	if cli.DebugAddr != "" {
		r := prometheus.NewRegistry()
		r.MustRegister(collectors.NewGoCollector())
		go func() {
			if err := debug.RunHandler(ctx, cli.DebugAddr, r, l.Named("debug")); err != nil {
				l.Warn("Debug handler failed", zap.Error(err))
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/telemetry", server)
	httpServer := http.Server{
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	lis, err := net.Listen("tcp", cli.Listen)
	if err != nil {
		return err
	}
	l.Sugar().Infof("Serving telemetry on ws://%s/telemetry", lis.Addr())

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(lis) }()

	runErr := server.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(runErr, err)
	}
	return runErr
}
