// Package debug provides debug facilities.
package debug

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler serves the metrics gathered by r at /debug/metrics.
func Handler(r *prometheus.Registry, l *zap.Logger) (http.Handler, error) {
	stdL, err := zap.NewStdLogAt(l, zap.WarnLevel)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/debug/metrics", promhttp.InstrumentMetricHandler(
		r, promhttp.HandlerFor(r, promhttp.HandlerOpts{
			ErrorLog:          stdL,
			ErrorHandling:     promhttp.ContinueOnError,
			Registry:          r,
			EnableOpenMetrics: true,
		}),
	))
	mux.HandleFunc("/", func(rw http.ResponseWriter, req *http.Request) {
		http.Redirect(rw, req, "/debug/metrics", http.StatusSeeOther)
	})
	return logRequests(mux, l), nil
}

// logRequests logs every request served by h at debug level.
func logRequests(h http.Handler, l *zap.Logger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		m := httpsnoop.CaptureMetrics(h, rw, req)
		l.Debug("Served debug request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("code", m.Code),
			zap.Int64("bytes", m.Written),
			zap.Duration("duration", m.Duration),
		)
	})
}

// RunHandler runs the debug handler on addr until ctx is done.
func RunHandler(ctx context.Context, addr string, r *prometheus.Registry, l *zap.Logger) error {
	h, err := Handler(r, l)
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("debug handler: %w", err)
	}
	s := http.Server{
		Handler: h,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	l.Sugar().Infof("Starting debug server on http://%s/debug/metrics ...", lis.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	s.Shutdown(stopCtx) //nolint:contextcheck // use new context for cancellation

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	l.Sugar().Info("Debug server stopped.")
	return nil
}
