package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"git.sr.ht/~whereswaldon/robodash/graph"
)

// feedServer accepts websocket clients and runs handle for each of them.
func feedServer(t *testing.T, handle func(t *testing.T, conn *websocket.Conn)) (url string, conns *atomic.Int32) {
	t.Helper()
	conns = new(atomic.Int32)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrading: %v", err)
			return
		}
		defer conn.Close()
		conns.Add(1)
		handle(t, conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), conns
}

func receiveUpdate(t *testing.T, d *Datasource) Update {
	t.Helper()
	select {
	case u := <-d.Updates():
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a batch")
		return Update{}
	}
}

func receive(t *testing.T, d *Datasource) graph.Batch {
	t.Helper()
	u := receiveUpdate(t, d)
	require.False(t, u.Reset, "unexpected reset")
	return u.Batch
}

// run starts d and stops it when the test ends.
func run(t *testing.T, d *Datasource) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ctx
}

func TestDatasourceRun(t *testing.T) {
	url, _ := feedServer(t, func(t *testing.T, conn *websocket.Conn) {
		var sub Message
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("reading subscription: %v", err)
			return
		}
		if sub.Type != MessageSubscribe || sub.Topic != MessageTelemetry {
			t.Errorf("unexpected subscription %+v", sub)
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"telemetry","samples":[[{"name":"time","value":5},{"name":"v","value":"x"},{"name":"w","value":2}]]}`))
		// Hold the connection until the client goes away.
		conn.ReadMessage()
	})

	var invalidations atomic.Int32
	d := NewDatasource(Options{
		URL:        url,
		Logger:     zaptest.NewLogger(t),
		Invalidate: func() { invalidations.Add(1) },
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	batch := receive(t, d)
	assert.Equal(t, graph.Batch{{{Name: "time", Value: 5}, {Name: "w", Value: 2}}}, batch)
	assert.Eventually(t, func() bool { return invalidations.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.messages.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.dropped))

	status := d.status.Get()
	assert.Equal(t, ModeLive, status.Mode)
	assert.True(t, status.Connected)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDatasourceReconnects(t *testing.T) {
	url, conns := feedServer(t, func(t *testing.T, conn *websocket.Conn) {
		data, err := EncodeBatch(graph.Batch{{{Name: "time", Value: 1}, {Name: "v", Value: 1}}})
		if err != nil {
			t.Errorf("encoding: %v", err)
			return
		}
		conn.WriteMessage(websocket.TextMessage, data)
		// Dropping the connection forces a reconnect.
	})

	d := NewDatasource(Options{URL: url, MaxBackoff: 10 * time.Millisecond, Logger: zaptest.NewLogger(t)})
	run(t, d)

	receive(t, d)
	receive(t, d)
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
	assert.GreaterOrEqual(t, testutil.ToFloat64(d.metrics.dials.WithLabelValues("ok")), 2.0)
}

func TestDatasourceDialFailure(t *testing.T) {
	d := NewDatasource(Options{URL: "ws://127.0.0.1:1/telemetry", MaxBackoff: 50 * time.Millisecond, Logger: zaptest.NewLogger(t)})
	statuses := d.Status(run(t, d))

	require.Eventually(t, func() bool {
		select {
		case s := <-statuses:
			return s.Err != nil && !s.Connected
		default:
			return false
		}
	}, 5*time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(d.metrics.dials.WithLabelValues("error")), 1.0)
}

func TestDatasourceRunWithoutURL(t *testing.T) {
	d := NewDatasource(Options{})
	assert.ErrorIs(t, d.Run(context.Background()), ErrNoURL)
}

func TestReplay(t *testing.T) {
	d := NewDatasource(Options{Logger: zaptest.NewLogger(t), BufferSize: 16})
	in := strings.NewReader("arm, time, battery,\n" +
		"1.5, 100, 12.1,\n" +
		"oops, 200, ,\n" +
		"2, not-a-time, 12\n" +
		"2.5, 300, 11.9\n")
	require.NoError(t, d.replay(context.Background(), in, nil, false))

	require.Len(t, d.Updates(), 3)
	assert.Equal(t, graph.Batch{{{Name: "time", Value: 100}, {Name: "arm", Value: 1.5}, {Name: "battery", Value: 12.1}}}, receive(t, d))
	assert.Equal(t, graph.Batch{{{Name: "time", Value: 200}}}, receive(t, d))
	assert.Equal(t, graph.Batch{{{Name: "time", Value: 300}, {Name: "arm", Value: 2.5}, {Name: "battery", Value: 11.9}}}, receive(t, d))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.messages.WithLabelValues("malformed")))
}

func TestReplayRequiresTimeColumn(t *testing.T) {
	d := NewDatasource(Options{})
	err := d.replay(context.Background(), strings.NewReader("a,b\n1,2\n"), nil, false)
	assert.ErrorIs(t, err, ErrNoTimeColumn)
}

func TestReplayPacing(t *testing.T) {
	d := NewDatasource(Options{BufferSize: 4})
	in := strings.NewReader("time,v\n0,1\n50,2\n100,3\n")
	start := time.Now()
	require.NoError(t, d.replay(context.Background(), in, nil, true))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Len(t, d.Updates(), 3)
}

func TestReplayFinalRowWithoutNewline(t *testing.T) {
	d := NewDatasource(Options{BufferSize: 4})
	in := strings.NewReader("time,v\n0,1\n10,2")
	require.NoError(t, d.replay(context.Background(), in, nil, false))
	require.Len(t, d.Updates(), 2)
	receive(t, d)
	assert.Equal(t, graph.Batch{{{Name: "time", Value: 10}, {Name: "v", Value: 2}}}, receive(t, d))
}

func TestReplayFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,v\n0,1\n"), 0o644))

	d := NewDatasource(Options{Logger: zaptest.NewLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Replay(ctx, path, ReplayOptions{Follow: true}) }()

	require.True(t, receiveUpdate(t, d).Reset)
	assert.Equal(t, graph.Batch{{{Name: "time", Value: 0}, {Name: "v", Value: 1}}}, receive(t, d))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("10,")
	require.NoError(t, err)
	_, err = f.WriteString("2\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, graph.Batch{{{Name: "time", Value: 10}, {Name: "v", Value: 2}}}, receive(t, d))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Replay did not stop")
	}
	assert.Equal(t, ModeReplaying, d.status.Get().Mode)
	assert.False(t, d.status.Get().Connected)
}

type closeTracker struct {
	*strings.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestReplayStream(t *testing.T) {
	d := NewDatasource(Options{Logger: zaptest.NewLogger(t)})
	r := &closeTracker{Reader: strings.NewReader("time,v\n0,1\n")}
	require.NoError(t, d.ReplayStream(context.Background(), "match.csv", r, false))

	assert.True(t, r.closed)
	require.True(t, receiveUpdate(t, d).Reset)
	assert.Equal(t, graph.Batch{{{Name: "time", Value: 0}, {Name: "v", Value: 1}}}, receive(t, d))
	assert.Equal(t, "Replay of match.csv finished", d.status.Get().String())
}
