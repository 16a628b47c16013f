// Package feed serves synthetic telemetry over websocket in the format the
// dashboard consumes.
package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"git.sr.ht/~whereswaldon/robodash/backend"
	"git.sr.ht/~whereswaldon/robodash/graph"
	"git.sr.ht/~whereswaldon/robodash/sensors"
)

const writeTimeout = 5 * time.Second

type Options struct {
	Sensors []sensors.Sensor
	// Interval between samples. Default 50ms.
	Interval time.Duration
	// Record, if set, receives every sample as CSV suitable for replay.
	Record io.Writer
	Now    func() time.Time
	Logger *zap.Logger
}

// Server samples its sensors on every tick and broadcasts the readings to all
// connected websocket clients.
type Server struct {
	opts     Options
	l        *zap.Logger
	upgrader websocket.Upgrader

	lock    sync.Mutex
	clients map[*client]struct{}
	// closed is set once Run returns; later clients are turned away.
	closed bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

var _ http.Handler = (*Server)(nil)

func NewServer(opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = 50 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		opts: opts,
		l:    opts.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.clients)
}

// ServeHTTP upgrades the request and streams telemetry until the client
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, 16)}
	if !s.register(c) {
		s.l.Debug("Refusing client after shutdown", zap.String("remote", r.RemoteAddr))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		return
	}
	defer func() {
		s.lock.Lock()
		delete(s.clients, c)
		s.lock.Unlock()
	}()

	l := s.l.With(zap.String("remote", r.RemoteAddr))
	l.Info("Client connected")
	defer l.Info("Client disconnected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			l.Debug("Client message", zap.ByteString("message", data))
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-c.send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				l.Debug("Write failed", zap.Error(err))
				return
			}
		}
	}
}

// Sample reads every sensor at t. Sensors that fail are left out of the sample.
func (s *Server) Sample(t time.Time) graph.Sample {
	sample := make(graph.Sample, 0, len(s.opts.Sensors)+1)
	sample = append(sample, graph.Entry{
		Name:  graph.TimeKey,
		Value: float64(t.UnixNano()) / float64(time.Millisecond),
	})
	for _, sensor := range s.opts.Sensors {
		v, err := sensor.Read(t)
		if err != nil {
			s.l.Warn("Failed reading sensor", zap.String("sensor", sensor.Name()), zap.Error(err))
			continue
		}
		sample = append(sample, graph.Entry{Name: sensor.Name(), Value: v})
	}
	return sample
}

// Run samples on every tick until ctx is done, then disconnects all clients.
func (s *Server) Run(ctx context.Context) error {
	var recorder *csv.Writer
	if s.opts.Record != nil {
		recorder = csv.NewWriter(s.opts.Record)
		headings := []string{graph.TimeKey}
		for _, sensor := range s.opts.Sensors {
			headings = append(headings, sensor.Name())
		}
		if err := recorder.Write(headings); err != nil {
			return fmt.Errorf("writing recording header: %w", err)
		}
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	defer s.closeClients()
	for {
		select {
		case <-ctx.Done():
			if recorder != nil {
				recorder.Flush()
				return recorder.Error()
			}
			return nil
		case <-ticker.C:
		}
		sample := s.Sample(s.opts.Now())
		msg, err := backend.EncodeBatch(graph.Batch{sample})
		if err != nil {
			return err
		}
		s.broadcast(msg)
		if recorder != nil {
			if err := recorder.Write(record(s.opts.Sensors, sample)); err != nil {
				return fmt.Errorf("recording sample: %w", err)
			}
			recorder.Flush()
		}
	}
}

// record lays out sample in the column order of the recording header.
func record(sensorList []sensors.Sensor, sample graph.Sample) []string {
	values := make(map[string]float64, len(sample))
	for _, e := range sample {
		values[e.Name] = e.Value
	}
	rec := make([]string, 0, len(sensorList)+1)
	rec = append(rec, strconv.FormatFloat(values[graph.TimeKey], 'f', -1, 64))
	for _, sensor := range sensorList {
		v, ok := values[sensor.Name()]
		if !ok {
			rec = append(rec, "")
			continue
		}
		rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return rec
}

func (s *Server) broadcast(msg []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.l.Debug("Dropping message for slow client", zap.String("remote", c.conn.RemoteAddr().String()))
		}
	}
}

func (s *Server) register(c *client) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) closeClients() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	// Handlers remove themselves once the close message is written.
	for c := range s.clients {
		close(c.send)
	}
}
