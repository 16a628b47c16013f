package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"git.sr.ht/~whereswaldon/robodash/graph"
)

const (
	// MessageTelemetry carries a batch of samples.
	MessageTelemetry = "telemetry"
	// MessageSubscribe is sent by clients once connected.
	MessageSubscribe = "subscribe"
)

// ErrUnknownMessage is returned when decoding a message of a type other than
// MessageTelemetry.
var ErrUnknownMessage = errors.New("unknown message type")

// WireEntry is the JSON form of a graph.Entry. Value is kept raw so that
// non-numeric values can be detected and dropped.
type WireEntry struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Message is the JSON envelope exchanged over the telemetry websocket.
type Message struct {
	Type    string        `json:"type"`
	Topic   string        `json:"topic,omitempty"`
	Samples [][]WireEntry `json:"samples,omitempty"`
}

var subscribeMessage = must(json.Marshal(Message{Type: MessageSubscribe, Topic: MessageTelemetry}))

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// EncodeBatch encodes batch as a telemetry message. Non-finite values cannot
// be represented in JSON and are skipped.
func EncodeBatch(batch graph.Batch) ([]byte, error) {
	msg := Message{
		Type:    MessageTelemetry,
		Samples: make([][]WireEntry, 0, len(batch)),
	}
	for _, sample := range batch {
		entries := make([]WireEntry, 0, len(sample))
		for _, e := range sample {
			if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
				continue
			}
			entries = append(entries, WireEntry{
				Name:  e.Name,
				Value: strconv.AppendFloat(nil, e.Value, 'g', -1, 64),
			})
		}
		msg.Samples = append(msg.Samples, entries)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}
	return data, nil
}

// DecodeMessage decodes a telemetry message. Entries whose value is missing,
// null or not a number are dropped and counted.
func DecodeMessage(data []byte) (batch graph.Batch, dropped int, err error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, 0, fmt.Errorf("decoding message: %w", err)
	}
	if msg.Type != MessageTelemetry {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	batch = make(graph.Batch, 0, len(msg.Samples))
	for _, entries := range msg.Samples {
		sample := make(graph.Sample, 0, len(entries))
		for _, e := range entries {
			var v *float64
			if err := json.Unmarshal(e.Value, &v); err != nil || v == nil {
				dropped++
				continue
			}
			sample = append(sample, graph.Entry{Name: e.Name, Value: *v})
		}
		batch = append(batch, sample)
	}
	return batch, dropped, nil
}
