package backend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"git.sr.ht/~whereswaldon/robodash/graph"
)

// ErrNoTimeColumn is returned when a replay file has no time column.
var ErrNoTimeColumn = errors.New("replay header has no " + graph.TimeKey + " column")

// maxReplayGap bounds the pause between two paced rows.
const maxReplayGap = 2 * time.Second

type ReplayOptions struct {
	// Follow keeps reading rows appended to the file until the context is done.
	Follow bool
	// Pace delays rows according to their timestamps.
	Pace bool
}

// Replay delivers the rows of a CSV recording as single-sample batches. The
// header names the series and must include a time column in milliseconds.
func (d *Datasource) Replay(ctx context.Context, path string, opts ReplayOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening replay: %w", err)
	}
	defer f.Close()

	var wait func(context.Context) error
	if opts.Follow {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed creating file watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		wait = func(ctx context.Context) error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case ev, ok := <-watcher.Events:
					if !ok {
						return io.EOF
					}
					if ev.Has(fsnotify.Write) {
						return nil
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return io.EOF
					}
					return fmt.Errorf("watching %s: %w", path, err)
				}
			}
		}
	}

	return d.replaySession(ctx, path, f, wait, opts.Pace)
}

// ReplayStream replays a recording read from r, typically a file picked in the
// UI, and closes r when done. name identifies the recording in the status.
func (d *Datasource) ReplayStream(ctx context.Context, name string, r io.ReadCloser, pace bool) error {
	defer r.Close()
	return d.replaySession(ctx, name, r, nil, pace)
}

func (d *Datasource) replaySession(ctx context.Context, name string, r io.Reader, wait func(context.Context) error, pace bool) error {
	d.setStatus(Status{Mode: ModeReplaying, Source: name, Connected: true})
	var err error
	if d.send(ctx, Update{Reset: true}) {
		err = d.replay(ctx, r, wait, pace)
	} else {
		err = ctx.Err()
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	d.setStatus(Status{Mode: ModeReplaying, Source: name, Err: err})
	if err != nil {
		d.l.Warn("Replay failed", zap.String("source", name), zap.Error(err))
	} else {
		d.l.Info("Replay finished", zap.String("source", name))
	}
	return err
}

// replay reads r until EOF. With wait set, EOF instead blocks on wait and
// reading resumes once it returns nil.
func (d *Datasource) replay(ctx context.Context, r io.Reader, wait func(context.Context) error, pace bool) error {
	if wait != nil {
		// A growing file may end mid row.
		r = NewLineReader(r)
	}
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1
	read := func() ([]string, error) {
		for {
			rec, err := csvReader.Read()
			if !errors.Is(err, io.EOF) || wait == nil {
				return rec, err
			}
			if err := wait(ctx); err != nil {
				return nil, err
			}
		}
	}

	headings, err := read()
	if err != nil {
		return fmt.Errorf("reading replay header: %w", err)
	}
	for i := range headings {
		headings[i] = strings.TrimSpace(headings[i])
	}
	timeCol := slices.Index(headings, graph.TimeKey)
	if timeCol < 0 {
		return ErrNoTimeColumn
	}

	var (
		prev  float64
		first = true
	)
	for {
		rec, err := read()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("reading replay: %w", err)
		}
		sample, dropped, ok := parseRecord(headings, timeCol, rec)
		if !ok {
			d.metrics.messages.WithLabelValues("malformed").Inc()
			d.l.Debug("Dropping replay row without timestamp", zap.Strings("record", rec))
			continue
		}
		d.metrics.messages.WithLabelValues("ok").Inc()
		d.metrics.dropped.Add(float64(dropped))

		t := sample[0].Value
		if pace && !first && t > prev {
			gap := min(time.Duration((t-prev)*float64(time.Millisecond)), maxReplayGap)
			timer := time.NewTimer(gap)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		prev, first = t, false
		if !d.deliver(ctx, graph.Batch{sample}) {
			return ctx.Err()
		}
	}
}

// parseRecord converts a CSV row into a sample whose first entry is the
// timestamp. Empty cells are skipped; unparsable ones are dropped and counted.
func parseRecord(headings []string, timeCol int, rec []string) (sample graph.Sample, dropped int, ok bool) {
	if timeCol >= len(rec) {
		return nil, 0, false
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(rec[timeCol]), 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		return nil, 0, false
	}
	sample = make(graph.Sample, 1, len(rec))
	sample[0] = graph.Entry{Name: graph.TimeKey, Value: t}
	for i, cell := range rec {
		if i == timeCol || i >= len(headings) || headings[i] == "" {
			continue
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			dropped++
			continue
		}
		sample = append(sample, graph.Entry{Name: headings[i], Value: v})
	}
	return sample, dropped, true
}
