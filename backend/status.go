package backend

import (
	"context"
	"sync"
)

type Mode uint8

const (
	ModeNone Mode = iota
	ModeLive
	ModeReplaying
)

// Status describes the data source feeding the dashboard.
type Status struct {
	Mode      Mode
	Source    string
	Connected bool
	Err       error
}

func (s Status) String() string {
	var msg string
	switch s.Mode {
	case ModeLive:
		if s.Connected {
			msg = "Live: " + s.Source
		} else {
			msg = "Connecting to " + s.Source
		}
	case ModeReplaying:
		if s.Connected {
			msg = "Replaying " + s.Source
		} else {
			msg = "Replay of " + s.Source + " finished"
		}
	default:
		msg = "No data source"
	}
	if s.Err != nil {
		msg += ": " + s.Err.Error()
	}
	return msg
}

// broadcaster fans the latest value out to any number of subscribers. Slow
// subscribers only ever see the most recent value.
type broadcaster[T any] struct {
	lock    sync.Mutex
	current T
	subs    map[chan T]struct{}
}

func (b *broadcaster[T]) Set(v T) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.current = v
	for ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (b *broadcaster[T]) Get() T {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.current
}

// Stream emits the current value immediately and every later one until ctx is
// done, then closes the channel.
func (b *broadcaster[T]) Stream(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	b.lock.Lock()
	if b.subs == nil {
		b.subs = make(map[chan T]struct{})
	}
	b.subs[ch] = struct{}{}
	ch <- b.current
	b.lock.Unlock()
	go func() {
		<-ctx.Done()
		b.lock.Lock()
		defer b.lock.Unlock()
		delete(b.subs, ch)
		close(ch)
	}()
	return ch
}
