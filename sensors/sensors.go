// Package sensors provides synthetic robot sensor readings for driving the
// dashboard without hardware.
package sensors

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Unit uint8

func (u Unit) String() string {
	switch u {
	case Volts:
		return "V"
	case Amps:
		return "A"
	case Degrees:
		return "deg"
	case RPM:
		return "rpm"
	case Meters:
		return "m"
	default:
		return "?"
	}
}

const (
	Volts Unit = iota
	Amps
	Degrees
	RPM
	Meters
	Unknown
)

// ParseUnit parses the String form of a unit.
func ParseUnit(s string) (Unit, error) {
	for u := Volts; u < Unknown; u++ {
		if u.String() == s {
			return u, nil
		}
	}
	return Unknown, fmt.Errorf("unknown unit %q", s)
}

type Sensor interface {
	Name() string
	Unit() Unit
	Read(t time.Time) (float64, error)
}

type Waveform uint8

const (
	Sine Waveform = iota
	Square
	Ramp
)

var waveforms = map[string]Waveform{
	"sine":   Sine,
	"square": Square,
	"ramp":   Ramp,
}

// Signal is a periodic waveform sensor.
type Signal struct {
	name      string
	unit      Unit
	Waveform  Waveform
	Period    time.Duration
	Amplitude float64
	Offset    float64
	Start     time.Time
}

var _ Sensor = (*Signal)(nil)

func NewSignal(name string, unit Unit, wave Waveform, period time.Duration, amplitude float64) *Signal {
	return &Signal{
		name:      name,
		unit:      unit,
		Waveform:  wave,
		Period:    period,
		Amplitude: amplitude,
	}
}

func (s *Signal) Name() string { return s.name }
func (s *Signal) Unit() Unit   { return s.unit }

// Read returns the value of the waveform at t.
func (s *Signal) Read(t time.Time) (float64, error) {
	if s.Period <= 0 {
		return 0, errors.New("signal period must be positive")
	}
	phase := math.Mod(float64(t.Sub(s.Start))/float64(s.Period), 1)
	if phase < 0 {
		phase++
	}
	var v float64
	switch s.Waveform {
	case Sine:
		v = math.Sin(2 * math.Pi * phase)
	case Square:
		v = 1
		if phase >= 0.5 {
			v = -1
		}
	case Ramp:
		v = phase
	}
	return s.Offset + s.Amplitude*v, nil
}

// ParseSignal parses "wave:name[:period[:amplitude[:unit]]]", for example
// "sine:armAngle:2s:90:deg". Period defaults to 1s, amplitude to 1.
func ParseSignal(spec string) (*Signal, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || parts[1] == "" {
		return nil, fmt.Errorf("signal %q: want wave:name[:period[:amplitude[:unit]]]", spec)
	}
	wave, ok := waveforms[parts[0]]
	if !ok {
		return nil, fmt.Errorf("signal %q: unknown waveform %q", spec, parts[0])
	}
	s := NewSignal(parts[1], Unknown, wave, time.Second, 1)
	if len(parts) > 2 {
		period, err := time.ParseDuration(parts[2])
		if err != nil {
			return nil, fmt.Errorf("signal %q: %w", spec, err)
		}
		if period <= 0 {
			return nil, fmt.Errorf("signal %q: period must be positive", spec)
		}
		s.Period = period
	}
	if len(parts) > 3 {
		amplitude, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, fmt.Errorf("signal %q: %w", spec, err)
		}
		s.Amplitude = amplitude
	}
	if len(parts) > 4 {
		unit, err := ParseUnit(parts[4])
		if err != nil {
			return nil, fmt.Errorf("signal %q: %w", spec, err)
		}
		s.unit = unit
	}
	return s, nil
}
