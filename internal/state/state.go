// Package state encodes the trader memory carried between ticks as an opaque blob.
package state

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Bookkeeping tracks an instrument's open trade between ticks.
type Bookkeeping struct {
	EntryPrice  float64 `json:"entry_price,omitempty"`
	Open        bool    `json:"open,omitempty"`
	PeakPnL     float64 `json:"peak_pnl,omitempty"`
	LastEntryTs int64   `json:"last_entry_ts,omitempty"`
	Entered     bool    `json:"entered,omitempty"`   // set once any entry happened; gates cooldown
	Direction   int     `json:"direction,omitempty"` // spreads only: +1 long the basket, -1 short
}

// State is the full trader memory: rolling windows plus per-instrument bookkeeping.
type State struct {
	Windows map[string][]float64   `json:"windows"`
	Books   map[string]Bookkeeping `json:"books"`
}

// New returns an empty state with allocated maps.
func New() State {
	return State{
		Windows: make(map[string][]float64),
		Books:   make(map[string]Bookkeeping),
	}
}

// DecodeError reports a blob that could not be turned back into State.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode trader state: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrNotObject is returned for blobs that decode to something other than an object.
var ErrNotObject = errors.New("trader state is not a JSON object")

// Encode serializes s.
func Encode(s State) (string, error) {
	s.normalize()
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode trader state: %w", err)
	}
	return string(data), nil
}

// Decode parses blob. An empty blob is a fresh state; anything unreadable is a *DecodeError.
func Decode(blob string) (State, error) {
	if strings.TrimSpace(blob) == "" {
		return New(), nil
	}
	trimmed := strings.TrimSpace(blob)
	if !strings.HasPrefix(trimmed, "{") {
		return New(), &DecodeError{Err: ErrNotObject}
	}
	var s State
	if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
		return New(), &DecodeError{Err: err}
	}
	s.normalize()
	return s, nil
}

// Restore decodes blob and falls back to a fresh state on any failure.
// The error is returned for logging only; the state is always usable.
func Restore(blob string) (State, error) {
	s, err := Decode(blob)
	if err != nil {
		return New(), err
	}
	return s, nil
}

func (s *State) normalize() {
	if s.Windows == nil {
		s.Windows = make(map[string][]float64)
	}
	if s.Books == nil {
		s.Books = make(map[string]Bookkeeping)
	}
}
