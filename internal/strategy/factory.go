package strategy

import "strings"

// Params expresses tunable knobs required to build an instrument strategy.
type Params struct {
	Window    int
	Seed      float64
	Source    string
	Mode      string
	EntryKind string
	Entry     float64
	ExitKind  string // empty disables exits
	Exit      float64
}

// Strategy bundles the window shape and comparator for one instrument.
type Strategy struct {
	window     int
	seed       float64
	source     FairValueSource
	comparator *QuoteComparator
}

const defaultWindow = 20

// Build returns a strategy matching the configured parameters.
func Build(params Params) *Strategy {
	window := params.Window
	if window <= 0 {
		window = defaultWindow
	}
	var exit Threshold
	if strings.TrimSpace(params.ExitKind) != "" {
		exit = BuildThreshold(params.ExitKind, params.Exit)
	}
	return &Strategy{
		window:     window,
		seed:       params.Seed,
		source:     ParseFairValueSource(params.Source),
		comparator: NewQuoteComparator(ParseMode(params.Mode), BuildThreshold(params.EntryKind, params.Entry), exit),
	}
}

// Name returns the identifier for logging.
func (s *Strategy) Name() string {
	return string(s.comparator.Mode()) + "/" + string(s.source)
}

// Window returns the rolling window capacity.
func (s *Strategy) Window() int { return s.window }

// Engine restores a signal engine from persisted history.
func (s *Strategy) Engine(history []float64) *SignalEngine {
	return NewSignalEngine(s.window, s.seed, s.source, history)
}

// Comparator returns the quote comparator.
func (s *Strategy) Comparator() *QuoteComparator { return s.comparator }
