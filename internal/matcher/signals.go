// Package matcher scores how well a media asset fits a content record.
//
// A score is the sum of independent signals, each adding its weight when it
// fires. A missing field only silences the signals that need it, so assets
// with sparse metadata still score on whatever they do carry. The signal
// table is versioned; changing a default weight or condition bumps
// SignalTableVersion so ledger entries can be traced to the scorer that
// produced them.
package matcher

import (
	"regexp"
	"time"
)

// SignalTableVersion identifies the default signal table.
const SignalTableVersion = "1"

// SignalName names one scoring strategy.
type SignalName string

// Scoring signals, in rationale order.
const (
	SignalExact    SignalName = "exact"
	SignalContains SignalName = "contains"
	SignalTokens   SignalName = "tokens"
	SignalSimilar  SignalName = "similar"
	SignalDate     SignalName = "date"
	SignalID       SignalName = "id"
)

// Signals lists every signal in the order it is evaluated.
var Signals = []SignalName{
	SignalExact,
	SignalContains,
	SignalTokens,
	SignalSimilar,
	SignalDate,
	SignalID,
}

// SignalConfig enables a signal and sets its weight. Tokens and similar
// scale their weight by a fraction in [0, 1].
type SignalConfig struct {
	Weight  float64
	Enabled bool
}

// Config is the scorer's signal table plus the parameters of individual
// signals.
type Config struct {
	Signals map[SignalName]SignalConfig
	// IDPattern extracts numeric identifiers from asset file names. The
	// last capture group (or the whole match) is the identifier.
	IDPattern string
	// MinSimilarity is the title similarity the similar signal must exceed.
	MinSimilarity float64
	// DateWindow is the largest upload/creation gap the date signal accepts.
	DateWindow time.Duration
	// MinTokenLength is the shortest token the tokens signal can share.
	MinTokenLength int
	// MinWordLength is the shortest word the similar signal compares.
	MinWordLength int
	// MaxEditDistance is the Levenshtein distance under which two words
	// count as the same word.
	MaxEditDistance int
}

// DefaultConfig returns the default signal table.
func DefaultConfig() Config {
	return Config{
		Signals: map[SignalName]SignalConfig{
			SignalExact:    {Weight: 1000, Enabled: true},
			SignalContains: {Weight: 800, Enabled: true},
			SignalTokens:   {Weight: 600, Enabled: true},
			SignalSimilar:  {Weight: 400, Enabled: true},
			SignalDate:     {Weight: 100, Enabled: true},
			SignalID:       {Weight: 500, Enabled: true},
		},
		IDPattern:       `\d+`,
		MinSimilarity:   0.3,
		DateWindow:      7 * 24 * time.Hour,
		MinTokenLength:  4,
		MinWordLength:   3,
		MaxEditDistance: 2,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()

	signals := make(map[SignalName]SignalConfig, len(d.Signals))
	for name, def := range d.Signals {
		sc, ok := c.Signals[name]
		if !ok {
			signals[name] = def
			continue
		}
		if sc.Weight < 0 {
			sc.Weight = def.Weight
		}
		signals[name] = sc
	}
	c.Signals = signals

	if c.IDPattern == "" {
		c.IDPattern = d.IDPattern
	} else if _, err := regexp.Compile(c.IDPattern); err != nil {
		c.IDPattern = d.IDPattern
	}
	if c.MinSimilarity <= 0 || c.MinSimilarity >= 1 {
		c.MinSimilarity = d.MinSimilarity
	}
	if c.DateWindow <= 0 {
		c.DateWindow = d.DateWindow
	}
	if c.MinTokenLength <= 0 {
		c.MinTokenLength = d.MinTokenLength
	}
	if c.MinWordLength <= 0 {
		c.MinWordLength = d.MinWordLength
	}
	if c.MaxEditDistance <= 0 {
		c.MaxEditDistance = d.MaxEditDistance
	}
	return c
}

func (c Config) weight(name SignalName) (float64, bool) {
	sc, ok := c.Signals[name]
	if !ok || !sc.Enabled {
		return 0, false
	}
	return sc.Weight, true
}
