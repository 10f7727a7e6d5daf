package matcher

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Veraticus/mediamigrate/internal/model"
)

// Contribution is the weight one signal added to a score.
type Contribution struct {
	Signal SignalName
	Tag    string
	Weight float64
}

// Scorer scores asset/record pairs. It is deterministic and safe for
// concurrent use.
type Scorer struct {
	idPattern *regexp.Regexp
	cfg       Config
}

// NewScorer creates a scorer from cfg, filling unset fields with defaults.
func NewScorer(cfg Config) *Scorer {
	cfg = cfg.normalized()
	return &Scorer{
		cfg:       cfg,
		idPattern: regexp.MustCompile(cfg.IDPattern),
	}
}

// Version identifies the signal table behind this scorer. Custom tables
// are marked so they are never mistaken for the defaults.
func (s *Scorer) Version() string {
	if s.isDefaultTable() {
		return SignalTableVersion
	}
	return SignalTableVersion + "+custom"
}

func (s *Scorer) isDefaultTable() bool {
	d := DefaultConfig()
	for name, def := range d.Signals {
		if s.cfg.Signals[name] != def {
			return false
		}
	}
	return s.cfg.IDPattern == d.IDPattern &&
		s.cfg.MinSimilarity == d.MinSimilarity &&
		s.cfg.DateWindow == d.DateWindow &&
		s.cfg.MinTokenLength == d.MinTokenLength &&
		s.cfg.MinWordLength == d.MinWordLength &&
		s.cfg.MaxEditDistance == d.MaxEditDistance
}

// Score returns the total score of the pair and the tags of the signals
// that fired, in signal order.
func (s *Scorer) Score(asset model.Asset, record model.ContentRecord) (float64, []string) {
	contributions := s.Explain(asset, record)
	total := 0.0
	rationale := make([]string, 0, len(contributions))
	for _, c := range contributions {
		total += c.Weight
		rationale = append(rationale, c.Tag)
	}
	return total, rationale
}

// Candidate scores the pair and wraps it as a match candidate.
func (s *Scorer) Candidate(asset model.Asset, record model.ContentRecord) model.MatchCandidate {
	score, rationale := s.Score(asset, record)
	return model.MatchCandidate{
		Asset:     asset,
		Record:    record,
		Score:     score,
		Band:      model.BandFor(score),
		Rationale: rationale,
	}
}

// Explain returns the contribution of every signal that fired.
func (s *Scorer) Explain(asset model.Asset, record model.ContentRecord) []Contribution {
	in := s.prepare(asset, record)
	out := make([]Contribution, 0, len(Signals))
	for _, name := range Signals {
		weight, enabled := s.cfg.weight(name)
		if !enabled {
			continue
		}
		if c, ok := s.evaluate(name, weight, in); ok {
			out = append(out, c)
		}
	}
	return out
}

type scoringInput struct {
	asset     model.Asset
	record    model.ContentRecord
	title     string
	titleSlug string
	slug      string
	fileStem  string
	recTitle  string
}

func (s *Scorer) prepare(asset model.Asset, record model.ContentRecord) scoringInput {
	fileStem := Normalize(stem(asset.FileName))
	title := Normalize(asset.DeclaredTitle)
	if title == "" {
		title = fileStem
	}
	return scoringInput{
		asset:     asset,
		record:    record,
		title:     title,
		titleSlug: Slugify(title),
		slug:      Slugify(record.Slug),
		fileStem:  fileStem,
		recTitle:  Normalize(record.Title),
	}
}

func (s *Scorer) evaluate(name SignalName, weight float64, in scoringInput) (Contribution, bool) {
	switch name {
	case SignalExact:
		if in.titleSlug != "" && in.titleSlug == in.slug {
			return Contribution{Signal: name, Tag: string(name), Weight: weight}, true
		}
	case SignalContains:
		if in.titleSlug != "" && in.slug != "" &&
			(strings.Contains(in.slug, in.titleSlug) || strings.Contains(in.titleSlug, in.slug)) {
			return Contribution{Signal: name, Tag: string(name), Weight: weight}, true
		}
	case SignalTokens:
		shared, total := s.tokenOverlap(in.titleSlug, in.slug)
		if shared > 0 && total > 0 {
			return Contribution{
				Signal: name,
				Tag:    fmt.Sprintf("%s:%d/%d", name, shared, total),
				Weight: weight * float64(shared) / float64(total),
			}, true
		}
	case SignalSimilar:
		sim := s.similarity(in.title, in.recTitle)
		if sim > s.cfg.MinSimilarity {
			return Contribution{
				Signal: name,
				Tag:    fmt.Sprintf("%s:%d%%", name, int(math.Round(sim*100))),
				Weight: weight * sim,
			}, true
		}
	case SignalDate:
		if s.withinDateWindow(in.asset, in.record) {
			return Contribution{Signal: name, Tag: string(name), Weight: weight}, true
		}
	case SignalID:
		if s.sharesNumericID(in.fileStem, in.recTitle) {
			return Contribution{Signal: name, Tag: string(name), Weight: weight}, true
		}
	}
	return Contribution{}, false
}

// tokenOverlap counts the significant title tokens that appear in the slug.
// The denominator is the longer of the two full token lists, so filler
// words like "de" dilute the overlap without ever counting as shared.
func (s *Scorer) tokenOverlap(title, slug string) (int, int) {
	if title == "" || slug == "" {
		return 0, 0
	}
	titleTokens := Tokenize(title)
	slugTokens := Tokenize(slug)
	total := max(len(titleTokens), len(slugTokens))

	slugLong := longTokens(slugTokens, s.cfg.MinTokenLength)
	shared := 0
	for _, tok := range longTokens(titleTokens, s.cfg.MinTokenLength) {
		for _, other := range slugLong {
			if strings.Contains(tok, other) || strings.Contains(other, tok) {
				shared++
				break
			}
		}
	}
	return min(shared, total), total
}

// similarity is the fraction of words that fuzzily match between two
// titles, over the longer word list.
func (s *Scorer) similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	wordsA := longTokens(Tokenize(a), s.cfg.MinWordLength)
	wordsB := longTokens(Tokenize(b), s.cfg.MinWordLength)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	matches := 0
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if s.wordsMatch(wa, wb) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(max(len(wordsA), len(wordsB)))
}

func (s *Scorer) wordsMatch(a, b string) bool {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return Levenshtein(a, b) <= s.cfg.MaxEditDistance
}

func (s *Scorer) withinDateWindow(asset model.Asset, record model.ContentRecord) bool {
	if asset.UploadedAt == nil || asset.UploadedAt.IsZero() || record.CreatedAt.IsZero() {
		return false
	}
	gap := asset.UploadedAt.Sub(record.CreatedAt)
	if gap < 0 {
		gap = -gap
	}
	return gap < s.cfg.DateWindow
}

// sharesNumericID reports whether a number embedded in the file name also
// appears as a whole number in the record title.
func (s *Scorer) sharesNumericID(fileStem, recTitle string) bool {
	if fileStem == "" || recTitle == "" {
		return false
	}
	ids := s.extractIDs(fileStem)
	if len(ids) == 0 {
		return false
	}
	titleNumbers := make(map[string]struct{})
	for _, n := range digitRuns.FindAllString(recTitle, -1) {
		titleNumbers[n] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := titleNumbers[id]; ok {
			return true
		}
	}
	return false
}

var digitRuns = regexp.MustCompile(`\d+`)

func (s *Scorer) extractIDs(fileStem string) []string {
	matches := s.idPattern.FindAllStringSubmatch(fileStem, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id := m[0]
		for i := len(m) - 1; i > 0; i-- {
			if m[i] != "" {
				id = m[i]
				break
			}
		}
		if id = digitRuns.FindString(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
