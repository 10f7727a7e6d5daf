package engine

import (
	"testing"

	"github.com/Veraticus/mediamigrate/internal/matcher"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedScorer scores pairs from a table keyed by file name and record ID.
type fixedScorer map[string]map[string]float64

func (f fixedScorer) Candidate(asset model.Asset, record model.ContentRecord) model.MatchCandidate {
	score := f[asset.FileName][record.ID]
	return model.MatchCandidate{
		Asset:  asset,
		Record: record,
		Score:  score,
		Band:   model.BandFor(score),
	}
}

func (f fixedScorer) Version() string { return "fixed" }

func TestReconcile_NoCandidate(t *testing.T) {
	r := NewReconciler(matcher.NewScorer(matcher.DefaultConfig()), nil, DefaultConfig())

	d := r.Reconcile(model.Asset{FileName: "orphan.jpg"})

	assert.Equal(t, model.OutcomeRejectNoCandidate, d.Outcome)
	assert.Nil(t, d.Record)
	assert.Nil(t, d.Candidate)
}

func TestReconcile_ExactSlugFromFileName(t *testing.T) {
	records := []model.ContentRecord{
		{ID: "1", Slug: "outro-assunto", Title: "Outro assunto"},
		{ID: "2", Slug: "anabbprev-seguro-vida", Title: "Seguro de Vida"},
	}
	r := NewReconciler(matcher.NewScorer(matcher.DefaultConfig()), records, DefaultConfig())

	d := r.Reconcile(model.Asset{FileName: "anabbprev-seguro-vida.jpg"})

	require.Equal(t, model.OutcomeAccept, d.Outcome)
	require.NotNil(t, d.Record)
	assert.Equal(t, "2", d.Record.ID)
	assert.Equal(t, model.ConfidenceHigh, d.Candidate.Band)
	assert.GreaterOrEqual(t, d.Candidate.Score, 800.0)
	assert.Contains(t, d.Candidate.Rationale, "exact")
	assert.True(t, r.Claimed("2"))
}

func TestReconcile_TokenOverlapAccepted(t *testing.T) {
	records := []model.ContentRecord{
		{ID: "1", Slug: "reuniao-de-equipe-2023", Title: "Encontro trimestral"},
		{ID: "2", Slug: "outro-assunto", Title: "Outro assunto"},
	}
	r := NewReconciler(matcher.NewScorer(matcher.DefaultConfig()), records, DefaultConfig())

	d := r.Reconcile(model.Asset{FileName: "IMG_ABCD.jpg", DeclaredTitle: "reuniao equipe 2023"})

	require.Equal(t, model.OutcomeAccept, d.Outcome)
	assert.Equal(t, "1", d.Record.ID)
	assert.Equal(t, model.ConfidenceMedium, d.Candidate.Band)
	assert.Greater(t, d.Candidate.Score, 200.0)
}

func TestReconcile_Policy(t *testing.T) {
	tests := []struct {
		name    string
		records []model.ContentRecord
		score   float64
		want    model.Outcome
	}{
		{
			name:    "low band below floor",
			records: []model.ContentRecord{{ID: "r"}},
			score:   149.9,
			want:    model.OutcomeRejectLowConfidence,
		},
		{
			name:    "low band at floor",
			records: []model.ContentRecord{{ID: "r"}},
			score:   150,
			want:    model.OutcomeAccept,
		},
		{
			name:    "zero score",
			records: []model.ContentRecord{{ID: "r"}},
			score:   0,
			want:    model.OutcomeRejectLowConfidence,
		},
		{
			name:    "only candidate already has media",
			records: []model.ContentRecord{{ID: "r", HasAssociatedMedia: true}},
			score:   1000,
			want:    model.OutcomeRejectAlreadyAssociated,
		},
		{
			name:    "weak match on associated record is low confidence first",
			records: []model.ContentRecord{{ID: "r", HasAssociatedMedia: true}},
			score:   10,
			want:    model.OutcomeRejectLowConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := fixedScorer{"a.jpg": {"r": tt.score}}
			r := NewReconciler(scorer, tt.records, DefaultConfig())

			d := r.Reconcile(model.Asset{FileName: "a.jpg"})

			assert.Equal(t, tt.want, d.Outcome)
			require.NotNil(t, d.Record)
			assert.Equal(t, "r", d.Record.ID)
			assert.Equal(t, tt.want == model.OutcomeAccept, r.Claimed("r"))
		})
	}
}

func TestReconcile_AlreadyAssociatedOnlyCandidate(t *testing.T) {
	records := []model.ContentRecord{{ID: "9", Slug: "festa-junina", HasAssociatedMedia: true}}
	r := NewReconciler(matcher.NewScorer(matcher.DefaultConfig()), records, DefaultConfig())

	d := r.Reconcile(model.Asset{FileName: "festa-junina.jpg"})

	assert.Equal(t, model.OutcomeRejectAlreadyAssociated, d.Outcome)
	assert.False(t, r.Claimed("9"))
	assert.Equal(t, 1, r.Remaining())
}

func TestReconcile_FirstSeenWinsTies(t *testing.T) {
	scorer := fixedScorer{"a.jpg": {"first": 700, "second": 700}}
	r := NewReconciler(scorer, []model.ContentRecord{{ID: "first"}, {ID: "second"}}, DefaultConfig())

	d := r.Reconcile(model.Asset{FileName: "a.jpg"})

	require.Equal(t, model.OutcomeAccept, d.Outcome)
	assert.Equal(t, "first", d.Record.ID)
}

func TestReconcile_AcceptedRecordIsExcluded(t *testing.T) {
	scorer := fixedScorer{
		"a.jpg": {"shared": 900, "spare": 300},
		"b.jpg": {"shared": 950, "spare": 250},
	}
	records := []model.ContentRecord{{ID: "shared"}, {ID: "spare"}}

	t.Run("input order decides the contested record", func(t *testing.T) {
		r := NewReconciler(scorer, records, DefaultConfig())

		first := r.Reconcile(model.Asset{FileName: "a.jpg"})
		second := r.Reconcile(model.Asset{FileName: "b.jpg"})

		assert.Equal(t, "shared", first.Record.ID)
		assert.Equal(t, "spare", second.Record.ID)
		assert.Equal(t, model.OutcomeAccept, second.Outcome)
		assert.Zero(t, r.Remaining())
	})

	t.Run("reversed order", func(t *testing.T) {
		r := NewReconciler(scorer, records, DefaultConfig())

		first := r.Reconcile(model.Asset{FileName: "b.jpg"})
		second := r.Reconcile(model.Asset{FileName: "a.jpg"})

		assert.Equal(t, "shared", first.Record.ID)
		assert.Equal(t, "spare", second.Record.ID)
	})

	t.Run("exhausted records", func(t *testing.T) {
		r := NewReconciler(scorer, records[:1], DefaultConfig())

		first := r.Reconcile(model.Asset{FileName: "a.jpg"})
		second := r.Reconcile(model.Asset{FileName: "b.jpg"})

		assert.Equal(t, model.OutcomeAccept, first.Outcome)
		assert.Equal(t, model.OutcomeRejectNoCandidate, second.Outcome)
	})
}

func TestReconcile_NeverAcceptsARecordTwice(t *testing.T) {
	scorer := matcher.NewScorer(matcher.DefaultConfig())
	records := []model.ContentRecord{
		{ID: "1", Slug: "seguro-de-vida", Title: "Seguro de vida"},
		{ID: "2", Slug: "seguro-auto", Title: "Seguro auto"},
	}
	assets := []model.Asset{
		{FileName: "seguro-de-vida.jpg"},
		{FileName: "seguro-de-vida-2.jpg"},
		{FileName: "seguro-vida.png"},
		{FileName: "seguro-auto.jpg"},
		{FileName: "seguro.jpg"},
	}

	r := NewReconciler(scorer, records, DefaultConfig())
	accepted := make(map[string]int)
	for _, a := range assets {
		d := r.Reconcile(a)
		if d.Outcome == model.OutcomeAccept {
			accepted[d.Record.ID]++
		}
	}

	for id, n := range accepted {
		assert.Equal(t, 1, n, "record %s accepted more than once", id)
	}
}

func TestReconcile_Claim(t *testing.T) {
	scorer := fixedScorer{"a.jpg": {"1": 900}}
	r := NewReconciler(scorer, []model.ContentRecord{{ID: "1"}}, Config{AcceptanceFloor: -1})

	r.Claim("1")
	r.Claim("")

	assert.Equal(t, model.OutcomeRejectNoCandidate, r.Reconcile(model.Asset{FileName: "a.jpg"}).Outcome)
	assert.Equal(t, "fixed", r.ScorerVersion())
}
