package matcher

import (
	"testing"
	"time"

	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestScorer_ExactIdentityFromFileName(t *testing.T) {
	s := NewScorer(DefaultConfig())

	asset := model.Asset{FileName: "anabbprev-seguro-vida.jpg"}
	record := model.ContentRecord{ID: "1", Slug: "anabbprev-seguro-vida", Title: "Seguro de Vida"}

	score, rationale := s.Score(asset, record)

	assert.GreaterOrEqual(t, score, 800.0)
	assert.Equal(t, []string{"exact", "contains", "tokens:3/3", "similar:67%"}, rationale)
	assert.Equal(t, model.ConfidenceHigh, s.Candidate(asset, record).Band)
}

func TestScorer_TokenOverlapIsMedium(t *testing.T) {
	s := NewScorer(DefaultConfig())

	asset := model.Asset{FileName: "IMG_ABCD.jpg", DeclaredTitle: "reuniao equipe 2023"}
	first := model.ContentRecord{ID: "1", Slug: "reuniao-de-equipe-2023", Title: "Encontro trimestral"}
	second := model.ContentRecord{ID: "2", Slug: "outro-assunto", Title: "Outro assunto"}

	c1 := s.Candidate(asset, first)
	c2 := s.Candidate(asset, second)

	assert.InDelta(t, 450.0, c1.Score, 0.001)
	assert.Equal(t, []string{"tokens:3/4"}, c1.Rationale)
	assert.Equal(t, model.ConfidenceMedium, c1.Band)
	assert.Greater(t, c1.Score, 200.0)
	assert.Zero(t, c2.Score)
	assert.Empty(t, c2.Rationale)
}

func TestScorer_Signals(t *testing.T) {
	created := time.Date(2023, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		asset     model.Asset
		record    model.ContentRecord
		wantTags  []string
		wantScore float64
	}{
		{
			name:      "declared title equals slug after slugging",
			asset:     model.Asset{FileName: "x.png", DeclaredTitle: "Seguro de Vida"},
			record:    model.ContentRecord{Slug: "seguro-de-vida"},
			wantTags:  []string{"exact", "contains", "tokens:2/3"},
			wantScore: 1000 + 800 + 400,
		},
		{
			name:      "slug contains title",
			asset:     model.Asset{FileName: "x.png", DeclaredTitle: "previdencia"},
			record:    model.ContentRecord{Slug: "previdencia-complementar"},
			wantTags:  []string{"contains", "tokens:1/2"},
			wantScore: 800 + 300,
		},
		{
			name:      "title similarity with edit distance",
			asset:     model.Asset{FileName: "x.png", DeclaredTitle: "Balanco anual"},
			record:    model.ContentRecord{Slug: "zzz", Title: "Balanço Anuais"},
			wantTags:  []string{"similar:100%"},
			wantScore: 400,
		},
		{
			name: "upload within a week of creation",
			asset: model.Asset{
				FileName:   "x.png",
				UploadedAt: timePtr(created.Add(6 * 24 * time.Hour)),
			},
			record:    model.ContentRecord{Slug: "zzz", CreatedAt: created},
			wantTags:  []string{"date"},
			wantScore: 100,
		},
		{
			name: "upload exactly a week away does not count",
			asset: model.Asset{
				FileName:   "x.png",
				UploadedAt: timePtr(created.Add(-7 * 24 * time.Hour)),
			},
			record:    model.ContentRecord{Slug: "zzz", CreatedAt: created},
			wantTags:  []string{},
			wantScore: 0,
		},
		{
			name:      "numeric id in file name and title",
			asset:     model.Asset{FileName: "anabbprev_anabbprev_image_1234.jpg", DeclaredTitle: "qqq"},
			record:    model.ContentRecord{Slug: "zzz", Title: "Informativo 1234"},
			wantTags:  []string{"id"},
			wantScore: 500,
		},
		{
			name:      "numeric id must match a whole number",
			asset:     model.Asset{FileName: "image_12.jpg", DeclaredTitle: "qqq"},
			record:    model.ContentRecord{Slug: "zzz", Title: "Informativo 1234"},
			wantTags:  []string{},
			wantScore: 0,
		},
		{
			name:      "missing metadata scores nothing",
			asset:     model.Asset{},
			record:    model.ContentRecord{},
			wantTags:  []string{},
			wantScore: 0,
		},
	}

	s := NewScorer(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, rationale := s.Score(tt.asset, tt.record)
			assert.InDelta(t, tt.wantScore, score, 0.001)
			assert.Equal(t, tt.wantTags, rationale)
		})
	}
}

func TestScorer_ScoreIsSumOfContributions(t *testing.T) {
	created := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	pairs := []struct {
		asset  model.Asset
		record model.ContentRecord
	}{
		{
			asset:  model.Asset{FileName: "anabbprev_anabbprev_image_77.jpg", DeclaredTitle: "Assembleia geral 77", UploadedAt: timePtr(created)},
			record: model.ContentRecord{Slug: "assembleia-geral-77", Title: "Assembleia Geral 77", CreatedAt: created.Add(time.Hour)},
		},
		{
			asset:  model.Asset{FileName: "reuniao.jpg", DeclaredTitle: "reuniao equipe 2023"},
			record: model.ContentRecord{Slug: "reuniao-de-equipe-2023", Title: "Reunião de equipe"},
		},
		{
			asset:  model.Asset{FileName: "foto.jpg"},
			record: model.ContentRecord{Slug: "outra-coisa", Title: "Outra coisa"},
		},
	}

	s := NewScorer(DefaultConfig())
	for _, p := range pairs {
		score, rationale := s.Score(p.asset, p.record)

		sum := 0.0
		tags := make([]string, 0)
		for _, c := range s.Explain(p.asset, p.record) {
			assert.Positive(t, c.Weight)
			sum += c.Weight
			tags = append(tags, c.Tag)
		}
		assert.InDelta(t, sum, score, 0.0001)
		assert.Equal(t, tags, rationale)
	}
}

func TestScorer_EnablingSignalsNeverLowersScore(t *testing.T) {
	created := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	asset := model.Asset{FileName: "anabbprev_anabbprev_image_77.jpg", DeclaredTitle: "Assembleia geral 77", UploadedAt: timePtr(created)}
	record := model.ContentRecord{Slug: "assembleia-geral-77", Title: "Assembleia Geral 77", CreatedAt: created}

	full, _ := NewScorer(DefaultConfig()).Score(asset, record)

	for _, name := range Signals {
		cfg := DefaultConfig()
		sc := cfg.Signals[name]
		sc.Enabled = false
		cfg.Signals[name] = sc

		partial, rationale := NewScorer(cfg).Score(asset, record)
		assert.LessOrEqual(t, partial, full, "disabling %s", name)
		for _, tag := range rationale {
			assert.NotContains(t, tag, string(name)+":", "disabled %s still fired", name)
			assert.NotEqual(t, string(name), tag)
		}
	}
}

func TestScorer_BandBoundaries(t *testing.T) {
	onlyID := func(weight float64) Config {
		cfg := DefaultConfig()
		for name := range cfg.Signals {
			cfg.Signals[name] = SignalConfig{Enabled: name == SignalID, Weight: weight}
		}
		return cfg
	}
	asset := model.Asset{FileName: "image_42.jpg", DeclaredTitle: "qqq"}
	record := model.ContentRecord{Slug: "zzz", Title: "Edição 42"}

	tests := []struct {
		weight float64
		want   model.ConfidenceBand
	}{
		{weight: 500.01, want: model.ConfidenceHigh},
		{weight: 500, want: model.ConfidenceMedium},
		{weight: 200.01, want: model.ConfidenceMedium},
		{weight: 200, want: model.ConfidenceLow},
		{weight: 0, want: model.ConfidenceLow},
	}
	for _, tt := range tests {
		c := NewScorer(onlyID(tt.weight)).Candidate(asset, record)
		require.InDelta(t, tt.weight, c.Score, 0.0001)
		assert.Equal(t, tt.want, c.Band, "score %v", c.Score)
	}
}

func TestScorer_Deterministic(t *testing.T) {
	s := NewScorer(DefaultConfig())
	asset := model.Asset{FileName: "reuniao.jpg", DeclaredTitle: "reuniao equipe 2023"}
	record := model.ContentRecord{Slug: "reuniao-de-equipe-2023", Title: "Reunião de equipe"}

	first, firstTags := s.Score(asset, record)
	for i := 0; i < 10; i++ {
		score, tags := s.Score(asset, record)
		assert.Equal(t, first, score)
		assert.Equal(t, firstTags, tags)
	}
}

func TestScorer_Version(t *testing.T) {
	assert.Equal(t, SignalTableVersion, NewScorer(DefaultConfig()).Version())
	assert.Equal(t, SignalTableVersion, NewScorer(Config{}).Version())

	cfg := DefaultConfig()
	cfg.Signals[SignalDate] = SignalConfig{Enabled: false, Weight: 100}
	assert.Equal(t, SignalTableVersion+"+custom", NewScorer(cfg).Version())
}

func TestConfig_Normalized(t *testing.T) {
	cfg := Config{
		Signals:       map[SignalName]SignalConfig{SignalExact: {Weight: -5, Enabled: true}},
		IDPattern:     "([",
		MinSimilarity: 2,
	}.normalized()

	assert.InDelta(t, 1000.0, cfg.Signals[SignalExact].Weight, 0.001)
	assert.True(t, cfg.Signals[SignalDate].Enabled)
	assert.Equal(t, `\d+`, cfg.IDPattern)
	assert.InDelta(t, 0.3, cfg.MinSimilarity, 0.0001)
	assert.Equal(t, 7*24*time.Hour, cfg.DateWindow)
}
