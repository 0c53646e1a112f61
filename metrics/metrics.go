package metrics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bahoy/recs/core"
)

// Report is the metrics summary over one trailing window. Every ratio is 0
// when its denominator is 0; an empty window is a valid state. Like the
// bias report it is a pure function of the window, so re-running it over
// unchanged data yields an identical report.
type Report struct {
	WindowDays int       `json:"periodo_dias"`
	Since      time.Time `json:"desde"`
	Until      time.Time `json:"hasta"`

	// CTR is clicks over recommendation slots shown.
	CTR float64 `json:"ctr"`

	// SaveRate is saves over recommendation slots shown.
	SaveRate float64 `json:"tasa_guardado"`

	// Diversity averages, across impressions, the per-impression ratio of
	// distinct categories to events shown.
	Diversity float64 `json:"diversidad"`

	// Coverage is distinct events ever shown over catalog size. Unlike the
	// windowed ratios it reads the full impression history: coverage asks
	// what the engine has ever surfaced, not what it surfaced lately.
	Coverage float64 `json:"cobertura"`

	// PrecisionAtK: per impression, positive interactions (click, save,
	// share) among the first K shown, over K; averaged across impressions
	// with at least one shown event.
	PrecisionAtK float64 `json:"precision_at_10"`

	Totals Totals `json:"totales"`
}

// Totals carries the raw counts behind the ratios.
type Totals struct {
	Impressions        int                          `json:"impresiones"`
	Interactions       int                          `json:"interacciones"`
	InteractionsByType map[core.InteractionType]int `json:"interacciones_por_tipo"`
	ImpressionsByType  map[core.RecType]int         `json:"impresiones_por_tipo_recomendacion"`
}

// Engine computes the recommendation quality metrics. Stateless; reads the
// same stores live traffic reads.
type Engine struct {
	Events core.EventStore
	Log    core.InteractionStore

	// K is the precision cut; 0 means core.DefaultPrecisionK.
	K int

	// Clock pins "now" for the window cut; nil means time.Now.
	Clock func() time.Time
}

// Compute builds the report over the trailing window.
func (e *Engine) Compute(ctx context.Context, windowDays int) (*Report, error) {
	if windowDays <= 0 {
		windowDays = core.DefaultWindowDays
	}
	now := time.Now().UTC()
	if e.Clock != nil {
		now = e.Clock().UTC()
	}
	since := now.AddDate(0, 0, -windowDays)

	var (
		impressions    []*core.Impression
		allImpressions []*core.Impression
		interactions   []*core.Interaction
		catalog        []*core.Event
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		impressions, err = e.Log.ListImpressions(egCtx, since)
		return err
	})
	eg.Go(func() error {
		var err error
		allImpressions, err = e.Log.ListImpressions(egCtx, time.Time{})
		return err
	})
	eg.Go(func() error {
		var err error
		interactions, err = e.Log.ListSince(egCtx, since)
		return err
	})
	eg.Go(func() error {
		var err error
		catalog, err = e.Events.ListAll(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, core.NewDomainError(core.ModuleMetrics, core.ErrorCodeUpstreamUnavailable, "metrics: window read failed: "+err.Error())
	}

	events := make(map[string]*core.Event, len(catalog))
	for _, ev := range catalog {
		events[ev.ID] = ev
	}

	report := &Report{
		WindowDays: windowDays,
		Since:      since,
		Until:      now,
		Totals:     totals(impressions, interactions),
	}

	slots := 0
	for _, imp := range impressions {
		slots += len(imp.EventIDs)
	}
	report.CTR = round4(ratio(report.Totals.InteractionsByType[core.InteractionClick], slots))
	report.SaveRate = round4(ratio(report.Totals.InteractionsByType[core.InteractionSave], slots))
	report.Diversity = round4(diversity(impressions, events))
	report.Coverage = round4(coverage(allImpressions, len(catalog)))

	k := e.K
	if k <= 0 {
		k = core.DefaultPrecisionK
	}
	report.PrecisionAtK = round4(precisionAtK(impressions, interactions, k))
	return report, nil
}

func totals(impressions []*core.Impression, interactions []*core.Interaction) Totals {
	t := Totals{
		Impressions:        len(impressions),
		Interactions:       len(interactions),
		InteractionsByType: make(map[core.InteractionType]int, 4),
		ImpressionsByType:  make(map[core.RecType]int, 6),
	}
	for _, in := range interactions {
		t.InteractionsByType[in.Type]++
	}
	for _, imp := range impressions {
		t.ImpressionsByType[imp.RecType]++
	}
	return t
}

func diversity(impressions []*core.Impression, events map[string]*core.Event) float64 {
	var sum float64
	counted := 0
	for _, imp := range impressions {
		if len(imp.EventIDs) == 0 {
			continue
		}
		cats := make(map[string]bool, len(imp.EventIDs))
		for _, id := range imp.EventIDs {
			if ev, ok := events[id]; ok && ev.Category != "" {
				cats[ev.Category] = true
			}
		}
		// Nothing categorizable: the impression says nothing about
		// diversity either way.
		if len(cats) == 0 {
			continue
		}
		sum += float64(len(cats)) / float64(len(imp.EventIDs))
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

func coverage(impressions []*core.Impression, catalogSize int) float64 {
	if catalogSize == 0 {
		return 0
	}
	shown := make(map[string]bool, catalogSize)
	for _, imp := range impressions {
		for _, id := range imp.EventIDs {
			shown[id] = true
		}
	}
	return float64(len(shown)) / float64(catalogSize)
}

func precisionAtK(impressions []*core.Impression, interactions []*core.Interaction, k int) float64 {
	type pair struct{ user, event string }
	positive := make(map[pair]bool, len(interactions))
	for _, in := range interactions {
		if in.Type.Positive() {
			positive[pair{user: in.UserID, event: in.EventID}] = true
		}
	}

	var sum float64
	counted := 0
	for _, imp := range impressions {
		if len(imp.EventIDs) == 0 {
			continue
		}
		shown := imp.EventIDs
		if len(shown) > k {
			shown = shown[:k]
		}
		hits := 0
		for _, id := range shown {
			if positive[pair{user: imp.UserID, event: id}] {
				hits++
			}
		}
		sum += float64(hits) / float64(k)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func round4(f float64) float64 {
	return float64(int64(f*10000+0.5)) / 10000
}
