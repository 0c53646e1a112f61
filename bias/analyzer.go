package bias

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bahoy/recs/core"
)

// DimensionScore is the result of one bias dimension: a score in [0,1]
// (0 = impressions match the catalog's natural distribution, 1 = maximal
// observed skew) and the alert flag against the dimension's threshold.
type DimensionScore struct {
	Name      string             `json:"sesgo"`
	Score     float64            `json:"score"`
	Threshold float64            `json:"umbral"`
	Alert     bool               `json:"alerta"`
	Details   map[string]float64 `json:"detalles,omitempty"`
}

// Report is the full bias audit over one window. It is a pure function of
// the window's impressions, interactions and catalog: running it twice over
// the same data yields an identical report.
type Report struct {
	WindowDays int       `json:"periodo_dias"`
	Since      time.Time `json:"desde"`
	Until      time.Time `json:"hasta"`

	Dimensions []DimensionScore `json:"sesgos"`

	// OverRepresentedBarrios lists neighborhoods whose share of impressions
	// exceeds twice their share of the catalog, sorted alphabetically.
	OverRepresentedBarrios []string `json:"barrios_sobrerepresentados"`

	ActiveAlerts []string `json:"alertas_activas"`
	Suggestions  []string `json:"mitigaciones_sugeridas"`
}

// Analyzer is the offline bias audit. It reads the same stores live traffic
// reads (concurrent reads only, no locks) and keeps no state of its own.
type Analyzer struct {
	Events core.EventStore
	Log    core.InteractionStore

	// Thresholds overrides the default alert threshold per dimension name;
	// dimensions not listed use core.DefaultBiasThreshold.
	Thresholds map[string]float64

	// BubbleMinImpressions: users with fewer impressions in the window are
	// skipped by the filter-bubble dimension. 0 means
	// core.DefaultBubbleMinImpressions.
	BubbleMinImpressions int

	// Clock pins "now" for the window cut; nil means time.Now. Batch
	// replays pin it so reports are reproducible.
	Clock func() time.Time
}

// Analyze runs all five dimensions over the trailing window. An empty
// window is a valid state and produces an all-zero report, never an error.
func (a *Analyzer) Analyze(ctx context.Context, windowDays int) (*Report, error) {
	if windowDays <= 0 {
		windowDays = core.DefaultWindowDays
	}
	now := time.Now().UTC()
	if a.Clock != nil {
		now = a.Clock().UTC()
	}
	since := now.AddDate(0, 0, -windowDays)

	w, err := a.loadWindow(ctx, since)
	if err != nil {
		return nil, err
	}

	report := &Report{
		WindowDays: windowDays,
		Since:      since,
		Until:      now,
	}

	minImp := a.BubbleMinImpressions
	if minImp <= 0 {
		minImp = core.DefaultBubbleMinImpressions
	}

	for _, dim := range dimensions {
		score, details := dim.Score(w, minImp)
		threshold := core.DefaultBiasThreshold
		if t, ok := a.Thresholds[dim.Name]; ok {
			threshold = t
		}
		ds := DimensionScore{
			Name:      dim.Name,
			Score:     round4(score),
			Threshold: threshold,
			Alert:     score > threshold,
			Details:   details,
		}
		report.Dimensions = append(report.Dimensions, ds)
		if ds.Alert {
			report.ActiveAlerts = append(report.ActiveAlerts, dim.Name)
		}
	}

	report.OverRepresentedBarrios = overRepresentedBarrios(w)
	report.Suggestions = suggestions(report)
	return report, nil
}

// window is the point-in-time snapshot every dimension scores against.
type window struct {
	impressions []*core.Impression
	events      map[string]*core.Event // full catalog, by ID

	// slots is every shown event ID, one entry per recommendation slot.
	slots []string

	// interactionCounts counts window interactions per event, for the
	// popularity mitigations.
	interactionCounts map[string]int
}

func (a *Analyzer) loadWindow(ctx context.Context, since time.Time) (*window, error) {
	var (
		impressions  []*core.Impression
		interactions []*core.Interaction
		catalog      []*core.Event
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		impressions, err = a.Log.ListImpressions(egCtx, since)
		return err
	})
	eg.Go(func() error {
		var err error
		interactions, err = a.Log.ListSince(egCtx, since)
		return err
	})
	eg.Go(func() error {
		var err error
		catalog, err = a.Events.ListAll(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, core.NewDomainError(core.ModuleBias, core.ErrorCodeUpstreamUnavailable, "bias: window read failed: "+err.Error())
	}

	w := &window{
		impressions:       impressions,
		events:            make(map[string]*core.Event, len(catalog)),
		interactionCounts: make(map[string]int, len(interactions)),
	}
	for _, ev := range catalog {
		w.events[ev.ID] = ev
	}
	for _, imp := range impressions {
		w.slots = append(w.slots, imp.EventIDs...)
	}
	for _, in := range interactions {
		w.interactionCounts[in.EventID]++
	}
	return w, nil
}

// overRepresentedBarrios returns barrios whose impression share exceeds
// twice their catalog share.
func overRepresentedBarrios(w *window) []string {
	catalogShare := distributionBy(values(w.events), eventBarrio)
	shownShare := shownDistribution(w, eventBarrio)

	var over []string
	for barrio, share := range shownShare {
		base := catalogShare[barrio]
		if base > 0 && share > 2*base {
			over = append(over, barrio)
		}
	}
	sort.Strings(over)
	return over
}

func values(m map[string]*core.Event) []*core.Event {
	out := make([]*core.Event, 0, len(m))
	for _, ev := range m {
		out = append(out, ev)
	}
	return out
}

func round4(f float64) float64 {
	return float64(int64(f*10000+0.5)) / 10000
}
