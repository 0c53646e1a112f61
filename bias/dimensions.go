package bias

import (
	"sort"

	"github.com/bahoy/recs/core"
)

// Dimension names, also the wire values in the report.
const (
	DimPopularity   = "popularidad"
	DimGeographic   = "geografico"
	DimPrice        = "precio"
	DimFilterBubble = "burbuja_de_filtro"
	DimSource       = "fuente"
)

// dimension is one registered bias check. All five share the same shape:
// score the window's shown distribution against a baseline, 0 when they
// match, approaching 1 as they diverge. Adding a dimension means adding a
// row here, the orchestration never changes.
type dimension struct {
	Name  string
	Score func(w *window, bubbleMinImpressions int) (float64, map[string]float64)
}

var dimensions = []dimension{
	{Name: DimPopularity, Score: scorePopularity},
	{Name: DimGeographic, Score: scoreGeographic},
	{Name: DimPrice, Score: scorePrice},
	{Name: DimFilterBubble, Score: scoreFilterBubble},
	{Name: DimSource, Score: scoreSource},
}

// scorePopularity is the Gini coefficient of impression slots across
// distinct shown events: 0 when every shown event gets equal exposure,
// approaching 1 when a handful of events own every response.
func scorePopularity(w *window, _ int) (float64, map[string]float64) {
	if len(w.slots) == 0 {
		return 0, nil
	}
	counts := make(map[string]int, len(w.slots))
	for _, id := range w.slots {
		counts[id]++
	}
	exposure := make([]float64, 0, len(counts))
	for _, c := range counts {
		exposure = append(exposure, float64(c))
	}
	score := gini(exposure)
	details := map[string]float64{
		"slots":            float64(len(w.slots)),
		"eventos_unicos":   float64(len(counts)),
		"gini_impresiones": round4(score),
	}
	return score, details
}

func scoreGeographic(w *window, _ int) (float64, map[string]float64) {
	return distributionSkew(w, eventBarrio)
}

func scorePrice(w *window, _ int) (float64, map[string]float64) {
	return distributionSkew(w, priceBucket)
}

func scoreSource(w *window, _ int) (float64, map[string]float64) {
	return distributionSkew(w, eventSource)
}

// scoreFilterBubble is 1 minus the average per-user category diversity.
// Per impression, diversity = distinct categories / events shown; per user
// the impression diversities average; users below the impression minimum
// are skipped. No qualifying users means no evidence of a bubble.
func scoreFilterBubble(w *window, minImpressions int) (float64, map[string]float64) {
	perUser := make(map[string][]float64)
	for _, imp := range w.impressions {
		if imp.UserID == "" || len(imp.EventIDs) == 0 {
			continue
		}
		cats := make(map[string]bool, len(imp.EventIDs))
		known := 0
		for _, id := range imp.EventIDs {
			ev, ok := w.events[id]
			if !ok || ev.Category == "" {
				continue
			}
			known++
			cats[ev.Category] = true
		}
		if known == 0 {
			continue
		}
		perUser[imp.UserID] = append(perUser[imp.UserID], float64(len(cats))/float64(len(imp.EventIDs)))
	}

	var sum float64
	users := 0
	for _, divs := range perUser {
		if len(divs) < minImpressions {
			continue
		}
		var userSum float64
		for _, d := range divs {
			userSum += d
		}
		sum += userSum / float64(len(divs))
		users++
	}
	if users == 0 {
		return 0, nil
	}
	avg := sum / float64(users)
	details := map[string]float64{
		"usuarios_analizados": float64(users),
		"diversidad_promedio": round4(avg),
	}
	return 1 - avg, details
}

// distributionSkew is the shared shape of the geographic, price and source
// dimensions: total variation distance between the shown distribution and
// the catalog baseline over the same key. 0 when they match, 1 when they
// are disjoint.
func distributionSkew(w *window, key func(*core.Event) string) (float64, map[string]float64) {
	if len(w.slots) == 0 {
		return 0, nil
	}
	baseline := distributionBy(values(w.events), key)
	shown := shownDistribution(w, key)
	if len(shown) == 0 {
		return 0, nil
	}
	return totalVariation(shown, baseline), shown
}

// distributionBy computes the share of each key across a catalog slice.
func distributionBy(events []*core.Event, key func(*core.Event) string) map[string]float64 {
	counts := make(map[string]int, 16)
	total := 0
	for _, ev := range events {
		k := key(ev)
		if k == "" {
			continue
		}
		counts[k]++
		total++
	}
	if total == 0 {
		return nil
	}
	out := make(map[string]float64, len(counts))
	for k, c := range counts {
		out[k] = float64(c) / float64(total)
	}
	return out
}

// shownDistribution computes the share of each key across impression slots.
// Unknown event IDs (deleted events) are skipped.
func shownDistribution(w *window, key func(*core.Event) string) map[string]float64 {
	counts := make(map[string]int, 16)
	total := 0
	for _, id := range w.slots {
		ev, ok := w.events[id]
		if !ok {
			continue
		}
		k := key(ev)
		if k == "" {
			continue
		}
		counts[k]++
		total++
	}
	if total == 0 {
		return nil
	}
	out := make(map[string]float64, len(counts))
	for k, c := range counts {
		out[k] = round4(float64(c) / float64(total))
	}
	return out
}

// totalVariation is 0.5 * sum |p(k) - q(k)| over the union of keys.
func totalVariation(p, q map[string]float64) float64 {
	keys := make(map[string]bool, len(p)+len(q))
	for k := range p {
		keys[k] = true
	}
	for k := range q {
		keys[k] = true
	}
	var sum float64
	for k := range keys {
		d := p[k] - q[k]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum / 2
}

// gini is the Gini coefficient of a count vector: 0 for a perfectly even
// spread, approaching 1 as one member takes everything.
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var total, weighted float64
	for i, v := range sorted {
		total += v
		weighted += float64(i+1) * v
	}
	if total == 0 {
		return 0
	}
	return (2*weighted)/(float64(n)*total) - float64(n+1)/float64(n)
}

func eventBarrio(ev *core.Event) string { return ev.Barrio }
func eventSource(ev *core.Event) string { return ev.Source }

// priceBucket classifies an event into the price ranges the audit compares
// (pesos argentinos).
func priceBucket(ev *core.Event) string {
	if ev.IsFree {
		return "gratuito"
	}
	if ev.PriceMin == nil {
		return "sin_informacion"
	}
	switch p := *ev.PriceMin; {
	case p == 0:
		return "gratuito"
	case p < 1000:
		return "economico"
	case p < 3000:
		return "moderado"
	default:
		return "premium"
	}
}
