package bias

import (
	"fmt"
	"strings"

	"github.com/bahoy/recs/core"
)

// Mitigation defaults. Mitigations are pure reorderings applied to a
// recommendation list before it is served: nothing is dropped, only moved.
const (
	// PopularityThreshold: an event with more window interactions than this
	// counts as popular.
	PopularityThreshold = 10

	// NonPopularQuotaShare is the minimum fraction of low-interaction
	// events a result should carry.
	NonPopularQuotaShare = 0.20

	// MinCategoriesPerResult distinct categories should lead each result.
	MinCategoriesPerResult = 2

	// MaxSourceShare caps the fraction one ingestion source may occupy.
	MaxSourceShare = 0.50
)

// NonPopularQuota moves low-interaction events to the front when fewer
// than quota of the list is non-popular. interactionCounts maps event ID
// to its window interaction count.
func NonPopularQuota(items []*core.Item, interactionCounts map[string]int, quota float64) []*core.Item {
	if len(items) == 0 {
		return items
	}
	if quota <= 0 {
		quota = NonPopularQuotaShare
	}

	var popular, rest []*core.Item
	for _, it := range items {
		if interactionCounts[it.ID] > PopularityThreshold {
			popular = append(popular, it)
		} else {
			rest = append(rest, it)
		}
	}

	minRest := int(float64(len(items)) * quota)
	if minRest < 1 {
		minRest = 1
	}
	if len(rest) >= minRest {
		return items
	}

	out := make([]*core.Item, 0, len(items))
	out = append(out, rest...)
	out = append(out, popular...)
	return out
}

// CategorySpread reorders so the first positions cover at least
// minCategories distinct categories, keeping relative order otherwise.
func CategorySpread(items []*core.Item, minCategories int) []*core.Item {
	if len(items) == 0 {
		return items
	}
	if minCategories <= 0 {
		minCategories = MinCategoriesPerResult
	}

	lead := make([]*core.Item, 0, minCategories)
	rest := make([]*core.Item, 0, len(items))
	seen := make(map[string]bool, minCategories)
	for _, it := range items {
		cat := it.Category()
		if len(seen) < minCategories && !seen[cat] {
			seen[cat] = true
			lead = append(lead, it)
			continue
		}
		rest = append(rest, it)
	}
	return append(lead, rest...)
}

// SourceRotation limits any single ingestion source to maxShare of the
// list, shifting the excess to the tail without discarding it.
func SourceRotation(items []*core.Item, maxShare float64) []*core.Item {
	if len(items) == 0 {
		return items
	}
	if maxShare <= 0 || maxShare > 1 {
		maxShare = MaxSourceShare
	}

	maxPerSource := int(float64(len(items)) * maxShare)
	if maxPerSource < 1 {
		maxPerSource = 1
	}

	perSource := make(map[string]int, 8)
	kept := make([]*core.Item, 0, len(items))
	var excess []*core.Item
	for _, it := range items {
		src := ""
		if it.Event != nil {
			src = it.Event.Source
		}
		if perSource[src] < maxPerSource {
			perSource[src]++
			kept = append(kept, it)
			continue
		}
		excess = append(excess, it)
	}
	return append(kept, excess...)
}

// suggestions turns active alerts into concrete, prioritized mitigation
// copy. No alerts yields the all-clear line, so the field is never empty.
func suggestions(report *Report) []string {
	byName := make(map[string]DimensionScore, len(report.Dimensions))
	for _, d := range report.Dimensions {
		byName[d.Name] = d
	}

	var out []string
	if d, ok := byName[DimPopularity]; ok && d.Alert {
		out = append(out,
			fmt.Sprintf("[POPULARIDAD] Concentración de impresiones %.2f: forzar al menos el %d%% de recomendaciones de eventos con pocas interacciones.",
				d.Score, int(NonPopularQuotaShare*100)),
			fmt.Sprintf("[POPULARIDAD] Aplicar penalización a eventos con más de %d interacciones para nivelar la exposición.",
				PopularityThreshold),
		)
	}
	if d, ok := byName[DimGeographic]; ok && d.Alert {
		barrios := "desconocidos"
		if len(report.OverRepresentedBarrios) > 0 {
			barrios = strings.Join(report.OverRepresentedBarrios, ", ")
		}
		out = append(out,
			fmt.Sprintf("[GEOGRAFICO] Limitar la proporción de recomendaciones de los barrios sobrerepresentados (%s) con cuotas proporcionales al catálogo.", barrios),
		)
	}
	if d, ok := byName[DimPrice]; ok && d.Alert {
		out = append(out,
			fmt.Sprintf("[PRECIO] Sesgo de precio detectado (score %.2f): incluir al menos un evento gratuito o económico por conjunto de recomendaciones.", d.Score),
		)
	}
	if d, ok := byName[DimFilterBubble]; ok && d.Alert {
		out = append(out,
			fmt.Sprintf("[BURBUJA] Baja diversidad de categorías por usuario: asegurar al menos %d categorías distintas por conjunto de recomendaciones.", MinCategoriesPerResult),
		)
	}
	if d, ok := byName[DimSource]; ok && d.Alert {
		out = append(out,
			fmt.Sprintf("[FUENTE] Rotar fuentes de ingesta: limitar cada fuente a un máximo del %d%% por conjunto de recomendaciones.", int(MaxSourceShare*100)),
		)
	}

	if len(out) == 0 {
		return []string{"No se detectaron sesgos significativos."}
	}
	return out
}
