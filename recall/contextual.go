package recall

import (
	"context"
	"strings"
	"time"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pkg/utils"
)

// ContextualRecall serves anonymous, query-driven requests ("gratis esta
// noche", "con niños", barrio filters) without any user history. Free-text
// keywords translate into catalog filters and into the reason copy.
type ContextualRecall struct {
	Events core.EventStore
	TopK   int
}

func (r *ContextualRecall) Name() string { return "recall.contextual" }

func (r *ContextualRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Events == nil || rctx == nil {
		return nil, nil
	}

	now := rctx.At()
	query := strings.ToLower(rctx.Param("query"))

	filter := core.EventFilter{}
	var reasons []string

	freeOnly, _ := rctx.Params["free_only"].(bool)
	if freeOnly || containsAny(query, "gratis", "gratuito", "free") {
		filter.FreeOnly = true
		reasons = append(reasons, "evento gratuito")
	}

	if containsAny(query, "niños", "ninos", "familiar", "familia", "kids", "infantil") {
		filter.Tags = []string{"familiar", "niños", "familia", "infantil"}
		reasons = append(reasons, "apto para niños y familia")
	}

	from := now
	switch {
	case strings.Contains(query, "esta noche") || strings.Contains(query, "noche"):
		y, m, d := now.Date()
		from = laterOf(now, time.Date(y, m, d, 19, 0, 0, 0, now.Location()))
		filter.To = time.Date(y, m, d, 23, 59, 0, 0, now.Location())
		reasons = append(reasons, "esta noche")
	case strings.Contains(query, "hoy"):
		y, m, d := now.Date()
		filter.To = time.Date(y, m, d, 23, 59, 59, 0, now.Location())
		reasons = append(reasons, "hoy")
	case containsAny(query, "fin de semana", "finde", "weekend"):
		daysToSaturday := (6 - int(now.Weekday())) % 7
		if daysToSaturday == 0 {
			daysToSaturday = 7
		}
		y, m, d := now.AddDate(0, 0, daysToSaturday).Date()
		saturday := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		from = laterOf(now, saturday)
		filter.To = saturday.AddDate(0, 0, 1).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		reasons = append(reasons, "este fin de semana")
	}

	if barrio := rctx.Param("barrio"); barrio != "" {
		filter.Barrio = barrio
		reasons = append(reasons, "en "+barrio)
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 20
	}
	filter.Limit = topK

	var events []*core.Event
	err := withRetry(ctx, core.ModuleRecall, func() error {
		var e error
		events, e = r.Events.ListUpcoming(ctx, from, filter)
		return e
	})
	if err != nil {
		return nil, err
	}

	reason := "Próximamente en Buenos Aires"
	if len(reasons) > 0 {
		reason = "Seleccionado porque: " + strings.Join(reasons, " · ")
	}

	out := make([]*core.Item, 0, len(events))
	for _, ev := range events {
		it := core.NewItem(ev)
		it.PutLabel("recall_source", utils.Label{Value: "contextual", Source: "recall"})
		it.PutLabel("reason", utils.Label{Value: reason, Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

func containsAny(s string, keys ...string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
