package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/bahoy/recs/core"
)

var (
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// getCELEnv builds the shared CEL environment (thread-safe, reused by every
// compiled rule).
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("event", cel.DynType),
			cel.Variable("params", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Expr is a CEL-driven keep rule: candidates for which the expression does
// not evaluate to true are dropped. Rules come from config ("scene rules")
// and speak over event attributes, e.g.
//
//	event.is_free || event.price_min < 2000.0
//	event.barrio == "Palermo" && "familiar" in event.tags
//
// The expression compiles once at construction; evaluation is per item.
type Expr struct {
	expression string
	prg        cel.Program
}

// NewExpr compiles the expression. A compile error is a configuration
// error, surfaced immediately rather than at request time.
func NewExpr(expression string) (*Expr, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("filter: cel env: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter: compile %q: %w", expression, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter: program %q: %w", expression, err)
	}
	return &Expr{expression: expression, prg: prg}, nil
}

func (f *Expr) Name() string { return "filter.expr" }

func (f *Expr) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.Event == nil {
		return true, nil
	}

	out, _, err := f.prg.Eval(map[string]any{
		"event":  eventInput(item.Event),
		"params": paramsInput(rctx),
	})
	if err != nil {
		// Evaluation errors (missing keys, type mismatches) drop nothing;
		// a bad rule must not empty the feed.
		return false, err
	}

	keep, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter: expression %q must return bool, got %T", f.expression, out.Value())
	}
	return !keep, nil
}

func eventInput(ev *core.Event) map[string]any {
	priceMin, priceMax := -1.0, -1.0
	if ev.PriceMin != nil {
		priceMin = *ev.PriceMin
	}
	if ev.PriceMax != nil {
		priceMax = *ev.PriceMax
	}
	tags := make([]any, 0, len(ev.Tags))
	for _, t := range ev.Tags {
		tags = append(tags, t)
	}
	return map[string]any{
		"id":        ev.ID,
		"title":     ev.Title,
		"category":  ev.Category,
		"barrio":    ev.Barrio,
		"is_free":   ev.IsFree,
		"price_min": priceMin,
		"price_max": priceMax,
		"source":    ev.Source,
		"tags":      tags,
	}
}

func paramsInput(rctx *core.RecommendContext) map[string]any {
	if rctx == nil || rctx.Params == nil {
		return map[string]any{}
	}
	return rctx.Params
}
