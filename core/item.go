package core

import "github.com/bahoy/recs/pkg/utils"

// Item is the unit that flows through the pipeline: an event candidate with
// its running score and explanation labels. Labels drive the final reason
// string; Score drives ordering.
type Item struct {
	ID     string
	Event  *Event
	Score  float64
	Labels map[string]utils.Label
}

func NewItem(ev *Event) *Item {
	it := &Item{
		Event:  ev,
		Labels: make(map[string]utils.Label),
	}
	if ev != nil {
		it.ID = ev.ID
	}
	return it
}

// PutLabel stores a label; same-key labels accumulate via the default merge
// rule so the full trace survives recall, rerank and shaping.
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = old.Merge(lbl)
		return
	}
	it.Labels[key] = lbl
}

// Label returns the label value for key, or "" when absent.
func (it *Item) Label(key string) string {
	if it.Labels == nil {
		return ""
	}
	return it.Labels[key].Value
}

// Category returns the candidate's primary category, "" when unknown.
func (it *Item) Category() string {
	if it.Event == nil {
		return ""
	}
	return it.Event.Category
}
