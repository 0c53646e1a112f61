package core

// Recommendation pairs one event with the human-readable reason it was
// picked ("Porque te gustan: eventos de Teatro · en Palermo").
type Recommendation struct {
	Event  *Event `json:"event"`
	Reason string `json:"razon"`
}

// Result is an ordered recommendation response. RecType names the strategy
// that actually produced it — with silent fallback the caller must be able
// to tell "personalized" apart from "popular because no history".
type Result struct {
	RecType         RecType          `json:"tipo"`
	Recommendations []Recommendation `json:"recomendaciones"`
}

// EventIDs returns the ordered event IDs, as logged in the impression.
func (r *Result) EventIDs() []string {
	ids := make([]string, 0, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		if rec.Event != nil {
			ids = append(ids, rec.Event.ID)
		}
	}
	return ids
}
