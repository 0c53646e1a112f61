package core

import "time"

// InteractionType enumerates the user actions the engine learns from.
// Wire values match the event log ("vista", "clic", "guardado", "compartido").
type InteractionType string

const (
	InteractionView  InteractionType = "vista"
	InteractionClick InteractionType = "clic"
	InteractionSave  InteractionType = "guardado"
	InteractionShare InteractionType = "compartido"
)

// Positive reports whether the interaction counts as real interest
// (everything except a plain view). Used by precision@k.
func (t InteractionType) Positive() bool {
	switch t {
	case InteractionClick, InteractionSave, InteractionShare:
		return true
	}
	return false
}

// Interaction is one logged user action against one event. Append-only:
// the engine reads interactions, it never updates or deletes them.
type Interaction struct {
	ID        string
	UserID    string
	EventID   string
	Type      InteractionType
	Timestamp time.Time
}

// RecType identifies which strategy actually produced a response. Wire
// values match the impression log.
type RecType string

const (
	RecPersonalized RecType = "personalizadas"
	RecPopular      RecType = "populares"
	RecSimilar      RecType = "similares"
	RecContent      RecType = "contenido"
	RecHybrid       RecType = "hibrido"
	RecContextual   RecType = "contexto"
)

// Impression is one recommendation response shown to a user: the ordered
// event IDs and the strategy that produced them. Append-only; it is the
// denominator for CTR, save rate and coverage.
type Impression struct {
	ID        string
	UserID    string // empty for anonymous requests
	RecType   RecType
	EventIDs  []string
	Timestamp time.Time
}
