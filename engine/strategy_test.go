package engine

import (
	"testing"

	"github.com/bahoy/recs/core"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		requested core.RecType
		pre       Preconditions
		want      core.RecType
	}{
		{
			name:      "personalized with preferences and hits",
			requested: core.RecPersonalized,
			pre:       Preconditions{HasPreferences: true, PreferenceHits: true},
			want:      core.RecPersonalized,
		},
		{
			name:      "personalized without preferences falls back",
			requested: core.RecPersonalized,
			pre:       Preconditions{},
			want:      core.RecPopular,
		},
		{
			name:      "personalized with preferences but no hits falls back",
			requested: core.RecPersonalized,
			pre:       Preconditions{HasPreferences: true},
			want:      core.RecPopular,
		},
		{
			name:      "content with hits",
			requested: core.RecContent,
			pre:       Preconditions{ContentHits: true},
			want:      core.RecContent,
		},
		{
			name:      "content without history falls back",
			requested: core.RecContent,
			pre:       Preconditions{},
			want:      core.RecPopular,
		},
		{
			name:      "hybrid with both lists merges",
			requested: core.RecHybrid,
			pre:       Preconditions{PreferenceHits: true, ContentHits: true},
			want:      core.RecHybrid,
		},
		{
			name:      "hybrid with only preference list",
			requested: core.RecHybrid,
			pre:       Preconditions{PreferenceHits: true},
			want:      core.RecPersonalized,
		},
		{
			name:      "hybrid with only content list",
			requested: core.RecHybrid,
			pre:       Preconditions{ContentHits: true},
			want:      core.RecContent,
		},
		{
			name:      "hybrid with neither falls back",
			requested: core.RecHybrid,
			pre:       Preconditions{HasPreferences: true},
			want:      core.RecPopular,
		},
		{
			name:      "similar never falls back",
			requested: core.RecSimilar,
			pre:       Preconditions{},
			want:      core.RecSimilar,
		},
		{
			name:      "popular is terminal",
			requested: core.RecPopular,
			pre:       Preconditions{},
			want:      core.RecPopular,
		},
		{
			name:      "contextual serves itself",
			requested: core.RecContextual,
			pre:       Preconditions{},
			want:      core.RecContextual,
		},
		{
			name:      "unknown type degrades to popular",
			requested: core.RecType("desconocido"),
			pre:       Preconditions{},
			want:      core.RecPopular,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.requested, tt.pre); got != tt.want {
				t.Errorf("Decide(%q, %+v) = %q, want %q", tt.requested, tt.pre, got, tt.want)
			}
		})
	}
}
