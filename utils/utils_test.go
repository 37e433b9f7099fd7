package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "RESET", "reset"},
		{"strips accents", "Réinitialisé", "reinitialise"},
		{"removes punctuation", "reset !?.", "reset"},
		{"collapses whitespace", "  nouvelle \t question \n ", "nouvelle question"},
		{"combined", "  NOUVELLE   Question, s'il te plaît !  ", "nouvelle question sil te plait"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "Quel est le tarif ?", CollapseWhitespace("  Quel   est \n le tarif ?  "))
	assert.Equal(t, "", CollapseWhitespace("   \t\n "))
	// Accents and case are preserved: this is framing cleanup, not
	// phrase-matching normalization.
	assert.Equal(t, "Déjà Vu", CollapseWhitespace(" Déjà  Vu "))
}
