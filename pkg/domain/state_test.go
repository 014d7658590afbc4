package domain_test

import (
	"testing"

	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestPhase_Live(t *testing.T) {
	tests := []struct {
		phase domain.Phase
		live  bool
	}{
		{domain.PhaseUninitialized, false},
		{domain.PhaseInitialized, true},
		{domain.PhaseActive, true},
		{domain.PhaseDestroyed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			assert.Equal(t, tt.live, tt.phase.Live())
		})
	}
}
