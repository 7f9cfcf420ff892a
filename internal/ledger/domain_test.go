package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/condoledger/condoledger/internal/shared"
)

func TestCheckTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Situation }{
		{SituationOpen, SituationApproved},
		{SituationApproved, SituationPaid},
		{SituationPaid, SituationReconciled},
		{SituationReconciled, SituationClosed},
		{SituationOpen, SituationCancelled},
		{SituationApproved, SituationCancelled},
		{SituationClosed, SituationOpen},
	}
	for _, tc := range allowed {
		require.NoError(t, CheckTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	all := []Situation{SituationOpen, SituationApproved, SituationPaid, SituationReconciled, SituationClosed, SituationCancelled}
	isAllowed := func(from, to Situation) bool {
		for _, tc := range allowed {
			if tc.from == from && tc.to == to {
				return true
			}
		}
		return false
	}
	for _, from := range all {
		for _, to := range all {
			if from == to || isAllowed(from, to) {
				continue
			}
			err := CheckTransition(from, to)
			require.Error(t, err, "%s -> %s should be rejected", from, to)
			require.True(t, shared.IsKind(err, shared.KindStateConflict))
		}
	}
}

func TestCancelledIsTerminal(t *testing.T) {
	for _, target := range []Situation{SituationApproved, SituationPaid, SituationReconciled, SituationClosed, SituationOpen} {
		require.Error(t, CheckTransition(SituationCancelled, target))
	}
}
