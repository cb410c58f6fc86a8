package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestCoinsOneLiveRequestPerUser(t *testing.T) {
	s, n := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustUser(t, s, "9", 0)

	require.NoError(t, s.RequestCoins("9", "Niloofar"))
	require.ErrorIs(t, s.RequestCoins("9", "Niloofar"), ErrAlreadyPending)

	prompts := n.promptsTo("1")
	require.Len(t, prompts, 1)
	require.Equal(t, "approve_coins_9", prompts[0].Approve)

	// Once resolved, a fresh request is allowed again.
	require.NoError(t, s.DecideCoins("9", false, "1"))
	require.NoError(t, s.RequestCoins("9", "Niloofar"))
}

func TestRequestCoinsRolledBackWhenNobodyNotified(t *testing.T) {
	s, n := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustUser(t, s, "9", 0)
	n.failPromptTo["1"] = true

	require.ErrorIs(t, s.RequestCoins("9", "Niloofar"), ErrNoAdminsNotified)
	require.Empty(t, s.PendingCoinRequests(), "an unreviewable request must not dangle")

	// And the user can immediately try again.
	n.failPromptTo["1"] = false
	require.NoError(t, s.RequestCoins("9", "Niloofar"))
}

func TestRollbackKeepsResolvedRequestRecord(t *testing.T) {
	s, n := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustUser(t, s, "9", 0)
	require.NoError(t, s.RequestCoins("9", "Niloofar"))
	require.NoError(t, s.DecideCoins("9", true, "1"))

	// The retry finds no reachable admin and is taken back, but the earlier
	// resolved request must survive with its decision intact.
	n.failPromptTo["1"] = true
	require.ErrorIs(t, s.RequestCoins("9", "Niloofar"), ErrNoAdminsNotified)
	require.ErrorIs(t, s.DecideCoins("9", true, "1"), ErrAlreadyProcessed)

	n.failPromptTo["1"] = false
	require.NoError(t, s.RequestCoins("9", "Niloofar"))
}

func TestDecideCoinsApprovalCreditsTwo(t *testing.T) {
	s, n := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustUser(t, s, "9", 0)
	require.NoError(t, s.RequestCoins("9", "Niloofar"))

	require.NoError(t, s.DecideCoins("9", true, "1"))

	u, _, err := s.GetOrCreateUser("9", "", "")
	require.NoError(t, err)
	require.Equal(t, 2, u.Coins)
	require.NotEmpty(t, n.sentTo("9"), "the requester hears about the approval")
}

func TestDecideCoinsRejectionOnlyNotifies(t *testing.T) {
	s, n := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustUser(t, s, "9", 0)
	require.NoError(t, s.RequestCoins("9", "Niloofar"))

	require.NoError(t, s.DecideCoins("9", false, "1"))

	u, _, err := s.GetOrCreateUser("9", "", "")
	require.NoError(t, err)
	require.Equal(t, 0, u.Coins)
	require.NotEmpty(t, n.sentTo("9"))
}

func TestDecideCoinsIdempotentAndGated(t *testing.T) {
	s, _ := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustUser(t, s, "9", 0)
	require.NoError(t, s.RequestCoins("9", "Niloofar"))

	require.ErrorIs(t, s.DecideCoins("9", true, "9"), ErrNotAdmin)
	require.ErrorIs(t, s.DecideCoins("404", true, "1"), ErrNotFound)

	require.NoError(t, s.DecideCoins("9", true, "1"))
	require.ErrorIs(t, s.DecideCoins("9", true, "1"), ErrAlreadyProcessed)

	u, _, err := s.GetOrCreateUser("9", "", "")
	require.NoError(t, err)
	require.Equal(t, 2, u.Coins, "a duplicate decision must not credit twice")
}

func TestDecisionSurvivesNotificationFailure(t *testing.T) {
	s, n := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustUser(t, s, "9", 0)
	require.NoError(t, s.RequestCoins("9", "Niloofar"))
	n.failSendTo["9"] = true

	// The confirmation is lost but the decision stands.
	require.NoError(t, s.DecideCoins("9", true, "1"))
	u, _, err := s.GetOrCreateUser("9", "", "")
	require.NoError(t, err)
	require.Equal(t, 2, u.Coins)
	require.Empty(t, s.PendingCoinRequests())
}
