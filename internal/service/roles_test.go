package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClaimMainAdminFirstCallerWins(t *testing.T) {
	s, _ := newTestService(t)

	require.NoError(t, s.ClaimMainAdmin("1"))
	require.ErrorIs(t, s.ClaimMainAdmin("2"), ErrAlreadyClaimed)
	require.Equal(t, "1", s.MainAdminID())
	require.True(t, s.IsMainAdmin("1"))
	require.False(t, s.IsMainAdmin("2"))
}

func TestClaimMainAdminConcurrentClaimsSerialize(t *testing.T) {
	s, _ := newTestService(t)

	const claimants = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if s.ClaimMainAdmin(id) == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()
	require.Equal(t, 1, winners, "exactly one claim must succeed")
}

func TestPromotionWorkflow(t *testing.T) {
	s, n := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustUser(t, s, "2", 0)

	require.NoError(t, s.RequestPromotion("2", "Bob"))
	require.ErrorIs(t, s.RequestPromotion("2", "Bob"), ErrRequestPending)

	// The main admin gets an approve/reject prompt.
	prompts := n.promptsTo("1")
	require.Len(t, prompts, 1)
	require.Equal(t, "admin_approve_2", prompts[0].Approve)
	require.Equal(t, "admin_reject_2", prompts[0].Reject)

	granted, err := s.ApproveAdmin("2", "1")
	require.NoError(t, err)
	require.Equal(t, "Bob", granted.Name)
	require.Equal(t, 0, granted.Activity)
	require.True(t, s.IsAdmin("2"))

	// The request is consumed: approving again finds nothing, and an
	// admin cannot re-request.
	_, err = s.ApproveAdmin("2", "1")
	require.ErrorIs(t, err, ErrNoSuchRequest)
	require.ErrorIs(t, s.RequestPromotion("2", "Bob"), ErrAlreadyAdmin)
}

func TestOnlyMainAdminDecidesPromotions(t *testing.T) {
	s, _ := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustDelegatedAdmin(t, s, "2", "1")
	mustUser(t, s, "3", 0)

	require.NoError(t, s.RequestPromotion("3", "Carol"))

	_, err := s.ApproveAdmin("3", "2")
	require.ErrorIs(t, err, ErrNotMainAdmin)
	require.ErrorIs(t, s.RejectAdmin("3", "2"), ErrNotMainAdmin)
	require.ErrorIs(t, s.RevokeAdmin("2", "2"), ErrNotMainAdmin)

	require.NoError(t, s.RejectAdmin("3", "1"))
	require.ErrorIs(t, s.RejectAdmin("3", "1"), ErrNoSuchRequest)
	require.False(t, s.IsAdmin("3"))
}

func TestRevokeAdmin(t *testing.T) {
	s, _ := newTestService(t)
	mustMainAdmin(t, s, "1")
	mustDelegatedAdmin(t, s, "2", "1")

	require.NoError(t, s.RevokeAdmin("2", "1"))
	require.False(t, s.IsAdmin("2"))
	require.ErrorIs(t, s.RevokeAdmin("2", "1"), ErrNoSuchAdmin)
}

func TestMainAdminIsAdminWithoutDelegation(t *testing.T) {
	s, _ := newTestService(t)
	mustMainAdmin(t, s, "1")

	require.True(t, s.IsAdmin("1"))
	require.Empty(t, s.Admins(), "the main admin is not a delegated admin")
}

func TestPromotionWithoutMainAdminStillRecords(t *testing.T) {
	s, n := newTestService(t)
	mustUser(t, s, "2", 0)

	require.NoError(t, s.RequestPromotion("2", "Bob"))
	require.Empty(t, n.prompts, "nobody to signal yet")
	require.ErrorIs(t, s.RequestPromotion("2", "Bob"), ErrRequestPending)
}
