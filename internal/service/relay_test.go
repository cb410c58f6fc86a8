package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanAffordCrush(t *testing.T) {
	s, _ := newTestService(t)
	mustUser(t, s, "1", 0)
	mustUser(t, s, "2", 1)

	require.False(t, s.CanAffordCrush("1"))
	require.True(t, s.CanAffordCrush("2"))
	require.False(t, s.CanAffordCrush("404"))
}

func TestRecipientCandidatesExcludeSelfAndBlocked(t *testing.T) {
	s, _ := newTestService(t)
	mustUser(t, s, "1", 0)
	mustUser(t, s, "2", 0)
	mustUser(t, s, "3", 0)
	require.NoError(t, s.SetBlocked("3", true))

	candidates := s.RecipientCandidates("1")
	require.Len(t, candidates, 1)
	require.Equal(t, "2", candidates[0].ID)
}

func TestSendCrushMessageHappyPath(t *testing.T) {
	s, n := newTestService(t)
	mustUser(t, s, "30", 3) // sender with balance 3
	mustUser(t, s, "40", 0) // recipient

	msg, err := s.SendCrushMessage("30", "40", strings.Repeat("x", 250))
	require.NoError(t, err)
	require.False(t, msg.Replied)
	require.NotZero(t, msg.DeliveryRef)
	require.Equal(t, "30", msg.From)
	require.Equal(t, "40", msg.To)

	sender, _, err := s.GetOrCreateUser("30", "", "")
	require.NoError(t, err)
	require.Equal(t, 2, sender.Coins)

	history := s.History("40")
	require.Len(t, history, 1)
	require.Equal(t, msg.ID, history[0].MessageID)

	// Delivered to the recipient without the sender's identity.
	delivered := n.sentTo("40")
	require.Len(t, delivered, 1)
	require.NotContains(t, delivered[0], "30")
}

func TestSendCrushMessageRequiresBalance(t *testing.T) {
	s, n := newTestService(t)
	mustUser(t, s, "1", 0)
	mustUser(t, s, "2", 0)

	_, err := s.SendCrushMessage("1", "2", "hi")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Empty(t, n.sentTo("2"))
	require.Empty(t, s.History("2"))
}

func TestSendCrushMessageTooLong(t *testing.T) {
	s, _ := newTestService(t)
	mustUser(t, s, "1", 5)
	mustUser(t, s, "2", 0)

	_, err := s.SendCrushMessage("1", "2", strings.Repeat("x", 301))
	require.ErrorIs(t, err, ErrTooLong)

	u, _, err := s.GetOrCreateUser("1", "", "")
	require.NoError(t, err)
	require.Equal(t, 5, u.Coins, "validation failures cost nothing")
}

func TestSendCrushMessageRefundsOnDeliveryFailure(t *testing.T) {
	s, n := newTestService(t)
	mustUser(t, s, "1", 2)
	mustUser(t, s, "2", 0)
	n.failSendTo["2"] = true

	_, err := s.SendCrushMessage("1", "2", "hello")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	u, _, err := s.GetOrCreateUser("1", "", "")
	require.NoError(t, err)
	require.Equal(t, 2, u.Coins, "the coin comes back when delivery fails")
	require.Empty(t, s.History("2"), "no trace of the undelivered message remains")
}

func TestSendCrushMessageNotifiesMainAdminWithIdentity(t *testing.T) {
	s, n := newTestService(t)
	mustMainAdmin(t, s, "99")
	mustUser(t, s, "1", 1)
	mustUser(t, s, "2", 0)

	_, err := s.SendCrushMessage("1", "2", "secret crush")
	require.NoError(t, err)

	adminCopies := n.sentTo("99")
	require.NotEmpty(t, adminCopies)
	last := adminCopies[len(adminCopies)-1]
	require.Contains(t, last, "ID: 1", "the admin layer always sees the sender")
	require.Contains(t, last, "secret crush")
}

func TestReplyRoundTrip(t *testing.T) {
	s, n := newTestService(t)
	mustUser(t, s, "1", 1)
	mustUser(t, s, "2", 0)

	msg, err := s.SendCrushMessage("1", "2", "do you like me?")
	require.NoError(t, err)

	// The recipient replies to the delivered copy.
	senderID, ok := s.FindSenderByDeliveryRef("2", msg.DeliveryRef)
	require.True(t, ok)
	require.Equal(t, "1", senderID)

	require.NoError(t, s.SendReply("2", "1", "maybe"))

	replies := n.sentTo("1")
	require.NotEmpty(t, replies)
	require.Contains(t, replies[len(replies)-1], "maybe")

	history := s.History("1")
	require.Len(t, history, 1)
	require.True(t, history[0].IsReply)

	// The stored crush message carries the reply.
	msgs := s.CrushMessagesTo("2")
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].Replied)
	require.Equal(t, "maybe", msgs[0].ReplyText)
	require.NotNil(t, msgs[0].ReplyTime)
}

func TestFindSenderByDeliveryRefNoMatch(t *testing.T) {
	s, _ := newTestService(t)
	mustUser(t, s, "1", 1)
	mustUser(t, s, "2", 0)
	_, err := s.SendCrushMessage("1", "2", "hi")
	require.NoError(t, err)

	_, ok := s.FindSenderByDeliveryRef("2", 12345)
	require.False(t, ok)
	_, ok = s.FindSenderByDeliveryRef("1", 0)
	require.False(t, ok, "a zero reference never matches")
}

func TestReplyDeliveryFailureKeepsFlag(t *testing.T) {
	s, n := newTestService(t)
	mustUser(t, s, "1", 1)
	mustUser(t, s, "2", 0)
	_, err := s.SendCrushMessage("1", "2", "hello")
	require.NoError(t, err)
	n.failSendTo["1"] = true

	err = s.SendReply("2", "1", "hi back")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	// The flag update and the delivery attempt are independent outcomes.
	msgs := s.CrushMessagesTo("2")
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].Replied)
}

func TestHistoryIsCapped(t *testing.T) {
	s, _ := newTestService(t)
	mustUser(t, s, "1", historyLimit+50)
	mustUser(t, s, "2", 0)

	for i := 0; i < historyLimit+10; i++ {
		_, err := s.SendCrushMessage("1", "2", "ping")
		require.NoError(t, err)
	}
	require.Len(t, s.History("2"), historyLimit)
}
