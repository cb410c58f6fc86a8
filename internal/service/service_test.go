package service

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Khosro2099/Gut-Crush-bot/internal/storage"
)

type sentMessage struct {
	To   string
	Text string
}

type promptMessage struct {
	To      string
	Text    string
	Approve string
	Reject  string
}

// fakeNotifier records outbound traffic and can be told to fail per
// recipient or per channel. Safe for concurrent use.
type fakeNotifier struct {
	mu           sync.Mutex
	nextRef      int
	sent         []sentMessage
	prompts      []promptMessage
	published    []string
	failSendTo   map[string]bool
	failPromptTo map[string]bool
	failPublish  bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		failSendTo:   make(map[string]bool),
		failPromptTo: make(map[string]bool),
	}
}

func (f *fakeNotifier) Send(userID, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSendTo[userID] {
		return 0, errors.New("user blocked the bot")
	}
	f.nextRef++
	f.sent = append(f.sent, sentMessage{To: userID, Text: text})
	return f.nextRef, nil
}

func (f *fakeNotifier) Prompt(userID, text, approveAction, rejectAction string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPromptTo[userID] {
		return errors.New("user blocked the bot")
	}
	f.prompts = append(f.prompts, promptMessage{To: userID, Text: text, Approve: approveAction, Reject: rejectAction})
	return nil
}

func (f *fakeNotifier) Publish(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPublish {
		return errors.New("channel unavailable")
	}
	f.published = append(f.published, text)
	return nil
}

func (f *fakeNotifier) sentTo(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.To == userID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeNotifier) promptsTo(userID string) []promptMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []promptMessage
	for _, p := range f.prompts {
		if p.To == userID {
			out = append(out, p)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *fakeNotifier) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.Open(filepath.Join(dir, "accounts.json"), filepath.Join(dir, "content.json"))
	require.NoError(t, err)
	n := newFakeNotifier()
	return NewService(store, n), n
}

// mustUser creates a user and optionally funds them.
func mustUser(t *testing.T, s *Service, id string, coins int) {
	t.Helper()
	_, _, err := s.GetOrCreateUser(id, "", "")
	require.NoError(t, err)
	if coins > 0 {
		require.NoError(t, s.Credit(id, coins))
	}
}

// mustMainAdmin claims the seat for id.
func mustMainAdmin(t *testing.T, s *Service, id string) {
	t.Helper()
	mustUser(t, s, id, 0)
	require.NoError(t, s.ClaimMainAdmin(id))
}

// mustDelegatedAdmin walks id through the full promotion workflow.
func mustDelegatedAdmin(t *testing.T, s *Service, id, mainID string) {
	t.Helper()
	mustUser(t, s, id, 0)
	require.NoError(t, s.RequestPromotion(id, "Admin "+id))
	_, err := s.ApproveAdmin(id, mainID)
	require.NoError(t, err)
}
