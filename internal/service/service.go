// Package service implements the moderation-and-economy core: the coin
// ledger, the role store, the moderation queues, the coin-request flow and
// the anonymous messaging relay. All shared state lives behind the storage
// lock; outbound notifications are best-effort single attempts through the
// Notifier collaborator.
package service

import (
	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/storage"
)

// Notifier is the outbound side of the chat transport. Implementations make
// exactly one delivery attempt; the service never retries.
type Notifier interface {
	// Send delivers a direct message and returns a delivery reference
	// (the platform message id) usable for reply threading.
	Send(userID, text string) (int, error)

	// Prompt delivers a direct message with approve/reject controls carrying
	// the given opaque action tokens.
	Prompt(userID, text, approveAction, rejectAction string) error

	// Publish posts text to the public channel.
	Publish(text string) error
}

const (
	maxSubmissionRunes = 500
	maxCrushRunes      = 300
	crushCost          = 1
	inviteReward       = 10
	coinGrant          = 2
	historyLimit       = 200
)

// Service wires the core components to the injected store and transport.
type Service struct {
	store    *storage.Store
	notifier Notifier
}

func NewService(store *storage.Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// notify sends a direct message and logs the failure instead of returning
// it; used wherever delivery is best-effort.
func (s *Service) notify(userID, text string) {
	if _, err := s.notifier.Send(userID, text); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("notification dropped")
	}
}
