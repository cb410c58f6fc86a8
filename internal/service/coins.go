package service

import (
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/models"
)

// PendingCoinRequest pairs a coin request with its requester id.
type PendingCoinRequest struct {
	UserID  string
	Request models.CoinRequest
}

// RequestCoins records a free-coin request, one live request per user.
// Submission is transactional with its fan-out: if not a single admin could
// be told about it, the request is removed again so it never dangles with
// no reviewer aware of it.
func (s *Service) RequestCoins(userID, name string) error {
	requested := time.Now()
	var prior *models.CoinRequest
	err := s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		if req, ok := a.CoinRequests[userID]; ok {
			if !req.Processed {
				return ErrAlreadyPending
			}
			prior = req
		}
		a.CoinRequests[userID] = &models.CoinRequest{Name: name, Date: requested}
		return nil
	})
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("🪙 New coin request from %s (ID: %s)\n\n🕒 Requested at: %s",
		name, userID, requested.Format(time.RFC822))
	notified := 0
	for _, adminID := range s.recipients() {
		if err := s.notifier.Prompt(adminID, prompt, "approve_coins_"+userID, "reject_coins_"+userID); err != nil {
			log.WithError(err).WithField("admin_id", adminID).Warn("coin request prompt dropped")
			continue
		}
		notified++
	}
	if notified > 0 {
		return nil
	}

	// Nobody will ever review this request; take it back. The previous
	// resolved request, if any, keeps its audit record.
	rollbackErr := s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		if prior != nil {
			a.CoinRequests[userID] = prior
		} else {
			delete(a.CoinRequests, userID)
		}
		return nil
	})
	if rollbackErr != nil {
		log.WithError(rollbackErr).WithField("user_id", userID).Error("could not roll back unreviewable coin request")
	}
	return ErrNoAdminsNotified
}

// DecideCoins resolves a coin request exactly once. Approval credits the
// grant atomically with the decision; the confirmation to the requester is
// best-effort and never reverts it.
func (s *Service) DecideCoins(userID string, approve bool, actingID string) error {
	err := s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		if _, delegated := a.Admins[actingID]; !delegated && a.MainAdmin != actingID {
			return ErrNotAdmin
		}
		req, ok := a.CoinRequests[userID]
		if !ok {
			return ErrNotFound
		}
		if req.Processed {
			return ErrAlreadyProcessed
		}
		req.Processed = true
		req.Approved = approve
		req.ResolvedBy = actingID
		if approve {
			if u, ok := a.Users[userID]; ok {
				u.Coins += coinGrant
			}
		}
		if adm, ok := a.Admins[actingID]; ok {
			adm.Activity++
		}
		return nil
	})
	if err != nil {
		return err
	}

	if approve {
		s.notify(userID, fmt.Sprintf("🎉 Your coin request was approved. %d coins were added to your balance.", coinGrant))
	} else {
		s.notify(userID, "❌ Your request for free coins has been rejected.")
	}
	return nil
}

// PendingCoinRequests returns unresolved coin requests in a stable order.
func (s *Service) PendingCoinRequests() []PendingCoinRequest {
	var out []PendingCoinRequest
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		for id, req := range a.CoinRequests {
			if !req.Processed {
				out = append(out, PendingCoinRequest{UserID: id, Request: *req})
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
