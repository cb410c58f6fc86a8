package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/models"
)

// GetOrCreateUser returns the user record for id, creating it with a zero
// balance and a fresh unique invite code on first contact. The second result
// reports whether this call created the record. A non-empty username or name
// refreshes the stored profile.
func (s *Service) GetOrCreateUser(id, username, name string) (models.User, bool, error) {
	var out models.User
	var created bool
	err := s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		u, ok := a.Users[id]
		if !ok {
			u = &models.User{
				InviteCode: newInviteCode(a.Users),
				JoinedAt:   time.Now(),
			}
			a.Users[id] = u
			created = true
		}
		if username != "" {
			u.Username = username
		}
		if name != "" {
			u.Name = name
		}
		out = *u
		return nil
	})
	return out, created, err
}

// Credit adds amount coins to the user's balance.
func (s *Service) Credit(id string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		u, ok := a.Users[id]
		if !ok {
			return ErrNotFound
		}
		u.Coins += amount
		return nil
	})
}

// Debit removes amount coins, failing with ErrInsufficientFunds and no
// mutation when the balance does not cover it.
func (s *Service) Debit(id string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		u, ok := a.Users[id]
		if !ok {
			return ErrNotFound
		}
		if u.Coins < amount {
			return ErrInsufficientFunds
		}
		u.Coins -= amount
		return nil
	})
}

// RedeemInvite looks up the owner of code, excluding the redeemer, rewards
// them and notifies them. Returns the owner id, or "" when the code matches
// nobody.
func (s *Service) RedeemInvite(code, newUserID string) (string, error) {
	var ownerID string
	var ownerBalance int
	err := s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		for id, u := range a.Users {
			if id == newUserID || u.InviteCode != code {
				continue
			}
			u.Coins += inviteReward
			u.Invited++
			ownerID = id
			ownerBalance = u.Coins
			return nil
		}
		return nil
	})
	if err != nil || ownerID == "" {
		return "", err
	}

	log.WithFields(log.Fields{
		"owner_id":    ownerID,
		"new_user_id": newUserID,
	}).Info("invite code redeemed")
	s.notify(ownerID, fmt.Sprintf(
		"🎉 A friend of yours joined the bot through your invite link. You earned %d coins, your balance is now %d.",
		inviteReward, ownerBalance))
	return ownerID, nil
}

// SetBlocked flips the moderation block flag; blocked users never appear
// as crush recipients.
func (s *Service) SetBlocked(id string, blocked bool) error {
	return s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		u, ok := a.Users[id]
		if !ok {
			return ErrNotFound
		}
		u.Blocked = blocked
		return nil
	})
}

// UserDisplayName resolves the public-facing name for id without creating
// a record.
func (s *Service) UserDisplayName(id string) string {
	name := "User-" + id
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		if u, ok := a.Users[id]; ok {
			name = u.DisplayName()
		}
	})
	return name
}

// newInviteCode generates a short token not used by any existing user.
// Must be called with the store lock held.
func newInviteCode(users map[string]*models.User) string {
	for {
		code := uuid.NewString()[:8]
		taken := false
		for _, u := range users {
			if u.InviteCode == code {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
	}
}
