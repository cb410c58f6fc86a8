package service

import (
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/models"
)

// AdminInfo is a read-only view of a delegated admin for display.
type AdminInfo struct {
	ID       string
	Name     string
	Date     time.Time
	Activity int
}

// ClaimMainAdmin makes the caller the main admin if the seat is empty.
// First claimant wins; concurrent claims are serialized by the store lock.
func (s *Service) ClaimMainAdmin(id string) error {
	return s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		if a.MainAdmin != "" {
			return ErrAlreadyClaimed
		}
		a.MainAdmin = id
		return nil
	})
}

// RequestPromotion records a pending admin request and signals the main
// admin. Users who are already admins, or already waiting, are refused.
func (s *Service) RequestPromotion(id, name string) error {
	err := s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		if a.MainAdmin == id {
			return ErrAlreadyAdmin
		}
		if _, ok := a.Admins[id]; ok {
			return ErrAlreadyAdmin
		}
		if _, ok := a.AdminRequests[id]; ok {
			return ErrRequestPending
		}
		a.AdminRequests[id] = &models.AdminRequest{Name: name, Date: time.Now()}
		return nil
	})
	if err != nil {
		return err
	}

	if main := s.MainAdminID(); main != "" {
		text := fmt.Sprintf("🛡 New admin request from %s (ID: %s)", name, id)
		if err := s.notifier.Prompt(main, text, "admin_approve_"+id, "admin_reject_"+id); err != nil {
			log.WithError(err).WithField("requester_id", id).Warn("could not signal main admin about promotion request")
		}
	}
	return nil
}

// ApproveAdmin promotes a requester. Only the main admin may call it.
func (s *Service) ApproveAdmin(requesterID, actingID string) (models.Admin, error) {
	var granted models.Admin
	err := s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		if a.MainAdmin != actingID {
			return ErrNotMainAdmin
		}
		req, ok := a.AdminRequests[requesterID]
		if !ok {
			return ErrNoSuchRequest
		}
		a.Admins[requesterID] = &models.Admin{Name: req.Name, Date: req.Date}
		delete(a.AdminRequests, requesterID)
		granted = *a.Admins[requesterID]
		return nil
	})
	if err != nil {
		return models.Admin{}, err
	}
	s.notify(requesterID, "🎉 Your admin request has been approved! You now have admin privileges.")
	return granted, nil
}

// RejectAdmin discards a pending request without promotion.
func (s *Service) RejectAdmin(requesterID, actingID string) error {
	err := s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		if a.MainAdmin != actingID {
			return ErrNotMainAdmin
		}
		if _, ok := a.AdminRequests[requesterID]; !ok {
			return ErrNoSuchRequest
		}
		delete(a.AdminRequests, requesterID)
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(requesterID, "❌ Your admin request has been rejected.")
	return nil
}

// RevokeAdmin removes a delegated admin. Only the main admin may call it.
func (s *Service) RevokeAdmin(adminID, actingID string) error {
	err := s.store.Update(func(a *models.Accounts, _ *models.Content) error {
		if a.MainAdmin != actingID {
			return ErrNotMainAdmin
		}
		if _, ok := a.Admins[adminID]; !ok {
			return ErrNoSuchAdmin
		}
		delete(a.Admins, adminID)
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(adminID, "⚠️ Your admin privileges have been removed by the main admin.")
	return nil
}

// IsAdmin reports whether id is the main admin or a delegated admin.
func (s *Service) IsAdmin(id string) bool {
	var ok bool
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		_, delegated := a.Admins[id]
		ok = delegated || a.MainAdmin == id
	})
	return ok
}

// IsMainAdmin reports whether id holds the main-admin seat.
func (s *Service) IsMainAdmin(id string) bool {
	var ok bool
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		ok = a.MainAdmin != "" && a.MainAdmin == id
	})
	return ok
}

// MainAdminID returns the main admin's id, or "" when unclaimed.
func (s *Service) MainAdminID() string {
	var id string
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		id = a.MainAdmin
	})
	return id
}

// Admins lists delegated admins in a stable order.
func (s *Service) Admins() []AdminInfo {
	var out []AdminInfo
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		for id, adm := range a.Admins {
			out = append(out, AdminInfo{ID: id, Name: adm.Name, Date: adm.Date, Activity: adm.Activity})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// adminRecipients returns everyone entitled to review prompts: the main
// admin first, then delegated admins in a stable order. Must be called with
// the store lock held.
func adminRecipients(a *models.Accounts) []string {
	var ids []string
	if a.MainAdmin != "" {
		ids = append(ids, a.MainAdmin)
	}
	var rest []string
	for id := range a.Admins {
		if id != a.MainAdmin {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// recipients snapshots adminRecipients outside a mutation.
func (s *Service) recipients() []string {
	var ids []string
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		ids = adminRecipients(a)
	})
	return ids
}
