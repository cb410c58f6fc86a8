package service

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/models"
)

// Recipient is a selectable crush-message target.
type Recipient struct {
	ID   string
	Name string
}

// CanAffordCrush reports whether the user holds enough coins for a crush
// message, without debiting anything.
func (s *Service) CanAffordCrush(userID string) bool {
	var ok bool
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		u, exists := a.Users[userID]
		ok = exists && u.Coins >= crushCost
	})
	return ok
}

// RecipientCandidates lists every non-blocked user other than exclude, in a
// stable order. The caller filters for channel membership and applies its
// display cap.
func (s *Service) RecipientCandidates(exclude string) []Recipient {
	var out []Recipient
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		for id, u := range a.Users {
			if id == exclude || u.Blocked {
				continue
			}
			out = append(out, Recipient{ID: id, Name: u.DisplayName()})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SendCrushMessage debits one coin, records the message and a history entry
// for the recipient, and delivers it anonymously. If delivery fails the
// whole send is undone: the coin comes back and the sender is told the
// truth. The main admin always sees the full sender identity.
func (s *Service) SendCrushMessage(senderID, recipientID, text string) (models.CrushMessage, error) {
	if utf8.RuneCountInString(text) > maxCrushRunes {
		return models.CrushMessage{}, ErrTooLong
	}

	var msg models.CrushMessage
	err := s.store.Update(func(a *models.Accounts, c *models.Content) error {
		sender, ok := a.Users[senderID]
		if !ok {
			return ErrNotFound
		}
		if sender.Coins < crushCost {
			return ErrInsufficientFunds
		}

		senderName := sender.DisplayName()
		recipientName := "User-" + recipientID
		if r, ok := a.Users[recipientID]; ok {
			recipientName = r.DisplayName()
		}

		sender.Coins -= crushCost
		m := &models.CrushMessage{
			ID:       uuid.NewString(),
			From:     senderID,
			FromName: senderName,
			To:       recipientID,
			ToName:   recipientName,
			Text:     text,
			Date:     time.Now(),
		}
		c.CrushMessages = append(c.CrushMessages, m)
		appendHistory(a, recipientID, models.HistoryEntry{
			MessageID: m.ID,
			From:      senderID,
			Text:      text,
			Time:      m.Date,
		})
		msg = *m
		return nil
	})
	if err != nil {
		return models.CrushMessage{}, err
	}

	delivery := fmt.Sprintf("💌 You received an anonymous message from someone who calls you their crush:\n\n%s\n\nReply to this message to answer them anonymously.", text)
	ref, sendErr := s.notifier.Send(recipientID, delivery)
	if sendErr != nil {
		log.WithError(sendErr).WithFields(log.Fields{
			"message_id":   msg.ID,
			"recipient_id": recipientID,
		}).Warn("crush message undeliverable, refunding")
		if rbErr := s.store.Update(func(a *models.Accounts, c *models.Content) error {
			if u, ok := a.Users[senderID]; ok {
				u.Coins += crushCost
			}
			dropCrushMessage(c, msg.ID)
			dropHistoryEntry(a, recipientID, msg.ID)
			return nil
		}); rbErr != nil {
			log.WithError(rbErr).WithField("message_id", msg.ID).Error("could not undo undeliverable crush message")
		}
		return models.CrushMessage{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, sendErr)
	}

	msg.DeliveryRef = ref
	if err := s.store.Update(func(_ *models.Accounts, c *models.Content) error {
		for _, m := range c.CrushMessages {
			if m.ID == msg.ID {
				m.DeliveryRef = ref
				break
			}
		}
		return nil
	}); err != nil {
		log.WithError(err).WithField("message_id", msg.ID).Warn("could not record delivery reference")
	}

	if main := s.MainAdminID(); main != "" {
		s.notify(main, fmt.Sprintf("💌 New crush message:\n\nFrom: %s (ID: %s)\nTo: %s (ID: %s)\n\nMessage: %s",
			msg.FromName, senderID, msg.ToName, recipientID, text))
	}
	return msg, nil
}

// FindSenderByDeliveryRef resolves the reply target for an inbound reply:
// the sender of the crush message whose delivered copy carries ref.
func (s *Service) FindSenderByDeliveryRef(recipientID string, ref int) (string, bool) {
	var senderID string
	s.store.View(func(_ *models.Accounts, c *models.Content) {
		for _, m := range c.CrushMessages {
			if m.To == recipientID && m.DeliveryRef == ref && ref != 0 {
				senderID = m.From
				return
			}
		}
	})
	return senderID, senderID != ""
}

// SendReply marks the oldest unreplied crush message from originalSender to
// replier as answered, then delivers the reply. The flag update and the
// delivery attempt are independent: a failed delivery is reported but not
// rolled back.
func (s *Service) SendReply(replierID, originalSenderID, text string) error {
	now := time.Now()
	var replierName string
	err := s.store.Update(func(a *models.Accounts, c *models.Content) error {
		replierName = "User-" + replierID
		if u, ok := a.Users[replierID]; ok {
			replierName = u.DisplayName()
		}
		for _, m := range c.CrushMessages {
			if m.From == originalSenderID && m.To == replierID && !m.Replied {
				m.Replied = true
				m.ReplyText = text
				t := now
				m.ReplyTime = &t
				break
			}
		}
		appendHistory(a, originalSenderID, models.HistoryEntry{
			From:    replierID,
			Text:    text,
			Time:    now,
			IsReply: true,
		})
		return nil
	})
	if err != nil {
		return err
	}

	reply := fmt.Sprintf("💌 You received a reply from %s:\n\n%s", replierName, text)
	if _, sendErr := s.notifier.Send(originalSenderID, reply); sendErr != nil {
		log.WithError(sendErr).WithField("sender_id", originalSenderID).Warn("reply undeliverable")
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, sendErr)
	}
	return nil
}

// CrushMessagesTo returns copies of every crush message delivered to a
// recipient, oldest first.
func (s *Service) CrushMessagesTo(recipientID string) []models.CrushMessage {
	var out []models.CrushMessage
	s.store.View(func(_ *models.Accounts, c *models.Content) {
		for _, m := range c.CrushMessages {
			if m.To == recipientID {
				out = append(out, *m)
			}
		}
	})
	return out
}

// History returns the recorded inbound events for a recipient.
func (s *Service) History(recipientID string) []models.HistoryEntry {
	var out []models.HistoryEntry
	s.store.View(func(a *models.Accounts, _ *models.Content) {
		out = append(out, a.MessageHistory[recipientID]...)
	})
	return out
}

// appendHistory records an event for a recipient, keeping only the newest
// historyLimit entries. Must be called with the store lock held.
func appendHistory(a *models.Accounts, recipientID string, e models.HistoryEntry) {
	h := append(a.MessageHistory[recipientID], e)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	a.MessageHistory[recipientID] = h
}

func dropCrushMessage(c *models.Content, id string) {
	for i, m := range c.CrushMessages {
		if m.ID == id {
			c.CrushMessages = append(c.CrushMessages[:i], c.CrushMessages[i+1:]...)
			return
		}
	}
}

func dropHistoryEntry(a *models.Accounts, recipientID, messageID string) {
	h := a.MessageHistory[recipientID]
	for i, e := range h {
		if e.MessageID == messageID {
			a.MessageHistory[recipientID] = append(h[:i], h[i+1:]...)
			return
		}
	}
}
