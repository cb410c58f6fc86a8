package service

import (
	"fmt"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/models"
)

// PendingItem pairs a moderation item with its stable queue reference.
type PendingItem struct {
	Index int
	Item  models.ModerationItem
}

var categoryLabels = map[models.Category]string{
	models.CategoryComment:     "📝 Anonymous comment",
	models.CategoryCrashReport: "❤️ Crush report",
	models.CategoryConfession:  "🗣 Anonymous confession",
}

// Submit appends an unprocessed item to the category queue and fans a
// review prompt out to every admin. A prompt that fails to reach one admin
// does not block the others and never rolls the submission back.
func (s *Service) Submit(cat models.Category, authorID, text string) (int, error) {
	if utf8.RuneCountInString(text) > maxSubmissionRunes {
		return 0, ErrTooLong
	}

	var index int
	var submitted time.Time
	err := s.store.Update(func(_ *models.Accounts, c *models.Content) error {
		q := c.Queue(cat)
		if q == nil {
			return fmt.Errorf("unknown category %q", cat)
		}
		submitted = time.Now()
		*q = append(*q, &models.ModerationItem{From: authorID, Text: text, Date: submitted})
		index = len(*q) - 1
		return nil
	})
	if err != nil {
		return 0, err
	}

	prompt := fmt.Sprintf("%s #%d:\n\n%s\n\n🕒 Submitted at: %s",
		categoryLabels[cat], index+1, text, submitted.Format(time.RFC822))
	approve := fmt.Sprintf("approve_%s_%d", cat, index)
	reject := fmt.Sprintf("reject_%s_%d", cat, index)
	for _, adminID := range s.recipients() {
		if err := s.notifier.Prompt(adminID, prompt, approve, reject); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"admin_id": adminID,
				"category": cat,
				"index":    index,
			}).Warn("review prompt dropped")
		}
	}
	return index, nil
}

// Decide resolves a queue item exactly once. The only legal transition is
// processed:false→true; a repeat attempt gets ErrAlreadyProcessed so
// duplicate button presses stay harmless. On approval the item is published
// to the channel; if publishing fails the main admin receives a fallback
// copy and published is false while the item stays approved.
func (s *Service) Decide(cat models.Category, index int, approve bool, actingID string) (models.ModerationItem, bool, error) {
	var decided models.ModerationItem
	err := s.store.Update(func(a *models.Accounts, c *models.Content) error {
		if _, delegated := a.Admins[actingID]; !delegated && a.MainAdmin != actingID {
			return ErrNotAdmin
		}
		q := c.Queue(cat)
		if q == nil || index < 0 || index >= len(*q) {
			return ErrNotFound
		}
		item := (*q)[index]
		if item.Processed {
			return ErrAlreadyProcessed
		}
		item.Processed = true
		item.Approved = approve
		item.ResolvedBy = actingID
		if adm, ok := a.Admins[actingID]; ok {
			adm.Activity++
		}
		decided = *item
		return nil
	})
	if err != nil {
		return models.ModerationItem{}, false, err
	}

	if !approve {
		return decided, false, nil
	}

	post := fmt.Sprintf("%s:\n\n%s", categoryLabels[cat], decided.Text)
	if err := s.notifier.Publish(post); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"category": cat,
			"index":    index,
		}).Error("channel publish failed, falling back to main admin")
		if main := s.MainAdminID(); main != "" {
			s.notify(main, fmt.Sprintf("%s approved but could not be posted to the channel:\n\n%s",
				categoryLabels[cat], decided.Text))
		}
		return decided, false, nil
	}
	return decided, true, nil
}

// Pending returns the unprocessed items of a category with their queue
// references, for rendering the admin's review list.
func (s *Service) Pending(cat models.Category) []PendingItem {
	var out []PendingItem
	s.store.View(func(_ *models.Accounts, c *models.Content) {
		q := c.Queue(cat)
		if q == nil {
			return
		}
		for i, item := range *q {
			if !item.Processed {
				out = append(out, PendingItem{Index: i, Item: *item})
			}
		}
	})
	return out
}
