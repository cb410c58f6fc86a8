package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/models"
	"github.com/Khosro2099/Gut-Crush-bot/internal/service"
)

// handleCallback routes button presses. Action tokens follow the
// "<verb>_<subject>_<ref>" convention; stale tokens resolve to informational
// replies, never to state changes.
func (h *BotHandler) handleCallback(q *tgbotapi.CallbackQuery) {
	if _, err := h.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.WithError(err).Debug("callback ack failed")
	}
	if q.Message == nil || q.From == nil {
		return
	}

	uid := q.From.ID
	id := strconv.FormatInt(uid, 10)
	data := q.Data

	switch {
	case data == "main_menu":
		h.resetSession(uid)
		h.editText(q, "🏠 Main Menu")
		h.sendKB(q.Message.Chat.ID, "🏠 Main Menu", h.mainMenuKeyboard(id))

	case data == "request_coins":
		h.handleCoinRequest(q, id)

	case strings.HasPrefix(data, "crush_select_"):
		h.handleCrushSelect(q, uid, strings.TrimPrefix(data, "crush_select_"))

	case strings.HasPrefix(data, "admin_approve_"):
		h.handleAdminDecision(q, id, strings.TrimPrefix(data, "admin_approve_"), true)
	case strings.HasPrefix(data, "admin_reject_"):
		h.handleAdminDecision(q, id, strings.TrimPrefix(data, "admin_reject_"), false)

	case strings.HasPrefix(data, "remove_admin_"):
		h.handleRemoveAdmin(q, id, strings.TrimPrefix(data, "remove_admin_"))

	case strings.HasPrefix(data, "approve_coins_"):
		h.handleCoinDecision(q, id, strings.TrimPrefix(data, "approve_coins_"), true)
	case strings.HasPrefix(data, "reject_coins_"):
		h.handleCoinDecision(q, id, strings.TrimPrefix(data, "reject_coins_"), false)

	case strings.HasPrefix(data, "approve_"), strings.HasPrefix(data, "reject_"):
		h.handleModerationDecision(q, id, data)
	}
}

func (h *BotHandler) handleCrushSelect(q *tgbotapi.CallbackQuery, uid int64, crushID string) {
	sess := h.session(uid)
	sess.State = StateCrushMessage
	sess.CrushID = crushID
	h.editText(q, fmt.Sprintf("💌 Type the message you want to send to %s (max 300 characters):",
		h.svc.UserDisplayName(crushID)))
}

func (h *BotHandler) handleCoinRequest(q *tgbotapi.CallbackQuery, id string) {
	name := fullName(q.From)
	switch err := h.svc.RequestCoins(id, name); {
	case err == nil:
		h.editText(q, "✅ Your coin request was sent. After review, 2 coins will be added to your balance.")
	case errors.Is(err, service.ErrAlreadyPending):
		h.editText(q, "ℹ️ You already have a pending coin request.")
	case errors.Is(err, service.ErrNoAdminsNotified):
		h.editText(q, "⚠️ Could not notify any admins. Please try again later.")
	default:
		log.WithError(err).WithField("user_id", id).Error("coin request failed")
		h.editText(q, "⚠️ An error occurred. Please try again.")
	}
}

func (h *BotHandler) handleAdminDecision(q *tgbotapi.CallbackQuery, actingID, requesterID string, approve bool) {
	if approve {
		granted, err := h.svc.ApproveAdmin(requesterID, actingID)
		switch {
		case err == nil:
			h.editText(q, fmt.Sprintf("✅ Admin request approved. %s is now an admin.", granted.Name))
		case errors.Is(err, service.ErrNotMainAdmin):
			h.editText(q, "❌ You don't have permission to do this.")
		case errors.Is(err, service.ErrNoSuchRequest):
			h.editText(q, "ℹ️ This request has already been processed.")
		default:
			log.WithError(err).Error("admin approval failed")
			h.editText(q, "⚠️ An error occurred. Please try again.")
		}
		return
	}

	switch err := h.svc.RejectAdmin(requesterID, actingID); {
	case err == nil:
		h.editText(q, "❌ Admin request rejected.")
	case errors.Is(err, service.ErrNotMainAdmin):
		h.editText(q, "❌ You don't have permission to do this.")
	case errors.Is(err, service.ErrNoSuchRequest):
		h.editText(q, "ℹ️ This request has already been processed.")
	default:
		log.WithError(err).Error("admin rejection failed")
		h.editText(q, "⚠️ An error occurred. Please try again.")
	}
}

func (h *BotHandler) handleRemoveAdmin(q *tgbotapi.CallbackQuery, actingID, adminID string) {
	switch err := h.svc.RevokeAdmin(adminID, actingID); {
	case err == nil:
		h.editText(q, "✅ Admin removed.")
	case errors.Is(err, service.ErrNotMainAdmin):
		h.editText(q, "❌ You don't have permission to do this.")
	case errors.Is(err, service.ErrNoSuchAdmin):
		h.editText(q, "ℹ️ This admin doesn't exist.")
	default:
		log.WithError(err).Error("admin removal failed")
		h.editText(q, "⚠️ An error occurred. Please try again.")
	}
}

func (h *BotHandler) handleCoinDecision(q *tgbotapi.CallbackQuery, actingID, userID string, approve bool) {
	switch err := h.svc.DecideCoins(userID, approve, actingID); {
	case err == nil && approve:
		h.editText(q, "✅ Coin request approved. The user received 2 coins.")
	case err == nil:
		h.editText(q, "❌ Coin request rejected.")
	case errors.Is(err, service.ErrNotAdmin):
		h.editText(q, "❌ You don't have permission to do this.")
	case errors.Is(err, service.ErrNotFound):
		h.editText(q, "ℹ️ This request doesn't exist.")
	case errors.Is(err, service.ErrAlreadyProcessed):
		h.editText(q, "ℹ️ This request has already been processed.")
	default:
		log.WithError(err).Error("coin decision failed")
		h.editText(q, "⚠️ An error occurred. Please try again.")
	}
}

// handleModerationDecision parses "approve_<category>_<index>" and
// "reject_<category>_<index>" tokens.
func (h *BotHandler) handleModerationDecision(q *tgbotapi.CallbackQuery, actingID, data string) {
	parts := strings.SplitN(data, "_", 3)
	if len(parts) != 3 {
		return
	}
	approve := parts[0] == "approve"
	cat := models.Category(parts[1])
	index, err := strconv.Atoi(parts[2])
	if err != nil {
		return
	}

	item, published, err := h.svc.Decide(cat, index, approve, actingID)
	switch {
	case errors.Is(err, service.ErrNotAdmin):
		h.editText(q, "❌ You don't have permission to do this.")
		return
	case errors.Is(err, service.ErrNotFound):
		h.editText(q, "ℹ️ This item doesn't exist.")
		return
	case errors.Is(err, service.ErrAlreadyProcessed):
		h.editText(q, "ℹ️ This item has already been processed.")
		return
	case err != nil:
		log.WithError(err).WithFields(log.Fields{"category": cat, "index": index}).Error("moderation decision failed")
		h.editText(q, "⚠️ An error occurred. Please try again.")
		return
	}

	switch {
	case item.Approved && published:
		h.editText(q, "✅ Approved and posted to the channel.")
	case item.Approved:
		h.editText(q, "✅ Approved, but it couldn't be posted to the channel. A copy was sent to the main admin.")
	default:
		h.editText(q, "❌ Rejected. It will not be posted to the channel.")
	}
}

func (h *BotHandler) editText(q *tgbotapi.CallbackQuery, text string) {
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text)
	if _, err := h.api.Send(edit); err != nil {
		log.WithError(err).Debug("edit failed, sending fresh message")
		h.send(q.Message.Chat.ID, text)
	}
}
