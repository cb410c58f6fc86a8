package handlers

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/models"
)

// sendAdminList renders the delegated admins with remove controls. Any
// admin may look; removal itself is gated to the main admin downstream.
func (h *BotHandler) sendAdminList(chatID int64, actingID string) {
	if !h.svc.IsAdmin(actingID) {
		h.send(chatID, "❌ You don't have permission to use this command.")
		return
	}

	admins := h.svc.Admins()
	if len(admins) == 0 {
		h.send(chatID, "ℹ️ There are no delegated admins.")
		return
	}

	text := "🛡 Admin List:\n\n"
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, adm := range admins {
		text += fmt.Sprintf("👤 %s (ID: %s)\n📅 Since: %s\n📊 Activity: %d actions\n\n",
			adm.Name, adm.ID, adm.Date.Format(time.RFC822), adm.Activity)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Remove "+adm.Name, "remove_admin_"+adm.ID),
		))
	}

	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := h.api.Send(out); err != nil {
		log.WithError(err).Warn("could not send admin list")
	}
}

var categoryTitles = map[models.Category]string{
	models.CategoryComment:     "📝 Comment",
	models.CategoryCrashReport: "💔 Crush Report",
	models.CategoryConfession:  "🗣 Confession",
}

// sendPendingItems renders one review message per unprocessed item, each
// with its own approve/reject controls. Re-rendering always fetches fresh
// state, so stale buttons simply resolve to "already processed".
func (h *BotHandler) sendPendingItems(chatID int64, actingID string, cat models.Category) {
	if !h.svc.IsAdmin(actingID) {
		h.send(chatID, "❌ You don't have permission to use this command.")
		return
	}

	pending := h.svc.Pending(cat)
	if len(pending) == 0 {
		h.send(chatID, "ℹ️ Nothing is waiting for review.")
		return
	}

	for _, p := range pending {
		out := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s #%d:\n\n%s\n\n🕒 Submitted at: %s",
			categoryTitles[cat], p.Index+1, p.Item.Text, p.Item.Date.Format(time.RFC822)))
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Approve", fmt.Sprintf("approve_%s_%d", cat, p.Index)),
				tgbotapi.NewInlineKeyboardButtonData("❌ Reject", fmt.Sprintf("reject_%s_%d", cat, p.Index)),
			),
		)
		if _, err := h.api.Send(out); err != nil {
			log.WithError(err).WithField("category", cat).Warn("could not send review item")
		}
	}
}

func (h *BotHandler) sendPendingCoinRequests(chatID int64, actingID string) {
	if !h.svc.IsAdmin(actingID) {
		h.send(chatID, "❌ You don't have permission to use this command.")
		return
	}

	pending := h.svc.PendingCoinRequests()
	if len(pending) == 0 {
		h.send(chatID, "ℹ️ There are no pending coin requests.")
		return
	}

	for _, p := range pending {
		out := tgbotapi.NewMessage(chatID, fmt.Sprintf("🪙 Coin request from %s (ID: %s)\n\n🕒 Requested at: %s",
			p.Request.Name, p.UserID, p.Request.Date.Format(time.RFC822)))
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Approve", "approve_coins_"+p.UserID),
				tgbotapi.NewInlineKeyboardButtonData("❌ Reject", "reject_coins_"+p.UserID),
			),
		)
		if _, err := h.api.Send(out); err != nil {
			log.WithError(err).Warn("could not send coin request")
		}
	}
}
