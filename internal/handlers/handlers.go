// Package handlers turns Telegram updates into core operations: it owns the
// per-user conversation state machine, the entry gate, the keyboards and the
// callback-query routing.
package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/models"
	"github.com/Khosro2099/Gut-Crush-bot/internal/service"
)

// API is the slice of the Telegram client the handlers use. Satisfied by
// *tgbotapi.BotAPI; faked in tests.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(c tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// State identifies where a user's conversation currently is. MainMenu is
// both the initial and the universal return state.
type State int

const (
	StateMainMenu State = iota
	StateAnonComment
	StateCrashReport
	StateAnonConfession
	StateCrushSelect
	StateCrushMessage
	StateReplyToMessage
)

// Session is per-user scratch data for multi-step flows. It lives only in
// memory and is cleared on every terminal transition.
type Session struct {
	State   State
	CrushID string // Selected crush recipient, CrushSelect → CrushMessage
	ReplyTo string // Original sender a reply is addressed to
}

// maxRecipients bounds the crush-selection keyboard.
const maxRecipients = 50

type BotHandler struct {
	api         API
	svc         *service.Service
	channel     string
	botUsername string

	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewBotHandler(api API, svc *service.Service, channel, botUsername string) *BotHandler {
	return &BotHandler{
		api:         api,
		svc:         svc,
		channel:     channel,
		botUsername: botUsername,
		sessions:    make(map[int64]*Session),
	}
}

func (h *BotHandler) session(uid int64) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[uid]
	if !ok {
		s = &Session{}
		h.sessions[uid] = s
	}
	return s
}

func (h *BotHandler) resetSession(uid int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, uid)
}

// HandleUpdate routes one inbound update. Panics are contained per update:
// logged, reported to the main admin, answered with a generic retry reply,
// and the session returns to the main menu instead of getting stuck.
func (h *BotHandler) HandleUpdate(update tgbotapi.Update) {
	var uid int64
	var chatID int64
	switch {
	case update.Message != nil && update.Message.From != nil:
		uid = update.Message.From.ID
		chatID = update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		uid = update.CallbackQuery.From.ID
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
	default:
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"user_id": uid,
				"panic":   r,
			}).Error("update handler panicked")
			if main := h.svc.MainAdminID(); main != "" {
				if mainID, err := strconv.ParseInt(main, 10, 64); err == nil {
					h.send(mainID, fmt.Sprintf("⚠️ Bot error while handling an update from %d:\n\n%v", uid, r))
				}
			}
			h.resetSession(uid)
			if chatID != 0 {
				h.sendKB(chatID, "⚠️ Something went wrong. Please try again.", h.mainMenuKeyboard(strconv.FormatInt(uid, 10)))
			}
		}
	}()

	if update.Message != nil {
		h.handleMessage(update.Message)
	}
	if update.CallbackQuery != nil {
		h.handleCallback(update.CallbackQuery)
	}
}

func (h *BotHandler) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}
	uid := msg.From.ID
	id := strconv.FormatInt(uid, 10)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.handleStart(msg)
		case "cancel":
			h.handleCancel(msg)
		case "imadmin":
			h.handleClaimMainAdmin(msg)
		case "letmeadmin":
			h.handleRequestPromotion(msg)
		case "adlist":
			h.sendAdminList(msg.Chat.ID, id)
		}
		return
	}

	if msg.Text == btnCancel {
		h.handleCancel(msg)
		return
	}

	switch h.session(uid).State {
	case StateMainMenu:
		h.handleMainMenu(msg)
	case StateAnonComment:
		h.handleSubmission(msg, models.CategoryComment, "comment")
	case StateCrashReport:
		h.handleSubmission(msg, models.CategoryCrashReport, "crush report")
	case StateAnonConfession:
		h.handleSubmission(msg, models.CategoryConfession, "confession")
	case StateCrushSelect:
		h.send(msg.Chat.ID, "💌 Please pick a recipient from the list above, or /cancel.")
	case StateCrushMessage:
		h.handleCrushText(msg)
	case StateReplyToMessage:
		h.handleReplyText(msg)
	}
}

// gate re-validates the entry preconditions: a non-numeric handle and
// current membership in the public channel.
func (h *BotHandler) gate(msg *tgbotapi.Message) bool {
	user := msg.From
	if user.UserName == "" || isNumeric(user.UserName) {
		h.send(msg.Chat.ID,
			"❌ You must have a non-numeric username to use this bot.\n"+
				"Please set a username in your Telegram settings and try again.")
		return false
	}

	member, err := h.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: h.channel,
			UserID:             user.ID,
		},
	})
	if err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("channel membership check failed")
		h.send(msg.Chat.ID, "⚠️ Could not verify channel membership. Please try again later.")
		return false
	}
	if member.Status == "left" || member.Status == "kicked" {
		h.send(msg.Chat.ID, fmt.Sprintf("❌ You must join our channel %s to use this bot.\nPlease join and try again.", h.channel))
		return false
	}
	return true
}

func (h *BotHandler) handleStart(msg *tgbotapi.Message) {
	if !h.gate(msg) {
		return
	}
	uid := msg.From.ID
	id := strconv.FormatInt(uid, 10)

	user, created, err := h.svc.GetOrCreateUser(id, msg.From.UserName, fullName(msg.From))
	if err != nil {
		log.WithError(err).WithField("user_id", id).Error("could not load user")
		h.send(msg.Chat.ID, "⚠️ Something went wrong. Please try again.")
		return
	}

	// Invite codes pay out only on first contact; a returning user restarting
	// with a code credits nobody.
	if code := strings.TrimSpace(msg.CommandArguments()); code != "" && created {
		if _, err := h.svc.RedeemInvite(code, id); err != nil {
			log.WithError(err).WithField("user_id", id).Warn("invite redemption failed")
		}
		if refreshed, _, err := h.svc.GetOrCreateUser(id, "", ""); err != nil {
			log.WithError(err).WithField("user_id", id).Warn("could not refresh user after invite redemption")
		} else {
			user = refreshed
		}
	}

	h.resetSession(uid)
	welcome := fmt.Sprintf(
		"👋 Welcome %s!\n\n"+
			"📌 Use the buttons below:\n"+
			"%s — send an anonymous message to your crush (costs 1 coin)\n"+
			"%s — submit an anonymous comment for the channel\n"+
			"%s — post a crush report to find out who likes you\n"+
			"%s — confess anonymously in the channel\n"+
			"%s — check your coins and earn free ones\n\n"+
			"💰 Your coin balance: %d\n"+
			"📤 Your invite link: https://t.me/%s?start=%s",
		msg.From.FirstName,
		btnCrushMessage, btnAnonComment, btnCrushReport, btnConfession, btnCoins,
		user.Coins, h.botUsername, user.InviteCode)
	h.sendKB(msg.Chat.ID, welcome, h.mainMenuKeyboard(id))
}

func (h *BotHandler) handleMainMenu(msg *tgbotapi.Message) {
	uid := msg.From.ID
	id := strconv.FormatInt(uid, 10)

	// A reply to one of the bot's delivered messages is a crush-message
	// reply; the delivery reference identifies the original sender.
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.IsBot {
		senderID, ok := h.svc.FindSenderByDeliveryRef(id, msg.ReplyToMessage.MessageID)
		if !ok {
			h.send(msg.Chat.ID, "❌ Could not find the original message sender.")
			return
		}
		sess := h.session(uid)
		sess.State = StateReplyToMessage
		sess.ReplyTo = senderID
		h.sendKB(msg.Chat.ID, fmt.Sprintf("✏️ You're replying to %s.\nPlease type your reply message:",
			h.svc.UserDisplayName(senderID)), cancelKeyboard())
		return
	}

	switch msg.Text {
	case btnCrushMessage:
		h.startCrushSelect(msg, id)

	case btnAnonComment:
		h.session(uid).State = StateAnonComment
		h.sendKB(msg.Chat.ID, "📝 Please send the text of your anonymous comment (max 500 characters):", cancelKeyboard())

	case btnCrushReport:
		h.session(uid).State = StateCrashReport
		h.sendKB(msg.Chat.ID, "❤️ Please send the text of your crush report (max 500 characters):", cancelKeyboard())

	case btnConfession:
		h.session(uid).State = StateAnonConfession
		h.sendKB(msg.Chat.ID, "🗣 Confess, but keep it under 500 characters:", cancelKeyboard())

	case btnCoins:
		h.sendCoinsMenu(msg.Chat.ID, id)

	case btnAdminPanel, btnMainAdminPanel:
		if !h.svc.IsAdmin(id) {
			h.send(msg.Chat.ID, "❌ You don't have permission to access the admin panel.")
			return
		}
		h.sendKB(msg.Chat.ID, "🛡 Admin Panel", adminKeyboard())

	case btnAdminList:
		h.sendAdminList(msg.Chat.ID, id)
	case btnViewComments:
		h.sendPendingItems(msg.Chat.ID, id, models.CategoryComment)
	case btnViewCrashReports:
		h.sendPendingItems(msg.Chat.ID, id, models.CategoryCrashReport)
	case btnViewConfessions:
		h.sendPendingItems(msg.Chat.ID, id, models.CategoryConfession)
	case btnViewCoinRequests:
		h.sendPendingCoinRequests(msg.Chat.ID, id)
	case btnBackToMain:
		h.sendKB(msg.Chat.ID, "🏠 Main Menu", h.mainMenuKeyboard(id))

	default:
		h.sendKB(msg.Chat.ID, "Please use the menu buttons.", h.mainMenuKeyboard(id))
	}
}

func (h *BotHandler) startCrushSelect(msg *tgbotapi.Message, id string) {
	if !h.svc.CanAffordCrush(id) {
		h.send(msg.Chat.ID, "❌ You need 1 coin to message your crush. Ask an admin for a loan or invite a friend to earn 10 coins.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, cand := range h.svc.RecipientCandidates(id) {
		if len(rows) == maxRecipients {
			break
		}
		if !h.isChannelMember(cand.ID) {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(cand.Name, "crush_select_"+cand.ID),
		))
	}
	if len(rows) == 0 {
		h.send(msg.Chat.ID, "ℹ️ There are no active users to choose from right now.")
		return
	}

	h.session(msg.From.ID).State = StateCrushSelect
	out := tgbotapi.NewMessage(msg.Chat.ID, "💌 Select your crush:")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := h.api.Send(out); err != nil {
		log.WithError(err).Warn("could not send recipient list")
	}
}

func (h *BotHandler) isChannelMember(id string) bool {
	uid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return false
	}
	member, err := h.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: h.channel,
			UserID:             uid,
		},
	})
	if err != nil {
		log.WithError(err).WithField("user_id", id).Debug("membership probe failed")
		return false
	}
	return member.Status != "left" && member.Status != "kicked"
}

func (h *BotHandler) handleSubmission(msg *tgbotapi.Message, cat models.Category, what string) {
	uid := msg.From.ID
	id := strconv.FormatInt(uid, 10)

	_, err := h.svc.Submit(cat, id, msg.Text)
	switch {
	case errors.Is(err, service.ErrTooLong):
		h.send(msg.Chat.ID, fmt.Sprintf("❌ Your %s is too long (max 500 characters). Please try again.", what))
		return
	case err != nil:
		log.WithError(err).WithFields(log.Fields{"user_id": id, "category": cat}).Error("submission failed")
		h.send(msg.Chat.ID, "⚠️ Something went wrong. Please try again.")
		return
	}

	h.resetSession(uid)
	h.sendKB(msg.Chat.ID,
		fmt.Sprintf("✅ Your %s was sent to the admins for review. Once approved it will be posted to the channel.", what),
		h.mainMenuKeyboard(id))
}

func (h *BotHandler) handleCrushText(msg *tgbotapi.Message) {
	uid := msg.From.ID
	id := strconv.FormatInt(uid, 10)
	sess := h.session(uid)

	if sess.CrushID == "" {
		h.resetSession(uid)
		h.sendKB(msg.Chat.ID, "❌ You haven't picked anyone yet. Please try again.", h.mainMenuKeyboard(id))
		return
	}

	sent, err := h.svc.SendCrushMessage(id, sess.CrushID, msg.Text)
	switch {
	case errors.Is(err, service.ErrTooLong):
		h.send(msg.Chat.ID, "❌ Message is too long (max 300 characters). Please try again.")
		return
	case errors.Is(err, service.ErrInsufficientFunds):
		h.resetSession(uid)
		h.sendKB(msg.Chat.ID, "❌ You don't have enough coins to send this message.", h.mainMenuKeyboard(id))
		return
	case errors.Is(err, service.ErrDeliveryFailed):
		h.resetSession(uid)
		h.sendKB(msg.Chat.ID, "⚠️ Your message could not be delivered (the user may have blocked the bot). Your coin was refunded.", h.mainMenuKeyboard(id))
		return
	case err != nil:
		log.WithError(err).WithField("user_id", id).Error("crush message failed")
		h.resetSession(uid)
		h.sendKB(msg.Chat.ID, "⚠️ Something went wrong. Please try again.", h.mainMenuKeyboard(id))
		return
	}

	h.resetSession(uid)
	h.sendKB(msg.Chat.ID, fmt.Sprintf("✅ Your message was sent anonymously to %s!", sent.ToName), h.mainMenuKeyboard(id))
}

func (h *BotHandler) handleReplyText(msg *tgbotapi.Message) {
	uid := msg.From.ID
	id := strconv.FormatInt(uid, 10)
	sess := h.session(uid)

	target := sess.ReplyTo
	if target == "" {
		h.resetSession(uid)
		h.sendKB(msg.Chat.ID, "❌ Error: could not find the original sender. Please try again.", h.mainMenuKeyboard(id))
		return
	}

	err := h.svc.SendReply(id, target, msg.Text)
	h.resetSession(uid)
	if err != nil {
		h.sendKB(msg.Chat.ID, "⚠️ Failed to send your reply. The user may have blocked the bot.", h.mainMenuKeyboard(id))
		return
	}
	h.sendKB(msg.Chat.ID, fmt.Sprintf("✅ Your reply has been sent to %s!", h.svc.UserDisplayName(target)), h.mainMenuKeyboard(id))
}

func (h *BotHandler) handleCancel(msg *tgbotapi.Message) {
	uid := msg.From.ID
	h.resetSession(uid)
	h.sendKB(msg.Chat.ID, "❌ Action canceled.", h.mainMenuKeyboard(strconv.FormatInt(uid, 10)))
}

func (h *BotHandler) handleClaimMainAdmin(msg *tgbotapi.Message) {
	id := strconv.FormatInt(msg.From.ID, 10)
	switch err := h.svc.ClaimMainAdmin(id); err {
	case nil:
		h.sendKB(msg.Chat.ID, "👑 You are now the main admin!", h.mainMenuKeyboard(id))
	case service.ErrAlreadyClaimed:
		h.send(msg.Chat.ID, "❌ A main admin already exists.")
	default:
		log.WithError(err).Error("main admin claim failed")
		h.send(msg.Chat.ID, "⚠️ Something went wrong. Please try again.")
	}
}

func (h *BotHandler) handleRequestPromotion(msg *tgbotapi.Message) {
	id := strconv.FormatInt(msg.From.ID, 10)
	switch err := h.svc.RequestPromotion(id, fullName(msg.From)); err {
	case nil:
		h.send(msg.Chat.ID, "✅ Your admin request was sent to the main admin. Please wait for approval.")
	case service.ErrAlreadyAdmin:
		h.send(msg.Chat.ID, "ℹ️ You are already an admin.")
	case service.ErrRequestPending:
		h.send(msg.Chat.ID, "ℹ️ You have already sent an admin request.")
	default:
		log.WithError(err).Error("promotion request failed")
		h.send(msg.Chat.ID, "⚠️ Something went wrong. Please try again.")
	}
}

func (h *BotHandler) sendCoinsMenu(chatID int64, id string) {
	user, _, err := h.svc.GetOrCreateUser(id, "", "")
	if err != nil {
		h.send(chatID, "⚠️ Something went wrong. Please try again.")
		return
	}
	text := fmt.Sprintf(
		"🪙 Coins:\n\n"+
			"1. Invite friends — share your invite link and earn 10 coins for every friend who joins:\n"+
			"   https://t.me/%s?start=%s\n\n"+
			"2. Borrow from our generous admins — 2 coins per request.\n\n"+
			"💰 Your balance: %d",
		h.botUsername, user.InviteCode, user.Coins)
	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📤 Request Free Coins", "request_coins")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Main Menu", "main_menu")),
	)
	if _, err := h.api.Send(out); err != nil {
		log.WithError(err).Warn("could not send coins menu")
	}
}

func (h *BotHandler) send(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("send failed")
	}
}

func (h *BotHandler) sendKB(chatID int64, text string, markup interface{}) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyMarkup = markup
	if _, err := h.api.Send(out); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("send failed")
	}
}

func fullName(u *tgbotapi.User) string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
