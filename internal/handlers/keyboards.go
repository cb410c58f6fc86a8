package handlers

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Menu labels. The state machine matches free text against these, so they
// must stay in sync with the keyboards below.
const (
	btnCrushMessage = "💌 Message my crush"
	btnAnonComment  = "📝 Anonymous comment"
	btnCrushReport  = "❤️ Crush report"
	btnConfession   = "🗣 Anonymous confession"
	btnCoins        = "🪙 Coins"

	btnAdminPanel     = "🛡 Admin Panel"
	btnMainAdminPanel = "👑 Admin Panel"

	btnAdminList        = "📊 Admin List"
	btnViewComments     = "📝 View Comments"
	btnViewCrashReports = "💔 View Crush Reports"
	btnViewConfessions  = "🗣 View Confessions"
	btnViewCoinRequests = "🪙 View Coin Requests"
	btnBackToMain       = "🔙 Main Menu"

	btnCancel = "❌ Cancel"
)

func (h *BotHandler) mainMenuKeyboard(id string) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		{tgbotapi.NewKeyboardButton(btnCrushMessage)},
		{tgbotapi.NewKeyboardButton(btnAnonComment)},
		{tgbotapi.NewKeyboardButton(btnCrushReport)},
		{tgbotapi.NewKeyboardButton(btnConfession)},
		{tgbotapi.NewKeyboardButton(btnCoins)},
	}
	if h.svc.IsMainAdmin(id) {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnMainAdminPanel)})
	} else if h.svc.IsAdmin(id) {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnAdminPanel)})
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func adminKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnAdminList)},
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnViewComments)},
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnViewCrashReports)},
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnViewConfessions)},
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnViewCoinRequests)},
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnBackToMain)},
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnCancel)},
	)
	kb.ResizeKeyboard = true
	return kb
}
