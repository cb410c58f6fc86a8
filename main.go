package main

import (
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/Khosro2099/Gut-Crush-bot/internal/config"
	"github.com/Khosro2099/Gut-Crush-bot/internal/handlers"
	"github.com/Khosro2099/Gut-Crush-bot/internal/service"
	"github.com/Khosro2099/Gut-Crush-bot/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info(".env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store, err := storage.Open(cfg.AccountsPath, cfg.ContentPath)
	if err != nil {
		log.WithError(err).Fatal("could not open data store")
	}
	log.WithFields(log.Fields{
		"accounts": cfg.AccountsPath,
		"content":  cfg.ContentPath,
	}).Info("data store loaded")

	// Outbound calls get one attempt with a hard deadline; there is no
	// retry path anywhere in the bot.
	client := &http.Client{Timeout: cfg.RequestTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		log.WithError(err).Fatal("bot initialization error")
	}
	log.WithField("username", bot.Self.UserName).Info("bot authorized")

	notifier := handlers.NewTelegramNotifier(bot, cfg.Channel)
	svc := service.NewService(store, notifier)
	handler := handlers.NewBotHandler(bot, svc, cfg.Channel, bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := bot.GetUpdatesChan(u)

	log.Info("bot is running")
	for update := range updates {
		handler.HandleUpdate(update)
	}
}
