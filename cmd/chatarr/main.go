package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chatarr/chatarr/internal/auth"
	"github.com/chatarr/chatarr/internal/bot"
	"github.com/chatarr/chatarr/internal/config"
	"github.com/chatarr/chatarr/internal/locale"
	"github.com/chatarr/chatarr/internal/scheduler"
	"github.com/chatarr/chatarr/internal/services/arr"
	"github.com/chatarr/chatarr/internal/services/qbittorrent"
	"github.com/chatarr/chatarr/internal/services/sabnzbd"
	"github.com/chatarr/chatarr/internal/services/transmission"
	"github.com/chatarr/chatarr/internal/session"
	"github.com/chatarr/chatarr/internal/utils"
)

// sessionTTL is how long an abandoned conversation is kept around.
const sessionTTL = 30 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogFile, cfg.DebugLogging, cfg.LogToConsole)
	logger.Info("Starting Chatarr")

	// 3. Load translations
	translator, err := locale.Load(cfg.Language)
	if err != nil {
		return fmt.Errorf("failed to load translations: %w", err)
	}

	// 4. Connect to Telegram
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	logger.WithField("username", api.Self.UserName).Info("Connected to Telegram")

	gateway := bot.NewTelegramGateway(api, logger)
	gate := auth.NewGate(cfg.ChatIDFile, cfg.AdminFile, cfg.AllowlistFile, cfg.TelegramPassword, logger)

	// 5. Validate configuration. Authorized chats get told what is
	// wrong before the process exits.
	if missing, wrong := cfg.Validate(); len(missing) > 0 || len(wrong) > 0 {
		reportConfigErrors(gateway, gate, translator, missing, wrong)
		return fmt.Errorf("invalid configuration: missing %v, wrong %v", missing, wrong)
	}

	// 6. Initialize backend clients
	registry, err := arr.NewRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize backend clients: %w", err)
	}
	logger.Info("Backend clients initialized")

	deps := bot.Deps{
		Config:     cfg,
		Translator: translator,
		Gate:       gate,
		Registry:   registry,
		Sessions:   session.NewStore(sessionTTL),
		Gateway:    gateway,
		Logger:     logger,
	}
	if cfg.Transmission.Enable {
		deps.Transmission = transmission.NewClient(cfg.Transmission, logger)
	}
	if cfg.Sabnzbd.Enable {
		deps.Sabnzbd = sabnzbd.NewClient(cfg.Sabnzbd, logger)
	}
	if cfg.Qbittorrent.Enable {
		deps.Qbittorrent = qbittorrent.NewClient(cfg.Qbittorrent, logger)
	}
	b := bot.New(deps)

	// 7. Start the health check scheduler
	sched := scheduler.NewScheduler(registry, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. Poll for updates until shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	updates := gateway.Updates()
	logger.Info("Chatarr is running")

	for {
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig).Info("Received shutdown signal")
			gateway.Stop()
			logger.Info("Chatarr stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := bot.EventFromUpdate(update); ok {
				b.Handle(ctx, ev)
			}
		}
	}
}

// reportConfigErrors tells every already authorized chat which config
// keys keep the bot from starting.
func reportConfigErrors(gateway *bot.TelegramGateway, gate *auth.Gate, translator *locale.Translator, missing, wrong []string) {
	var texts []string
	if len(missing) > 0 {
		texts = append(texts, translator.Tf("Missing config", map[string]string{
			"missingKeys": strings.Join(missing, ", "),
		}))
	}
	if len(wrong) > 0 {
		texts = append(texts, translator.Tf("Wrong values", map[string]string{
			"wrongValues": strings.Join(wrong, ", "),
		}))
	}
	for _, chatID := range gate.AuthorizedChats() {
		for _, text := range texts {
			gateway.SendText(chatID, text)
		}
	}
}
