package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kinderscout/internal/alive"
	"kinderscout/internal/analysis"
	"kinderscout/internal/config"
	"kinderscout/internal/store"
	"kinderscout/internal/types"
)

const welcomeMessage = `Hello %s! 👋

Welcome to the Kinder Activities Bot.

Send me a URL of a kids' activity in Munich and I will:

1️⃣ Add it to our URL database
2️⃣ Check if the website is alive
3️⃣ Analyze and extract information
4️⃣ Calculate travel time from home
5️⃣ Save it to our activities database

Just paste a URL like:
https://www.kindermuseum-muenchen.de`

const helpMessage = `📚 *How to use this bot:*

Send me a URL and I will:

• Check if it's already in our database
• Verify the website is alive
• Extract: category, hours, address, prices, services
• Calculate travel time from home
• Save everything to the database

*Commands:*
/start - Welcome message
/help - Show this help

*Example:*
Just send: https://www.wildpark-poing.de`

// Bot runs the Telegram front end: it accepts URLs from users and pushes
// them through registry, liveness check, analysis, and the activity store,
// reporting progress by editing a status message.
type Bot struct {
	api      *tgbotapi.BotAPI
	analyser *analysis.Analyser
	checker  *alive.Checker
	registry *store.Registry
	store    store.ActivityStore
	logger   *slog.Logger
}

// New authenticates against the Telegram API.
func New(cfg *config.Config, analyser *analysis.Analyser, checker *alive.Checker, registry *store.Registry, activities store.ActivityStore, logger *slog.Logger) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, types.ErrMissingToken
	}
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	return &Bot{
		api:      api,
		analyser: analyser,
		checker:  checker,
		registry: registry,
		store:    activities,
		logger:   logger.With("component", "bot"),
	}, nil
}

// Run polls for updates until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot started", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			name := "there"
			if msg.From != nil && msg.From.FirstName != "" {
				name = msg.From.FirstName
			}
			b.reply(msg.Chat.ID, fmt.Sprintf(welcomeMessage, name), "")
		case "help":
			b.reply(msg.Chat.ID, helpMessage, tgbotapi.ModeMarkdown)
		default:
			b.reply(msg.Chat.ID, "Unknown command. Try /help.", "")
		}
		return
	}

	urls := ExtractURLs(msg.Text)
	if len(urls) == 0 {
		b.reply(msg.Chat.ID, "🔗 Please send me a URL to analyze.\n\nExample: https://www.kindermuseum-muenchen.de", "")
		return
	}

	b.logger.Info("urls received", "count", len(urls), "chat", msg.Chat.ID)
	for _, rawURL := range urls {
		b.processURL(ctx, msg.Chat.ID, rawURL)
	}
}

// processURL runs the full single-URL pipeline and reports each stage.
func (b *Bot) processURL(ctx context.Context, chatID int64, rawURL string) {
	entries, err := b.registry.Load()
	if err != nil {
		b.logger.Error("registry load failed", "error", err)
		b.reply(chatID, "❌ Internal error, please try again later.", "")
		return
	}

	key := store.NormalizeURL(rawURL)
	idx := -1
	for i := range entries {
		if store.NormalizeURL(entries[i].URL) == key {
			idx = i
			break
		}
	}

	if idx >= 0 {
		b.reply(chatID, fmt.Sprintf("ℹ️ This URL is already in our database:\n%s\n\nI'll re-analyze it and update the information.", rawURL), "")
	} else {
		entries = append(entries, types.URLEntry{
			URL:     rawURL,
			Source:  "telegram-bot",
			AddedAt: time.Now().Format("2006-01-02"),
		})
		idx = len(entries) - 1
		if err := b.registry.Save(entries); err != nil {
			b.logger.Error("registry save failed", "error", err)
		}
		b.reply(chatID, fmt.Sprintf("📥 Added to URL database: %s", truncate(rawURL, 50)), "")
	}

	status := b.send(chatID, "🔍 Checking if website is alive...")

	check := b.checker.Check(ctx, rawURL)
	isAlive := check.Alive
	entries[idx].Alive = &isAlive
	entries[idx].ContentType = check.ContentType
	if err := b.registry.Save(entries); err != nil {
		b.logger.Error("registry save failed", "error", err)
	}

	if !check.Alive {
		b.edit(chatID, status, fmt.Sprintf("❌ Website is not accessible: %s\n\nThe URL has been saved but cannot be analyzed right now.", rawURL), "")
		return
	}
	if check.ContentType != "website" {
		b.edit(chatID, status, fmt.Sprintf("⚠️ URL is not a website (type: %s): %s\n\nOnly HTML websites can be analyzed.", check.ContentType, rawURL), "")
		return
	}

	b.edit(chatID, status, "🤖 Analyzing website content...\n\nThis may take a moment...", "")

	result := b.analyser.AnalyseURL(ctx, rawURL)
	if !result.Available || result.Error != "" {
		errText := result.Error
		if errText == "" {
			errText = "Unknown error"
		}
		b.edit(chatID, status, fmt.Sprintf("❌ Analysis failed: %s\n\nError: %s", rawURL, errText), "")
		return
	}

	activity := types.ActivityFromResult(result, HostShortName(rawURL))
	if _, err := b.store.Upsert(ctx, activity); err != nil {
		b.logger.Error("store upsert failed", "url", rawURL, "error", err)
		b.edit(chatID, status, fmt.Sprintf("❌ Failed to save: %s\n\nError: %v", rawURL, err), "")
		return
	}

	b.edit(chatID, status, FormatResult(result), tgbotapi.ModeMarkdown)
	b.reply(chatID, "💾 Saved to database!", "")
}

func (b *Bot) reply(chatID int64, text, parseMode string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send failed", "error", err)
	}
}

// send returns the message ID for later edits, or 0 on failure.
func (b *Bot) send(chatID int64, text string) int {
	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		b.logger.Error("send failed", "error", err)
		return 0
	}
	return sent.MessageID
}

func (b *Bot) edit(chatID int64, messageID int, text, parseMode string) {
	if messageID == 0 {
		b.reply(chatID, text, parseMode)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = parseMode
	edit.DisableWebPagePreview = true
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("edit failed", "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
