package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/comproclick-bot/internal/catalog"
	"github.com/xaenox/comproclick-bot/internal/models"
	"github.com/xaenox/comproclick-bot/internal/pocket"
	"github.com/xaenox/comproclick-bot/internal/refiner"
	"github.com/xaenox/comproclick-bot/internal/storage"
	"github.com/xaenox/comproclick-bot/internal/wizard"
)

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Options struct {
	Storage     storage.Storage
	Catalog     *catalog.Catalog
	Destination pocket.Destination
	// Assistant is optional. Without it the designer hides the refine button.
	Assistant *refiner.Assistant
	// AutoRefine refines the idea once typing has been quiet for QuietPeriod.
	AutoRefine  bool
	QuietPeriod time.Duration
}

type Bot struct {
	api    telegramAPI
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[int64]*session
	handlers sync.WaitGroup
}

func New(token string, opts Options, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))
	return newBot(api, opts, logger), nil
}

func newBot(api telegramAPI, opts Options, logger *zap.Logger) *Bot {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStorage()
	}
	return &Bot{
		api:      api,
		opts:     opts,
		logger:   logger,
		sessions: make(map[int64]*session),
	}
}

// Start polls for updates until ctx is cancelled. Each update is handled on
// its own goroutine; Start waits for them before returning.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Polling for updates")

	defer b.shutdown()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping bot")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handlers.Add(1)
			go func() {
				defer b.handlers.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) shutdown() {
	b.handlers.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		s.wizard.Close()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Chat != nil:
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
			return
		}
		b.handleText(ctx, update.Message)
	}
}

// session returns the state for chatID, loading it from storage on first use.
func (b *Bot) session(ctx context.Context, chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[chatID]; ok {
		return s
	}
	s := b.openSession(ctx, chatID)
	b.sessions[chatID] = s
	return s
}

func (b *Bot) openSession(ctx context.Context, chatID int64) *session {
	scope := strconv.FormatInt(chatID, 10)
	logger := b.logger.With(zap.Int64("chat_id", chatID))

	s := &session{
		chatID: chatID,
		pocket: pocket.Open(ctx, b.opts.Storage, scope, b.opts.Catalog, b.opts.Destination, logger),
	}

	var debouncer *refiner.Debouncer
	if b.opts.AutoRefine && b.opts.Assistant != nil {
		debouncer = refiner.NewDebouncer(b.opts.QuietPeriod)
	}
	draft := storage.NewCell(ctx, b.opts.Storage, scope, wizard.DraftKey, models.ProjectDraft{}, logger)

	// Both callbacks run inside wizard calls made with s.mu held.
	s.wizard = wizard.New(draft, b.opts.Catalog, b.opts.Assistant, debouncer, wizard.Callbacks{
		Complete: func(d models.ProjectDraft) error {
			if _, err := s.pocket.AddDraft(d); err != nil {
				return err
			}
			s.view = viewPocket
			return nil
		},
		BackHome: func() {
			if s.pocket.Len() > 0 {
				s.view = viewPocket
				return
			}
			s.view = viewHome
		},
	}, logger)
	return s
}

// escapeMarkdown escapes every character MarkdownV2 reserves.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// sendView sends MarkdownV2 text with an optional inline keyboard.
func (b *Bot) sendView(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send view",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// answerCallback acknowledges a button press, optionally with a toast.
func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}
