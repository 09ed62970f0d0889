package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"joke-plugin/internal/app"
	"joke-plugin/internal/config"
	"joke-plugin/internal/models"
	"joke-plugin/internal/queue"
	"joke-plugin/pkg/logger"

	"gopkg.in/telebot.v4"
)

var (
	ErrEmptyToken  = errors.New("telegram bot token is required")
	ErrRateLimited = errors.New("telegram rate limited")
)

const requestTimeout = 30 * time.Second

type UserStore interface {
	Upsert(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int, error)
}

type UsageStats interface {
	Count(ctx context.Context) (int, error)
	CountByMode(ctx context.Context, mode models.SelectionMode) (int, error)
	CountFallback(ctx context.Context) (int, error)
}

type Outbox interface {
	PublishTelegramMessage(ctx context.Context, msg *queue.TelegramMessage) error
	ConsumeTelegramMessages(ctx context.Context, handler func(*queue.TelegramMessage) error) error
}

type Bot struct {
	cfg      config.BotConfig
	settings telebot.Settings
	ctrl     *app.Controller
	sessions *app.Sessions
	designs  Designs
	users    UserStore
	usage    UsageStats
	outbox   Outbox
	tbot     *telebot.Bot
	ctx      context.Context
}

type Option func(*Bot)

func WithUsers(u UserStore) Option {
	return func(b *Bot) {
		b.users = u
	}
}

func WithUsageStats(s UsageStats) Option {
	return func(b *Bot) {
		b.usage = s
	}
}

func WithOutbox(o Outbox) Option {
	return func(b *Bot) {
		b.outbox = o
	}
}

func New(cfg config.BotConfig, ctrl *app.Controller, sessions *app.Sessions, designs Designs, opts ...Option) (*Bot, error) {
	if cfg.Token == "" {
		return nil, ErrEmptyToken
	}

	b := &Bot{
		cfg:      cfg,
		ctrl:     ctrl,
		sessions: sessions,
		designs:  designs,
		ctx:      context.Background(),
		settings: telebot.Settings{
			Token:  cfg.Token,
			Poller: &telebot.LongPoller{Timeout: cfg.PollTimeout},
		},
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Start connects to Telegram and begins polling. ctx bounds the outbox
// consumer and every handler.
func (b *Bot) Start(ctx context.Context) (*telebot.Bot, error) {
	tbot, err := telebot.NewBot(b.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.ctx = ctx
	b.tbot = tbot
	b.setupHandlers(tbot)

	b.startOutboxConsumer(ctx)

	go tbot.Start()

	return tbot, nil
}

var (
	modeButton  = telebot.Btn{Unique: "mode"}
	reuseButton = telebot.Btn{Unique: "reuse"}
)

func (b *Bot) setupHandlers(bot *telebot.Bot) {
	bot.Handle(telebot.OnText, func(c telebot.Context) error {
		logger.Debug("Incoming text message",
			logger.Int64("user_id", c.Sender().ID),
			logger.String("username", c.Sender().Username),
		)
		return b.reply(c, "Use /joke to get a joke, or /help for all commands.")
	})

	bot.Handle("/start", b.handleStart)
	bot.Handle("/help", func(c telebot.Context) error {
		return b.reply(c, app.Instructions+"\n\n"+helpText)
	})
	bot.Handle("/mode", b.handleMode)
	bot.Handle("/joke", b.withContext(func(ctx context.Context, c telebot.Context) error {
		return b.reply(c, b.runJoke(ctx, c.Chat().ID))
	}))
	bot.Handle("/text", b.withContext(func(ctx context.Context, c telebot.Context) error {
		return b.reply(c, b.addText(ctx, c.Chat().ID, c.Message().Payload))
	}))
	bot.Handle("/design", b.withContext(func(ctx context.Context, c telebot.Context) error {
		return b.reply(c, b.listDesign(ctx, c.Chat().ID))
	}))
	bot.Handle("/select", b.withContext(func(ctx context.Context, c telebot.Context) error {
		return b.reply(c, b.selectElements(ctx, c.Chat().ID, c.Args()))
	}))
	bot.Handle("/unselect", b.withContext(func(ctx context.Context, c telebot.Context) error {
		return b.reply(c, b.unselect(ctx, c.Chat().ID))
	}))
	bot.Handle("/history", b.handleHistory)
	bot.Handle("/reuse", b.withContext(func(ctx context.Context, c telebot.Context) error {
		return b.reply(c, b.reuseJoke(ctx, c.Chat().ID, c.Message().Payload))
	}))
	bot.Handle("/clear", func(c telebot.Context) error {
		return b.reply(c, b.clearHistory(c.Chat().ID))
	})
	bot.Handle("/status", b.withContext(func(ctx context.Context, c telebot.Context) error {
		return b.reply(c, b.status(ctx, c.Chat().ID))
	}))
	bot.Handle("/stats", b.withContext(func(ctx context.Context, c telebot.Context) error {
		return b.reply(c, b.stats(ctx))
	}))

	bot.Handle(&modeButton, func(c telebot.Context) error {
		msg := b.setMode(c.Chat().ID, c.Callback().Data)
		if err := c.Respond(&telebot.CallbackResponse{Text: msg}); err != nil {
			logger.Warn("Failed to answer callback", logger.Err(err))
		}
		return c.Edit(msg, modeKeyboard(b.sessions.Get(c.Chat().ID).Mode()))
	})

	bot.Handle(&reuseButton, b.withContext(func(ctx context.Context, c telebot.Context) error {
		if err := c.Respond(); err != nil {
			logger.Warn("Failed to answer callback", logger.Err(err))
		}
		return b.reply(c, b.reuseJokeByID(ctx, c.Chat().ID, c.Callback().Data))
	}))
}

func (b *Bot) withContext(h func(ctx context.Context, c telebot.Context) error) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(b.ctx, requestTimeout)
		defer cancel()
		return h(ctx, c)
	}
}

func (b *Bot) handleStart(c telebot.Context) error {
	if b.users != nil {
		user := &models.User{
			TelegramID: c.Sender().ID,
			Username:   c.Sender().Username,
			FirstName:  c.Sender().FirstName,
			LastName:   c.Sender().LastName,
		}

		ctx, cancel := context.WithTimeout(b.ctx, requestTimeout)
		defer cancel()
		if err := b.users.Upsert(ctx, user); err != nil {
			logger.Error("Failed to save user", logger.Err(err))
		}
	}

	return b.reply(c, welcomeText())
}

func (b *Bot) handleMode(c telebot.Context) error {
	if c.Message().Payload != "" {
		return b.reply(c, b.setMode(c.Chat().ID, c.Message().Payload))
	}

	mode := b.sessions.Get(c.Chat().ID).Mode()
	return c.Send("Select A Mode:", modeKeyboard(mode))
}

func (b *Bot) handleHistory(c telebot.Context) error {
	text, visible := b.toggleHistory(c.Chat().ID)
	if !visible {
		return b.reply(c, text)
	}
	return c.Send(text, historyKeyboard(b.sessions.Get(c.Chat().ID).Jokes()))
}

func modeKeyboard(current models.SelectionMode) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, 2)
	for _, mode := range []models.SelectionMode{models.ModeAdd, models.ModeReplace} {
		label := app.ModeLabel(mode)
		if mode == current {
			label = "» " + label
		}
		rows = append(rows, markup.Row(markup.Data(label, modeButton.Unique, string(mode))))
	}
	markup.Inline(rows...)
	return markup
}

// historyKeyboard labels buttons by position and binds each to its record id.
func historyKeyboard(jokes []models.JokeRecord) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	btns := make([]telebot.Btn, 0, len(jokes))
	for i, rec := range jokes {
		btns = append(btns, markup.Data(strconv.Itoa(i+1), reuseButton.Unique, rec.ID))
	}
	markup.Inline(markup.Split(5, btns)...)
	return markup
}

func (b *Bot) startOutboxConsumer(ctx context.Context) {
	if b.outbox == nil {
		return
	}

	go func() {
		err := b.outbox.ConsumeTelegramMessages(ctx, func(msg *queue.TelegramMessage) error {
			return outboxError(b.sendMessageWithRetry(msg.ChatID, msg.Text))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Telegram consumer error", logger.Err(err))
		}
	}()
}

// outboxError keeps rate limiting retryable and marks every other send
// failure, such as a blocked bot, as undeliverable.
func outboxError(err error) error {
	if err == nil || errors.Is(err, ErrRateLimited) {
		return err
	}
	return fmt.Errorf("%w: %w", queue.ErrUndeliverable, err)
}

func (b *Bot) reply(c telebot.Context, text string) error {
	return b.queueOrSend(c.Chat().ID, text)
}

func (b *Bot) queueOrSend(chatID int64, text string) error {
	if b.outbox != nil {
		msg := &queue.TelegramMessage{
			ChatID: chatID,
			Text:   text,
		}
		err := b.outbox.PublishTelegramMessage(b.ctx, msg)
		if err == nil {
			return nil
		}
		logger.Error("Failed to queue telegram message, sending directly", logger.Err(err))
	}

	return b.sendMessageWithRetry(chatID, text)
}

func (b *Bot) sendMessageWithRetry(chatID int64, text string) error {
	maxRetries := b.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	retryDelay := time.Second

	for i := 0; i < maxRetries; i++ {
		_, err := b.tbot.Send(&telebot.Chat{ID: chatID}, text)
		if err == nil {
			return nil
		}

		if !isRateLimited(err) {
			return fmt.Errorf("failed to send message: %w", err)
		}

		delay := retryDelay
		if after := retryAfter(err); after > 0 {
			delay = after
		}

		logger.Warn("Rate limited, retrying...",
			logger.Int("retry", i+1),
			logger.Int("max_retries", maxRetries),
			logger.Duration("delay", delay),
		)
		time.Sleep(delay)
		retryDelay *= 2
	}

	return ErrRateLimited
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Too Many Requests") || strings.Contains(msg, "retry after")
}

// retryAfter extracts the wait from "Too Many Requests: retry after N".
func retryAfter(err error) time.Duration {
	msg := err.Error()
	i := strings.LastIndex(msg, "retry after ")
	if i < 0 {
		return 0
	}
	fields := strings.Fields(msg[i+len("retry after "):])
	if len(fields) == 0 {
		return 0
	}
	secs, convErr := strconv.Atoi(strings.Trim(fields[0], ")."))
	if convErr != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
