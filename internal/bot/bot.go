package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/itabot/internal/ai"
	"github.com/example/itabot/internal/analytics"
	"github.com/example/itabot/internal/database"
	"github.com/example/itabot/internal/testsession"
)

// Per-chat input states.
const (
	stateAddingWords      = "adding_words"
	stateAwaitingImport   = "awaiting_import"
	stateAwaitingWorkbook = "awaiting_workbook"
)

// userState tracks what free-form input a chat is expected to send next
type userState struct {
	State     string
	Mode      string
	Timestamp time.Time
}

// quizState is one running test plus the moment the current question
// was shown, used to time the answer.
type quizState struct {
	Session *testsession.Session
	AskedAt time.Time
	Hinted  bool
}

// Bot represents the Telegram bot application
type Bot struct {
	api       *tgbotapi.BotAPI
	token     string
	store     *database.Store
	engine    *analytics.Engine
	projector *analytics.Projector
	tests     *testsession.Module
	sentences *ai.Generator
	config    *BotConfig

	userStates map[int64]userState
	quizzes    map[int64]*quizState
	knownChats map[int64]bool
}

// New creates a new bot instance
func New(store *database.Store, engine *analytics.Engine, projector *analytics.Projector) (*Bot, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	if database.DB == nil {
		return nil, fmt.Errorf("database connection is not established")
	}

	var sentences *ai.Generator
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		sentences = ai.NewGenerator(key)
	}

	return &Bot{
		token:      token,
		store:      store,
		engine:     engine,
		projector:  projector,
		tests:      testsession.NewModule(store, engine, projector),
		sentences:  sentences,
		config:     DefaultConfig(),
		userStates: make(map[int64]userState),
		quizzes:    make(map[int64]*quizState),
		knownChats: make(map[int64]bool),
	}, nil
}

// Start connects to Telegram and processes updates until the context is
// cancelled
func (b *Bot) Start(ctx context.Context) error {
	botAPI, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("failed to create bot: %v", err)
	}
	b.api = botAPI
	log.Printf("Authorized on account %s", botAPI.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Println("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// KnownChats returns the chats that have talked to the bot since start,
// for scheduled reminders
func (b *Bot) KnownChats() []int64 {
	chats := make([]int64, 0, len(b.knownChats))
	for id := range b.knownChats {
		chats = append(chats, id)
	}
	return chats
}

// SendStreakReminder implements the scheduler notifier
func (b *Bot) SendStreakReminder(message string) {
	if b.api == nil {
		return
	}
	for _, chatID := range b.KnownChats() {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
			log.Printf("Error sending reminder to chat %d: %v", chatID, err)
		}
	}
}

// handleUpdate dispatches one incoming update
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}

	message := update.Message
	b.knownChats[message.Chat.ID] = true

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}
	if message.Document != nil {
		b.handleDocument(ctx, message)
		return
	}

	state, exists := b.userStates[message.Chat.ID]
	if exists && state.State == stateAddingWords {
		b.handleWordList(ctx, message)
		return
	}
	b.reply(message.Chat.ID, "I don't understand. Use /help to see the available commands.")
}

// handleCommand dispatches a slash command
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch message.Command() {
	case "start", "help":
		b.handleStart(chatID)
	case "add":
		b.handleAdd(chatID)
	case "cancel":
		delete(b.userStates, chatID)
		delete(b.quizzes, chatID)
		b.reply(chatID, "Cancelled.")
	case "words":
		b.handleWords(ctx, chatID)
	case "chapters":
		b.handleChapters(ctx, chatID)
	case "test":
		b.handleTest(ctx, chatID, message.CommandArguments())
	case "stats":
		b.handleStats(ctx, chatID)
	case "trends":
		b.handleTrends(ctx, chatID)
	case "review":
		b.handleReview(ctx, chatID)
	case "export":
		b.handleExport(ctx, chatID, message.CommandArguments())
	case "import":
		b.handleImport(chatID, message.CommandArguments())
	case "upload":
		b.userStates[chatID] = userState{State: stateAwaitingWorkbook, Timestamp: time.Now()}
		b.reply(chatID, "Send an .xlsx or .csv file with columns: English, Italian, Chapter, Group, Notes.")
	default:
		b.reply(chatID, "Unknown command. Use /help to see the available commands.")
	}
}

// handleStart handles the /start and /help commands
func (b *Bot) handleStart(chatID int64) {
	text := `Benvenuto! This bot helps you learn Italian vocabulary. 🇮🇹

Available commands:
/add - Add new words
/words - Show your word list
/chapters - List chapters
/test [count] [chapter] - Start a quiz
/stats - Show your statistics
/trends - Show learning trends
/review - Words due for review
/export - Download your data as JSON (/export excel for a workbook)
/import [merge|overwrite] - Restore data from a JSON export
/upload - Import words from an Excel or CSV file
/cancel - Cancel the current action`
	b.reply(chatID, text)
}

// reply sends a plain text message
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}

// replyMarkdown sends a Markdown-formatted message
func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}

// parseTestArgs reads the optional count and chapter from the /test
// command arguments
func (b *Bot) parseTestArgs(args string) (int, []string) {
	count := b.config.DefaultTestSize
	var chapters []string
	for _, field := range strings.Fields(args) {
		if n, err := strconv.Atoi(field); err == nil && n > 0 {
			count = n
			continue
		}
		chapters = append(chapters, field)
	}
	return count, chapters
}
