package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jongan69/coinlocker/internal/custody"
	"github.com/jongan69/coinlocker/internal/database"
	"github.com/jongan69/coinlocker/internal/service"
)

// sender is the slice of tgbotapi.BotAPI the handlers use to reply.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service runs the Telegram long-polling loop and owns the per-user
// conversation state.
type Service struct {
	api      *tgbotapi.BotAPI
	out      sender
	db       *database.Database
	deposits *service.DepositService
	custody  *custody.Client
	router   *router
}

func New(token string, db *database.Database, deposits *service.DepositService, cust *custody.Client) (*Service, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)

	return &Service{
		api:      api,
		out:      api,
		db:       db,
		deposits: deposits,
		custody:  cust,
		router:   newRouter(),
	}, nil
}

// Run consumes updates until ctx is cancelled. Each update is handled on
// its own goroutine; events for the same user are serialized by the
// router's per-user lock so two messages cannot race on the prompt slot.
func (s *Service) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := s.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			go s.handleUpdate(ctx, update)
		}
	}
}

func (s *Service) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		lock := s.router.userLock(update.Message.From.ID)
		lock.Lock()
		defer lock.Unlock()
		s.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		lock := s.router.userLock(update.CallbackQuery.From.ID)
		lock.Lock()
		defer lock.Unlock()
		s.handleCallback(ctx, update.CallbackQuery)
	}
}

func (s *Service) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		s.handleCommand(ctx, message, strings.Fields(text)[0])
		return
	}
	s.handleText(ctx, message.Chat.ID, message.From, text)
}

func (s *Service) handleCommand(ctx context.Context, message *tgbotapi.Message, command string) {
	switch command {
	case "/start":
		s.handleStart(ctx, message.Chat.ID, message.From)
	case "/menu":
		s.handleMenu(message.Chat.ID, message.From)
	default:
		s.reply(message.Chat.ID, "Unknown command. Use /menu to see available options.")
	}
}

func (s *Service) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := s.out.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("answer callback: %v", err)
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	switch query.Data {
	case "lockin":
		s.handleLockin(ctx, chatID, query.From)
	case "autobuy_settings":
		s.handleAutobuySettings(chatID, query.From)
	case "export_key":
		s.handleExportKey(ctx, chatID, query.From)
	}
}

func (s *Service) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := s.out.Send(msg); err != nil {
		log.Printf("send message to chat %d: %v", chatID, err)
	}
}

func (s *Service) replyHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.out.Send(msg); err != nil {
		log.Printf("send message to chat %d: %v", chatID, err)
	}
}
