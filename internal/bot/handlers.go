package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/jongan69/coinlocker/internal/amount"
	"github.com/jongan69/coinlocker/internal/kraken"
	"github.com/jongan69/coinlocker/internal/model"
)

const (
	msgNotRegistered  = "You are not registered. Please register first using /start."
	msgRetryLater     = "An error occurred. Please try again later."
	msgNavigationHint = "Please use the /menu to navigate the bot options."
	msgAmountRange    = "Invalid amount. Please enter an amount between 0.0001 and 1 BTC."
	msgAmountFormat   = "Invalid amount format. Please enter a numeric value."
)

func (s *Service) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	if _, err := s.db.GetUser(from.ID); err == nil {
		s.reply(chatID, "You are already registered. Use /menu to see more options.")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Printf("look up user %d: %v", from.ID, err)
		s.reply(chatID, msgRetryLater)
		return
	}

	if _, err := s.db.CreateUser(from.ID, from.UserName, from.FirstName, from.LastName); err != nil {
		log.Printf("create user %d: %v", from.ID, err)
		s.reply(chatID, "Registration failed. Please try again later.")
		return
	}

	apiKey, err := s.custody.Provision(ctx, from.ID)
	if err != nil {
		log.Printf("provision wallets for user %d: %v", from.ID, err)
		s.reply(chatID, "Registration failed. Please try again later.")
		return
	}
	if err := s.db.SetUserAPIKey(from.ID, apiKey); err != nil {
		log.Printf("store api key for user %d: %v", from.ID, err)
		s.reply(chatID, "Registration failed. Please try again later.")
		return
	}

	s.reply(chatID, "Registration successful! Use /menu to see more options.")
}

func (s *Service) handleMenu(chatID int64, from *tgbotapi.User) {
	user, ok := s.requireUser(chatID, from.ID)
	if !ok {
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Lockin", "lockin"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Export Key", "export_key"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Autobuy Settings", "autobuy_settings"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Welcome, %s!", user.Username))
	msg.ReplyMarkup = keyboard
	if _, err := s.out.Send(msg); err != nil {
		log.Printf("send menu to chat %d: %v", chatID, err)
	}
}

// handleLockin starts a one-time deposit. With a standing autobuy amount
// the stored quantity is used directly and no prompt is armed.
func (s *Service) handleLockin(ctx context.Context, chatID int64, from *tgbotapi.User) {
	user, ok := s.requireUser(chatID, from.ID)
	if !ok {
		return
	}

	if user.Autobuy != nil {
		s.createDeposit(ctx, chatID, user, *user.Autobuy)
		return
	}

	s.reply(chatID, "Please enter the amount of BTC you want to lock in (minimum 0.0001 BTC, maximum 1 BTC):")
	s.router.arm(from.ID, promptLockinAmount)
}

func (s *Service) handleAutobuySettings(chatID int64, from *tgbotapi.User) {
	if _, ok := s.requireUser(chatID, from.ID); !ok {
		return
	}
	s.reply(chatID, "Please enter the amount of BTC for Autobuy (minimum 0.0001 BTC, maximum 1 BTC):")
	s.router.arm(from.ID, promptAutobuyAmount)
}

func (s *Service) handleExportKey(ctx context.Context, chatID int64, from *tgbotapi.User) {
	user, ok := s.requireUser(chatID, from.ID)
	if !ok {
		return
	}
	if user.APIKey == "" {
		s.reply(chatID, "Failed to export key. Please try again later.")
		return
	}

	keys, err := s.custody.DecryptKeys(ctx, user.APIKey)
	if err != nil {
		log.Printf("decrypt keys for user %d: %v", from.ID, err)
		s.reply(chatID, "Failed to export key. Please try again later.")
		return
	}
	s.replyHTML(chatID, fmt.Sprintf("Your Solana Private Key:\n<code>%s</code>", keys.Solana.PrivateKey))
}

// handleText routes a free-text message through the prompt slot. The slot
// is consumed before any validation, so one prompt gets exactly one
// attempt regardless of outcome.
func (s *Service) handleText(ctx context.Context, chatID int64, from *tgbotapi.User, text string) {
	switch s.router.consume(from.ID) {
	case promptLockinAmount:
		amt, err := amount.Parse(text)
		if err != nil {
			s.replyAmountError(chatID, text, err)
			return
		}
		user, ok := s.requireUser(chatID, from.ID)
		if !ok {
			return
		}
		s.createDeposit(ctx, chatID, user, amt)

	case promptAutobuyAmount:
		amt, err := amount.Parse(text)
		if err != nil {
			s.replyAmountError(chatID, text, err)
			return
		}
		if _, ok := s.requireUser(chatID, from.ID); !ok {
			return
		}
		if err := s.deposits.SetAutobuy(from.ID, amt); err != nil {
			log.Printf("set autobuy for user %d: %v", from.ID, err)
			s.reply(chatID, msgRetryLater)
			return
		}
		s.reply(chatID, fmt.Sprintf("Autobuy amount set to %s BTC.", amt))

	default:
		s.reply(chatID, msgNavigationHint)
	}
}

func (s *Service) createDeposit(ctx context.Context, chatID int64, user *model.User, amt decimal.Decimal) {
	address, err := s.deposits.CreateDeposit(ctx, user, amt)
	if err != nil {
		var rejected *kraken.RejectedError
		if errors.As(err, &rejected) {
			log.Printf("deposit address rejected for user %d: %v", user.TelegramID, rejected.Reasons)
		} else {
			log.Printf("create deposit for user %d: %v", user.TelegramID, err)
		}
		s.reply(chatID, "Error generating deposit address. Please try again later.")
		return
	}

	s.replyHTML(chatID, fmt.Sprintf(
		"Transaction recorded.\nPlease send %s BTC to the following address:\n\n<code>%s</code>",
		amt, address))
}

func (s *Service) replyAmountError(chatID int64, text string, err error) {
	if errors.Is(err, amount.ErrOutOfRange) {
		s.reply(chatID, msgAmountRange)
		return
	}
	log.Printf("invalid amount format: %q", text)
	s.reply(chatID, msgAmountFormat)
}

// requireUser loads the user and handles the unregistered and storage
// failure replies. The second return is false when the caller should stop.
func (s *Service) requireUser(chatID, userID int64) (*model.User, bool) {
	user, err := s.db.GetUser(userID)
	if errors.Is(err, sql.ErrNoRows) {
		s.reply(chatID, msgNotRegistered)
		return nil, false
	}
	if err != nil {
		log.Printf("look up user %d: %v", userID, err)
		s.reply(chatID, msgRetryLater)
		return nil, false
	}
	return user, true
}
