package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jongan69/coinlocker/internal/model"
)

// Fixed asset/method pair every deposit runs against.
const (
	DepositAsset  = "XXBT"
	DepositMethod = "Bitcoin Lightning"
)

// Exchange is the slice of the exchange client the deposit flow needs.
type Exchange interface {
	DepositAddress(ctx context.Context, asset, method string, createNew bool, amt decimal.Decimal) (string, error)
}

// Store is the slice of the database the deposit flow needs.
type Store interface {
	CreateTransaction(userID int64, amt decimal.Decimal, address string) (*model.Transaction, error)
	UpdateAutobuyAmount(telegramID int64, amt decimal.Decimal) error
}

// DepositService drives the lock-in use case: fresh address from the
// exchange, then an unconfirmed transaction record. Every failure is
// terminal for the single request; the user re-invokes the flow.
type DepositService struct {
	store    Store
	exchange Exchange
}

func NewDepositService(store Store, exchange Exchange) *DepositService {
	return &DepositService{store: store, exchange: exchange}
}

// CreateDeposit requests a custodial deposit address for amt and records
// the pending transaction. Nothing is persisted when the exchange call
// fails, so a retry later starts clean.
func (s *DepositService) CreateDeposit(ctx context.Context, user *model.User, amt decimal.Decimal) (string, error) {
	address, err := s.exchange.DepositAddress(ctx, DepositAsset, DepositMethod, true, amt)
	if err != nil {
		return "", fmt.Errorf("request deposit address: %w", err)
	}
	if _, err := s.store.CreateTransaction(user.TelegramID, amt, address); err != nil {
		return "", fmt.Errorf("record transaction: %w", err)
	}
	return address, nil
}

// SetAutobuy persists the standing lock-in quantity for a user.
func (s *DepositService) SetAutobuy(telegramID int64, amt decimal.Decimal) error {
	if err := s.store.UpdateAutobuyAmount(telegramID, amt); err != nil {
		return fmt.Errorf("save autobuy amount: %w", err)
	}
	return nil
}
