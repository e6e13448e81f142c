package poller

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jongan69/coinlocker/internal/database"
	"github.com/jongan69/coinlocker/internal/kraken"
	"github.com/jongan69/coinlocker/internal/model"
	"github.com/jongan69/coinlocker/internal/service"
)

// settled is the exchange-side status of a finished deposit.
const settled = "Success"

// Exchange is the slice of the exchange client the poller needs.
type Exchange interface {
	DepositStatus(ctx context.Context, asset, method string) ([]kraken.Deposit, error)
}

// Poller reconciles recorded transactions against the exchange's deposit
// listing: a settled deposit on a known address marks the transaction
// processed and bumps the owner's cumulative totals.
type Poller struct {
	db       *database.Database
	exchange Exchange
	interval time.Duration
}

func New(db *database.Database, exchange Exchange, interval time.Duration) *Poller {
	return &Poller{db: db, exchange: exchange, interval: interval}
}

// Run polls on a fixed interval until ctx is cancelled. A failed cycle is
// logged and the next one runs as scheduled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				log.Printf("poll deposits: %v", err)
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	deposits, err := p.exchange.DepositStatus(ctx, service.DepositAsset, service.DepositMethod)
	if err != nil {
		return fmt.Errorf("fetch deposit status: %w", err)
	}

	for _, d := range deposits {
		if d.Status != settled {
			continue
		}
		tx, err := p.db.GetTransactionByAddress(d.Info)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			log.Printf("look up transaction for address %s: %v", d.Info, err)
			continue
		}
		if tx.Status != model.TxStatusUnconfirmed {
			continue
		}

		amt, err := decimal.NewFromString(d.Amount)
		if err != nil {
			log.Printf("parse settled amount %q for address %s: %v", d.Amount, d.Info, err)
			continue
		}
		if err := p.db.MarkTransactionProcessed(tx.ID); err != nil {
			log.Printf("mark transaction %d processed: %v", tx.ID, err)
			continue
		}
		if err := p.db.AddDepositTotals(tx.UserID, amt); err != nil {
			log.Printf("update totals for user %d: %v", tx.UserID, err)
			continue
		}
		log.Printf("settled deposit of %s for user %d (address %s)", amt, tx.UserID, d.Info)
	}
	return nil
}
