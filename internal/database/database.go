package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jongan69/coinlocker/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Database represents a connection to the SQLite database
type Database struct {
	db *sql.DB
}

// New creates a new Database instance and initializes the schema
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("error creating tables: %v", err)
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id INTEGER PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			api_key TEXT NOT NULL DEFAULT '',
			total_deposit TEXT NOT NULL DEFAULT '0',
			lockin_total TEXT NOT NULL DEFAULT '0',
			autobuy_amount TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			amount TEXT NOT NULL,
			address TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'unconfirmed',
			created_at INTEGER NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(telegram_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_address ON transactions(address)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// CreateUser inserts a new user row with zeroed totals
func (d *Database) CreateUser(telegramID int64, username, firstName, lastName string) (*model.User, error) {
	_, err := d.db.Exec(
		`INSERT INTO users (telegram_id, username, first_name, last_name) VALUES (?, ?, ?, ?)`,
		telegramID, username, firstName, lastName,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %v", err)
	}
	return d.GetUser(telegramID)
}

// GetUser returns a user by telegram id. Returns sql.ErrNoRows when the
// user has never registered.
func (d *Database) GetUser(telegramID int64) (*model.User, error) {
	row := d.db.QueryRow(
		`SELECT telegram_id, username, first_name, last_name, api_key,
		        total_deposit, lockin_total, autobuy_amount
		 FROM users WHERE telegram_id = ?`, telegramID,
	)

	var u model.User
	var totalDeposit, lockinTotal string
	var autobuy sql.NullString
	err := row.Scan(&u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.APIKey, &totalDeposit, &lockinTotal, &autobuy)
	if err != nil {
		return nil, err
	}

	if u.TotalDeposit, err = decimal.NewFromString(totalDeposit); err != nil {
		return nil, fmt.Errorf("error parsing total_deposit: %v", err)
	}
	if u.LockinTotal, err = decimal.NewFromString(lockinTotal); err != nil {
		return nil, fmt.Errorf("error parsing lockin_total: %v", err)
	}
	if autobuy.Valid {
		amt, err := decimal.NewFromString(autobuy.String)
		if err != nil {
			return nil, fmt.Errorf("error parsing autobuy_amount: %v", err)
		}
		u.Autobuy = &amt
	}
	return &u, nil
}

// SetUserAPIKey stores the key-custody credential reference for a user
func (d *Database) SetUserAPIKey(telegramID int64, apiKey string) error {
	res, err := d.db.Exec(`UPDATE users SET api_key = ? WHERE telegram_id = ?`, apiKey, telegramID)
	if err != nil {
		return fmt.Errorf("error updating api key: %v", err)
	}
	return requireRow(res)
}

// UpdateAutobuyAmount sets the standing lock-in quantity for a user
func (d *Database) UpdateAutobuyAmount(telegramID int64, amt decimal.Decimal) error {
	res, err := d.db.Exec(`UPDATE users SET autobuy_amount = ? WHERE telegram_id = ?`,
		amt.String(), telegramID)
	if err != nil {
		return fmt.Errorf("error updating autobuy amount: %v", err)
	}
	return requireRow(res)
}

// CreateTransaction records a pending deposit request as unconfirmed
func (d *Database) CreateTransaction(userID int64, amt decimal.Decimal, address string) (*model.Transaction, error) {
	now := time.Now()
	res, err := d.db.Exec(
		`INSERT INTO transactions (user_id, amount, address, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, amt.String(), address, model.TxStatusUnconfirmed, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating transaction: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("error getting transaction id: %v", err)
	}
	return &model.Transaction{
		ID:        id,
		UserID:    userID,
		Amount:    amt,
		Address:   address,
		Status:    model.TxStatusUnconfirmed,
		CreatedAt: now,
	}, nil
}

// GetTransactionByAddress returns the transaction recorded against a
// deposit address. Returns sql.ErrNoRows when the address is unknown.
func (d *Database) GetTransactionByAddress(address string) (*model.Transaction, error) {
	row := d.db.QueryRow(
		`SELECT id, user_id, amount, address, status, created_at
		 FROM transactions WHERE address = ?`, address,
	)

	var tx model.Transaction
	var amt string
	var createdAt int64
	err := row.Scan(&tx.ID, &tx.UserID, &amt, &tx.Address, &tx.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	if tx.Amount, err = decimal.NewFromString(amt); err != nil {
		return nil, fmt.Errorf("error parsing transaction amount: %v", err)
	}
	tx.CreatedAt = time.Unix(createdAt, 0)
	return &tx, nil
}

// MarkTransactionProcessed moves a transaction to its terminal status
func (d *Database) MarkTransactionProcessed(id int64) error {
	res, err := d.db.Exec(`UPDATE transactions SET status = ? WHERE id = ?`,
		model.TxStatusProcessed, id)
	if err != nil {
		return fmt.Errorf("error updating transaction status: %v", err)
	}
	return requireRow(res)
}

// AddDepositTotals bumps the cumulative deposit and lock-in totals for a
// user by the given amount. The arithmetic runs on exact decimals in Go;
// the columns only store the result.
func (d *Database) AddDepositTotals(telegramID int64, amt decimal.Decimal) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	var totalDeposit, lockinTotal string
	err = tx.QueryRow(`SELECT total_deposit, lockin_total FROM users WHERE telegram_id = ?`,
		telegramID).Scan(&totalDeposit, &lockinTotal)
	if err != nil {
		return err
	}
	total, err := decimal.NewFromString(totalDeposit)
	if err != nil {
		return fmt.Errorf("error parsing total_deposit: %v", err)
	}
	lockin, err := decimal.NewFromString(lockinTotal)
	if err != nil {
		return fmt.Errorf("error parsing lockin_total: %v", err)
	}

	_, err = tx.Exec(`UPDATE users SET total_deposit = ?, lockin_total = ? WHERE telegram_id = ?`,
		total.Add(amt).String(), lockin.Add(amt).String(), telegramID)
	if err != nil {
		return fmt.Errorf("error updating totals: %v", err)
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking affected rows: %v", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
