package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/database"
	"github.com/ecopool/carpool/pkg/models"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const transactionColumns = `
	id, sender_id, receiver_id, ride_id, amount, currency, type,
	payment_method, status, description, completed_at, created_at`

// GetOrCreateWallet returns the user's wallet, creating an empty one on
// first touch.
func (r *Repository) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO wallets (id, user_id, balance, currency, is_active)
		VALUES ($1, $2, 0, 'USD', true)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, balance, currency, is_active, created_at, updated_at`,
		uuid.New(), userID,
	).Scan(
		&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.Currency,
		&wallet.IsActive, &wallet.CreatedAt, &wallet.UpdatedAt,
	)
	if err != nil {
		return nil, common.NewInternalError("failed to get wallet", err)
	}
	return wallet, nil
}

// lockWallet loads the wallet row FOR UPDATE, serializing all balance
// mutations for that user.
func lockWallet(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, balance, currency, is_active, created_at, updated_at
		FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(
		&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.Currency,
		&wallet.IsActive, &wallet.CreatedAt, &wallet.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("wallet not found")
		}
		return nil, common.NewInternalError("failed to lock wallet", err)
	}
	return wallet, nil
}

// lockWallets locks both wallets in user-id order so concurrent payments
// between the same pair cannot deadlock.
func lockWallets(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) (first, second *models.Wallet, err error) {
	ids := []uuid.UUID{a, b}
	if strings.Compare(a.String(), b.String()) > 0 {
		ids[0], ids[1] = b, a
	}

	byUser := make(map[uuid.UUID]*models.Wallet, 2)
	for _, id := range ids {
		w, err := lockWallet(ctx, tx, id)
		if err != nil {
			return nil, nil, err
		}
		byUser[id] = w
	}
	return byUser[a], byUser[b], nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, txn *models.Transaction) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (
			id, sender_id, receiver_id, ride_id, amount, currency, type,
			payment_method, status, description, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		txn.ID, txn.SenderID, txn.ReceiverID, txn.RideID, txn.Amount,
		txn.Currency, txn.Type, txn.PaymentMethod, txn.Status,
		txn.Description, txn.CompletedAt,
	).Scan(&txn.CreatedAt)
	if err != nil {
		return common.NewInternalError("failed to create transaction", err)
	}
	return nil
}

func adjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1`,
		walletID, delta,
	)
	if err != nil {
		return common.NewInternalError("failed to update wallet balance", err)
	}
	return nil
}

// TopUp appends a completed credit and raises the balance in one transaction.
func (r *Repository) TopUp(ctx context.Context, txn *models.Transaction) (*models.Wallet, error) {
	var wallet *models.Wallet

	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		w, err := lockWallet(ctx, tx, *txn.ReceiverID)
		if err != nil {
			return err
		}
		if err := insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, w.ID, txn.Amount); err != nil {
			return err
		}
		w.Balance += txn.Amount
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// Withdraw debits immediately and records a pending entry. Debit-on-request
// means the funds can't be withdrawn twice while settlement is in flight.
func (r *Repository) Withdraw(ctx context.Context, txn *models.Transaction) (*models.Wallet, error) {
	var wallet *models.Wallet

	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		w, err := lockWallet(ctx, tx, *txn.SenderID)
		if err != nil {
			return err
		}
		if w.Balance < txn.Amount {
			return common.NewInsufficientFundsError("insufficient balance for withdrawal")
		}
		if err := insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, w.ID, -txn.Amount); err != nil {
			return err
		}
		w.Balance -= txn.Amount
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// PayWithWallet settles a fare entirely in-app: debit the payer, credit the
// driver, append the completed entry and mark the fare paid, atomically.
func (r *Repository) PayWithWallet(ctx context.Context, txn *models.Transaction, entryID uuid.UUID) (*models.Wallet, error) {
	var wallet *models.Wallet

	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		payer, driver, err := lockWallets(ctx, tx, *txn.SenderID, *txn.ReceiverID)
		if err != nil {
			return err
		}
		if payer.Balance < txn.Amount {
			return common.NewInsufficientFundsError("insufficient balance for ride payment")
		}
		if err := insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, payer.ID, -txn.Amount); err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, driver.ID, txn.Amount); err != nil {
			return err
		}
		if err := setFareStatus(ctx, tx, entryID, models.FareStatusPaid); err != nil {
			return err
		}
		payer.Balance -= txn.Amount
		wallet = payer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// CreatePendingPayment records an externally-settled payment. No balance
// moves until the completion step confirms it.
func (r *Repository) CreatePendingPayment(ctx context.Context, txn *models.Transaction) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return insertTransaction(ctx, tx, txn)
	})
}

// lockTransaction loads a ledger entry FOR UPDATE so the pending guard holds
// through commit.
func lockTransaction(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Transaction, error) {
	txn, err := scanTransaction(tx.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("transaction not found")
		}
		return nil, common.NewInternalError("failed to lock transaction", err)
	}
	return txn, nil
}

// CompleteRidePayment settles a pending externally-paid fare: the entry
// must still be pending, the driver is credited and the fare marked paid.
func (r *Repository) CompleteRidePayment(ctx context.Context, txnID uuid.UUID) (*models.Transaction, error) {
	var result *models.Transaction

	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		txn, err := lockTransaction(ctx, tx, txnID)
		if err != nil {
			return err
		}
		if txn.Status != models.TransactionStatusPending {
			return common.NewInvalidStateError("transaction is not pending")
		}

		driver, err := lockWallet(ctx, tx, *txn.ReceiverID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE transactions SET status = $2, completed_at = $3 WHERE id = $1`,
			txn.ID, models.TransactionStatusCompleted, now,
		); err != nil {
			return common.NewInternalError("failed to complete transaction", err)
		}
		if err := adjustBalance(ctx, tx, driver.ID, txn.Amount); err != nil {
			return err
		}
		if txn.RideID != nil && txn.SenderID != nil {
			if err := setFareStatusByRideUser(ctx, tx, *txn.RideID, *txn.SenderID, models.FareStatusPaid); err != nil {
				return err
			}
		}

		txn.Status = models.TransactionStatusCompleted
		txn.CompletedAt = &now
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateRefund appends a pending reverse entry. Balances stay put until the
// refund settles. At most one open refund may exist per fare, checked inside
// the same transaction that inserts the entry.
func (r *Repository) CreateRefund(ctx context.Context, txn *models.Transaction) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var open bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM transactions
				WHERE ride_id = $1 AND receiver_id = $2 AND type = $3
				  AND status IN ($4, $5)
			)`,
			txn.RideID, txn.ReceiverID, models.TransactionTypeRefund,
			models.TransactionStatusPending, models.TransactionStatusCompleted,
		).Scan(&open)
		if err != nil {
			return common.NewInternalError("failed to check for open refund", err)
		}
		if open {
			return common.NewConflictError("a refund already exists for this ride")
		}
		return insertTransaction(ctx, tx, txn)
	})
}

// CompleteRefund settles a pending refund under the same guard as payment
// completion: the refund must still be pending, the original payment still
// completed and the funds available; then the driver is debited, the payer
// credited and the original entry and fare marked refunded.
func (r *Repository) CompleteRefund(ctx context.Context, txnID uuid.UUID) (*models.Transaction, error) {
	var result *models.Transaction

	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		txn, err := lockTransaction(ctx, tx, txnID)
		if err != nil {
			return err
		}
		if txn.Status != models.TransactionStatusPending {
			return common.NewInvalidStateError("transaction is not pending")
		}

		driver, payer, err := lockWallets(ctx, tx, *txn.SenderID, *txn.ReceiverID)
		if err != nil {
			return err
		}
		if driver.Balance < txn.Amount {
			return common.NewInsufficientFundsError("insufficient balance to settle refund")
		}

		// Exactly one completed payment backs each settled refund. The flip
		// to refunded only matches a still-completed payment, so a second
		// pending refund for the same fare finds nothing to flip and fails
		// here instead of crediting the payer again.
		if txn.RideID != nil {
			tag, err := tx.Exec(ctx, `
				UPDATE transactions SET status = $4
				WHERE ride_id = $1 AND sender_id = $2 AND type = $3 AND status = 'completed'`,
				txn.RideID, txn.ReceiverID, models.TransactionTypeRidePayment,
				models.TransactionStatusRefunded,
			)
			if err != nil {
				return common.NewInternalError("failed to mark payment refunded", err)
			}
			if tag.RowsAffected() == 0 {
				return common.NewInvalidStateError("payment is already refunded")
			}
			if err := setFareStatusByRideUser(ctx, tx, *txn.RideID, *txn.ReceiverID, models.FareStatusRefunded); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE transactions SET status = $2, completed_at = $3 WHERE id = $1`,
			txn.ID, models.TransactionStatusCompleted, now,
		); err != nil {
			return common.NewInternalError("failed to complete refund", err)
		}
		if err := adjustBalance(ctx, tx, driver.ID, -txn.Amount); err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, payer.ID, txn.Amount); err != nil {
			return err
		}

		txn.Status = models.TransactionStatusCompleted
		txn.CompletedAt = &now
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func setFareStatus(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, status models.FareStatus) error {
	tag, err := tx.Exec(ctx,
		`UPDATE ride_passengers SET fare_status = $2 WHERE id = $1`, entryID, status)
	if err != nil {
		return common.NewInternalError("failed to update fare status", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("passenger entry not found")
	}
	return nil
}

func setFareStatusByRideUser(ctx context.Context, tx pgx.Tx, rideID, userID uuid.UUID, status models.FareStatus) error {
	_, err := tx.Exec(ctx,
		`UPDATE ride_passengers SET fare_status = $3 WHERE ride_id = $1 AND user_id = $2`,
		rideID, userID, status)
	if err != nil {
		return common.NewInternalError("failed to update fare status", err)
	}
	return nil
}

// GetTransactionByID retrieves a ledger entry.
func (r *Repository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	txn, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("transaction not found")
		}
		return nil, common.NewInternalError("failed to get transaction", err)
	}
	return txn, nil
}

// FindCompletedRidePayment returns the completed ride_payment the sender made
// for the ride, if one exists.
func (r *Repository) FindCompletedRidePayment(ctx context.Context, senderID, rideID uuid.UUID) (*models.Transaction, error) {
	txn, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE sender_id = $1 AND ride_id = $2 AND type = $3 AND status = $4
		 ORDER BY created_at DESC LIMIT 1`,
		senderID, rideID, models.TransactionTypeRidePayment, models.TransactionStatusCompleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("no completed payment for this ride")
		}
		return nil, common.NewInternalError("failed to find payment", err)
	}
	return txn, nil
}

// ListTransactions returns the user's ledger entries, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Transaction, int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE sender_id = $1 OR receiver_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list transactions", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, common.NewInternalError("failed to scan transaction", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, common.NewInternalError("failed to read transactions", err)
	}

	var total int64
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE sender_id = $1 OR receiver_id = $1`,
		userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to count transactions", err)
	}

	return txns, total, nil
}

// GetPassengerFare loads the fare facts the ledger needs for a ride payment.
func (r *Repository) GetPassengerFare(ctx context.Context, rideID, userID uuid.UUID) (*PassengerFare, error) {
	fare := &PassengerFare{}
	err := r.db.QueryRow(ctx, `
		SELECT p.id, p.ride_id, r.driver_id, p.user_id,
			p.fare_amount, p.fare_currency, p.fare_status, p.status
		FROM ride_passengers p
		JOIN rides r ON r.id = p.ride_id
		WHERE p.ride_id = $1 AND p.user_id = $2`,
		rideID, userID,
	).Scan(
		&fare.EntryID, &fare.RideID, &fare.DriverID, &fare.Passenger,
		&fare.Amount, &fare.Currency, &fare.FareStatus, &fare.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("no seat on this ride")
		}
		return nil, common.NewInternalError("failed to get fare", err)
	}
	return fare, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	txn := &models.Transaction{}
	err := row.Scan(
		&txn.ID, &txn.SenderID, &txn.ReceiverID, &txn.RideID, &txn.Amount,
		&txn.Currency, &txn.Type, &txn.PaymentMethod, &txn.Status,
		&txn.Description, &txn.CompletedAt, &txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return txn, nil
}
