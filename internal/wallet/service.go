package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/eventbus"
	"github.com/ecopool/carpool/pkg/logger"
	"github.com/ecopool/carpool/pkg/models"
)

const defaultCurrency = "USD"

// Service owns the wallet ledger: every balance-affecting event appends
// exactly one transaction, and balances move only inside the repository
// transaction that appends it.
type Service struct {
	repo RepositoryInterface
	bus  EventPublisher
}

// NewService creates a new wallet service. bus is optional.
func NewService(repo RepositoryInterface, bus EventPublisher) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) publish(ctx context.Context, subject string, data interface{}) {
	if s.bus == nil {
		return
	}
	event, err := eventbus.NewEvent(subject, "wallet", data)
	if err != nil {
		logger.WithContext(ctx).Warn("failed to build event",
			zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, subject, event); err != nil {
		logger.WithContext(ctx).Warn("failed to publish event",
			zap.String("subject", subject), zap.Error(err))
	}
}

// GetWallet returns the caller's wallet, creating it on first use.
func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return s.repo.GetOrCreateWallet(ctx, userID)
}

// TopUp credits the wallet immediately. No external gateway is in scope, so
// the entry is completed on creation.
func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, req *models.TopUpRequest) (*models.Transaction, *models.Wallet, error) {
	if _, err := s.repo.GetOrCreateWallet(ctx, userID); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	txn := &models.Transaction{
		ID:            uuid.New(),
		ReceiverID:    &userID,
		Amount:        req.Amount,
		Currency:      defaultCurrency,
		Type:          models.TransactionTypeWalletTopup,
		PaymentMethod: models.PaymentMethodCard,
		Status:        models.TransactionStatusCompleted,
		Description:   "wallet top-up",
		CompletedAt:   &now,
	}

	wallet, err := s.repo.TopUp(ctx, txn)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, eventbus.SubjectWalletToppedUp, eventbus.WalletToppedUpData{
		TransactionID: txn.ID,
		UserID:        userID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		NewBalance:    wallet.Balance,
		CompletedAt:   now,
	})

	return txn, wallet, nil
}

// Withdraw debits the wallet up front and records a pending entry; external
// settlement confirms it later. The pessimistic debit means the same funds
// can't back two withdrawals.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, req *models.WithdrawRequest) (*models.Transaction, *models.Wallet, error) {
	if _, err := s.repo.GetOrCreateWallet(ctx, userID); err != nil {
		return nil, nil, err
	}

	txn := &models.Transaction{
		ID:            uuid.New(),
		SenderID:      &userID,
		Amount:        req.Amount,
		Currency:      defaultCurrency,
		Type:          models.TransactionTypeWalletWithdrawal,
		PaymentMethod: models.PaymentMethodCard,
		Status:        models.TransactionStatusPending,
		Description:   "wallet withdrawal",
	}

	wallet, err := s.repo.Withdraw(ctx, txn)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, eventbus.SubjectWalletWithdrawn, eventbus.WalletWithdrawnData{
		TransactionID: txn.ID,
		UserID:        userID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		NewBalance:    wallet.Balance,
		CompletedAt:   time.Now().UTC(),
	})

	return txn, wallet, nil
}

// PayForRide settles the caller's fare. Wallet payments move money and mark
// the fare paid in one atomic unit; cash and card payments record a pending
// entry and wait for CompletePayment.
func (s *Service) PayForRide(ctx context.Context, payerID uuid.UUID, req *models.RidePaymentRequest) (*models.Transaction, error) {
	fare, err := s.repo.GetPassengerFare(ctx, req.RideID, payerID)
	if err != nil {
		return nil, err
	}
	if fare.Status != models.PassengerStatusAccepted {
		return nil, common.NewInvalidStateError("only accepted passengers can pay for a ride")
	}
	if fare.FareStatus != models.FareStatusPending {
		return nil, common.NewInvalidStateError(
			fmt.Sprintf("fare is already %s", fare.FareStatus))
	}

	txn := &models.Transaction{
		ID:            uuid.New(),
		SenderID:      &payerID,
		ReceiverID:    &fare.DriverID,
		RideID:        &fare.RideID,
		Amount:        fare.Amount,
		Currency:      fare.Currency,
		Type:          models.TransactionTypeRidePayment,
		PaymentMethod: req.PaymentMethod,
		Description:   "ride fare",
	}

	if req.PaymentMethod == models.PaymentMethodWallet {
		if _, err := s.repo.GetOrCreateWallet(ctx, payerID); err != nil {
			return nil, err
		}
		if _, err := s.repo.GetOrCreateWallet(ctx, fare.DriverID); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		txn.Status = models.TransactionStatusCompleted
		txn.CompletedAt = &now
		if _, err := s.repo.PayWithWallet(ctx, txn, fare.EntryID); err != nil {
			return nil, err
		}
	} else {
		txn.Status = models.TransactionStatusPending
		if err := s.repo.CreatePendingPayment(ctx, txn); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, eventbus.SubjectPaymentProcessed, eventbus.PaymentProcessedData{
		TransactionID: txn.ID,
		RideID:        txn.RideID,
		SenderID:      payerID,
		ReceiverID:    fare.DriverID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Method:        string(txn.PaymentMethod),
		Status:        string(txn.Status),
		ProcessedAt:   time.Now().UTC(),
	})

	return txn, nil
}

// CompletePayment confirms an externally-settled ride payment. Only the
// receiving driver may confirm, and only while the entry is still pending.
func (s *Service) CompletePayment(ctx context.Context, actorID, txnID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.GetTransactionByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Type != models.TransactionTypeRidePayment {
		return nil, common.NewInvalidStateError("only ride payments can be completed")
	}
	if txn.ReceiverID == nil || *txn.ReceiverID != actorID {
		return nil, common.NewUnauthorizedError("only the payment's receiver can complete it")
	}

	if _, err := s.repo.GetOrCreateWallet(ctx, actorID); err != nil {
		return nil, err
	}

	// The pending guard is re-checked under the row lock; a concurrent
	// completion loses with InvalidState instead of double-crediting.
	completed, err := s.repo.CompleteRidePayment(ctx, txnID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.SubjectPaymentProcessed, eventbus.PaymentProcessedData{
		TransactionID: completed.ID,
		RideID:        completed.RideID,
		SenderID:      deref(completed.SenderID),
		ReceiverID:    deref(completed.ReceiverID),
		Amount:        completed.Amount,
		Currency:      completed.Currency,
		Method:        string(completed.PaymentMethod),
		Status:        string(completed.Status),
		ProcessedAt:   time.Now().UTC(),
	})

	return completed, nil
}

// RequestRefund opens a refund for a fare the caller already paid. It only
// creates the reverse pending entry; no balances move until settlement, and
// at most one refund may exist per fare.
func (s *Service) RequestRefund(ctx context.Context, payerID uuid.UUID, req *models.RefundRequest) (*models.Transaction, error) {
	original, err := s.repo.FindCompletedRidePayment(ctx, payerID, req.RideID)
	if err != nil {
		return nil, err
	}

	description := "fare refund"
	if req.Reason != "" {
		description = "fare refund: " + req.Reason
	}

	refund := &models.Transaction{
		ID:            uuid.New(),
		SenderID:      original.ReceiverID,
		ReceiverID:    original.SenderID,
		RideID:        original.RideID,
		Amount:        original.Amount,
		Currency:      original.Currency,
		Type:          models.TransactionTypeRefund,
		PaymentMethod: original.PaymentMethod,
		Status:        models.TransactionStatusPending,
		Description:   description,
	}

	if err := s.repo.CreateRefund(ctx, refund); err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.SubjectRefundRequested, eventbus.RefundRequestedData{
		TransactionID: refund.ID,
		OriginalID:    original.ID,
		RideID:        refund.RideID,
		SenderID:      deref(refund.SenderID),
		ReceiverID:    deref(refund.ReceiverID),
		Amount:        refund.Amount,
		Currency:      refund.Currency,
		RequestedAt:   time.Now().UTC(),
	})

	return refund, nil
}

// CompleteRefund settles a pending refund. Only the driver giving the money
// back may confirm, under the same pending guard as payment completion.
func (s *Service) CompleteRefund(ctx context.Context, actorID, txnID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.GetTransactionByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Type != models.TransactionTypeRefund {
		return nil, common.NewInvalidStateError("only refunds can be settled here")
	}
	if txn.SenderID == nil || *txn.SenderID != actorID {
		return nil, common.NewUnauthorizedError("only the refund's sender can settle it")
	}

	if _, err := s.repo.GetOrCreateWallet(ctx, actorID); err != nil {
		return nil, err
	}
	if txn.ReceiverID != nil {
		if _, err := s.repo.GetOrCreateWallet(ctx, *txn.ReceiverID); err != nil {
			return nil, err
		}
	}

	completed, err := s.repo.CompleteRefund(ctx, txnID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.SubjectRefundCompleted, eventbus.RefundCompletedData{
		TransactionID: completed.ID,
		RideID:        completed.RideID,
		SenderID:      deref(completed.SenderID),
		ReceiverID:    deref(completed.ReceiverID),
		Amount:        completed.Amount,
		Currency:      completed.Currency,
		CompletedAt:   time.Now().UTC(),
	})

	return completed, nil
}

// ListTransactions returns the caller's ledger history.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Transaction, int64, error) {
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

func deref(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
