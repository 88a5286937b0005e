package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/allocator"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// WithdrawalService runs the request -> notice period -> admin decision
// lifecycle. Shares only move on approval: a pending request keeps its
// capital at risk in the pool.
type WithdrawalService struct {
	db          *pgxpool.Pool
	profiles    *repository.ProfileRepository
	investors   *repository.InvestorRepository
	cycles      *repository.CycleRepository
	deposits    *repository.DepositRepository
	withdrawals *repository.WithdrawalRepository
	shares      *repository.ShareRepository

	feeRate      decimal.Decimal
	noticePeriod time.Duration
}

func NewWithdrawalService(db *pgxpool.Pool, feeRate decimal.Decimal, noticePeriod time.Duration) *WithdrawalService {
	return &WithdrawalService{
		db:           db,
		profiles:     repository.NewProfileRepository(db),
		investors:    repository.NewInvestorRepository(db),
		cycles:       repository.NewCycleRepository(db),
		deposits:     repository.NewDepositRepository(db),
		withdrawals:  repository.NewWithdrawalRepository(db),
		shares:       repository.NewShareRepository(db),
		feeRate:      feeRate,
		noticePeriod: noticePeriod,
	}
}

// Request opens a pending withdrawal for the profile's investor. The amount
// must not exceed the investor's current net contribution in the active cycle.
func (s *WithdrawalService) Request(ctx context.Context, profileID int64, amount decimal.Decimal) (*domain.InvestorWithdrawal, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cycle, err := s.cycles.GetActiveForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, fmt.Errorf("%w: no active cycle", ErrNotFound)
	}

	investor, err := investorForUpdate(ctx, tx, profileID)
	if err != nil {
		return nil, err
	}
	if investor == nil {
		return nil, fmt.Errorf("%w: no contribution in the active cycle", ErrValidation)
	}

	books, err := loadBooks(ctx, tx, s.deposits, s.withdrawals, cycle.ID)
	if err != nil {
		return nil, err
	}
	contribution := books.Contributions[investor.ID]
	if amount.GreaterThan(contribution) {
		return nil, fmt.Errorf("%w: amount %s exceeds contribution %s",
			ErrValidation, amount.StringFixed(2), contribution.StringFixed(2))
	}

	withdrawal := &domain.InvestorWithdrawal{
		InvestorID:      investor.ID,
		CycleID:         cycle.ID,
		Amount:          amount,
		Status:          domain.WithdrawalStatusPending,
		NoticeExpiresAt: time.Now().Add(s.noticePeriod),
	}
	if err := s.withdrawals.CreateWithTx(ctx, tx, withdrawal); err != nil {
		return nil, err
	}

	// No share recomputation here: the contribution stays at risk until the
	// admin decides.
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// Decide applies a terminal admin decision to a pending withdrawal.
// Approval reduces the investor's counted contribution by the gross amount
// and reallocates every investor's share.
func (s *WithdrawalService) Decide(ctx context.Context, adminProfileID, withdrawalID int64, action domain.WithdrawalAction, notes string) (*domain.InvestorWithdrawal, error) {
	if action != domain.WithdrawalActionApprove && action != domain.WithdrawalActionReject {
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}

	admin, err := s.profiles.GetByID(ctx, adminProfileID)
	if err != nil {
		return nil, err
	}
	if admin == nil || !admin.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cycle, err := s.cycles.GetActiveForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, fmt.Errorf("%w: no active cycle", ErrNotFound)
	}

	withdrawal, err := s.withdrawals.GetByIDForUpdate(ctx, tx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal == nil || withdrawal.Status.Terminal() {
		return nil, fmt.Errorf("%w: withdrawal %d", ErrNotFound, withdrawalID)
	}

	switch action {
	case domain.WithdrawalActionReject:
		withdrawal.Status = domain.WithdrawalStatusRejected
		withdrawal.AdminNotes = notes
		if err := s.withdrawals.DecideWithTx(ctx, tx, withdrawal); err != nil {
			return nil, err
		}

	case domain.WithdrawalActionApprove:
		if withdrawal.CycleID != cycle.ID {
			return nil, fmt.Errorf("%w: withdrawal belongs to a settled cycle", ErrConflict)
		}

		now := time.Now()
		one := decimal.NewFromInt(1)
		withdrawal.Status = domain.WithdrawalStatusApproved
		withdrawal.NetAmount = withdrawal.Amount.Mul(one.Sub(s.feeRate)).Round(allocator.Scale)
		withdrawal.FulfilledAt = &now
		withdrawal.AdminNotes = notes
		if err := s.withdrawals.DecideWithTx(ctx, tx, withdrawal); err != nil {
			return nil, err
		}

		// Percentages are relative, so everyone's share moves, not just the
		// withdrawing investor's.
		if _, err := recomputeShares(ctx, tx, s.deposits, s.withdrawals, s.shares, cycle.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// ListByProfile returns the profile's withdrawal history.
func (s *WithdrawalService) ListByProfile(ctx context.Context, profileID int64, limit int) ([]domain.InvestorWithdrawal, error) {
	investor, err := s.investors.GetByProfileID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if investor == nil {
		return nil, nil
	}
	return s.withdrawals.ListByInvestor(ctx, investor.ID, limit)
}

// ListPending returns the admin decision queue.
func (s *WithdrawalService) ListPending(ctx context.Context, adminProfileID int64) ([]domain.InvestorWithdrawal, error) {
	admin, err := s.profiles.GetByID(ctx, adminProfileID)
	if err != nil {
		return nil, err
	}
	if admin == nil || !admin.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	return s.withdrawals.ListPending(ctx)
}
