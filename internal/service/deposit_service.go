package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/logger"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/notify"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DepositResult reports the depositor's position after reallocation.
type DepositResult struct {
	DepositID              int64           `json:"deposit_id"`
	CycleID                int64           `json:"cycle_id"`
	Amount                 decimal.Decimal `json:"amount"`
	SharePercentage        decimal.Decimal `json:"share_percentage"`
	TotalCycleContribution decimal.Decimal `json:"total_cycle_contribution"`
}

// DepositService records investor capital into the active cycle and keeps
// the share table consistent with every contribution change.
type DepositService struct {
	db          *pgxpool.Pool
	profiles    *repository.ProfileRepository
	investors   *repository.InvestorRepository
	cycles      *repository.CycleRepository
	deposits    *repository.DepositRepository
	withdrawals *repository.WithdrawalRepository
	shares      *repository.ShareRepository
	tonEvents   *repository.TonEventRepository
	notifier    notify.Notifier
}

func NewDepositService(db *pgxpool.Pool, notifier notify.Notifier) *DepositService {
	return &DepositService{
		db:          db,
		profiles:    repository.NewProfileRepository(db),
		investors:   repository.NewInvestorRepository(db),
		cycles:      repository.NewCycleRepository(db),
		deposits:    repository.NewDepositRepository(db),
		withdrawals: repository.NewWithdrawalRepository(db),
		shares:      repository.NewShareRepository(db),
		tonEvents:   repository.NewTonEventRepository(db),
		notifier:    notifier,
	}
}

// RecordDirect records an external contribution for a profile.
func (s *DepositService) RecordDirect(ctx context.Context, profileID int64, amount decimal.Decimal) (*DepositResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return s.record(ctx, profileID, amount, domain.DepositTypeExternal, "", nil)
}

// RecordTonEvent consumes a verified on-chain event exactly once and records
// its USDT valuation as the profile's contribution.
func (s *DepositService) RecordTonEvent(ctx context.Context, profileID int64, tonEventID int64) (*DepositResult, error) {
	event, err := s.tonEvents.GetByID(ctx, tonEventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("%w: ton event %d", ErrNotFound, tonEventID)
	}

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil || event.InvestorKey != strconv.FormatInt(profile.TelegramID, 10) {
		return nil, fmt.Errorf("%w: investor key mismatch", ErrUnauthorized)
	}
	if event.Consumed() {
		return nil, fmt.Errorf("%w: ton event already consumed", ErrConflict)
	}

	return s.record(ctx, profileID, event.UsdtAmount, domain.DepositTypeTonEvent, event.TonTxHash, &event.ID)
}

func (s *DepositService) record(ctx context.Context, profileID int64, amount decimal.Decimal, depositType domain.DepositType, txHash string, claimEventID *int64) (*DepositResult, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The active-cycle row lock serializes all contribution changes.
	cycle, err := s.cycles.GetActiveForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		// Bootstrap: the very first deposit opens the first cycle.
		now := time.Now()
		cycle = &domain.FundCycle{
			CycleMonth: int(now.Month()),
			CycleYear:  now.Year(),
		}
		if err := s.cycles.CreateWithTx(ctx, tx, cycle); err != nil {
			return nil, err
		}
	}

	if claimEventID != nil {
		claimed, err := s.tonEvents.ClaimWithTx(ctx, tx, *claimEventID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, fmt.Errorf("%w: ton event already consumed", ErrConflict)
		}
	}

	investor, err := investorForUpdate(ctx, tx, profileID)
	if err != nil {
		return nil, err
	}
	if investor == nil {
		investor = &domain.Investor{ProfileID: profileID}
		if err := s.investors.CreateWithTx(ctx, tx, investor); err != nil {
			return nil, err
		}
	}

	deposit := &domain.InvestorDeposit{
		InvestorID: investor.ID,
		CycleID:    cycle.ID,
		Amount:     amount,
		Type:       depositType,
		TxHash:     txHash,
	}
	if err := s.deposits.CreateWithTx(ctx, tx, deposit); err != nil {
		return nil, err
	}

	books, err := recomputeShares(ctx, tx, s.deposits, s.withdrawals, s.shares, cycle.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	share := decimal.Zero
	for _, sh := range books.Shares {
		if sh.InvestorID == investor.ID {
			share = sh.SharePercentage
			break
		}
	}

	s.dispatchDepositNote(investor.ID, amount, share, cycle)

	return &DepositResult{
		DepositID:              deposit.ID,
		CycleID:                cycle.ID,
		Amount:                 amount,
		SharePercentage:        share,
		TotalCycleContribution: books.Total,
	}, nil
}

// dispatchDepositNote notifies the depositor off the request path; failures
// are logged and never surface to the caller.
func (s *DepositService) dispatchDepositNote(investorID int64, amount, share decimal.Decimal, cycle *domain.FundCycle) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		contacts, err := s.investors.GetContacts(ctx, []int64{investorID})
		if err != nil || len(contacts) == 0 {
			logger.Error("deposit notification: contact lookup failed", "investor_id", investorID, "error", err)
			return
		}

		note := notify.DepositNote{
			TelegramID:      contacts[0].TelegramID,
			DisplayName:     contacts[0].DisplayName,
			AmountUsdt:      amount,
			SharePercentage: share,
			CycleMonth:      cycle.CycleMonth,
			CycleYear:       cycle.CycleYear,
		}
		if err := s.notifier.NotifyDeposit(ctx, note); err != nil {
			logger.Error("deposit notification failed", "investor_id", investorID, "error", err)
		}
	}()
}

// ListByProfile returns the profile's deposit history.
func (s *DepositService) ListByProfile(ctx context.Context, profileID int64, limit int) ([]domain.InvestorDeposit, error) {
	investor, err := s.investors.GetByProfileID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if investor == nil {
		return nil, nil
	}
	return s.deposits.ListByInvestor(ctx, investor.ID, limit)
}
