package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/allocator"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/logger"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/notify"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SettlementResult reports a closed cycle's distribution and its successor.
type SettlementResult struct {
	CycleID       int64                   `json:"cycle_id"`
	Totals        domain.SettlementTotals `json:"totals"`
	PayoutSummary []domain.PayoutLine     `json:"payout_summary"`
	NextCycle     *domain.FundCycle       `json:"next_cycle"`
}

// SettlementService closes the active cycle against a realized profit or
// loss and seeds the next cycle with rollover capital. The close, the open
// and the seeding commit as one unit: a partially settled cycle is never
// observable.
type SettlementService struct {
	db          *pgxpool.Pool
	profiles    *repository.ProfileRepository
	investors   *repository.InvestorRepository
	cycles      *repository.CycleRepository
	deposits    *repository.DepositRepository
	withdrawals *repository.WithdrawalRepository
	shares      *repository.ShareRepository
	notifier    notify.Notifier

	payoutShare      decimal.Decimal
	reinvestShare    decimal.Decimal
	performanceShare decimal.Decimal
}

func NewSettlementService(db *pgxpool.Pool, notifier notify.Notifier, payoutShare, reinvestShare, performanceShare decimal.Decimal) *SettlementService {
	return &SettlementService{
		db:               db,
		profiles:         repository.NewProfileRepository(db),
		investors:        repository.NewInvestorRepository(db),
		cycles:           repository.NewCycleRepository(db),
		deposits:         repository.NewDepositRepository(db),
		withdrawals:      repository.NewWithdrawalRepository(db),
		shares:           repository.NewShareRepository(db),
		notifier:         notifier,
		payoutShare:      payoutShare,
		reinvestShare:    reinvestShare,
		performanceShare: performanceShare,
	}
}

// splitProfit cuts a non-negative profit into payout, reinvest and
// performance-fee totals. Payout and reinvest are rounded to currency
// precision; the fee takes the remainder so the three sum exactly to profit.
func (s *SettlementService) splitProfit(profit decimal.Decimal) domain.SettlementTotals {
	payout := profit.Mul(s.payoutShare).Round(allocator.Scale)
	reinvest := profit.Mul(s.reinvestShare).Round(allocator.Scale)
	return domain.SettlementTotals{
		ProfitTotal:         profit,
		PayoutTotal:         payout,
		ReinvestTotal:       reinvest,
		PerformanceFeeTotal: profit.Sub(payout).Sub(reinvest),
		LossTotal:           decimal.Zero,
	}
}

// Settle closes the active cycle with the given realized profit (negative
// for a loss), distributes it, and opens the next cycle.
func (s *SettlementService) Settle(ctx context.Context, adminProfileID int64, profit decimal.Decimal, notes string) (*SettlementResult, error) {
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

	books, err := loadBooks(ctx, tx, s.deposits, s.withdrawals, cycle.ID)
	if err != nil {
		return nil, err
	}
	// Persisted shares are the source of truth for profit entitlement.
	shareRows, err := s.shares.ListByCycleWithTx(ctx, tx, cycle.ID)
	if err != nil {
		return nil, err
	}

	profit = profit.Round(allocator.Scale)

	var totals domain.SettlementTotals
	var payoutByInv, reinvestByInv, lossByInv map[int64]decimal.Decimal

	if profit.Sign() >= 0 {
		totals = s.splitProfit(profit)

		// Profit follows share percentage.
		shareWeights := make(map[int64]decimal.Decimal, len(shareRows))
		for _, sh := range shareRows {
			shareWeights[sh.InvestorID] = sh.SharePercentage
		}
		payoutByInv = allocator.Distribute(totals.PayoutTotal, shareWeights)
		reinvestByInv = allocator.Distribute(totals.ReinvestTotal, shareWeights)
	} else {
		loss := profit.Neg()
		if loss.GreaterThan(books.Total) {
			return nil, fmt.Errorf("%w: loss %s exceeds pooled capital %s",
				ErrValidation, loss.StringFixed(2), books.Total.StringFixed(2))
		}
		totals = domain.SettlementTotals{
			ProfitTotal: profit,
			LossTotal:   loss,
		}

		// Loss erodes principal, so it follows raw contribution, not share
		// percentage. The two only coincide when no withdrawals happened
		// mid-cycle.
		lossByInv = allocator.Distribute(loss, books.Contributions)
	}

	summary := s.buildSummary(shareRows, books, payoutByInv, reinvestByInv, lossByInv)

	cycle.ProfitTotal = totals.ProfitTotal
	cycle.InvestorPayoutTotal = totals.PayoutTotal
	cycle.ReinvestedTotal = totals.ReinvestTotal
	cycle.PerformanceFeeTotal = totals.PerformanceFeeTotal
	cycle.LossTotal = totals.LossTotal
	cycle.PayoutSummary = summary
	cycle.Notes = notes
	if err := s.cycles.CloseWithTx(ctx, tx, cycle); err != nil {
		return nil, err
	}

	nextMonth, nextYear := cycle.NextPeriod()
	next := &domain.FundCycle{CycleMonth: nextMonth, CycleYear: nextYear}
	if err := s.cycles.CreateWithTx(ctx, tx, next); err != nil {
		return nil, err
	}

	if err := s.seedNextCycle(ctx, tx, next.ID, summary); err != nil {
		return nil, err
	}

	if _, err := recomputeShares(ctx, tx, s.deposits, s.withdrawals, s.shares, next.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.dispatchSettlementNote(cycle, totals, summary, notes)

	return &SettlementResult{
		CycleID:       cycle.ID,
		Totals:        totals,
		PayoutSummary: summary,
		NextCycle:     next,
	}, nil
}

// buildSummary assembles per-investor payout lines ordered by investor ID.
func (s *SettlementService) buildSummary(shareRows []domain.InvestorShare, books *cycleBooks, payoutByInv, reinvestByInv, lossByInv map[int64]decimal.Decimal) []domain.PayoutLine {
	percentages := make(map[int64]decimal.Decimal, len(shareRows))
	for _, sh := range shareRows {
		percentages[sh.InvestorID] = sh.SharePercentage
	}

	ids := make([]int64, 0, len(books.Contributions))
	for id := range books.Contributions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	summary := make([]domain.PayoutLine, 0, len(ids))
	for _, id := range ids {
		contribution := books.Contributions[id]
		line := domain.PayoutLine{
			InvestorID:      id,
			SharePercentage: percentages[id],
			Contribution:    contribution,
			Payout:          payoutByInv[id],
			Reinvested:      reinvestByInv[id],
			Loss:            lossByInv[id],
		}
		line.NextContribution = contribution.Add(line.Reinvested).Sub(line.Loss)
		if line.NextContribution.IsNegative() {
			line.NextContribution = decimal.Zero
		}
		summary = append(summary, line)
	}
	return summary
}

// seedNextCycle writes the synthesized deposits that carry capital forward.
// Profit case: a rollover row for the original contribution plus a separate
// reinvestment row, preserving each investor's ratio while growing the pool.
// Loss case: a single loss-adjusted rollover row per investor.
func (s *SettlementService) seedNextCycle(ctx context.Context, tx pgx.Tx, nextCycleID int64, summary []domain.PayoutLine) error {
	for _, line := range summary {
		if line.Loss.IsPositive() {
			remaining := line.Contribution.Sub(line.Loss)
			if !remaining.IsPositive() {
				continue
			}
			d := &domain.InvestorDeposit{
				InvestorID: line.InvestorID,
				CycleID:    nextCycleID,
				Amount:     remaining,
				Type:       domain.DepositTypeRollover,
			}
			if err := s.deposits.CreateWithTx(ctx, tx, d); err != nil {
				return err
			}
			continue
		}

		if line.Contribution.IsPositive() {
			d := &domain.InvestorDeposit{
				InvestorID: line.InvestorID,
				CycleID:    nextCycleID,
				Amount:     line.Contribution,
				Type:       domain.DepositTypeRollover,
			}
			if err := s.deposits.CreateWithTx(ctx, tx, d); err != nil {
				return err
			}
		}
		if line.Reinvested.IsPositive() {
			d := &domain.InvestorDeposit{
				InvestorID: line.InvestorID,
				CycleID:    nextCycleID,
				Amount:     line.Reinvested,
				Type:       domain.DepositTypeReinvestment,
			}
			if err := s.deposits.CreateWithTx(ctx, tx, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// dispatchSettlementNote notifies all investors off the request path.
func (s *SettlementService) dispatchSettlementNote(cycle *domain.FundCycle, totals domain.SettlementTotals, summary []domain.PayoutLine, notes string) {
	investorIDs := make([]int64, 0, len(summary))
	for _, line := range summary {
		investorIDs = append(investorIDs, line.InvestorID)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		contacts, err := s.investors.GetContacts(ctx, investorIDs)
		if err != nil {
			logger.Error("settlement notification: contact lookup failed", "cycle_id", cycle.ID, "error", err)
			return
		}

		note := notify.SettlementNote{
			CycleMonth: cycle.CycleMonth,
			CycleYear:  cycle.CycleYear,
			Totals:     totals,
			Summary:    summary,
			Notes:      notes,
			Contacts:   contacts,
		}
		if err := s.notifier.NotifyInvestors(ctx, note); err != nil {
			logger.Error("settlement notification failed", "cycle_id", cycle.ID, "error", err)
		}
	}()
}

// History returns recently settled cycles.
func (s *SettlementService) History(ctx context.Context, limit int) ([]domain.FundCycle, error) {
	return s.cycles.ListSettled(ctx, limit)
}
