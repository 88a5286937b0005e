package service

import (
	"context"
	"errors"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/allocator"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// cycleBooks is the contribution and share state of one cycle as seen from
// inside a transaction holding the cycle lock.
type cycleBooks struct {
	// Contributions holds each investor's net position:
	// deposits minus approved withdrawal gross. Zeroed-out investors are kept
	// so settlement can still report them.
	Contributions map[int64]decimal.Decimal
	Total         decimal.Decimal
	Shares        []domain.InvestorShare
}

// loadBooks reads a cycle's net contributions inside tx and recomputes the
// share set from them. It does not write anything.
func loadBooks(ctx context.Context, tx pgx.Tx, deposits *repository.DepositRepository, withdrawals *repository.WithdrawalRepository, cycleID int64) (*cycleBooks, error) {
	depositSums, err := deposits.SumByInvestorWithTx(ctx, tx, cycleID)
	if err != nil {
		return nil, err
	}
	withdrawnSums, err := withdrawals.SumApprovedByInvestorWithTx(ctx, tx, cycleID)
	if err != nil {
		return nil, err
	}

	contributions := make(map[int64]decimal.Decimal, len(depositSums))
	total := decimal.Zero
	for investorID, deposited := range depositSums {
		net := deposited.Sub(withdrawnSums[investorID])
		if net.IsNegative() {
			net = decimal.Zero
		}
		contributions[investorID] = net
		total = total.Add(net)
	}

	percentages := allocator.Recompute(contributions)
	shares := make([]domain.InvestorShare, 0, len(percentages))
	for investorID, pct := range percentages {
		shares = append(shares, domain.InvestorShare{
			CycleID:         cycleID,
			InvestorID:      investorID,
			SharePercentage: pct,
			Contribution:    contributions[investorID],
		})
	}

	return &cycleBooks{Contributions: contributions, Total: total, Shares: shares}, nil
}

// recomputeShares reloads a cycle's books and persists the fresh share set,
// all inside the caller's transaction. Every mutating operation runs this
// after its write so listShares reflects the new percentages before the next
// operation is admitted.
func recomputeShares(ctx context.Context, tx pgx.Tx, deposits *repository.DepositRepository, withdrawals *repository.WithdrawalRepository, shares *repository.ShareRepository, cycleID int64) (*cycleBooks, error) {
	books, err := loadBooks(ctx, tx, deposits, withdrawals, cycleID)
	if err != nil {
		return nil, err
	}
	if err := shares.ReplaceWithTx(ctx, tx, cycleID, books.Shares); err != nil {
		return nil, err
	}
	return books, nil
}

// investorForUpdate resolves the investor backing a profile inside tx.
func investorForUpdate(ctx context.Context, tx pgx.Tx, profileID int64) (*domain.Investor, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, profile_id, status, joined_at
		FROM investors
		WHERE profile_id = $1
	`, profileID)

	var inv domain.Investor
	if err := row.Scan(&inv.ID, &inv.ProfileID, &inv.Status, &inv.JoinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}
