package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/notify"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/repository"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	entries, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(migDir, name))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", name, err)
		}
	}
}

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	applyMigrations(t, db)

	_, err = db.Exec(context.Background(), `
		TRUNCATE audit_logs, ton_events, investor_shares, investor_withdrawals,
		         investor_deposits, fund_cycles, investors, profiles
		RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func createProfile(t *testing.T, db *pgxpool.Pool, telegramID int64, role domain.Role) int64 {
	t.Helper()
	p := &domain.Profile{TelegramID: telegramID, Role: role, DisplayName: "tester"}
	if err := repository.NewProfileRepository(db).Create(context.Background(), p); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p.ID
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func assertDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(t, want)) {
		t.Fatalf("got %s, want %s", got.String(), want)
	}
}

func TestDepositService_RecordDirect_AllocatesShares(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	deposits := service.NewDepositService(db, notify.Noop{})

	alice := createProfile(t, db, 111, domain.RoleUser)
	bob := createProfile(t, db, 222, domain.RoleUser)

	// First deposit bootstraps the cycle.
	r1, err := deposits.RecordDirect(ctx, alice, dec(t, "200"))
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	assertDecimal(t, r1.SharePercentage, "100")

	r2, err := deposits.RecordDirect(ctx, bob, dec(t, "100"))
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if r2.CycleID != r1.CycleID {
		t.Fatalf("expected same cycle, got %d and %d", r1.CycleID, r2.CycleID)
	}
	assertDecimal(t, r2.SharePercentage, "33.33")
	assertDecimal(t, r2.TotalCycleContribution, "300")

	shares, err := repository.NewShareRepository(db).ListByCycle(ctx, r1.CycleID)
	if err != nil {
		t.Fatalf("list shares: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 share rows, got %d", len(shares))
	}
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.SharePercentage)
	}
	assertDecimal(t, total, "100")
}

func TestDepositService_RecordDirect_RejectsNonPositive(t *testing.T) {
	db := setupDB(t)

	deposits := service.NewDepositService(db, notify.Noop{})
	profileID := createProfile(t, db, 111, domain.RoleUser)

	if _, err := deposits.RecordDirect(context.Background(), profileID, dec(t, "0")); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := deposits.RecordDirect(context.Background(), profileID, dec(t, "-5")); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDepositService_TonEvent_ExactlyOnce(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	deposits := service.NewDepositService(db, notify.Noop{})
	tonRepo := repository.NewTonEventRepository(db)

	profileID := createProfile(t, db, 555, domain.RoleUser)
	stranger := createProfile(t, db, 777, domain.RoleUser)

	event := &domain.TonEvent{
		DepositID:   "dep-1",
		InvestorKey: "555",
		TonTxHash:   "abc123",
		UsdtAmount:  dec(t, "150"),
	}
	if err := tonRepo.Create(ctx, event); err != nil {
		t.Fatalf("create ton event: %v", err)
	}

	// Wrong investor cannot claim the event.
	if _, err := deposits.RecordTonEvent(ctx, stranger, event.ID); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	result, err := deposits.RecordTonEvent(ctx, profileID, event.ID)
	if err != nil {
		t.Fatalf("record ton event: %v", err)
	}
	assertDecimal(t, result.Amount, "150")
	assertDecimal(t, result.SharePercentage, "100")

	// Second consumption of the same event must fail.
	if _, err := deposits.RecordTonEvent(ctx, profileID, event.ID); !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Missing event.
	if _, err := deposits.RecordTonEvent(ctx, profileID, 99999); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWithdrawalService_Lifecycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	deposits := service.NewDepositService(db, notify.Noop{})
	withdrawals := service.NewWithdrawalService(db, dec(t, "0.16"), 0)

	admin := createProfile(t, db, 1, domain.RoleAdmin)
	investor := createProfile(t, db, 2, domain.RoleUser)

	r, err := deposits.RecordDirect(ctx, investor, dec(t, "200"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// Over-contribution request is rejected up front.
	if _, err := withdrawals.Request(ctx, investor, dec(t, "250")); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	w, err := withdrawals.Request(ctx, investor, dec(t, "50"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if w.Status != domain.WithdrawalStatusPending {
		t.Fatalf("expected pending, got %s", w.Status)
	}

	// A pending request does not move shares.
	shareRepo := repository.NewShareRepository(db)
	shares, err := shareRepo.ListByCycle(ctx, r.CycleID)
	if err != nil {
		t.Fatalf("list shares: %v", err)
	}
	assertDecimal(t, shares[0].Contribution, "200")

	// Non-admin cannot decide.
	if _, err := withdrawals.Decide(ctx, investor, w.ID, domain.WithdrawalActionApprove, ""); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	rejected, err := withdrawals.Decide(ctx, admin, w.ID, domain.WithdrawalActionReject, "not yet")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.WithdrawalStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}

	// A terminal request cannot be decided again.
	if _, err := withdrawals.Decide(ctx, admin, w.ID, domain.WithdrawalActionApprove, ""); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	w2, err := withdrawals.Request(ctx, investor, dec(t, "50"))
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	approved, err := withdrawals.Decide(ctx, admin, w2.ID, domain.WithdrawalActionApprove, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	// 16% fee on the gross: 50 -> 42 net.
	assertDecimal(t, approved.NetAmount, "42")
	if approved.FulfilledAt == nil {
		t.Fatal("expected fulfilled_at to be set")
	}

	// Approval reduces the counted contribution.
	shares, err = shareRepo.ListByCycle(ctx, r.CycleID)
	if err != nil {
		t.Fatalf("list shares after approval: %v", err)
	}
	assertDecimal(t, shares[0].Contribution, "150")
	assertDecimal(t, shares[0].SharePercentage, "100")
}

func TestSettlementService_ProfitCycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	deposits := service.NewDepositService(db, notify.Noop{})
	settlement := service.NewSettlementService(db, notify.Noop{},
		dec(t, "0.64"), dec(t, "0.16"), dec(t, "0.20"))

	admin := createProfile(t, db, 1, domain.RoleAdmin)
	alice := createProfile(t, db, 2, domain.RoleUser)
	bob := createProfile(t, db, 3, domain.RoleUser)

	if _, err := deposits.RecordDirect(ctx, alice, dec(t, "200")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	r, err := deposits.RecordDirect(ctx, bob, dec(t, "100"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	result, err := settlement.Settle(ctx, admin, dec(t, "300"), "good month")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	assertDecimal(t, result.Totals.PayoutTotal, "192")
	assertDecimal(t, result.Totals.ReinvestTotal, "48")
	assertDecimal(t, result.Totals.PerformanceFeeTotal, "60")

	if len(result.PayoutSummary) != 2 {
		t.Fatalf("expected 2 payout lines, got %d", len(result.PayoutSummary))
	}
	// Lines are ordered by investor ID: alice first.
	assertDecimal(t, result.PayoutSummary[0].Payout, "128.01")
	assertDecimal(t, result.PayoutSummary[1].Payout, "63.99")
	assertDecimal(t, result.PayoutSummary[0].Reinvested, "32")
	assertDecimal(t, result.PayoutSummary[1].Reinvested, "16")
	assertDecimal(t, result.PayoutSummary[0].NextContribution, "232")
	assertDecimal(t, result.PayoutSummary[1].NextContribution, "116")

	// The settled cycle is closed and a successor is open.
	cycleRepo := repository.NewCycleRepository(db)
	closed, err := cycleRepo.GetByID(ctx, r.CycleID)
	if err != nil {
		t.Fatalf("get closed cycle: %v", err)
	}
	if closed.Status != domain.CycleStatusSettled || closed.ClosedAt == nil {
		t.Fatalf("expected settled cycle, got %s", closed.Status)
	}

	next, err := cycleRepo.GetActive(ctx)
	if err != nil {
		t.Fatalf("get next cycle: %v", err)
	}
	if next == nil || next.ID == r.CycleID {
		t.Fatal("expected a fresh active cycle")
	}

	// Rollover + reinvestment rows seed the next cycle.
	nextDeposits, err := repository.NewDepositRepository(db).ListByCycle(ctx, next.ID)
	if err != nil {
		t.Fatalf("list next deposits: %v", err)
	}
	if len(nextDeposits) != 4 {
		t.Fatalf("expected 4 seed deposits, got %d", len(nextDeposits))
	}
	total := decimal.Zero
	for _, d := range nextDeposits {
		total = total.Add(d.Amount)
	}
	assertDecimal(t, total, "348")

	nextShares, err := repository.NewShareRepository(db).ListByCycle(ctx, next.ID)
	if err != nil {
		t.Fatalf("list next shares: %v", err)
	}
	if len(nextShares) != 2 {
		t.Fatalf("expected 2 share rows in next cycle, got %d", len(nextShares))
	}

	// A second settlement without the new cycle's profit realized yet still
	// works against the successor.
	history, err := settlement.History(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 settled cycle, got %d", len(history))
	}
}

func TestSettlementService_LossCycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	deposits := service.NewDepositService(db, notify.Noop{})
	settlement := service.NewSettlementService(db, notify.Noop{},
		dec(t, "0.64"), dec(t, "0.16"), dec(t, "0.20"))

	admin := createProfile(t, db, 1, domain.RoleAdmin)
	alice := createProfile(t, db, 2, domain.RoleUser)
	bob := createProfile(t, db, 3, domain.RoleUser)

	if _, err := deposits.RecordDirect(ctx, alice, dec(t, "200")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := deposits.RecordDirect(ctx, bob, dec(t, "100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// A loss deeper than the pool's capital is rejected.
	if _, err := settlement.Settle(ctx, admin, dec(t, "-400"), ""); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	result, err := settlement.Settle(ctx, admin, dec(t, "-60"), "drawdown")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	assertDecimal(t, result.Totals.LossTotal, "60")
	assertDecimal(t, result.Totals.PayoutTotal, "0")
	assertDecimal(t, result.Totals.PerformanceFeeTotal, "0")

	// Loss is borne proportionally to contribution.
	assertDecimal(t, result.PayoutSummary[0].Loss, "40")
	assertDecimal(t, result.PayoutSummary[1].Loss, "20")
	assertDecimal(t, result.PayoutSummary[0].NextContribution, "160")
	assertDecimal(t, result.PayoutSummary[1].NextContribution, "80")

	// Next cycle is seeded with the reduced capital, rollover rows only.
	nextDeposits, err := repository.NewDepositRepository(db).ListByCycle(ctx, result.NextCycle.ID)
	if err != nil {
		t.Fatalf("list next deposits: %v", err)
	}
	if len(nextDeposits) != 2 {
		t.Fatalf("expected 2 seed deposits, got %d", len(nextDeposits))
	}
	for _, d := range nextDeposits {
		if d.Type != domain.DepositTypeRollover {
			t.Fatalf("expected rollover, got %s", d.Type)
		}
	}
	total := decimal.Zero
	for _, d := range nextDeposits {
		total = total.Add(d.Amount)
	}
	assertDecimal(t, total, "240")
}

func TestSettlementService_RequiresAdmin(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	deposits := service.NewDepositService(db, notify.Noop{})
	settlement := service.NewSettlementService(db, notify.Noop{},
		dec(t, "0.64"), dec(t, "0.16"), dec(t, "0.20"))

	user := createProfile(t, db, 2, domain.RoleUser)
	if _, err := deposits.RecordDirect(ctx, user, dec(t, "100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := settlement.Settle(ctx, user, dec(t, "10"), ""); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
