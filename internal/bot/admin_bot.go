package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/logger"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/repository"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AdminBot drives the pool from Telegram: pending withdrawals, approvals
// and cycle settlement, restricted to the configured admin IDs.
type AdminBot struct {
	bot         *tgbotapi.BotAPI
	profiles    *repository.ProfileRepository
	cycles      *repository.CycleRepository
	shares      *repository.ShareRepository
	withdrawals *service.WithdrawalService
	settlement  *service.SettlementService
	adminIDs    []int64
	stopCh      chan struct{}
	wg          sync.WaitGroup
	log         *slog.Logger
}

func NewAdminBot(token string, db *pgxpool.Pool, withdrawals *service.WithdrawalService, settlement *service.SettlementService, adminIDs []int64) (*AdminBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "admin_bot")
	log.Info("admin bot authorized", "username", api.Self.UserName)

	return &AdminBot{
		bot:         api,
		profiles:    repository.NewProfileRepository(db),
		cycles:      repository.NewCycleRepository(db),
		shares:      repository.NewShareRepository(db),
		withdrawals: withdrawals,
		settlement:  settlement,
		adminIDs:    adminIDs,
		stopCh:      make(chan struct{}),
		log:         log,
	}, nil
}

// Start runs the update loop until Stop is called.
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.isAdmin(update.Message.From.ID) {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop gracefully stops the bot
func (b *AdminBot) Stop() {
	b.log.Info("stopping admin bot...")
	close(b.stopCh)
	b.bot.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdmin(userID int64) bool {
	for _, id := range b.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *AdminBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var response string

	switch msg.Command() {
	case "start", "help":
		response = b.helpMessage()

	case "pool":
		response = b.handlePool(ctx)

	case "withdrawals":
		response = b.handleWithdrawals(ctx, msg.From.ID)

	case "approve":
		response = b.handleDecision(ctx, msg.From.ID, domain.WithdrawalActionApprove, msg.CommandArguments())

	case "reject":
		response = b.handleDecision(ctx, msg.From.ID, domain.WithdrawalActionReject, msg.CommandArguments())

	case "settle":
		response = b.handleSettle(ctx, msg.From.ID, msg.CommandArguments())

	default:
		response = "❌ Unknown command. Use /help for the command list."
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

func (b *AdminBot) helpMessage() string {
	return `<b>🤖 Pool admin commands</b>

<b>📊 Overview:</b>
/pool - Active cycle and share table

<b>💸 Withdrawals:</b>
/withdrawals - Pending requests
/approve &lt;id&gt; [notes] - Approve a request
/reject &lt;id&gt; &lt;reason&gt; - Reject a request

<b>🔁 Settlement:</b>
/settle &lt;profit&gt; [notes] - Close the active cycle (negative profit for a loss)`
}

// adminProfileID resolves the Telegram admin to a profile; the admin must
// have opened the mini-app at least once.
func (b *AdminBot) adminProfileID(ctx context.Context, telegramID int64) (int64, error) {
	profile, err := b.profiles.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, fmt.Errorf("no profile for telegram id %d, open the app first", telegramID)
	}
	return profile.ID, nil
}

func (b *AdminBot) handlePool(ctx context.Context) string {
	cycle, err := b.cycles.GetActive(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if cycle == nil {
		return "ℹ️ No active cycle. The first deposit opens one."
	}

	shares, err := b.shares.ListByCycle(ctx, cycle.ID)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>📊 Cycle %02d/%d</b> (id %d)\n\n", cycle.CycleMonth, cycle.CycleYear, cycle.ID)

	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Contribution)
	}
	fmt.Fprintf(&sb, "💰 Total contribution: <b>%s USDT</b>\n", total.StringFixed(2))
	fmt.Fprintf(&sb, "👥 Investors: %d\n\n", len(shares))

	for _, s := range shares {
		fmt.Fprintf(&sb, "• investor %d — %s USDT (%s%%)\n",
			s.InvestorID, s.Contribution.StringFixed(2), s.SharePercentage.StringFixed(2))
	}
	return sb.String()
}

func (b *AdminBot) handleWithdrawals(ctx context.Context, adminTelegramID int64) string {
	profileID, err := b.adminProfileID(ctx, adminTelegramID)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	pending, err := b.withdrawals.ListPending(ctx, profileID)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if len(pending) == 0 {
		return "✅ No pending withdrawal requests."
	}

	var sb strings.Builder
	sb.WriteString("<b>💸 Pending withdrawals</b>\n\n")
	now := time.Now()
	for _, w := range pending {
		notice := "notice expired"
		if w.NoticeExpiresAt.After(now) {
			notice = "notice ends " + w.NoticeExpiresAt.Format("02.01 15:04")
		}
		fmt.Fprintf(&sb, "• id %d — investor %d — %s USDT (%s)\n",
			w.ID, w.InvestorID, w.Amount.StringFixed(2), notice)
	}
	sb.WriteString("\n/approve &lt;id&gt; or /reject &lt;id&gt; &lt;reason&gt;")
	return sb.String()
}

func (b *AdminBot) handleDecision(ctx context.Context, adminTelegramID int64, action domain.WithdrawalAction, args string) string {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if parts[0] == "" {
		return fmt.Sprintf("Usage: /%s <id> [notes]", action)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "❌ Invalid request id."
	}
	notes := ""
	if len(parts) > 1 {
		notes = parts[1]
	}
	if action == domain.WithdrawalActionReject && notes == "" {
		return "Usage: /reject <id> <reason>"
	}

	profileID, err := b.adminProfileID(ctx, adminTelegramID)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	w, err := b.withdrawals.Decide(ctx, profileID, id, action, notes)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}

	if w.Status == domain.WithdrawalStatusApproved {
		return fmt.Sprintf("✅ Withdrawal %d approved.\nGross: %s USDT\nNet to pay: <b>%s USDT</b>",
			w.ID, w.Amount.StringFixed(2), w.NetAmount.StringFixed(2))
	}
	return fmt.Sprintf("🚫 Withdrawal %d rejected.", w.ID)
}

func (b *AdminBot) handleSettle(ctx context.Context, adminTelegramID int64, args string) string {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if parts[0] == "" {
		return "Usage: /settle <profit> [notes] (negative profit for a loss)"
	}
	profit, err := decimal.NewFromString(parts[0])
	if err != nil {
		return "❌ Invalid profit amount."
	}
	notes := ""
	if len(parts) > 1 {
		notes = parts[1]
	}

	profileID, err := b.adminProfileID(ctx, adminTelegramID)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	result, err := b.settlement.Settle(ctx, profileID, profit, notes)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>🔁 Cycle %d settled</b>\n\n", result.CycleID)
	t := result.Totals
	if t.LossTotal.IsPositive() {
		fmt.Fprintf(&sb, "📉 Loss: %s USDT\n", t.LossTotal.StringFixed(2))
	} else {
		fmt.Fprintf(&sb, "📈 Profit: %s USDT\n", t.ProfitTotal.StringFixed(2))
		fmt.Fprintf(&sb, "• Paid out: %s USDT\n", t.PayoutTotal.StringFixed(2))
		fmt.Fprintf(&sb, "• Reinvested: %s USDT\n", t.ReinvestTotal.StringFixed(2))
		fmt.Fprintf(&sb, "• Performance fee: %s USDT\n", t.PerformanceFeeTotal.StringFixed(2))
	}
	fmt.Fprintf(&sb, "\nNext cycle: %02d/%d (id %d)",
		result.NextCycle.CycleMonth, result.NextCycle.CycleYear, result.NextCycle.ID)
	return sb.String()
}
