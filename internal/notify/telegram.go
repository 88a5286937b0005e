package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram delivers notes as Telegram messages via the platform bot.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

// NewTelegram creates a Telegram notifier with an authorized bot.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info("notifier bot authorized", "username", bot.Self.UserName)
	return &Telegram{bot: bot}, nil
}

func (t *Telegram) NotifyDeposit(ctx context.Context, note DepositNote) error {
	text := fmt.Sprintf(
		"Deposit received: %s USDT\nYour share of the %02d/%d cycle is now %s%%.",
		note.AmountUsdt.StringFixed(2), note.CycleMonth, note.CycleYear,
		note.SharePercentage.StringFixed(2),
	)
	msg := tgbotapi.NewMessage(note.TelegramID, text)
	_, err := t.bot.Send(msg)
	return err
}

func (t *Telegram) NotifyInvestors(ctx context.Context, note SettlementNote) error {
	lines := make(map[int64]string, len(note.Summary))
	for _, l := range note.Summary {
		if note.Totals.LossTotal.IsPositive() {
			lines[l.InvestorID] = fmt.Sprintf(
				"Your loss: %s USDT, carried into the next cycle: %s USDT.",
				l.Loss.StringFixed(2), l.NextContribution.StringFixed(2))
		} else {
			lines[l.InvestorID] = fmt.Sprintf(
				"Your payout: %s USDT, reinvested: %s USDT.",
				l.Payout.StringFixed(2), l.Reinvested.StringFixed(2))
		}
	}

	header := fmt.Sprintf(
		"Cycle %02d/%d settled.\nProfit: %s USDT\nInvestor payout: %s USDT\nReinvested: %s USDT\nPerformance fee: %s USDT",
		note.CycleMonth, note.CycleYear,
		note.Totals.ProfitTotal.StringFixed(2),
		note.Totals.PayoutTotal.StringFixed(2),
		note.Totals.ReinvestTotal.StringFixed(2),
		note.Totals.PerformanceFeeTotal.StringFixed(2),
	)
	if note.Totals.LossTotal.IsPositive() {
		header = fmt.Sprintf("Cycle %02d/%d settled.\nLoss: %s USDT",
			note.CycleMonth, note.CycleYear, note.Totals.LossTotal.StringFixed(2))
	}

	var failed []string
	for _, c := range note.Contacts {
		text := header
		if line, ok := lines[c.InvestorID]; ok {
			text += "\n" + line
		}
		if note.Notes != "" {
			text += "\n\n" + note.Notes
		}

		msg := tgbotapi.NewMessage(c.TelegramID, text)
		if _, err := t.bot.Send(msg); err != nil {
			logger.Error("settlement notification failed", "telegram_id", c.TelegramID, "error", err)
			failed = append(failed, fmt.Sprintf("%d", c.TelegramID))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to notify: %s", strings.Join(failed, ", "))
	}
	return nil
}
