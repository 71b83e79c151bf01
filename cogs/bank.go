package cogs

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"econbot/models"
	"econbot/utils"
)

func (b *Bot) handleBank(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := commandOptions(i)
	accountID := utils.UserID(i)

	switch sub {
	case "deposit":
		amount, err := b.amount(ctx, accountID, opts.String("amount"))
		if err != nil {
			return err
		}
		acct, err := b.Bank.Deposit(ctx, accountID, amount)
		if err != nil {
			return err
		}
		return b.respond(s, i, utils.SuccessEmbed("🏦 Deposit",
			fmt.Sprintf("Deposited **%s** %s.\nBank balance: **%s**", utils.FormatChips(amount), utils.CoinsEmoji, utils.FormatChips(acct.Balance))))
	case "withdraw":
		st, err := b.Bank.Statement(ctx, accountID)
		if err != nil {
			return err
		}
		amount, err := positiveAmount(opts.String("amount"), st.Bank.Balance)
		if err != nil {
			return err
		}
		acct, err := b.Bank.Withdraw(ctx, accountID, amount)
		if err != nil {
			return err
		}
		return b.respond(s, i, utils.SuccessEmbed("🏦 Withdrawal",
			fmt.Sprintf("Withdrew **%s** %s.\nBank balance: **%s**", utils.FormatChips(amount), utils.CoinsEmoji, utils.FormatChips(acct.Balance))))
	}

	st, err := b.Bank.Statement(ctx, accountID)
	if err != nil {
		return err
	}
	return b.respondPrivate(s, i, statementEmbed(st.Wallet, st.Bank, st.Accrued, st.CreditScore, st.ActiveLoan))
}

func statementEmbed(wallet int64, acct models.BankAccount, accrued int64, score int, loan *models.Loan) *discordgo.MessageEmbed {
	embed := utils.CreateBrandedEmbed("🏦 Bank Statement", "", utils.BotColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Wallet", Value: utils.FormatChips(wallet) + " " + utils.CoinsEmoji, Inline: true},
		{Name: "Bank", Value: utils.FormatChips(acct.Balance) + " " + utils.CoinsEmoji, Inline: true},
		{Name: "Credit Score", Value: fmt.Sprintf("%d / 100", score), Inline: true},
		{Name: "Interest Earned", Value: utils.FormatChips(acct.TotalInterestPaid), Inline: true},
	}
	if accrued > 0 {
		embed.Description = fmt.Sprintf("📈 **%s** interest was credited since your last visit.", utils.FormatChips(accrued))
	}
	if loan != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Active Loan",
			Value: fmt.Sprintf("%s remaining, due <t:%d:R>", utils.FormatChips(loan.RemainingAmount), loan.DueAt.Unix()),
		})
	}
	return embed
}

func (b *Bot) handleLoan(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := commandOptions(i)
	accountID := utils.UserID(i)

	switch sub {
	case "take":
		terms, err := b.Bank.Terms(ctx, accountID)
		if err != nil {
			return err
		}
		principal, err := positiveAmount(opts.String("amount"), terms.MaxAmount)
		if err != nil {
			return err
		}
		loan, err := b.Bank.IssueLoan(ctx, accountID, principal)
		if err != nil {
			return err
		}
		return b.respond(s, i, utils.SuccessEmbed("💳 Loan Approved", fmt.Sprintf(
			"You borrowed **%s** %s.\nInterest: **%s**\nRepay **%s** by <t:%d:f>.",
			utils.FormatChips(loan.Principal), utils.CoinsEmoji, utils.FormatChips(loan.InterestAmount),
			utils.FormatChips(loan.RemainingAmount), loan.DueAt.Unix())))
	case "repay":
		st, err := b.Bank.Statement(ctx, accountID)
		if err != nil {
			return err
		}
		if st.ActiveLoan == nil {
			return fmt.Errorf("%w: you have no active loan", models.ErrNotFound)
		}
		amount, err := positiveAmount(opts.String("amount"), min(st.ActiveLoan.RemainingAmount, st.Wallet))
		if err != nil {
			return err
		}
		res, err := b.Bank.Repay(ctx, accountID, amount)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Paid **%s** %s. Remaining: **%s**", utils.FormatChips(res.Paid), utils.CoinsEmoji, utils.FormatChips(res.Loan.RemainingAmount))
		if res.FullyRepaid {
			msg = fmt.Sprintf("Loan fully repaid! Your credit score is now **%d**.", res.CreditScore)
		}
		return b.respond(s, i, utils.SuccessEmbed("💳 Repayment", msg))
	case "history":
		loans, err := b.Bank.Loans(ctx, accountID)
		if err != nil {
			return err
		}
		return b.respondPrivate(s, i, loanHistoryEmbed(loans))
	}

	terms, err := b.Bank.Terms(ctx, accountID)
	if err != nil {
		return err
	}
	embed := utils.CreateBrandedEmbed("💳 Loan Terms", "", utils.BotColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Credit Score", Value: fmt.Sprint(terms.CreditScore), Inline: true},
		{Name: "Interest Rate", Value: terms.Rate.Shift(2).StringFixed(1) + "%", Inline: true},
		{Name: "Max Loan", Value: utils.FormatChips(terms.MaxAmount) + " " + utils.CoinsEmoji, Inline: true},
	}
	return b.respondPrivate(s, i, embed)
}

func loanHistoryEmbed(loans []models.Loan) *discordgo.MessageEmbed {
	embed := utils.CreateBrandedEmbed("💳 Loan History", "", utils.BotColor)
	if len(loans) == 0 {
		embed.Description = "No loans yet."
		return embed
	}
	var sb strings.Builder
	for _, l := range loans {
		fmt.Fprintf(&sb, "`%s` %s borrowed, %s owed, **%s**\n",
			l.IssuedAt.Format("2006-01-02"), utils.FormatChips(l.Principal), utils.FormatChips(l.RemainingAmount), l.Status)
	}
	embed.Description = sb.String()
	return embed
}

// positiveAmount parses raw against basis, which is what "all" means here
func positiveAmount(raw string, basis int64) (int64, error) {
	n, err := utils.ParseBet(raw, basis)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", models.ErrInvalidAmount)
	}
	return n, nil
}
