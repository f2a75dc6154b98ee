package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/core"
	"moneta/internal/storage"
)

// TransferInput moves Amount from the sender wallet to the receiver.
// Empty title and description are generated from the wallet names.
type TransferInput struct {
	UserID           string
	SenderWalletID   string
	ReceiverWalletID string
	Amount           string
	Title            string
	Description      string
	Date             *time.Time
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	Sender   core.Transaction `json:"senderTransaction"`
	Receiver core.Transaction `json:"receiverTransaction"`
}

// TransferBetweenWallets moves money between two wallets of the same user
// as two linked legs written in one transaction: TRANSFER OUT on the
// sender and TRANSFER IN on the receiver. Each leg goes through the normal
// create path.
func (l *Ledger) TransferBetweenWallets(ctx context.Context, in TransferInput) (TransferResult, error) {
	const op = "transfer between wallets"

	if in.SenderWalletID == "" || in.ReceiverWalletID == "" {
		return TransferResult{}, core.E(core.KindValidation, op, "sender and receiver wallets are required")
	}
	if in.SenderWalletID == in.ReceiverWalletID {
		return TransferResult{}, core.E(core.KindValidation, op, "sender and receiver wallets must differ")
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return TransferResult{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
	}
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	if title != "" {
		if err := core.ValidateTitle(title); err != nil {
			return TransferResult{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
		}
	}
	if err := core.ValidateDescription(desc); err != nil {
		return TransferResult{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
	}

	now := l.now().UTC()
	date := now
	if in.Date != nil {
		date = in.Date.UTC()
	}

	var res TransferResult
	err = l.atomically(ctx, op, func(q *storage.Queries) error {
		sender, err := loadWallet(ctx, q, op, in.SenderWalletID, in.UserID)
		if err != nil {
			return err
		}
		receiver, err := loadWallet(ctx, q, op, in.ReceiverWalletID, in.UserID)
		if err != nil {
			return err
		}
		if sender.Balance.LessThan(amount) {
			return core.Errorf(core.KindInsufficientBalance, op, "wallet %q has %s, need %s",
				sender.Name, core.FormatAmount(sender.Balance), core.FormatAmount(amount))
		}

		outID, inID := newID(), newID()
		out := core.Transaction{
			ID: outID, UserID: in.UserID, WalletID: sender.ID,
			Type: core.Transfer, Direction: core.TransferOut, CounterpartID: inID,
			Amount: amount, Date: date, CreatedAt: now, UpdatedAt: now,
		}
		out.Title, out.Description = legText(title, desc, "Transfer to "+receiver.Name)

		inLeg := core.Transaction{
			ID: inID, UserID: in.UserID, WalletID: receiver.ID,
			Type: core.Transfer, Direction: core.TransferIn, CounterpartID: outID,
			Amount: amount, Date: date, CreatedAt: now, UpdatedAt: now,
		}
		inLeg.Title, inLeg.Description = legText(title, desc, "Transfer from "+sender.Name)

		if res.Sender, err = l.insertTransaction(ctx, q, out); err != nil {
			return err
		}
		if res.Receiver, err = l.insertTransaction(ctx, q, inLeg); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	slog.InfoContext(ctx, "Transfer completed",
		"sender_wallet_id", res.Sender.WalletID,
		"receiver_wallet_id", res.Receiver.WalletID,
		"amount", core.FormatAmount(amount),
		"period", res.Sender.Period().String())

	l.committed(ctx, in.UserID,
		ledgerEvent(amqp.EventTransferCreated, res.Sender),
		ledgerEvent(amqp.EventTransferCreated, res.Receiver))
	return res, nil
}

// legText picks a leg's title and description. Generated titles are cut
// to the title limit; the description defaults to the title.
func legText(title, desc, generated string) (string, string) {
	if title == "" {
		title = truncateRunes(generated, core.MaxTitleLength)
	}
	if desc == "" {
		desc = title
	}
	return title, desc
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
