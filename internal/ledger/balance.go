package ledger

import (
	"github.com/rongwang/kasciraya-server/internal/models"
)

// WalletBalance folds every transaction on the wallet into its initial
// balance. Transactions for other wallets are skipped.
func WalletBalance(wallet models.Wallet, txs []models.Transaction) int64 {
	balance := wallet.InitialBalance
	for _, t := range txs {
		if t.WalletID != wallet.ID {
			continue
		}
		balance += t.Signed()
	}
	return balance
}

// BalanceOf looks the wallet up by id and returns its balance, or zero when
// no wallet has that id.
func BalanceOf(walletID string, wallets []models.Wallet, txs []models.Transaction) int64 {
	for _, w := range wallets {
		if w.ID == walletID {
			return WalletBalance(w, txs)
		}
	}
	return 0
}

// TotalBalance is the sum of the balances of the given wallets
func TotalBalance(wallets []models.Wallet, txs []models.Transaction) int64 {
	var total int64
	for _, b := range Balances(wallets, txs) {
		total += b.Balance
	}
	return total
}

// Balances computes one balance per wallet in a single pass over txs.
// Output order follows wallets.
func Balances(wallets []models.Wallet, txs []models.Transaction) []models.WalletBalance {
	sums := make(map[string]int64, len(wallets))
	for _, t := range txs {
		sums[t.WalletID] += t.Signed()
	}

	out := make([]models.WalletBalance, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, models.WalletBalance{
			Wallet:  w,
			Balance: w.InitialBalance + sums[w.ID],
		})
	}
	return out
}
