package ledger

import (
	"github.com/rongwang/kasciraya-server/internal/models"
)

// Scope is the resolved view of one user: who they are and which wallets
// they are allowed to observe.
type Scope struct {
	User      *models.User
	Permitted WalletSet
}

// NewScope resolves the permitted wallet set for user
func NewScope(user *models.User, wallets []models.Wallet, grants []models.PermissionGrant) Scope {
	return Scope{
		User:      user,
		Permitted: PermittedWalletIDs(user, wallets, grants),
	}
}

// Wallets filters wallets down to the scope
func (s Scope) Wallets(wallets []models.Wallet) []models.Wallet {
	return VisibleWallets(s.User, wallets, s.Permitted)
}

// Transactions filters transactions down to the scope
func (s Scope) Transactions(txs []models.Transaction) []models.Transaction {
	return VisibleTransactions(s.User, txs, s.Permitted)
}

// CanSee reports whether the wallet is inside the scope
func (s Scope) CanSee(walletID string) bool {
	if s.User == nil {
		return false
	}
	return s.Permitted.Has(walletID)
}

// VisibleWallets returns the wallets user may see. Administrators get the
// input unchanged.
func VisibleWallets(user *models.User, wallets []models.Wallet, permitted WalletSet) []models.Wallet {
	if user == nil {
		return []models.Wallet{}
	}
	if user.IsAdmin() {
		return wallets
	}

	out := make([]models.Wallet, 0, len(permitted))
	for _, w := range wallets {
		if permitted.Has(w.ID) {
			out = append(out, w)
		}
	}
	return out
}

// VisibleTransactions returns the transactions whose wallet user may see.
// It must run before any aggregation so totals never include data from
// wallets outside the permitted set.
func VisibleTransactions(user *models.User, txs []models.Transaction, permitted WalletSet) []models.Transaction {
	if user == nil {
		return []models.Transaction{}
	}
	if user.IsAdmin() {
		return txs
	}

	out := make([]models.Transaction, 0)
	for _, t := range txs {
		if permitted.Has(t.WalletID) {
			out = append(out, t)
		}
	}
	return out
}
