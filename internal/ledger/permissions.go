// Package ledger holds the read-side rules of the system: which wallets a
// user may see, how a wallet balance is derived from its transactions, and
// how a transaction set is summarised for dashboards and reports.
//
// Everything in this package is a pure function over values handed in by
// the caller. Nothing here touches the store, so results are recomputed on
// every read and there is nothing to invalidate after a mutation.
package ledger

import (
	"sort"

	"github.com/rongwang/kasciraya-server/internal/models"
)

// WalletSet is a set of wallet ids
type WalletSet map[string]struct{}

// NewWalletSet builds a set from ids
func NewWalletSet(ids ...string) WalletSet {
	s := make(WalletSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set contains nothing.
func (s WalletSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in ascending order
func (s WalletSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PermittedWalletIDs returns the wallets user may see. Administrators see
// every wallet whether or not grants exist for them; viewers see exactly the
// wallets they hold a grant for. A nil user sees nothing.
func PermittedWalletIDs(user *models.User, wallets []models.Wallet, grants []models.PermissionGrant) WalletSet {
	if user == nil {
		return WalletSet{}
	}

	if user.IsAdmin() {
		set := make(WalletSet, len(wallets))
		for _, w := range wallets {
			set[w.ID] = struct{}{}
		}
		return set
	}

	set := WalletSet{}
	for _, g := range grants {
		if g.UserID == user.ID {
			set[g.WalletID] = struct{}{}
		}
	}
	return set
}
