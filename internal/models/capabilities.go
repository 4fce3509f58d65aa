package models

// Capability names one thing a role may do through the API
type Capability string

const (
	CapViewDashboard     Capability = "view_dashboard"
	CapViewTransactions  Capability = "view_transactions"
	CapCreateTransaction Capability = "create_transaction"
	CapManage            Capability = "manage"
	CapEditProfile       Capability = "edit_profile"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapViewDashboard,
		CapViewTransactions,
		CapCreateTransaction,
		CapManage,
		CapEditProfile,
	},
	RoleViewer: {
		CapViewDashboard,
		CapEditProfile,
	},
}

// CapabilitiesFor returns the capabilities granted to a role. Unknown roles get none.
func CapabilitiesFor(role Role) []Capability {
	caps := roleCapabilities[role]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// Can reports whether role has the given capability
func (r Role) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}
