package apikey

import "strings"

// Scope is a capability granted to a key, checked independently of roles.
type Scope string

const (
	ScopePOSRead       Scope = "pos:read"
	ScopePOSWrite      Scope = "pos:write"
	ScopePOSVoid       Scope = "pos:void"
	ScopeBillingRead   Scope = "billing:read"
	ScopeBillingWrite  Scope = "billing:write"
	ScopeInvoicesRead  Scope = "invoices:read"
	ScopeInvoicesWrite Scope = "invoices:write"
	ScopeMembersRead   Scope = "members:read"
)

// ScopeDescriptions lists every known scope.
var ScopeDescriptions = map[Scope]string{
	ScopePOSRead:       "Read point-of-sale transactions",
	ScopePOSWrite:      "Create point-of-sale transactions",
	ScopePOSVoid:       "Void point-of-sale transactions",
	ScopeBillingRead:   "Read billing account and payment methods",
	ScopeBillingWrite:  "Change billing account and payment methods",
	ScopeInvoicesRead:  "Read invoices",
	ScopeInvoicesWrite: "Create and update invoices",
	ScopeMembersRead:   "Read organization members",
}

// ScopeCategories groups scopes by resource area for display.
var ScopeCategories = map[string][]Scope{
	"pos":      {ScopePOSRead, ScopePOSWrite, ScopePOSVoid},
	"billing":  {ScopeBillingRead, ScopeBillingWrite},
	"invoices": {ScopeInvoicesRead, ScopeInvoicesWrite},
	"members":  {ScopeMembersRead},
}

func (s Scope) IsValid() bool {
	_, ok := ScopeDescriptions[s]
	return ok
}

// ParseScopes rejects unknown scopes and drops duplicates.
func ParseScopes(raw []string) ([]Scope, error) {
	seen := make(map[Scope]bool, len(raw))
	out := make([]Scope, 0, len(raw))
	for _, r := range raw {
		s := Scope(strings.TrimSpace(r))
		if !s.IsValid() {
			return nil, ErrInvalidScope().WithDetail("scope", r)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// HasScope is a set-membership check.
func HasScope(granted []Scope, required Scope) bool {
	for _, s := range granted {
		if s == required {
			return true
		}
	}
	return false
}
