package auth

import (
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// Surface describes who may enter a group of routes.
type Surface struct {
	Name string
	// Admin surfaces require the global administrator flag.
	Admin bool
	// ClientOnly surfaces send administrators to the admin home instead.
	ClientOnly bool
	// AllowUnverified admits identities whose email is not confirmed yet.
	AllowUnverified bool
}

var (
	SurfaceClient = Surface{Name: "client", ClientOnly: true}
	SurfaceAdmin  = Surface{Name: "admin", Admin: true}
	// SurfaceAPI accepts any verified identity.
	SurfaceAPI = Surface{Name: "api"}
	// SurfaceAccount serves the signed-in user's own account, including the
	// email verification flow.
	SurfaceAccount = Surface{Name: "account", AllowUnverified: true}
)

// Outcome is the result of a guard decision.
type Outcome string

const (
	OutcomeAllow           Outcome = "allow"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeUnverified      Outcome = "unverified"
	OutcomeForbidden       Outcome = "forbidden"
	OutcomeRedirectAdmin   Outcome = "redirect_admin"
)

// Decide applies the guard policy. The order is fixed: authentication, then
// email verification, then the admin requirement, then the admin redirect.
func Decide(id *kernel.Identity, s Surface) Outcome {
	switch {
	case id == nil:
		return OutcomeUnauthenticated
	case !id.EmailVerified && !s.AllowUnverified:
		return OutcomeUnverified
	case s.Admin && !id.IsAdmin:
		return OutcomeForbidden
	case s.ClientOnly && id.IsAdmin:
		return OutcomeRedirectAdmin
	default:
		return OutcomeAllow
	}
}
