package auth

import (
	"context"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/logx"
	"github.com/Abraxas-365/clientportal/pkg/metricx"
	"github.com/gofiber/fiber/v2"
)

// Resolver is what the route guard needs from the identity resolver.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*kernel.Identity, error)
}

type GuardConfig struct {
	CookieName      string
	LoginPath       string
	VerifyEmailPath string
	AdminHome       string
}

// RouteGuard gates fiber routes with Decide.
type RouteGuard struct {
	resolver Resolver
	cfg      GuardConfig
}

func NewRouteGuard(resolver Resolver, cfg GuardConfig) *RouteGuard {
	if cfg.CookieName == "" {
		cfg.CookieName = "auth_token"
	}
	return &RouteGuard{resolver: resolver, cfg: cfg}
}

// Page guards browser routes. Rejections become redirects.
func (g *RouteGuard) Page(s Surface) fiber.Handler {
	return g.handler(s, true)
}

// API guards JSON routes. Rejections become error responses.
func (g *RouteGuard) API(s Surface) fiber.Handler {
	return g.handler(s, false)
}

func (g *RouteGuard) handler(s Surface, page bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id *kernel.Identity
		var rejectErr error

		if token, ok := ExtractCredential(c.Get(fiber.HeaderAuthorization), c.Cookies(g.cfg.CookieName)); ok {
			resolved, err := g.resolver.Resolve(c.UserContext(), token)
			if err != nil && !errx.IsType(err, errx.TypeUnauthenticated) {
				// Store failures are not an authentication verdict.
				metricx.AuthDecisions.WithLabelValues("unavailable").Inc()
				return err
			}
			id, rejectErr = resolved, err
		}

		outcome := Decide(id, s)
		metricx.AuthDecisions.WithLabelValues(string(outcome)).Inc()

		switch outcome {
		case OutcomeAllow:
			c.Locals(string(kernel.IdentityKey), id)
			c.SetUserContext(kernel.WithIdentity(c.UserContext(), id))
			return c.Next()

		case OutcomeRedirectAdmin:
			return c.Redirect(g.cfg.AdminHome, fiber.StatusSeeOther)

		case OutcomeUnauthenticated:
			logx.WithContext(c.UserContext()).
				WithFields(logx.Fields{"surface": s.Name, "path": c.Path(), "reason": RejectionOf(rejectErr)}).
				Debug("request rejected as unauthenticated")
			if page {
				return c.Redirect(g.cfg.LoginPath, fiber.StatusSeeOther)
			}
			if rejectErr != nil {
				return rejectErr
			}
			return iam.ErrUnauthenticated().WithDetail(reasonKey, RejectionMissing)

		case OutcomeUnverified:
			if page {
				return c.Redirect(g.cfg.VerifyEmailPath, fiber.StatusSeeOther)
			}
			return iam.ErrUnverified()

		default:
			return iam.ErrForbidden().WithDetail("surface", s.Name)
		}
	}
}

// GetIdentity returns the identity the guard attached to the request.
func GetIdentity(c *fiber.Ctx) (*kernel.Identity, bool) {
	id, ok := c.Locals(string(kernel.IdentityKey)).(*kernel.Identity)
	return id, ok && id != nil
}
