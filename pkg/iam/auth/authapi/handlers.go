package authapi

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth/authsrv"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// SessionCookieName holds the opaque session token, scoped to SessionCookiePath.
const (
	SessionCookieName = "session_token"
	SessionCookiePath = "/auth"
)

type LoginFlow interface {
	Login(ctx context.Context, email, password, ip string) (*authsrv.AuthResult, error)
	Logout(ctx context.Context, userID kernel.UserID, sessionToken, ip string) error
	Refresh(ctx context.Context, sessionToken string) (*authsrv.AuthResult, error)
}

type Linker interface {
	Link(ctx context.Context, provider iam.OAuthProvider, profile auth.OAuthProfile) (*authsrv.LinkResult, error)
}

type EmailVerifier interface {
	Request(ctx context.Context, userID kernel.UserID) error
	Confirm(ctx context.Context, userID kernel.UserID, code string) error
}

type Profiles interface {
	FindByID(ctx context.Context, id kernel.UserID) (*user.User, error)
}

type Config struct {
	CookieName   string
	CookieSecure bool
	AccessTTL    time.Duration
	ClientHome   string
	AdminHome    string
	LoginPath    string
}

// AuthHandlers is the HTTP boundary for login, OAuth and email verification.
type AuthHandlers struct {
	login     LoginFlow
	linker    Linker
	verifier  EmailVerifier
	profiles  Profiles
	states    auth.StateManager
	audit     auth.AuditService
	providers map[iam.OAuthProvider]auth.OAuthProvider
	cfg       Config
}

func NewAuthHandlers(
	login LoginFlow,
	linker Linker,
	verifier EmailVerifier,
	profiles Profiles,
	states auth.StateManager,
	audit auth.AuditService,
	providers []auth.OAuthProvider,
	cfg Config,
) *AuthHandlers {
	byName := make(map[iam.OAuthProvider]auth.OAuthProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "auth_token"
	}
	return &AuthHandlers{
		login:     login,
		linker:    linker,
		verifier:  verifier,
		profiles:  profiles,
		states:    states,
		audit:     audit,
		providers: byName,
		cfg:       cfg,
	}
}

func (h *AuthHandlers) RegisterRoutes(app fiber.Router, guard *auth.RouteGuard) {
	g := app.Group("/auth")

	g.Post("/login", h.Login)
	g.Post("/refresh", h.Refresh)
	g.Get("/oauth/:provider", h.OAuthStart)
	g.Get("/oauth/:provider/callback", h.OAuthCallback)

	account := guard.API(auth.SurfaceAccount)
	g.Post("/logout", account, h.Logout)
	g.Get("/me", account, h.Me)
	g.Post("/verify/request", account, h.RequestVerification)
	g.Post("/verify/confirm", account, h.ConfirmVerification)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandlers) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Malformed("invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return errx.Malformed("email and password are required")
	}

	result, err := h.login.Login(c.UserContext(), req.Email, req.Password, c.IP())
	if err != nil {
		return err
	}
	h.setCookies(c, result.Tokens)
	return c.JSON(result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandlers) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(SessionCookieName)
	if token == "" {
		var req refreshRequest
		_ = c.BodyParser(&req)
		token = req.RefreshToken
	}

	result, err := h.login.Refresh(c.UserContext(), token)
	if err != nil {
		return err
	}
	h.setCookies(c, result.Tokens)
	return c.JSON(result)
}

func (h *AuthHandlers) Logout(c *fiber.Ctx) error {
	id, _ := auth.GetIdentity(c)
	if err := h.login.Logout(c.UserContext(), id.UserID, c.Cookies(SessionCookieName), c.IP()); err != nil {
		return err
	}
	h.clearCookies(c)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandlers) Me(c *fiber.Ctx) error {
	id, _ := auth.GetIdentity(c)
	u, err := h.profiles.FindByID(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"userId":              u.ID,
		"email":               u.Email,
		"name":                u.Name,
		"image":               u.Image,
		"isAdmin":             u.IsAdmin,
		"emailVerified":       u.IsVerified(),
		"onboardingCompleted": u.OnboardingCompleted,
	})
}

func (h *AuthHandlers) RequestVerification(c *fiber.Ctx) error {
	id, _ := auth.GetIdentity(c)
	if err := h.verifier.Request(c.UserContext(), id.UserID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

type confirmRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandlers) ConfirmVerification(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return errx.Malformed("code is required")
	}

	id, _ := auth.GetIdentity(c)
	if err := h.verifier.Confirm(c.UserContext(), id.UserID, strings.TrimSpace(req.Code)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"emailVerified": true})
}

// ============================================================================
// OAuth
// ============================================================================

func (h *AuthHandlers) provider(c *fiber.Ctx) (auth.OAuthProvider, error) {
	name, ok := iam.ParseOAuthProvider(c.Params("provider"))
	if !ok {
		return nil, auth.ErrUnknownProvider().WithDetail("provider", c.Params("provider"))
	}
	p, ok := h.providers[name]
	if !ok {
		return nil, auth.ErrUnknownProvider().WithDetail("provider", c.Params("provider"))
	}
	return p, nil
}

func (h *AuthHandlers) OAuthStart(c *fiber.Ctx) error {
	p, err := h.provider(c)
	if err != nil {
		return err
	}

	state, err := h.states.Generate(c.UserContext(), safeRedirect(c.Query("redirect")))
	if err != nil {
		return err
	}
	return c.Redirect(p.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

func (h *AuthHandlers) OAuthCallback(c *fiber.Ctx) error {
	p, err := h.provider(c)
	if err != nil {
		return err
	}

	if denied := c.Query("error"); denied != "" {
		logx.WithContext(c.UserContext()).
			WithFields(logx.Fields{"provider": p.Name().Slug(), "error": denied}).
			Warn("provider denied authorization")
		return c.Redirect(h.cfg.LoginPath+"?error="+url.QueryEscape(denied), fiber.StatusSeeOther)
	}

	redirectTo, err := h.states.Consume(c.UserContext(), c.Query("state"))
	if err != nil {
		return err
	}

	code := c.Query("code")
	if code == "" {
		return errx.Malformed("missing authorization code")
	}

	profile, err := p.Exchange(c.UserContext(), code)
	if err != nil {
		return err
	}

	result, err := h.linker.Link(c.UserContext(), p.Name(), *profile)
	if err != nil {
		h.audit.LogLogin(c.UserContext(), "", "oauth:"+p.Name().Slug(), false, c.IP())
		return err
	}
	h.audit.LogLogin(c.UserContext(), result.UserID, "oauth:"+p.Name().Slug(), true, c.IP())

	h.setCookies(c, result.Tokens)

	if redirectTo == "" {
		redirectTo = h.cfg.ClientHome
		if result.IsAdmin {
			redirectTo = h.cfg.AdminHome
		}
	}
	return c.Redirect(redirectTo, fiber.StatusSeeOther)
}

// safeRedirect keeps only local absolute paths.
func safeRedirect(to string) string {
	if !strings.HasPrefix(to, "/") || strings.HasPrefix(to, "//") || strings.Contains(to, "\\") {
		return ""
	}
	return to
}

// ============================================================================
// Cookies
// ============================================================================

func (h *AuthHandlers) setCookies(c *fiber.Ctx, tokens authsrv.Tokens) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    tokens.Access,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.AccessTTL),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    tokens.Refresh,
		Path:     SessionCookiePath,
		Expires:  tokens.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// clearCookies expires both cookies on the paths they were set with, so
// the deletion matches regardless of the route that triggers it.
func (h *AuthHandlers) clearCookies(c *fiber.Ctx) {
	expired := time.Unix(0, 0)
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Path:     "/",
		Expires:  expired,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Path:     SessionCookiePath,
		Expires:  expired,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
