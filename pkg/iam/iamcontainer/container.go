package iamcontainer

import (
	"context"

	"github.com/Abraxas-365/clientportal/pkg/asyncx"
	"github.com/Abraxas-365/clientportal/pkg/config"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey/apikeyapi"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey/apikeyinfra"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey/apikeysrv"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth/authapi"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth/authsrv"
	"github.com/Abraxas-365/clientportal/pkg/iam/otp"
	"github.com/Abraxas-365/clientportal/pkg/iam/otp/otpinfra"
	"github.com/Abraxas-365/clientportal/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/clientportal/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/clientportal/pkg/logx"
	"github.com/Abraxas-365/clientportal/pkg/metricx"
	"github.com/Abraxas-365/clientportal/pkg/organization/orgapi"
	"github.com/Abraxas-365/clientportal/pkg/organization/orginfra"
	"github.com/Abraxas-365/clientportal/pkg/organization/orgsrv"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies of the identity core.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config

	// OTPNotifier delivers verification codes. Defaults to the log.
	OTPNotifier otp.NotificationService
}

// ---------------------------------------------------------------------------
// Container: what cmd/ and other modules need from the identity core.
// ---------------------------------------------------------------------------

type Container struct {
	// Services
	Resolver            *auth.IdentityResolver
	LinkingService      *authsrv.LinkingService
	LoginService        *authsrv.LoginService
	OTPService          *otpsrv.OTPService
	APIKeyService       *apikeysrv.APIKeyService
	OrganizationService *orgsrv.OrganizationService
	TokenService        auth.TokenService

	// Handlers
	AuthHandlers         *authapi.AuthHandlers
	APIKeyHandlers       *apikeyapi.APIKeyHandlers
	OrganizationHandlers *orgapi.OrganizationHandlers

	// Middleware
	Guard            *auth.RouteGuard
	APIKeyMiddleware *apikeyapi.APIKeyMiddleware

	// bumps runs best-effort API key last-used writes.
	bumps *asyncx.Dispatcher
}

// ---------------------------------------------------------------------------
// New: repos → infra → services → handlers → middleware.
// ---------------------------------------------------------------------------

func New(deps Deps) *Container {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{}
	cfg := deps.Cfg

	// ── Repositories ─────────────────────────────────────────────────────

	userRepo := userinfra.NewPostgresUserRepository(deps.DB)
	accountRepo := userinfra.NewPostgresExternalAccountRepository(deps.DB)
	sessionRepo := authinfra.NewPostgresSessionRepository(deps.DB)
	otpRepo := otpinfra.NewPostgresOTPRepository(deps.DB)
	apiKeyRepo := apikeyinfra.NewPostgresAPIKeyRepository(deps.DB)
	memberRepo := orginfra.NewPostgresMemberRepository(deps.DB)
	billingRepo := orginfra.NewPostgresBillingRepository(deps.DB)

	// ── Infrastructure services ──────────────────────────────────────────

	var stateManager auth.StateManager
	if cfg.OAuth.StateManager.Type == "redis" {
		stateManager = authinfra.NewRedisStateManager(deps.Redis, cfg.OAuth.StateManager.TTL)
		logx.Info("  ✅ Using Redis state manager for OAuth")
	} else {
		stateManager = auth.NewInMemoryStateManager(cfg.OAuth.StateManager.TTL)
		logx.Warn("  ⚠️  Using in-memory state manager (single instance only)")
	}

	passwordSvc := authinfra.NewBcryptPasswordService(cfg.Auth.Password.BcryptCost)
	auditService := authinfra.NewLogxAuditService()
	c.TokenService = auth.NewJWTServiceFromConfig(&cfg.Auth.JWT)

	notifier := deps.OTPNotifier
	if notifier == nil {
		notifier = authinfra.NewLogxNotifier()
	}

	c.bumps = asyncx.NewDispatcher(
		cfg.Auth.APIKey.BumpQueueSize,
		cfg.Auth.APIKey.BumpWorkers,
		asyncx.WithDropHook(func(name string) {
			metricx.BestEffortDropped.WithLabelValues(name).Inc()
		}),
	)

	var providers []auth.OAuthProvider
	if cfg.OAuth.Google.Enabled {
		providers = append(providers, authinfra.NewGoogleProvider(cfg.OAuth.Google))
		logx.Info("  ✅ Google OAuth enabled")
	}

	// ── Domain services ──────────────────────────────────────────────────

	issuer := authsrv.NewSessionIssuer(sessionRepo, c.TokenService, cfg.Auth.JWT.AccessTokenTTL, cfg.Auth.Session.TTL)

	c.Resolver = auth.NewIdentityResolver(c.TokenService, userRepo)
	c.LinkingService = authsrv.NewLinkingService(userRepo, accountRepo, issuer, auditService)
	c.LoginService = authsrv.NewLoginService(userRepo, sessionRepo, passwordSvc, issuer, auditService)
	c.OTPService = otpsrv.NewOTPService(otpRepo, userRepo, notifier, auditService, cfg.Auth.OTP)
	c.OrganizationService = orgsrv.NewOrganizationService(memberRepo, billingRepo)
	c.APIKeyService = apikeysrv.NewAPIKeyService(
		apiKeyRepo,
		c.OrganizationService,
		c.OrganizationService,
		c.bumps,
		cfg.Auth.APIKey,
	)

	// ── Handlers ─────────────────────────────────────────────────────────

	c.AuthHandlers = authapi.NewAuthHandlers(
		c.LoginService,
		c.LinkingService,
		c.OTPService,
		userRepo,
		stateManager,
		auditService,
		providers,
		authapi.Config{
			CookieName:   cfg.Auth.JWT.CookieName,
			CookieSecure: cfg.Auth.JWT.CookieSecure,
			AccessTTL:    cfg.Auth.JWT.AccessTokenTTL,
			ClientHome:   cfg.Server.ClientHome,
			AdminHome:    cfg.Server.AdminHome,
			LoginPath:    cfg.Server.LoginPath,
		},
	)
	c.APIKeyHandlers = apikeyapi.NewAPIKeyHandlers(c.APIKeyService)
	c.OrganizationHandlers = orgapi.NewOrganizationHandlers(c.OrganizationService)

	// ── Middleware ───────────────────────────────────────────────────────

	c.Guard = auth.NewRouteGuard(c.Resolver, auth.GuardConfig{
		CookieName:      cfg.Auth.JWT.CookieName,
		LoginPath:       cfg.Server.LoginPath,
		VerifyEmailPath: cfg.Server.VerifyEmailPath,
		AdminHome:       cfg.Server.AdminHome,
	})
	c.APIKeyMiddleware = apikeyapi.NewAPIKeyMiddleware(c.APIKeyService)

	logx.Info("✅ IAM container initialized")
	return c
}

// RegisterRoutes mounts every identity route on app.
func (c *Container) RegisterRoutes(app fiber.Router) {
	c.AuthHandlers.RegisterRoutes(app, c.Guard)
	c.OrganizationHandlers.RegisterRoutes(app, c.Guard)
	c.APIKeyHandlers.RegisterRoutes(app, c.Guard)
}

// Shutdown drains queued best-effort work until ctx is done.
func (c *Container) Shutdown(ctx context.Context) error {
	return c.bumps.Close(ctx)
}
