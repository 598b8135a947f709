package config

import "time"

type AuthConfig struct {
	JWT      JWTConfig
	Session  SessionConfig
	Password PasswordConfig
	APIKey   APIKeyConfig
	OTP      OTPConfig
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL time.Duration
	Issuer         string
	// CookieName is the cookie read when no Authorization header is sent.
	CookieName   string
	CookieSecure bool
}

type SessionConfig struct {
	TTL time.Duration
}

type PasswordConfig struct {
	BcryptCost int
}

type APIKeyConfig struct {
	Prefix           string
	RandomLength     int
	DefaultRateLimit int
	// BumpQueueSize bounds the best-effort last-used queue.
	BumpQueueSize int
	BumpWorkers   int
}

type OTPConfig struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
	// SendTimeout bounds a single notifier call. Zero means unbounded.
	SendTimeout time.Duration
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", ""),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TTL", time.Hour),
			Issuer:         getEnv("JWT_ISSUER", "clientportal"),
			CookieName:     getEnv("AUTH_COOKIE_NAME", "auth_token"),
			CookieSecure:   getEnvBool("AUTH_COOKIE_SECURE", true),
		},
		Session: SessionConfig{
			TTL: getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		},
		Password: PasswordConfig{
			BcryptCost: getEnvInt("BCRYPT_COST", 12),
		},
		APIKey: APIKeyConfig{
			Prefix:           getEnv("API_KEY_PREFIX", "cvt_"),
			RandomLength:     getEnvInt("API_KEY_RANDOM_LENGTH", 40),
			DefaultRateLimit: getEnvInt("API_KEY_DEFAULT_RATE_LIMIT", 60),
			BumpQueueSize:    getEnvInt("API_KEY_BUMP_QUEUE_SIZE", 1024),
			BumpWorkers:      getEnvInt("API_KEY_BUMP_WORKERS", 2),
		},
		OTP: OTPConfig{
			CodeLength:  getEnvInt("OTP_CODE_LENGTH", 6),
			TTL:         getEnvDuration("OTP_TTL", 15*time.Minute),
			MaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
			SendTimeout: getEnvDuration("OTP_SEND_TIMEOUT", 10*time.Second),
		},
	}
}
