package config

import "time"

type OAuthConfig struct {
	Google       OAuthProviderConfig
	StateManager StateManagerConfig
}

type OAuthProviderConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

type StateManagerConfig struct {
	// Type is "redis" or "memory"
	Type string
	TTL  time.Duration
}

func loadOAuthConfig() OAuthConfig {
	return OAuthConfig{
		Google: OAuthProviderConfig{
			Enabled:      getEnvBool("GOOGLE_OAUTH_ENABLED", false),
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/oauth/google/callback"),
			Scopes:       getEnvStringSlice("GOOGLE_SCOPES", []string{"openid", "email", "profile"}),
		},
		StateManager: StateManagerConfig{
			Type: getEnv("OAUTH_STATE_MANAGER", "redis"),
			TTL:  getEnvDuration("OAUTH_STATE_TTL", 10*time.Minute),
		},
	}
}
