// Package iam is the identity, session and authorization core of the client
// portal.
//
// # Layout
//
//   - iam/auth          bearer credential codec, identity resolver, route guard, sessions
//   - iam/auth/authsrv  OAuth account linking and password login
//   - iam/auth/authapi  HTTP handlers for login, OAuth, logout and email verification
//   - iam/user          users and their external provider accounts
//   - iam/apikey        organization API keys, scopes and validation
//   - iam/rbac          the per-action role permission matrix
//   - organization      memberships and the billing gate (pkg/organization)
//   - iam/otp           email verification codes
//
// Each sub-domain follows the same shape:
//
//	HTTP Handler  →  Service  →  Repository port  →  Infrastructure (Postgres/Redis)
//
// # Request flow
//
// The route guard pulls the bearer credential from "Authorization: Bearer"
// or, failing that, the auth_token cookie. The identity resolver verifies it
// and re-reads the user, so a deleted user is rejected even with a valid
// signature. The guard then applies, in order: unauthenticated, unverified,
// admin required, admin redirected to the admin surface.
//
// API routes use API keys instead:
//
//	api := app.Group("/api/v1/pos", apiKeys.Require(apikey.ScopePOSWrite))
//
// Organization scoped mutations pass two checks: rbac.CanAccessOrganization
// (global admins bypass membership) and rbac.RequirePermission for the action.
//
// # Errors
//
// Every rejection is an *errx.Error whose Type is one of UNAUTHENTICATED,
// UNVERIFIED, FORBIDDEN, NOT_FOUND, CONFLICT, MALFORMED, RATE_LIMITED or
// UNAVAILABLE.
// Store failures always surface as UNAVAILABLE.
package iam
