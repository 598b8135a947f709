package authsrv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth/authsrv"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

const google = iam.OAuthProviderGoogle

type linkFixture struct {
	store  *memStore
	audit  *recordingAudit
	codec  *auth.JWTService
	svc    *authsrv.LinkingService
	issuer *authsrv.SessionIssuer
	now    time.Time
}

func newLinkFixture() *linkFixture {
	f := &linkFixture{
		store: newMemStore(),
		audit: &recordingAudit{},
		now:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.codec = auth.NewJWTService("test-secret", "portal").WithClock(clock)
	f.issuer = authsrv.NewSessionIssuer(memSessions{f.store}, f.codec, time.Hour, 7*24*time.Hour).WithClock(clock)
	f.svc = authsrv.NewLinkingService(memUsers{f.store}, memAccounts{f.store}, f.issuer, f.audit).WithClock(clock)
	return f
}

func profile(id, email string) auth.OAuthProfile {
	return auth.OAuthProfile{
		ProviderAccountID: id,
		Email:             email,
		DisplayName:       "Ana",
		AccessToken:       "access-1",
		RefreshToken:      "refresh-1",
	}
}

func TestLinkCreatesVerifiedUserWithSession(t *testing.T) {
	f := newLinkFixture()

	res, err := f.svc.Link(context.Background(), google, profile("g-1", "Ana@X.com"))
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if res.Branch != authsrv.BranchCreated {
		t.Fatalf("expected created branch, got %s", res.Branch)
	}
	if !res.EmailVerified || res.Email != "ana@x.com" {
		t.Fatalf("unexpected result %+v", res.AuthResult)
	}
	if f.store.userCreates != 1 || f.store.accCreates != 1 {
		t.Fatalf("expected one user and one account, got %d/%d", f.store.userCreates, f.store.accCreates)
	}

	session, ok := f.store.sessions[res.Tokens.Refresh]
	if !ok {
		t.Fatalf("session row not created")
	}
	if want := f.now.Add(7 * 24 * time.Hour); !session.ExpiresAt.Equal(want) {
		t.Fatalf("session expiry %v, want %v", session.ExpiresAt, want)
	}

	claims, err := f.codec.Verify(res.Tokens.Access)
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if claims.UserID != res.UserID || !claims.EmailVerified {
		t.Fatalf("claims do not match user: %+v", claims)
	}
}

func TestLinkIsIdempotentPerProviderAccount(t *testing.T) {
	f := newLinkFixture()
	ctx := context.Background()

	first, err := f.svc.Link(ctx, google, profile("g-1", "ana@x.com"))
	if err != nil {
		t.Fatalf("first link: %v", err)
	}

	second := profile("g-1", "ana@x.com")
	second.AccessToken = "access-2"
	second.RefreshToken = ""
	again, err := f.svc.Link(ctx, google, second)
	if err != nil {
		t.Fatalf("second link: %v", err)
	}

	if again.UserID != first.UserID || again.Branch != authsrv.BranchExisting {
		t.Fatalf("expected same user via existing account, got %s (%s)", again.UserID, again.Branch)
	}
	if f.store.userCreates != 1 || f.store.accCreates != 1 {
		t.Fatalf("second callback must create nothing, got %d users / %d accounts", f.store.userCreates, f.store.accCreates)
	}
	if first.Tokens.Refresh == again.Tokens.Refresh {
		t.Fatalf("every login opens a fresh session")
	}

	acc := f.store.accounts[accountKey(google, "g-1")]
	if acc.AccessToken != "access-2" || acc.RefreshToken != "refresh-1" {
		t.Fatalf("tokens not refreshed correctly: %+v", acc)
	}
}

// Merging by email is intentional: the provider's verified email is treated as
// proof that both identities belong to the same person.
func TestLinkMergesByEmailIntentionally(t *testing.T) {
	f := newLinkFixture()
	existing := user.User{ID: "u-existing", Email: "a@x.com", PasswordHash: "plain:pw"}
	f.store.users[existing.ID] = existing

	res, err := f.svc.Link(context.Background(), google, profile("g-9", "A@x.com"))
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if res.UserID != existing.ID || res.Branch != authsrv.BranchEmailMerge {
		t.Fatalf("expected merge into %s, got %s (%s)", existing.ID, res.UserID, res.Branch)
	}
	if f.store.userCreates != 0 || f.store.accCreates != 1 {
		t.Fatalf("merge must create only the external account, got %d/%d", f.store.userCreates, f.store.accCreates)
	}
	if len(f.audit.events) != 1 || f.audit.events[0] != "linked:google" {
		t.Fatalf("unexpected audit trail %v", f.audit.events)
	}
}

func TestLinkWithoutEmailCreatesNothing(t *testing.T) {
	f := newLinkFixture()

	_, err := f.svc.Link(context.Background(), google, profile("g-1", "  "))
	if !errors.Is(err, auth.ErrOAuthEmailRequired()) {
		t.Fatalf("expected email required, got %v", err)
	}
	if len(f.store.users) != 0 || len(f.store.accounts) != 0 || len(f.store.sessions) != 0 {
		t.Fatalf("no rows may be written")
	}
}

func TestLinkReResolvesAfterLosingRace(t *testing.T) {
	f := newLinkFixture()
	winner := kernel.UserID("u-winner")

	// A concurrent callback for the same provider account commits first.
	f.store.beforeWrite = func() {
		f.store.mu.Lock()
		defer f.store.mu.Unlock()
		_ = f.store.insertUserLocked(user.User{ID: winner, Email: "ana@x.com"})
		_ = f.store.insertAccountLocked(user.ExternalAccount{
			ID: "acc-winner", UserID: winner, Provider: google, ProviderAccountID: "g-1",
		})
	}

	res, err := f.svc.Link(context.Background(), google, profile("g-1", "ana@x.com"))
	if err != nil {
		t.Fatalf("losing the race must not fail the login: %v", err)
	}
	if res.UserID != winner || res.Branch != authsrv.BranchExisting {
		t.Fatalf("expected the winner's user, got %s (%s)", res.UserID, res.Branch)
	}
	if len(f.store.users) != 1 {
		t.Fatalf("duplicate user created")
	}
}

type alwaysConflict struct{ memUsers }

func (alwaysConflict) CreateWithExternalAccount(context.Context, user.User, user.ExternalAccount) error {
	return user.ErrUserAlreadyExists()
}

func TestLinkGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newLinkFixture()
	svc := authsrv.NewLinkingService(alwaysConflict{memUsers{f.store}}, memAccounts{f.store}, f.issuer, f.audit)

	_, err := svc.Link(context.Background(), google, profile("g-1", "ana@x.com"))
	if !errors.Is(err, auth.ErrLinkConflict(nil)) || !errx.IsType(err, errx.TypeConflict) {
		t.Fatalf("expected link conflict, got %v", err)
	}
}

type failingAccounts struct{ memAccounts }

func (failingAccounts) FindByProviderAccount(context.Context, iam.OAuthProvider, string) (*user.ExternalAccount, error) {
	return nil, iam.ErrUnavailable(errors.New("timeout"))
}

func TestLinkStoreFailureIsUnavailable(t *testing.T) {
	f := newLinkFixture()
	svc := authsrv.NewLinkingService(memUsers{f.store}, failingAccounts{memAccounts{f.store}}, f.issuer, f.audit)

	_, err := svc.Link(context.Background(), google, profile("g-1", "ana@x.com"))
	if !errx.IsType(err, errx.TypeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if len(f.store.users) != 0 {
		t.Fatalf("nothing may be created on store failure")
	}
}
