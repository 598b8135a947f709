package authsrv_test

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// memStore enforces the same unique constraints as the schema:
// lower(email) and (provider, provider_account_id).
type memStore struct {
	mu       sync.Mutex
	users    map[kernel.UserID]user.User
	accounts map[string]user.ExternalAccount
	sessions map[string]auth.Session

	// beforeWrite runs once before the next insert, unlocked. Tests use it to
	// let a concurrent request win.
	beforeWrite func()
	userCreates int
	accCreates  int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[kernel.UserID]user.User),
		accounts: make(map[string]user.ExternalAccount),
		sessions: make(map[string]auth.Session),
	}
}

func accountKey(p iam.OAuthProvider, id string) string { return string(p) + "|" + id }

func (m *memStore) hook() {
	m.mu.Lock()
	fn := m.beforeWrite
	m.beforeWrite = nil
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// users

type memUsers struct{ *memStore }

func (m memUsers) FindByID(_ context.Context, id kernel.UserID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound()
	}
	return &u, nil
}

func (m memUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmailLocked(email)
}

func (m *memStore) byEmailLocked(email string) (*user.User, error) {
	for _, u := range m.users {
		if user.NormalizeEmail(u.Email) == user.NormalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, user.ErrUserNotFound()
}

func (m memUsers) Create(_ context.Context, u user.User) error {
	m.hook()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertUserLocked(u)
}

func (m *memStore) insertUserLocked(u user.User) error {
	if _, err := m.byEmailLocked(u.Email); err == nil {
		return user.ErrUserAlreadyExists()
	}
	m.users[u.ID] = u
	m.userCreates++
	return nil
}

func (m *memStore) insertAccountLocked(acc user.ExternalAccount) error {
	key := accountKey(acc.Provider, acc.ProviderAccountID)
	if _, ok := m.accounts[key]; ok {
		return user.ErrExternalAccountExists()
	}
	m.accounts[key] = acc
	m.accCreates++
	return nil
}

func (m memUsers) CreateWithExternalAccount(_ context.Context, u user.User, acc user.ExternalAccount) error {
	m.hook()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.byEmailLocked(u.Email); err == nil {
		return user.ErrUserAlreadyExists()
	}
	if _, ok := m.accounts[accountKey(acc.Provider, acc.ProviderAccountID)]; ok {
		return user.ErrExternalAccountExists()
	}
	_ = m.insertUserLocked(u)
	return m.insertAccountLocked(acc)
}

func (m memUsers) MarkVerified(_ context.Context, id kernel.UserID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrUserNotFound()
	}
	u.MarkVerified(at)
	m.users[id] = u
	return nil
}

func (m memUsers) UpdateProfile(context.Context, kernel.UserID, string, string) error { return nil }

// external accounts

type memAccounts struct{ *memStore }

func (m memAccounts) FindByProviderAccount(_ context.Context, p iam.OAuthProvider, id string) (*user.ExternalAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[accountKey(p, id)]
	if !ok {
		return nil, user.ErrExternalAccountNotFound()
	}
	return &acc, nil
}

func (m memAccounts) Create(_ context.Context, acc user.ExternalAccount) error {
	m.hook()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertAccountLocked(acc)
}

func (m memAccounts) UpdateTokens(_ context.Context, acc user.ExternalAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := accountKey(acc.Provider, acc.ProviderAccountID)
	if _, ok := m.accounts[key]; !ok {
		return user.ErrExternalAccountNotFound()
	}
	m.accounts[key] = acc
	return nil
}

// sessions

type memSessions struct{ *memStore }

func (m memSessions) Create(_ context.Context, s auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m memSessions) FindByToken(_ context.Context, token string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, auth.ErrSessionNotFound()
	}
	return &s, nil
}

func (m memSessions) DeleteByToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m memSessions) DeleteByUser(_ context.Context, id kernel.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.sessions {
		if s.UserID == id {
			delete(m.sessions, k)
		}
	}
	return nil
}

// audit

type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAudit) add(e string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) LogLogin(_ context.Context, _ kernel.UserID, method string, success bool, _ string) {
	if success {
		a.add("login:" + method)
		return
	}
	a.add("login_failed:" + method)
}
func (a *recordingAudit) LogLogout(context.Context, kernel.UserID, string) { a.add("logout") }
func (a *recordingAudit) LogAccountCreated(_ context.Context, _ kernel.UserID, method string) {
	a.add("created:" + method)
}
func (a *recordingAudit) LogAccountLinked(_ context.Context, _ kernel.UserID, provider string) {
	a.add("linked:" + provider)
}
func (a *recordingAudit) LogEmailVerified(context.Context, kernel.UserID) { a.add("verified") }

// plainPasswords compares in clear text.
type plainPasswords struct{}

func (plainPasswords) Hash(p string) (string, error) { return "plain:" + p, nil }
func (plainPasswords) Compare(hash, p string) bool  { return hash != "" && hash == "plain:"+p }
