package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// mockUsers is an in-memory user.Repository.
type mockUsers struct {
	mu    sync.Mutex
	users map[kernel.UserID]user.User
	err   error
}

func newMockUsers(users ...user.User) *mockUsers {
	m := &mockUsers{users: make(map[kernel.UserID]user.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUsers) FindByID(_ context.Context, id kernel.UserID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound()
	}
	return &u, nil
}

func (m *mockUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if user.NormalizeEmail(u.Email) == user.NormalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, user.ErrUserNotFound()
}

func (m *mockUsers) Create(_ context.Context, u user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *mockUsers) CreateWithExternalAccount(ctx context.Context, u user.User, _ user.ExternalAccount) error {
	return m.Create(ctx, u)
}

func (m *mockUsers) MarkVerified(_ context.Context, id kernel.UserID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.MarkVerified(at)
	m.users[id] = u
	return nil
}

func (m *mockUsers) UpdateProfile(context.Context, kernel.UserID, string, string) error {
	return nil
}

func (m *mockUsers) delete(id kernel.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func verifiedUser(id kernel.UserID, email string, admin bool) user.User {
	now := time.Now()
	return user.User{ID: id, Email: email, IsAdmin: admin, EmailVerifiedAt: &now}
}
