package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/repository"
)

type fakeUsers struct {
	mu       sync.Mutex
	byID     map[string]*domain.User
	getErr   error
	onCreate func(f *fakeUsers)
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*domain.User)}
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	if hook := f.onCreate; hook != nil {
		f.onCreate = nil
		hook(f)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email {
			return repository.ErrAlreadyExists
		}
	}
	user.ID = "user-" + strconv.Itoa(len(f.byID)+1)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) LinkGoogle(_ context.Context, userID, googleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.GoogleID = &googleID
	if !u.EmailVerified {
		u.PasswordHash = ""
	}
	u.EmailVerified = true
	return nil
}

func (f *fakeUsers) insert(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = "user-" + strconv.Itoa(len(f.byID)+1)
	f.byID[u.ID] = &u
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (f *fakeUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeSessions struct {
	mu        sync.Mutex
	byHash    map[string]*domain.RefreshSession
	createErr error
	revokeErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byHash: make(map[string]*domain.RefreshSession)}
}

func (f *fakeSessions) Create(_ context.Context, s *domain.RefreshSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	s.ID = "session-" + strconv.Itoa(len(f.byHash)+1)
	s.CreatedAt = time.Now().UTC()
	cp := *s
	f.byHash[s.TokenHash] = &cp
	return nil
}

func (f *fakeSessions) GetByHash(_ context.Context, hash string) (*domain.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byHash[hash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Revoke(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return false, f.revokeErr
	}
	s, ok := f.byHash[hash]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	s.RevokedAt = &now
	return true, nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for h, s := range f.byHash {
		if s.ExpiresAt.Before(before) {
			delete(f.byHash, h)
			n++
		}
	}
	return n, nil
}

type fakeCache struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{revoked: make(map[string]time.Duration)}
}

func (f *fakeCache) MarkRevoked(_ context.Context, hash string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.revoked[hash] = ttl
	return nil
}

func (f *fakeCache) IsRevoked(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.revoked[hash]
	return ok, nil
}

type fakeGoogle struct {
	profile *domain.GoogleProfile
	err     error
	url     string
}

func (f *fakeGoogle) ConsentURL() (string, error) {
	if f.url == "" {
		return "", errors.New("no url")
	}
	return f.url, nil
}

func (f *fakeGoogle) Exchange(_ context.Context, _ string) (*domain.GoogleProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}
