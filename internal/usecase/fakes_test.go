package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
)

// memoryUserRepo is an in-memory port.UserRepository honouring the same
// uniqueness and version-conflict semantics as the postgres implementation.
type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]*domain.User)}
}

func (r *memoryUserRepo) clone(u *domain.User) *domain.User {
	copied := *u
	copied.RefreshTokenHashes = append([]string(nil), u.RefreshTokenHashes...)
	if u.ExternalID != nil {
		id := *u.ExternalID
		copied.ExternalID = &id
	}
	return &copied
}

func (r *memoryUserRepo) Create(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, &repository.DuplicateFieldError{Field: "email"}
		}
		if existing.Name == user.Name {
			return nil, &repository.DuplicateFieldError{Field: "name"}
		}
		if existing.ExternalID != nil && user.ExternalID != nil && *existing.ExternalID == *user.ExternalID {
			return nil, &repository.DuplicateFieldError{Field: "external_id"}
		}
	}

	r.nextID++
	user.ID = r.nextID
	user.RegisteredAt = time.Now().UTC()
	if user.RefreshTokenHashes == nil {
		user.RefreshTokenHashes = []string{}
	}
	r.users[user.ID] = r.clone(&user)

	return r.clone(&user), nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.clone(user), nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			return r.clone(user), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByExternalID(_ context.Context, externalID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.ExternalID != nil && *user.ExternalID == externalID {
			return r.clone(user), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) Update(_ context.Context, id int64, name, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for otherID, other := range r.users {
		if otherID == id {
			continue
		}
		if other.Email == email {
			return nil, &repository.DuplicateFieldError{Field: "email"}
		}
		if other.Name == name {
			return nil, &repository.DuplicateFieldError{Field: "name"}
		}
	}

	user.Name = name
	user.Email = email
	return r.clone(user), nil
}

func (r *memoryUserRepo) SetEmailConfirmed(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsEmailConfirmed = true
	return nil
}

func (r *memoryUserRepo) UpdateRefreshTokens(_ context.Context, id int64, hashes []string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if user.TokenVersion != expectedVersion {
		return repository.ErrVersionConflict
	}

	user.RefreshTokenHashes = append([]string(nil), hashes...)
	user.TokenVersion = expectedVersion + 1
	return nil
}

// recordingMailer captures outbound messages.
type recordingMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	fail  error
	delay time.Duration
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.fail != nil {
		return m.fail
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) messages() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

// recordingPublisher counts events by type.
type recordingPublisher struct {
	mu         sync.Mutex
	registered []domain.UserRegisteredEvent
	confirmed  []domain.EmailConfirmedEvent
	revoked    []domain.SessionRevokedEvent
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *recordingPublisher) PublishEmailConfirmed(_ context.Context, event domain.EmailConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, event)
	return nil
}

func (p *recordingPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

// stubProvider returns canned exchange and profile responses.
type stubProvider struct {
	exchangeErr error
	profileErr  error
	profile     domain.ProviderProfile
	exchanged   []string
}

func (s *stubProvider) Exchange(_ context.Context, code string) (string, error) {
	s.exchanged = append(s.exchanged, code)
	if s.exchangeErr != nil {
		return "", s.exchangeErr
	}
	return "provider-access-token", nil
}

func (s *stubProvider) FetchProfile(_ context.Context, accessToken string) (*domain.ProviderProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	if accessToken != "provider-access-token" {
		return nil, fmt.Errorf("unexpected access token %q", accessToken)
	}
	profile := s.profile
	return &profile, nil
}
