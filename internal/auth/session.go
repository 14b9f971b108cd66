package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

// Service is the auth/session contract consumed by the gateway and HTTP
// handlers. The identity returned here is the string players are seated
// under in games and escrowed under in the ledger.
type Service interface {
	Register(username, password string) (identity, sessionToken string, err error)
	Login(username, password string) (identity, sessionToken string, err error)
	ResolveSession(token string) (identity string, ok bool)
	Guest() (identity, sessionToken string)
	Logout(token string)
	Close() error
}

// Manager provides in-memory account/session management for single-binary
// deployment. It can be swapped to persistent storage later without changing
// gateway contracts.
type Manager struct {
	mu sync.Mutex

	nextGuestID uint64
	sessionTTL  time.Duration
	sessions    map[string]sessionRecord // token -> identity
	accounts    map[string]accountRecord // normalized username -> profile
}

type sessionRecord struct {
	Identity  string
	ExpiresAt time.Time
}

type accountRecord struct {
	Username      string
	PasswordHash  []byte
	LastLoginTime time.Time
}

func NewManager() *Manager {
	return &Manager{
		nextGuestID: 100000, // start from a readable non-trivial range
		sessionTTL:  defaultSessionTTL,
		sessions:    make(map[string]sessionRecord),
		accounts:    make(map[string]accountRecord),
	}
}

func (m *Manager) Close() error { return nil }

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if !usernamePattern.MatchString(trimmed) {
		return ErrInvalidUsername
	}
	// Reserved for Guest identities.
	if strings.HasPrefix(strings.ToLower(trimmed), "guest-") {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func (m *Manager) issueSessionLocked(identity string, now time.Time) string {
	sessionToken := mustToken()
	m.sessions[sessionToken] = sessionRecord{
		Identity:  identity,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	return sessionToken
}

func (m *Manager) resolveSessionLocked(token string, now time.Time) (identity string, ok bool) {
	if token == "" {
		return "", false
	}
	rec, exists := m.sessions[token]
	if !exists {
		return "", false
	}
	if !now.Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return "", false
	}
	rec.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = rec
	return rec.Identity, true
}

// Register creates a new account and returns an authenticated session token.
func (m *Manager) Register(username, password string) (identity, sessionToken string, err error) {
	if err = validateUsername(username); err != nil {
		return "", "", err
	}
	if err = validatePassword(password); err != nil {
		return "", "", err
	}

	normalized := normalizeUsername(username)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[normalized]; exists {
		return "", "", ErrUsernameTaken
	}

	now := time.Now()
	m.accounts[normalized] = accountRecord{
		Username:      normalized,
		PasswordHash:  passwordHash,
		LastLoginTime: now,
	}

	sessionToken = m.issueSessionLocked(normalized, now)
	return normalized, sessionToken, nil
}

// Login validates account credentials and returns a fresh authenticated session.
func (m *Manager) Login(username, password string) (identity, sessionToken string, err error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return "", "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	profile, exists := m.accounts[normalized]
	if !exists || len(profile.PasswordHash) == 0 {
		return "", "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(profile.PasswordHash, []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}

	now := time.Now()
	profile.LastLoginTime = now
	m.accounts[normalized] = profile
	sessionToken = m.issueSessionLocked(normalized, now)
	return normalized, sessionToken, nil
}

// ResolveSession validates and refreshes a session token.
func (m *Manager) ResolveSession(token string) (identity string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveSessionLocked(token, time.Now())
}

// Guest mints a throwaway identity with a live session. Guest identities
// are never registered usernames, so they cannot collide with accounts.
func (m *Manager) Guest() (identity, sessionToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextGuestID++
	identity = fmt.Sprintf("guest-%d", m.nextGuestID)
	sessionToken = m.issueSessionLocked(identity, time.Now())
	return identity, sessionToken
}

// Logout invalidates a session token.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
