// Package supabase implements the Supabase remote store: PostgREST row
// access under row-level security, with password-grant and refresh-token
// session auth.
package supabase

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/trackhub/trackhub/internal/auth"
)

// expirySkew renews sessions slightly early so an in-flight request does
// not race the expiry.
const expirySkew = 30 * time.Second

const sessionKey = "supabase-session"

// Session is an authenticated Supabase session.
type Session struct {
	ExpiresAt    time.Time `json:"expiresAt"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
}

// Expired reports whether the access token needs a refresh.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt.Add(-expirySkew))
}

// fillFromClaims reads sub, exp, and email out of the access token. The
// signature is the server's concern; the client only needs the claims to
// scope rows and schedule refreshes.
func (s *Session) fillFromClaims() error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return fmt.Errorf("failed to parse access token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return fmt.Errorf("access token has no subject")
	}
	s.UserID = sub

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fmt.Errorf("access token has no expiry")
	}
	s.ExpiresAt = exp.Time

	if email, ok := claims["email"].(string); ok {
		s.Email = email
	}
	return nil
}

// SessionStore persists the session between runs.
type SessionStore interface {
	Load() (*Session, error)
	Save(session *Session) error
	Clear() error
}

// tokenStoreSession keeps the session in the shared credential store.
type tokenStoreSession struct {
	store *auth.TokenStore
}

// NewSessionStore adapts the credential store to the SessionStore interface.
func NewSessionStore(store *auth.TokenStore) SessionStore {
	return &tokenStoreSession{store: store}
}

func (s *tokenStoreSession) Load() (*Session, error) {
	data, err := s.store.Load(sessionKey)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode saved session: %w", err)
	}
	return &session, nil
}

func (s *tokenStoreSession) Save(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.store.Save(sessionKey, data)
}

func (s *tokenStoreSession) Clear() error {
	return s.store.Delete(sessionKey)
}
