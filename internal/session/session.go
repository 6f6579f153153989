// Package session is the auth/session provider: sign-up, sign-in, sign-out,
// token resolution and wallet linkage. It owns no business data. Views never
// look a session up on their own; callers pass the *Session they resolved.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/batteryfi/batteryfi/internal/notify"
	"github.com/batteryfi/batteryfi/internal/store"
	"github.com/batteryfi/batteryfi/internal/supabase"
)

var (
	ErrPasswordMismatch = errors.New("session: passwords do not match")
	ErrInvalidToken     = errors.New("session: invalid access token")
	ErrExpired          = errors.New("session: expired")
)

// Session is the authenticated identity of one user.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`

	cachedAt time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Authenticator is the subset of the auth backend the provider needs.
// *supabase.AuthClient satisfies it.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*supabase.AuthResponse, error)
	SignIn(ctx context.Context, email, password string) (*supabase.AuthResponse, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
}

// SignUpForm is the registration draft.
type SignUpForm struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
}

// NoExpiryTTL bounds how long a session without an exp claim stays cached.
// After that it is resolved against the auth backend again.
const NoExpiryTTL = time.Hour

// Provider tracks the sessions it issued or resolved.
type Provider struct {
	auth      Authenticator
	store     store.Store
	jwtSecret []byte

	mu       sync.RWMutex
	sessions map[string]*Session // access token → session

	now func() time.Time
}

// NewProvider creates a provider. jwtSecret may be empty, in which case
// token claims are read without signature verification and the auth backend
// remains the authority on validity.
func NewProvider(auth Authenticator, st store.Store, jwtSecret string) *Provider {
	return &Provider{
		auth:      auth,
		store:     st,
		jwtSecret: []byte(jwtSecret),
		sessions:  make(map[string]*Session),
		now:       time.Now,
	}
}

// SignUp registers an account. A password mismatch is reported and no
// request reaches the auth backend.
func (p *Provider) SignUp(ctx context.Context, n notify.Notifier, form SignUpForm) error {
	if form.Password != form.ConfirmPassword {
		n.Notify(notify.Failure("Password Mismatch", "Passwords do not match"))
		return ErrPasswordMismatch
	}

	_, err := p.auth.SignUp(ctx, form.Email, form.Password, map[string]any{
		"username":  form.Username,
		"full_name": form.FullName,
	})
	if err != nil {
		n.Notify(notify.Failure("Sign Up Failed", err.Error()))
		return fmt.Errorf("sign up: %w", err)
	}

	n.Notify(notify.Success("Account Created", "Please check your email to verify your account"))
	slog.Info("account created", "email", form.Email)
	return nil
}

// SignIn exchanges credentials for a session and remembers it.
func (p *Provider) SignIn(ctx context.Context, n notify.Notifier, email, password string) (*Session, error) {
	grant, err := p.auth.SignIn(ctx, email, password)
	if err != nil {
		n.Notify(notify.Failure("Sign In Failed", err.Error()))
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if grant.AccessToken == "" || grant.User == nil {
		n.Notify(notify.Failure("Sign In Failed", "no session returned"))
		return nil, ErrInvalidToken
	}

	sess := &Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		UserID:       grant.User.ID,
		Email:        grant.User.Email,
		ExpiresAt:    p.expiry(grant.AccessToken, grant.ExpiresIn),
		cachedAt:     p.now(),
	}

	p.mu.Lock()
	p.sessions[sess.AccessToken] = sess
	p.mu.Unlock()

	n.Notify(notify.Success("Welcome back!", "You have successfully signed in"))
	slog.Info("session started", "user", sess.UserID)
	return sess, nil
}

// SignOut forgets the session locally and revokes it upstream (best-effort).
func (p *Provider) SignOut(ctx context.Context, sess *Session) {
	if sess == nil {
		return
	}
	p.mu.Lock()
	delete(p.sessions, sess.AccessToken)
	p.mu.Unlock()

	if err := p.auth.SignOut(ctx, sess.AccessToken); err != nil {
		slog.Warn("remote sign out failed", "user", sess.UserID, "err", err)
	}
}

// Resolve maps a bearer token to its session, asking the auth backend about
// tokens this process has not seen.
func (p *Provider) Resolve(ctx context.Context, token string) (*Session, error) {
	now := p.now()

	p.mu.RLock()
	sess, ok := p.sessions[token]
	p.mu.RUnlock()
	if ok {
		if sess.Expired(now) {
			p.mu.Lock()
			delete(p.sessions, token)
			p.mu.Unlock()
			return nil, ErrExpired
		}
		return sess, nil
	}

	claims, err := p.parseClaims(token)
	if err != nil {
		return nil, err
	}
	var expiresAt time.Time
	if claims != nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if !expiresAt.IsZero() && !now.Before(expiresAt) {
		return nil, ErrExpired
	}

	user, err := p.auth.GetUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sess = &Session{AccessToken: token, UserID: user.ID, Email: user.Email, ExpiresAt: expiresAt, cachedAt: now}

	p.mu.Lock()
	p.sessions[token] = sess
	p.mu.Unlock()
	return sess, nil
}

// Sweep drops expired sessions and sessions without an expiry cached longer
// than NoExpiryTTL.
func (p *Provider) Sweep() {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	for token, sess := range p.sessions {
		stale := sess.ExpiresAt.IsZero() && now.Sub(sess.cachedAt) > NoExpiryTTL
		if sess.Expired(now) || stale {
			delete(p.sessions, token)
		}
	}
}

// Len returns the number of cached sessions.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// ConnectWallet associates address with the session's profile. Without a
// session there is nothing to associate and the call is a no-op.
func (p *Provider) ConnectWallet(ctx context.Context, sess *Session, address string) error {
	if sess == nil {
		return nil
	}
	st := store.ForToken(p.store, sess.AccessToken)
	if err := st.LinkWallet(ctx, sess.UserID, address); err != nil {
		return fmt.Errorf("link wallet: %w", err)
	}
	slog.Info("wallet linked", "user", sess.UserID, "address", address)
	return nil
}

// expiry prefers the token's own exp claim and falls back to expires_in.
func (p *Provider) expiry(token string, expiresIn int) time.Time {
	if claims, err := p.parseClaims(token); err == nil && claims != nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if expiresIn > 0 {
		return p.now().Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Time{}
}

// parseClaims reads the registered claims of a JWT access token. Opaque
// (non-JWT) tokens yield nil claims and no error.
func (p *Provider) parseClaims(token string) (*jwt.RegisteredClaims, error) {
	if strings.Count(token, ".") != 2 {
		if len(p.jwtSecret) > 0 {
			return nil, ErrInvalidToken
		}
		return nil, nil
	}

	claims := &jwt.RegisteredClaims{}
	if len(p.jwtSecret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return claims, nil
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
