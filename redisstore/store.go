package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mfackner/authsync"
	"github.com/mfackner/authsync/password"
	"github.com/mfackner/authsync/token"
)

// Config for a Store.
type Config struct {
	// KeyPrefix namespaces all keys and the event channel. Default "authsync".
	KeyPrefix string
	// SessionTTL bounds session lifetime. Default 24h.
	SessionTTL time.Duration
	// TokenSecret signs access tokens (HS256, >= 32 bytes).
	TokenSecret []byte
	// Issuer is stamped into minted tokens.
	Issuer string
	// RequireVerification makes sign-up return no session until the account's
	// email is verified, and makes sign-in fail with ErrAccountUnverified.
	RequireVerification bool
	// ClientID scopes the change-event channel to one logical client. Store
	// instances sharing a ClientID observe each other's sign-ins and
	// sign-outs, the same way browser tabs share one auth state. Defaults to
	// a random ID, i.e. an isolated client.
	ClientID string
	// Hasher overrides the argon2id cost profile. Defaults to
	// password.DefaultConfig.
	Hasher password.Config
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.KeyPrefix == "" {
		out.KeyPrefix = "authsync"
	}
	if out.SessionTTL <= 0 {
		out.SessionTTL = 24 * time.Hour
	}
	if out.ClientID == "" {
		out.ClientID = uuid.NewString()
	}
	if out.Hasher == (password.Config{}) {
		out.Hasher = password.DefaultConfig()
	}
	return out
}

// Store is a Redis-backed implementation of [authsync.SessionStore]. It plays
// the role of the hosted identity provider for development and tests: accounts
// and sessions live in Redis, and session-change events fan out over Redis
// pub/sub so every Store sharing a ClientID sees the same push stream.
type Store struct {
	rdb    *redis.Client
	cfg    Config
	tokens *token.Manager
	hasher *password.Argon2
	logger *zap.Logger

	mu          sync.Mutex
	current     *authsync.Session
	subscribers map[int]func(authsync.EventKind, *authsync.Session)
	nextSubID   int
	pubsub      *redis.PubSub
	closed      bool
	listenerWG  sync.WaitGroup
}

// New validates the configuration and returns a Store. The Redis connection is
// not touched until the first operation.
func New(rdb *redis.Client, cfg Config, logger *zap.Logger) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	cfg = cfg.withDefaults()

	tokens, err := token.NewManager(token.Config{
		Secret: cfg.TokenSecret,
		TTL:    cfg.SessionTTL,
		Issuer: cfg.Issuer,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(cfg.Hasher)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		rdb:         rdb,
		cfg:         cfg,
		tokens:      tokens,
		hasher:      hasher,
		logger:      logger,
		subscribers: make(map[int]func(authsync.EventKind, *authsync.Session)),
	}, nil
}

func (s *Store) accountKey(email string) string {
	return s.cfg.KeyPrefix + ":acct:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) sessionKey(id string) string {
	return s.cfg.KeyPrefix + ":sess:" + id
}

// SignInWithCredentials checks the password against the stored argon2id hash
// and creates a session. The signed_in change event is published before the
// call returns, so subscribers and the caller race exactly as they would
// against a hosted provider.
func (s *Store) SignInWithCredentials(ctx context.Context, email, pw string) (*authsync.Credentials, error) {
	acct, err := s.rdb.HGetAll(ctx, s.accountKey(email)).Result()
	if err != nil {
		return nil, providerErr(err)
	}
	if len(acct) == 0 {
		return nil, authsync.ErrUserNotFound
	}

	ok, err := s.hasher.Verify(pw, acct["password_hash"])
	if err != nil || !ok {
		return nil, authsync.ErrInvalidCredentials
	}
	if s.cfg.RequireVerification && acct["verified"] != "1" {
		return nil, authsync.ErrAccountUnverified
	}

	user := &authsync.UserIdentity{
		ID:      acct["id"],
		Email:   acct["email"],
		Name:    acct["name"],
		Company: acct["company"],
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.setCurrent(session)
	s.publish(ctx, authsync.EventSignedIn, session)

	return &authsync.Credentials{Session: session, User: user}, nil
}

// SignUpWithCredentials creates the account. With RequireVerification set it
// returns no session — the provider's signal that verification is pending.
func (s *Store) SignUpWithCredentials(ctx context.Context, email, pw string, meta authsync.UserMetadata) (*authsync.Credentials, error) {
	key := s.accountKey(email)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return nil, providerErr(err)
	}
	if exists > 0 {
		return nil, authsync.ErrAccountExists
	}

	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &authsync.UserIdentity{
		ID:      uuid.NewString(),
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Name:    meta.Name,
		Company: meta.Company,
	}

	verified := "1"
	if s.cfg.RequireVerification {
		verified = "0"
	}
	err = s.rdb.HSet(ctx, key,
		"id", user.ID,
		"email", user.Email,
		"name", user.Name,
		"company", user.Company,
		"password_hash", hash,
		"verified", verified,
	).Err()
	if err != nil {
		return nil, providerErr(err)
	}

	if s.cfg.RequireVerification {
		return &authsync.Credentials{User: user}, nil
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.setCurrent(session)
	s.publish(ctx, authsync.EventSignedIn, session)

	return &authsync.Credentials{Session: session, User: user}, nil
}

// SignOut deletes the current session and publishes the signed_out event.
// Signing out without a current session is a no-op, not an error.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current != nil {
		if err := s.rdb.Del(ctx, s.sessionKey(current.ID)).Err(); err != nil {
			return providerErr(err)
		}
	}

	s.publish(ctx, authsync.EventSignedOut, nil)
	return nil
}

// CurrentSession returns the locally-cached session after revalidating it
// against Redis. A session that expired or was revoked elsewhere resolves to
// nil, not an error.
func (s *Store) CurrentSession(ctx context.Context) (*authsync.Session, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == nil {
		return nil, nil
	}
	if current.Expired(time.Now()) {
		s.clearCurrent(current.ID)
		return nil, nil
	}

	exists, err := s.rdb.Exists(ctx, s.sessionKey(current.ID)).Result()
	if err != nil {
		return nil, providerErr(err)
	}
	if exists == 0 {
		s.clearCurrent(current.ID)
		return nil, nil
	}

	return cloneSession(current), nil
}

// MarkVerified flips the account's verification flag. Stands in for the
// email-confirmation callback a hosted provider would run.
func (s *Store) MarkVerified(ctx context.Context, email string) error {
	key := s.accountKey(email)
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return providerErr(err)
	}
	if exists == 0 {
		return authsync.ErrUserNotFound
	}
	if err := s.rdb.HSet(ctx, key, "verified", "1").Err(); err != nil {
		return providerErr(err)
	}
	return nil
}

func (s *Store) createSession(ctx context.Context, user *authsync.UserIdentity) (*authsync.Session, error) {
	id := uuid.NewString()

	accessToken, expiresAt, err := s.tokens.Mint(user.ID, user.Email, user.Name, user.Company, id)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	session := &authsync.Session{
		ID:          id,
		SubjectID:   user.ID,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		User:        user,
	}

	err = s.rdb.HSet(ctx, s.sessionKey(id),
		"id", id,
		"subject_id", user.ID,
		"token", accessToken,
		"expires_at", expiresAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return nil, providerErr(err)
	}
	if err := s.rdb.Expire(ctx, s.sessionKey(id), s.cfg.SessionTTL).Err(); err != nil {
		return nil, providerErr(err)
	}

	return session, nil
}

func (s *Store) setCurrent(session *authsync.Session) {
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()
}

func (s *Store) clearCurrent(id string) {
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()
}

// Close tears down the pub/sub listener. The Redis client itself belongs to
// the caller.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pubsub := s.pubsub
	s.pubsub = nil
	s.mu.Unlock()

	var err error
	if pubsub != nil {
		err = pubsub.Close()
	}
	s.listenerWG.Wait()
	return err
}

func providerErr(err error) error {
	return fmt.Errorf("%w: %v", authsync.ErrProviderUnavailable, err)
}

func cloneSession(session *authsync.Session) *authsync.Session {
	if session == nil {
		return nil
	}
	out := *session
	if session.User != nil {
		user := *session.User
		out.User = &user
	}
	return &out
}
