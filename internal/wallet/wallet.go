// Package wallet provides wallet sessions for HTTP callers: a sign-in
// challenge, EIP-191 signature verification, and bearer tokens whose
// validity answers the table gate's "is a wallet connected" question.
package wallet

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/trader-leaderboard/internal/config"
)

var (
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidSignature = errors.New("invalid wallet signature")
	ErrChallengeExpired = errors.New("wallet challenge expired or unknown")
	ErrUnauthorized     = errors.New("wallet not connected")

	// ErrUnsupportedWallet is an address of a wallet family that cannot sign
	// in here, such as a base58 Solana account.
	ErrUnsupportedWallet = fmt.Errorf("%w: only hex accounts with personal_sign can connect", ErrInvalidAddress)
)

// Context is the connection state of one caller. It satisfies the table
// package's WalletContext.
type Context struct {
	Address   string `json:"address,omitempty"`
	connected bool
}

// Connected reports whether the caller holds a valid session.
func (c Context) Connected() bool { return c.connected }

// Static returns a Context with a fixed answer, for the CLI and tests.
func Static(connected bool) Context { return Context{connected: connected} }

// Challenge is the message a wallet must sign to connect.
type Challenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Session is an issued bearer token.
type Session struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager issues challenges and sessions. It keeps pending challenges and
// revoked token ids in memory.
type Manager struct {
	secret       []byte
	domain       string
	sessionTTL   time.Duration
	challengeTTL time.Duration
	now          func() time.Time

	mu         sync.Mutex
	challenges map[string]Challenge
	revoked    map[string]time.Time
}

// NewManager creates a manager from cfg. Without a configured secret a
// random one is generated, so sessions do not survive a restart.
func NewManager(cfg config.WalletConfig) (*Manager, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generating session secret: %w", err)
		}
		logrus.Warn("JWT_SECRET not set, using an ephemeral session secret")
	}

	return &Manager{
		secret:       secret,
		domain:       cfg.Domain,
		sessionTTL:   cfg.SessionTTL,
		challengeTTL: cfg.ChallengeTTL,
		now:          time.Now,
		challenges:   make(map[string]Challenge),
		revoked:      make(map[string]time.Time),
	}, nil
}

// Challenge creates a single-use sign-in message for address, replacing any
// pending one.
func (m *Manager) Challenge(address string) (Challenge, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return Challenge{}, err
	}

	now := m.now()
	c := Challenge{
		Address:   addr.Hex(),
		Nonce:     uuid.NewString(),
		ExpiresAt: now.Add(m.challengeTTL),
	}
	c.Message = fmt.Sprintf("%s wants you to sign in with your wallet:\n%s\n\nNonce: %s\nIssued At: %s",
		m.domain, c.Address, c.Nonce, now.UTC().Format(time.RFC3339))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune(now)
	m.challenges[c.Address] = c
	return c, nil
}

// Connect verifies the signature over the pending challenge for address and
// issues a session token.
func (m *Manager) Connect(address, signature string) (Session, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return Session{}, err
	}

	now := m.now()
	m.mu.Lock()
	c, ok := m.challenges[addr.Hex()]
	delete(m.challenges, addr.Hex())
	m.mu.Unlock()

	if !ok || now.After(c.ExpiresAt) {
		return Session{}, ErrChallengeExpired
	}

	signer, err := RecoverAddress(c.Message, signature)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if signer != addr {
		return Session{}, fmt.Errorf("%w: signed by %s", ErrInvalidSignature, signer.Hex())
	}

	expiresAt := now.Add(m.sessionTTL)
	claims := jwt.RegisteredClaims{
		Subject:   addr.Hex(),
		Issuer:    m.domain,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("signing session token: %w", err)
	}

	logrus.WithField("address", addr.Hex()).Info("Wallet connected")
	return Session{Token: token, Address: addr.Hex(), ExpiresAt: expiresAt}, nil
}

// Verify returns the connection state carried by token.
func (m *Manager) Verify(token string) (Context, error) {
	claims, err := m.parse(token)
	if err != nil {
		return Context{}, err
	}
	return Context{Address: claims.Subject, connected: true}, nil
}

// Disconnect revokes token until it would have expired anyway.
func (m *Manager) Disconnect(token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return err
	}

	until := m.now().Add(m.sessionTTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[claims.ID] = until
	logrus.WithField("address", claims.Subject).Info("Wallet disconnected")
	return nil
}

// FromRequest reads the bearer token of r. Any missing, invalid or revoked
// token yields a disconnected Context.
func (m *Manager) FromRequest(r *http.Request) Context {
	token := BearerToken(r)
	if token == "" {
		return Context{}
	}
	ctx, err := m.Verify(token)
	if err != nil {
		logrus.WithError(err).Debug("Ignoring wallet token")
		return Context{}
	}
	return ctx
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	m.mu.Lock()
	_, revoked := m.revoked[claims.ID]
	m.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("%w: session revoked", ErrUnauthorized)
	}
	return claims, nil
}

// prune drops expired challenges and revocations. Callers hold m.mu.
func (m *Manager) prune(now time.Time) {
	for addr, c := range m.challenges {
		if now.After(c.ExpiresAt) {
			delete(m.challenges, addr)
		}
	}
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
}
