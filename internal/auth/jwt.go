// Package auth issues and verifies the JWT pairs used by the API and
// provides the HTTP middleware that authenticates requests.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/estorehq/estore/internal/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the authenticated identity carried by a verified token.
// The service layer trusts these values as-is.
type Claims struct {
	UserID   string
	Username string
	IsAdmin  bool
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Manager signs and verifies HMAC tokens.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair mints an access/refresh token pair for the user.
func (m *Manager) IssuePair(user *domain.User) (*TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(m.accessTTL)

	access, err := m.sign(user, tokenTypeAccess, now, expiresAt)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(user, tokenTypeRefresh, now, now.Add(m.refreshTTL))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

func (m *Manager) sign(user *domain.User, tokenType string, now, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
		"type":     tokenType,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", domain.Wrap(domain.KindInternal, err, "sign token")
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, tokenTypeAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(token, tokenTypeRefresh)
}

func (m *Manager) verify(tokenStr, wantType string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.E(domain.KindUnauthorized, "invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.E(domain.KindUnauthorized, "invalid token claims")
	}
	if t, _ := claims["type"].(string); t != wantType {
		return nil, domain.E(domain.KindUnauthorized, "wrong token type")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, domain.E(domain.KindUnauthorized, "token missing subject")
	}
	username, _ := claims["username"].(string)
	isAdmin, _ := claims["is_admin"].(bool)

	return &Claims{UserID: sub, Username: username, IsAdmin: isAdmin}, nil
}
