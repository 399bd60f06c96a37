package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estorehq/estore/internal/domain"
)

func testUser(admin bool) *domain.User {
	return &domain.User{
		ID:       "user-1",
		Username: "alice",
		IsAdmin:  admin,
	}
}

func TestIssueAndVerifyPair(t *testing.T) {
	m := NewManager("secret", 15*time.Minute, time.Hour)

	pair, err := m.IssuePair(testUser(true))
	require.NoError(t, err)

	claims, err := m.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)

	// Token types are not interchangeable.
	_, err = m.VerifyAccess(pair.RefreshToken)
	assert.Error(t, err)
	_, err = m.VerifyRefresh(pair.AccessToken)
	assert.Error(t, err)

	refreshClaims, err := m.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
}

func TestVerify_WrongSecret(t *testing.T) {
	m := NewManager("secret", 15*time.Minute, time.Hour)
	other := NewManager("different", 15*time.Minute, time.Hour)

	pair, err := m.IssuePair(testUser(false))
	require.NoError(t, err)

	_, err = other.VerifyAccess(pair.AccessToken)
	assert.Error(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	m := NewManager("secret", -time.Minute, time.Hour)

	pair, err := m.IssuePair(testUser(false))
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.AccessToken)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)
	assert.True(t, CheckPassword(hash, "correct-horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestAuthenticateMiddleware(t *testing.T) {
	m := NewManager("secret", 15*time.Minute, time.Hour)
	mw := NewMiddleware(m)

	var gotClaims *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.Authenticate(next)

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	pair, err := m.IssuePair(testUser(false))
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "user-1", gotClaims.UserID)
}

func TestRequireAdminMiddleware(t *testing.T) {
	m := NewManager("secret", 15*time.Minute, time.Hour)
	mw := NewMiddleware(m)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.Authenticate(mw.RequireAdmin(next))

	pair, err := m.IssuePair(testUser(false))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminPair, err := m.IssuePair(testUser(true))
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminPair.AccessToken)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
