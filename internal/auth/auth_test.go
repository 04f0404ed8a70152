package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newIssuer(t *testing.T) *Issuer {
	t.Helper()
	i, err := NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	return i
}

func TestHashAndCheckKey(t *testing.T) {
	hash, err := HashKey("s3cret-key")
	require.NoError(t, err)
	assert.True(t, CheckKey(hash, "s3cret-key"))
	assert.False(t, CheckKey(hash, "wrong"))
	assert.False(t, CheckKey("not-a-hash", "s3cret-key"))
}

func TestWeakSecretRejected(t *testing.T) {
	_, err := NewIssuer("short", time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestTokenRoundTrip(t *testing.T) {
	i := newIssuer(t)
	tok, exp, err := i.GenerateToken("phone")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := i.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "phone", claims.Client)
	assert.NotEmpty(t, claims.ID)
}

func TestExpiredToken(t *testing.T) {
	i := newIssuer(t)
	base := time.Now()
	i.now = func() time.Time { return base }
	tok, _, err := i.GenerateToken("")
	require.NoError(t, err)

	i.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = i.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectsOtherSecretAndAlgorithm(t *testing.T) {
	i := newIssuer(t)
	other, err := NewIssuer("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)
	tok, _, err := other.GenerateToken("")
	require.NoError(t, err)
	_, err = i.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = i.ValidateToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	i := newIssuer(t)
	var seen *Claims
	h := NewMiddleware(i).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, _, err := i.GenerateToken("cli")
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "cli", seen.Client)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?token="+tok, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTokenHandler(t *testing.T) {
	hash, err := HashKey("letmein")
	require.NoError(t, err)
	i := newIssuer(t)
	h := NewHandler(i, hash).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{"api_key":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{"api_key":"letmein"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	_, err = i.ValidateToken(body.Data.Token)
	assert.NoError(t, err)
}
