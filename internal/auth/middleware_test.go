package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/modl-gg/panel-sub007/internal/shared"
)

type stubRepo struct {
	keys map[string]*APIKey // tenant + "/" + keyID
}

func (s *stubRepo) FindKey(_ context.Context, tenant, keyID string) (*APIKey, error) {
	key, ok := s.keys[tenant+"/"+keyID]
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}
	return key, nil
}

func newAuthFixture(t *testing.T) (http.Handler, **shared.Actor) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &stubRepo{keys: map[string]*APIKey{
		"acme/key1": {
			Tenant:     "acme",
			KeyID:      "key1",
			SecretHash: string(hash),
			Username:   "alice",
			RoleName:   "Admin",
			IsActive:   true,
		},
	}}

	var seen *shared.Actor
	mw := Middleware{Repo: repo, Logger: slog.Default()}
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return handler, &seen
}

func doAuth(handler http.Handler, tenant, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if tenant != "" {
		req.Header.Set(TenantHeader, tenant)
	}
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateSuccess(t *testing.T) {
	handler, seen := newAuthFixture(t)

	rec := doAuth(handler, "acme", "key1.s3cret")
	require.Equal(t, http.StatusNoContent, rec.Code)

	actor := *seen
	require.NotNil(t, actor)
	assert.Equal(t, "acme", actor.Tenant)
	assert.Equal(t, "alice", actor.Username)
	assert.Equal(t, "Admin", actor.RoleName)
	assert.Len(t, actor.KeyFingerprint, 16)
	// The fingerprint never contains the raw secret.
	assert.NotContains(t, actor.KeyFingerprint, "s3cret")
}

func TestAuthenticateRejects(t *testing.T) {
	handler, seen := newAuthFixture(t)

	tests := []struct {
		name   string
		tenant string
		key    string
	}{
		{"missing tenant", "", "key1.s3cret"},
		{"missing key", "acme", ""},
		{"malformed key", "acme", "key1s3cret"},
		{"unknown key id", "acme", "key2.s3cret"},
		{"wrong secret", "acme", "key1.nope"},
		{"wrong tenant", "globe", "key1.s3cret"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doAuth(handler, tc.tenant, tc.key)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, *seen)
		})
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("key1.s3cret")
	b := Fingerprint("key1.s3cret")
	c := Fingerprint("key1.other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
