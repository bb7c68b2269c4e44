package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
	"github.com/modl-gg/panel-sub007/internal/shared"
)

// Request headers carrying the tenant and credential.
const (
	TenantHeader = "X-Tenant"
	APIKeyHeader = "X-API-Key"
)

// Middleware authenticates API requests. A key has the form "<id>.<secret>";
// the id locates the record and the secret is verified against its bcrypt
// hash. On success the resolved actor is stored in the request context.
type Middleware struct {
	Repo   Repository
	Logger *slog.Logger
}

// Authenticate rejects requests without a valid tenant/credential pair.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := strings.TrimSpace(r.Header.Get(TenantHeader))
		rawKey := strings.TrimSpace(r.Header.Get(APIKeyHeader))
		if tenant == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrTenantMissing.Error())
			return
		}
		keyID, secret, ok := strings.Cut(rawKey, ".")
		if !ok || keyID == "" || secret == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "malformed api key")
			return
		}

		key, err := m.Repo.FindKey(r.Context(), tenant, keyID)
		if err != nil {
			if !errors.Is(err, shared.ErrInvalidCredentials) {
				if m.Logger != nil {
					m.Logger.Error("api key lookup", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)) != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}

		actor := &shared.Actor{
			Tenant:         tenant,
			Username:       key.Username,
			RoleName:       key.RoleName,
			KeyFingerprint: Fingerprint(rawKey),
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// Fingerprint derives a short non-reversible identifier for a raw key, used
// as the rate-limit key component so full keys never land in memory stores
// or logs.
func Fingerprint(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])[:16]
}
