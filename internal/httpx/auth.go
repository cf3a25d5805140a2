package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pranjay/orders-core/internal/apperr"
)

// Identity is the verified user attached to a request. Session issuance lives
// elsewhere; this layer only validates the bearer token.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Admin  bool
}

type ctxKey int

const identityKey ctxKey = iota

type Auth struct{ Secret []byte }

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			writeErr(w, apperr.ErrUnauthorized)
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return a.Secret, nil
		})
		if err != nil || !token.Valid {
			writeErr(w, apperr.ErrUnauthorized)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeErr(w, apperr.ErrUnauthorized)
			return
		}

		id := Identity{
			UserID: str(claims["sub"]),
			Email:  str(claims["email"]),
			Name:   str(claims["name"]),
		}
		if admin, _ := claims["is_admin"].(bool); admin {
			id.Admin = true
		}
		if id.UserID == "" {
			writeErr(w, apperr.ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// RequireAdmin must be mounted inside Middleware.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || !id.Admin {
			// hide the admin surface from non-admins
			writeErr(w, apperr.NotFound("resource"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
