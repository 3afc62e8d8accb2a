package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is what the authentication layer supplies to the core: the
// tenant everything is scoped by, and the acting staff user when known.
type Identity struct {
	TenantID uuid.UUID
	ActorID  *uuid.UUID
}

type ctxKey int

const identityKey ctxKey = 0

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Auth verifies a Bearer token (HS256) and stores the Identity in the
// request context. Claims: hotel_id is the tenant, sub the staff user.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token", nil)
				return
			}

			claims := jwt.MapClaims{}
			tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !tok.Valid {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid token", nil)
				return
			}

			hotelID, _ := claims["hotel_id"].(string)
			tenantID, err := uuid.Parse(hotelID)
			if err != nil {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "token has no tenant", nil)
				return
			}
			ident := Identity{TenantID: tenantID}
			if sub, _ := claims["sub"].(string); sub != "" {
				if actorID, err := uuid.Parse(sub); err == nil {
					ident.ActorID = &actorID
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, ident)))
		})
	}
}
