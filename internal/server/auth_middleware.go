package server

import (
	"net/http"
	"strconv"
	"strings"

	"idstation-backend/internal/server/authctx"

	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware validates JWT and sets current user in context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			tokenStr := strings.TrimPrefix(auth, "Bearer ")
			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || claims["token_type"] != "access" {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			user, ok := userFromClaims(claims)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "invalid subject")
				return
			}
			next.ServeHTTP(w, r.WithContext(authctx.WithCurrentUser(r.Context(), user)))
		})
	}
}

func userFromClaims(claims jwt.MapClaims) (authctx.CurrentUser, bool) {
	sub, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)
	roleStr, _ := claims["role"].(string)

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return authctx.CurrentUser{}, false
	}
	role, ok := normalizeClaimRole(roleStr)
	if !ok {
		return authctx.CurrentUser{}, false
	}
	user := authctx.CurrentUser{ID: id, Username: username, Role: role}
	// JSON numbers arrive as float64.
	if sid, ok := claims["station_id"].(float64); ok {
		v := int64(sid)
		user.StationID = &v
	}
	return user, true
}
