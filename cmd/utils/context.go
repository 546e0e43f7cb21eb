package utils

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
)

type contextKey string

const AdminIDKey contextKey = "adminID"


func GetAdminIDFromContext(r *http.Request) (uint, error) {
    adminID, ok := r.Context().Value(AdminIDKey).(uint)
    if !ok {
        return 0, errors.New("admin ID not found in context")
    }
    return adminID, nil
}


// AuthMiddleware guards the admin routes. The signing secret comes from the
// startup config rather than the process environment.
func AuthMiddleware(secret string) mux.MiddlewareFunc {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            authHeader := r.Header.Get("Authorization")
            if authHeader == "" {
                WriteError(w, http.StatusUnauthorized, "Authorization header required")
                return
            }

            tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

            claims := &jwt.RegisteredClaims{}
            token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
                return []byte(secret), nil
            })

            if err != nil || !token.Valid {
                WriteError(w, http.StatusUnauthorized, "Invalid token")
                return
            }

            adminID, err := strconv.ParseUint(claims.Subject, 10, 64)
            if err != nil {
                WriteError(w, http.StatusUnauthorized, "Invalid admin ID in token")
                return
            }

            ctx := context.WithValue(r.Context(), AdminIDKey, uint(adminID))
            next.ServeHTTP(w, r.WithContext(ctx))
        })
    }
}
