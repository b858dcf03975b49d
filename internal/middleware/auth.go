package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Trandev/Medlink/internal/auth"
	"github.com/Trandev/Medlink/internal/server"
	"github.com/google/uuid"
)

const userIDContextKey contextKey = "user_id"

type Auth struct {
	jwtSecret []byte
	s         *server.Server
}

func NewAuth(s *server.Server) *Auth {
	return &Auth{
		jwtSecret: []byte(s.Config.Auth.JWTSecret),
		s:         s,
	}
}

// RequireAuth validates the bearer token and stores the resolved user id in
// the request context. The acting identity is always taken from here, never
// from request bodies.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := GetLogger(ctx)

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userID, err := auth.ValidateUserJWT(strings.TrimPrefix(header, "Bearer "), a.jwtSecret)
		if err != nil {
			log.Warn().Err(err).Msg("rejected request with invalid token")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		contextLogger := log.With().Str("user_id", userID.String()).Logger()
		ctx = context.WithValue(ctx, userIDContextKey, userID)
		ctx = WithLogger(ctx, &contextLogger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID returns the authenticated user id stored by RequireAuth.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDContextKey).(uuid.UUID)
	return id, ok
}
