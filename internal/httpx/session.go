package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-mall-checkout.git/internal/redisx"
)

// Session management itself is an external collaborator; the core only resolves
// a session cookie to a user id.
type Sessions interface {
	UserID(ctx context.Context, sessionID string) (int64, bool, error)
}

const sessionCookie = "session_id"

type RedisSessions struct{ RDB *redis.Client }

func (s *RedisSessions) UserID(ctx context.Context, sessionID string) (int64, bool, error) {
	v, err := s.RDB.Get(ctx, fmt.Sprintf(redisx.KeySession, sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	uid, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return uid, true, nil
}

type ctxKey int

const userKey ctxKey = 0

// WithSession resolves the session cookie (when present) and stashes the user
// id in the request context. Requests without a valid session pass through
// anonymous.
func WithSession(s Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
				if uid, ok, err := s.UserID(r.Context(), c.Value); err == nil && ok {
					r = r.WithContext(context.WithValue(r.Context(), userKey, uid))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userFrom(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value(userKey).(int64)
	return uid, ok
}

// requireUser guards handlers that only make sense with an authenticated
// session.
func requireUser(h func(w http.ResponseWriter, r *http.Request, userID int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, CodeValidation, "login required")
			return
		}
		h(w, r, uid)
	}
}
