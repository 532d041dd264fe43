package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/shared"
	"github.com/atlas-catalog/atlas/internal/users"
)

// UserDirectory resolves account records for session users.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (users.User, error)
}

// ActorMiddleware resolves the session user into an authz.Actor and
// stores it in the request context. Requests without a session user
// proceed anonymously with no actor set.
func ActorMiddleware(logger *slog.Logger, directory UserDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := directory.FindByID(r.Context(), sess.User())
			if err != nil {
				if !errors.Is(err, shared.ErrNotFound) {
					logger.Error("resolve session user", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if !user.IsActive {
				next.ServeHTTP(w, r)
				return
			}
			actor := &authz.Actor{ID: user.ID, Name: user.Name}
			next.ServeHTTP(w, r.WithContext(authz.ContextWithActor(r.Context(), actor)))
		})
	}
}
