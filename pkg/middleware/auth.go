package middleware

import (
	"context"
	"net/http"
	"roost/pkg/logger"
	"roost/pkg/model"
	"roost/pkg/token"
	"strings"

	"github.com/julienschmidt/httprouter"
)

const actorKey contextKey = "actor"

// UserSource resolves an authenticated user id to its current record, so
// the admin flag reflects the store rather than a stale token claim.
type UserSource interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type Authenticator struct {
	tokens *token.Manager
	users  UserSource
	log    *logger.Logger
}

func NewAuthenticator(tokens *token.Manager, users UserSource, log *logger.Logger) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		users:  users,
		log:    log,
	}
}

// RequireUser authenticates the bearer token and attaches the resulting
// Actor to the request context. Authorization decisions stay in the
// service layer, which receives the Actor explicitly.
func (a *Authenticator) RequireUser(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		actor, ok := a.authenticate(w, r)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next(w, r.WithContext(ctx), ps)
	}
}

func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		rejectUnauthenticated(w, a.log, r, "missing bearer token")
		return model.Actor{}, false
	}

	claims, err := a.tokens.Parse(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		rejectUnauthenticated(w, a.log, r, "invalid token")
		return model.Actor{}, false
	}

	user, err := a.users.FindByID(r.Context(), claims.Subject)
	if err != nil || user == nil {
		rejectUnauthenticated(w, a.log, r, "unknown user")
		return model.Actor{}, false
	}

	return model.Actor{ID: user.ID, Admin: user.IsAdmin}, true
}

func rejectUnauthenticated(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Request rejected",
		"request_id", requestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"reason", reason,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Not authenticated"}`))
}

// ActorFromContext returns the Actor attached by RequireUser.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// WithActor returns a context carrying the given actor. Used by tests and
// internal callers that bypass the HTTP layer.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}
