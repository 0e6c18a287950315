package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/queryshelf/internal/logging"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// ActorHeader names the request header that identifies the actor.
const ActorHeader = "X-Actor-Id"

// RequestIDHeader is set on every response.
const RequestIDHeader = "X-Request-Id"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

// requestID tags the request with a time-ordered UUID, reusing one supplied
// by the client when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			if u, err := uuid.NewV7(); err == nil {
				id = u.String()
			}
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the request id stored by the middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Logger().Info("api: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"dur", time.Since(start),
			"request_id", RequestIDFrom(r.Context()),
		)
	})
}

// identifyActor reads the actor from ActorHeader. A missing header leaves
// the request anonymous.
func identifyActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(ActorHeader)); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), actorKey, &types.Actor{ID: id}))
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFrom returns the request's actor, or nil when anonymous.
func ActorFrom(ctx context.Context) *types.Actor {
	a, _ := ctx.Value(actorKey).(*types.Actor)
	return a
}
