package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/migsilva89/markmind/internal/session"
)

const maxStartBodySize = 20 << 20 // 20MB; large bookmark batches are JSON-heavy

// OrganizeRunner runs the AI phase of an organize request to completion.
type OrganizeRunner interface {
	Organize(ctx context.Context, p session.StartPayload)
}

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Sessions *session.Store
	Runner   OrganizeRunner
	Events   *Broadcaster
	Token    string
	// Touch marks daemon activity for the idle monitor; may be nil.
	Touch func()
}

// NewHandler builds the daemon's HTTP API. The organize routes are the
// wire form of the foreground/background handoff protocol: start is
// fire-and-forget, status returns the persisted session, and events is a
// best-effort SSE notification stream.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	if deps.Touch != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				deps.Touch()
				next.ServeHTTP(w, req)
			})
		})
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/organize/start", handleOrganizeStart(deps))
		r.Get("/organize/status", handleOrganizeStatus(deps))
		r.Get("/organize/events", handleOrganizeEvents(deps))
	})

	return r
}

func handleOrganizeStart(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxStartBodySize)
		defer r.Body.Close()

		var payload session.StartPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if payload.ServiceID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "serviceId is required")
			return
		}
		if len(payload.Bookmarks) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "bookmarks must not be empty")
			return
		}

		// Detach from the request so tearing down the caller never cancels
		// the AI call; that is the whole point of the handoff.
		runCtx := context.WithoutCancel(r.Context())
		go deps.Runner.Organize(runCtx, payload)

		slog.Info("organize accepted", "service", payload.ServiceID, "bookmarks", len(payload.Bookmarks))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func handleOrganizeStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Load()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading session: %v", err)
			return
		}
		// A missing session is reported as JSON null, not an error.
		writeJSON(w, http.StatusOK, sess)
	}
}

func handleOrganizeEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming unsupported")
			return
		}

		events, cancel := deps.Events.Subscribe()
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		heartbeat := time.NewTicker(15 * time.Second)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case e := <-events:
				data, err := json.Marshal(e)
				if err != nil {
					slog.Error("marshalling event failed", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
				flusher.Flush()
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
