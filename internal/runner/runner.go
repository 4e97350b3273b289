// Package runner performs the AI phase of an organize run inside the
// daemon, independent of any CLI process lifetime.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/migsilva89/markmind/internal/plan"
	"github.com/migsilva89/markmind/internal/provider"
	"github.com/migsilva89/markmind/internal/session"
)

const keepalivePeriod = 20 * time.Second

// Credentials resolves the API key for a provider identifier.
type Credentials interface {
	APIKey(serviceID string) (string, error)
}

// Notifier broadcasts best-effort completion notifications to any
// currently-attached foreground. Delivery is advisory; the persisted
// session remains ground truth.
type Notifier interface {
	OrganizeComplete(res *plan.Result)
	OrganizeError(msg string)
}

// Runner executes one plan-and-assign AI call and merges the outcome into
// the persisted session.
type Runner struct {
	sessions  *session.Store
	providers *provider.Registry
	creds     Credentials
	notifier  Notifier
	keepalive func()
	maxTokens int
	log       *slog.Logger
}

// New creates a Runner. keepalive is invoked periodically while a call is
// outstanding (pass the idle monitor's Touch); notifier may not be nil.
func New(sessions *session.Store, providers *provider.Registry, creds Credentials, notifier Notifier, keepalive func(), maxTokens int) *Runner {
	if keepalive == nil {
		keepalive = func() {}
	}
	return &Runner{
		sessions:  sessions,
		providers: providers,
		creds:     creds,
		notifier:  notifier,
		keepalive: keepalive,
		maxTokens: maxTokens,
		log:       slog.Default(),
	}
}

// Organize runs the AI phase for the given payload. It never returns an
// error to the caller: every failure is merged into the persisted session
// as an error state, so the user always lands somewhere well-formed.
func (r *Runner) Organize(ctx context.Context, p session.StartPayload) {
	stop := r.startKeepalive(ctx)
	defer stop()

	res, err := r.planAndAssign(ctx, p)
	if err != nil {
		r.log.Error("organize failed", "service", p.ServiceID, "error", err)
		r.mergeError(err.Error())
		r.notifier.OrganizeError(err.Error())
		return
	}

	r.mergeResult(res)
	r.notifier.OrganizeComplete(res)
	r.log.Info("organize complete",
		"folders", len(res.Plan.Folders),
		"assignments", len(res.Assignments))
}

func (r *Runner) planAndAssign(ctx context.Context, p session.StartPayload) (*plan.Result, error) {
	prov, err := r.providers.Get(p.ServiceID)
	if err != nil {
		return nil, err
	}
	apiKey, err := r.creds.APIKey(p.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials for %s: %w", p.ServiceID, err)
	}

	system, user, err := plan.BuildPrompts(p.Bookmarks, p.FolderTree)
	if err != nil {
		return nil, err
	}

	r.log.Info("calling AI provider", "service", p.ServiceID, "bookmarks", len(p.Bookmarks))
	raw, err := prov.Call(ctx, apiKey, system, user, r.maxTokens)
	if err != nil {
		return nil, err
	}

	return plan.Parse(raw, p.Bookmarks, p.PathToID)
}

// mergeResult folds the result into the freshly-loaded session so that
// fields written by the CLI since the handoff are not clobbered.
func (r *Runner) mergeResult(res *plan.Result) {
	sess := r.loadOrInitial()
	sess.InstallResult(res)
	if err := r.sessions.Save(sess); err != nil {
		r.log.Error("persisting organize result failed", "error", err)
	}
}

func (r *Runner) mergeError(msg string) {
	sess := r.loadOrInitial()
	sess.Fail(msg)
	if err := r.sessions.Save(sess); err != nil {
		r.log.Error("persisting organize error failed", "error", err)
	}
}

// loadOrInitial falls back to a fresh session when the stored one cannot
// be read; the user must always end up in a well-formed state, never in
// limbo.
func (r *Runner) loadOrInitial() *session.Session {
	sess, err := r.sessions.Load()
	if err != nil {
		r.log.Error("loading session for merge failed", "error", err)
		return session.New()
	}
	if sess == nil {
		return session.New()
	}
	return sess
}

func (r *Runner) startKeepalive(ctx context.Context) (stop func()) {
	r.keepalive()
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(keepalivePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.keepalive()
			}
		}
	}()
	return func() { close(done) }
}
