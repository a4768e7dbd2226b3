package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/hlog"

	"finance-tracker/internal/models"
	"finance-tracker/internal/money"
	"finance-tracker/internal/session"
	"finance-tracker/internal/storage"
)

const (
	// SessionCookieName is the name of the login session cookie.
	SessionCookieName = "session"
	// BrowserCookieName identifies the browser session that holds guest data.
	BrowserCookieName = "browser"
	// DefaultSessionDuration is how long login sessions last (30 days).
	DefaultSessionDuration = 30 * 24 * time.Hour
)

// Options configures Handlers.
type Options struct {
	TemplateDir     string
	SecureCookie    bool
	Policy          session.Policy
	SessionDuration time.Duration
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db              *storage.DB
	sessions        *session.Store
	templateDir     string
	secureCookie    bool
	policy          session.Policy
	sessionDuration time.Duration
	now             func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, sessions *session.Store, opts Options) *Handlers {
	if opts.SessionDuration <= 0 {
		opts.SessionDuration = DefaultSessionDuration
	}
	if opts.Policy == "" {
		opts.Policy = session.PolicyPersistent
	}
	return &Handlers{
		db:              db,
		sessions:        sessions,
		templateDir:     opts.TemplateDir,
		secureCookie:    opts.SecureCookie,
		policy:          opts.Policy,
		sessionDuration: opts.SessionDuration,
		now:             time.Now,
	}
}

// currentSession returns the session placed on the request by
// SessionMiddleware.
func currentSession(r *http.Request) *session.Session {
	return session.FromContext(r.Context())
}

// SessionMiddleware attaches the browser session to every request and binds
// it to the signed-in user when a valid login cookie is present.
// Login sessions past the halfway point of their lifetime are renewed.
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var browserID string
		if c, err := r.Cookie(BrowserCookieName); err == nil {
			browserID = c.Value
		}
		s, created := h.sessions.Load(browserID)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     BrowserCookieName,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   h.secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			info, err := h.db.ValidateSession(r.Context(), cookie.Value)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				// Invalid or expired session, clear the cookie
				h.clearSessionCookie(w)
			case err != nil:
				h.serverError(w, r, err, "validate session")
				return
			default:
				s.User = info.User
				s.Token = cookie.Value
				h.renewIfNeeded(w, r, cookie.Value, info.ExpiresAt)
			}
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
	})
}

func (h *Handlers) renewIfNeeded(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	now := h.now()
	if expiresAt.Sub(now) >= h.sessionDuration/2 {
		return
	}
	newExpiresAt := now.Add(h.sessionDuration)
	if err := h.db.RenewSession(r.Context(), token, newExpiresAt); err != nil {
		// If renewal fails, just continue with the current session
		hlog.FromRequest(r).Warn().Err(err).Msg("renew session")
		return
	}
	h.setSessionCookie(w, token)
}

// Page wraps a handler that renders a whole page. Under the reload-demotes
// policy a full load of such a page signs the user out unless it is the
// first render after logging in.
func (h *Handlers) Page(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := currentSession(r)
		if s != nil && h.policy.ShouldDemote(s, isFullPageLoad(r)) {
			h.demote(w, r, s)
		}
		next(w, r)
	})
}

func isFullPageLoad(r *http.Request) bool {
	return r.Method == http.MethodGet && r.Header.Get("HX-Request") != "true"
}

// demote signs the session out. Failing to delete the stored login session
// is logged and otherwise ignored; the cookie is cleared regardless.
func (h *Handlers) demote(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := h.db.DeleteSession(r.Context(), s.Token); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("delete session on reload")
	}
	h.clearSessionCookie(w)
	hlog.FromRequest(r).Info().Int64("user_id", s.UserID()).Msg("signed out on page reload")
	s.SignOut()
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// records loads the transactions visible to the session: the guest list for
// guests, the stored transactions otherwise.
func (h *Handlers) records(ctx context.Context, s *session.Session) ([]models.Transaction, error) {
	if s.IsGuest() {
		return s.GuestTransactions(), nil
	}
	return h.db.ListTransactions(ctx, s.UserID())
}

// Health reports whether the database is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("health check")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// PageData is what every page template receives. Data holds the view model
// of the page itself.
type PageData struct {
	Tab   string
	User  *models.User
	Guest bool
	Data  any
}

var funcs = template.FuncMap{
	"money": money.Format,
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, tab, viewName string, data any) {
	tmpl, err := template.New("base.html").Funcs(funcs).ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName),
	)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("view", viewName).Msg("template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	page := PageData{Tab: tab, Guest: true, Data: data}
	if s := currentSession(r); s != nil && !s.IsGuest() {
		page.User = s.User
		page.Guest = false
	}

	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, target, page); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("view", viewName).Msg("template execution error")
	}
}

// formStatus is the status of a re-rendered form with validation errors.
// htmx only swaps successful responses, so partial requests get 200.
func formStatus(r *http.Request) int {
	if r.Header.Get("HX-Request") == "true" {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error, action string) {
	hlog.FromRequest(r).Error().Err(err).Str("action", action).Msg("request failed")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
