package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/storage"
)

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Username string
	Error    string
	Notice   string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go to the app
	if s := currentSession(r); s != nil && !s.IsGuest() {
		http.Redirect(w, r, "/entries/new", http.StatusFound)
		return
	}

	vm := LoginViewModel{}
	if r.URL.Query().Get("signed_up") == "1" {
		vm.Notice = "Account created! Please log in."
	}
	h.render(w, r, http.StatusOK, "login", "login.html", vm)
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login", "login.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		h.render(w, r, formStatus(r), "login", "login.html", LoginViewModel{Username: username, Error: "Username and password are required."})
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.serverError(w, r, err, "lookup user")
		return
	}
	if err != nil || !auth.CheckPassword(password, user.PasswordHash) {
		h.render(w, r, http.StatusUnauthorized, "login", "login.html", LoginViewModel{Username: username, Error: "Incorrect username or password."})
		return
	}

	// Generate session token
	token, err := auth.GenerateSessionToken()
	if err != nil {
		h.serverError(w, r, err, "generate session token")
		return
	}

	// Create session in database
	if err := h.db.CreateSession(r.Context(), token, user.ID, h.now().Add(h.sessionDuration)); err != nil {
		h.serverError(w, r, err, "create session")
		return
	}
	if n, err := h.db.CleanExpiredSessions(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("clean expired sessions")
	} else if n > 0 {
		hlog.FromRequest(r).Debug().Int64("count", n).Msg("cleaned expired sessions")
	}

	h.setSessionCookie(w, token)
	currentSession(r).SignIn(user, token)
	hlog.FromRequest(r).Info().Int64("user_id", user.ID).Msg("user logged in")

	http.Redirect(w, r, "/entries/new", http.StatusSeeOther)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.db.DeleteSession(r.Context(), cookie.Value); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("delete session")
		}
	}
	h.clearSessionCookie(w)
	if s != nil {
		s.SignOut()
	}
	http.Redirect(w, r, "/entries/new", http.StatusSeeOther)
}

// SignupViewModel holds data for the signup page.
type SignupViewModel struct {
	Username string
	Name     string
	Errors   []string
}

// SignupForm renders the signup page.
func (h *Handlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signup", "signup.html", SignupViewModel{})
}

// Signup validates the signup form and creates the account. On success the
// browser is sent to the login page.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "signup", "signup.html", SignupViewModel{Errors: []string{"Invalid form submission"}})
		return
	}

	form := auth.SignupForm{
		Username: r.FormValue("username"),
		Name:     r.FormValue("name"),
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("confirm"),
	}.Normalize()
	vm := SignupViewModel{Username: form.Username, Name: form.Name}

	problems, err := auth.ValidateSignup(form, func(username string) (bool, error) {
		return h.db.UserExists(r.Context(), username)
	})
	if err != nil {
		h.serverError(w, r, err, "check username")
		return
	}
	if len(problems) > 0 {
		vm.Errors = problems
		h.render(w, r, formStatus(r), "signup", "signup.html", vm)
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		h.serverError(w, r, err, "hash password")
		return
	}

	user, err := h.db.CreateUser(r.Context(), form.Username, form.Name, "", hash)
	if errors.Is(err, storage.ErrUsernameTaken) {
		vm.Errors = []string{"There’s already an account with this username. Please sign in instead."}
		h.render(w, r, formStatus(r), "signup", "signup.html", vm)
		return
	}
	if err != nil {
		h.serverError(w, r, err, "create user")
		return
	}

	hlog.FromRequest(r).Info().Int64("user_id", user.ID).Msg("account created")
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login?signed_up=1")
		return
	}
	http.Redirect(w, r, "/login?signed_up=1", http.StatusSeeOther)
}
