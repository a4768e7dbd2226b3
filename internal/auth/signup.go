package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]{5,20}$`)
	upperPattern    = regexp.MustCompile(`[A-Z]`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
	symbolPattern   = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// SignupForm is the raw input of the signup form.
type SignupForm struct {
	Username string
	Name     string
	Password string
	Confirm  string
}

// Normalize trims the text fields. Passwords are left untouched.
func (f SignupForm) Normalize() SignupForm {
	f.Username = strings.TrimSpace(f.Username)
	f.Name = strings.TrimSpace(f.Name)
	return f
}

// ValidateUsername returns the problem with a username, or "" when it is
// well formed. Uniqueness is checked separately against the database.
func ValidateUsername(username string) string {
	switch {
	case username == "":
		return "Username is required."
	case !usernamePattern.MatchString(username):
		return "Username must be 5–20 characters and use only letters and numbers."
	}
	return ""
}

// ValidatePassword returns every rule the password breaks.
func ValidatePassword(password, confirm string) []string {
	if password == "" {
		return []string{"Password is required."}
	}

	var problems []string
	if utf8.RuneCountInString(password) < 8 {
		problems = append(problems, "Password must be at least 8 characters.")
	}
	if len(password) > MaxPasswordBytes {
		problems = append(problems, fmt.Sprintf("Password must be at most %d bytes long.", MaxPasswordBytes))
	}
	if !upperPattern.MatchString(password) {
		problems = append(problems, "Password must include at least one uppercase letter.")
	}
	if !digitPattern.MatchString(password) {
		problems = append(problems, "Password must include at least one number.")
	}
	if !symbolPattern.MatchString(password) {
		problems = append(problems, "Password must include at least one special character.")
	}
	if password != confirm {
		problems = append(problems, "Passwords do not match.")
	}
	return problems
}

// ValidateSignup checks every field of a normalized form and returns all
// problems at once. exists reports whether a username is already taken; it
// is only consulted for well-formed usernames.
func ValidateSignup(f SignupForm, exists func(username string) (bool, error)) ([]string, error) {
	var problems []string

	if msg := ValidateUsername(f.Username); msg != "" {
		problems = append(problems, msg)
	} else if exists != nil {
		taken, err := exists(f.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			problems = append(problems, "There’s already an account with this username. Please sign in instead.")
		}
	}

	if f.Name == "" {
		problems = append(problems, "Full name is required.")
	}

	problems = append(problems, ValidatePassword(f.Password, f.Confirm)...)
	return problems, nil
}
