package models

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// GuestName is shown when a profile has neither nickname nor username.
const GuestName = "Guest"

// UserProfile is the signed-in user as returned by GET /users/me.
//
// No field is guaranteed to be present; pointer fields are nil when the backend omitted them.
type UserProfile struct {
	ID           *int64     `json:"id,omitempty" yaml:"id,omitempty"`
	Username     *string    `json:"username,omitempty" yaml:"username,omitempty"`
	Email        *string    `json:"email,omitempty" yaml:"email,omitempty"`
	Nickname     *string    `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	ProfileImage *string    `json:"profileImage,omitempty" yaml:"profile_image,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty" yaml:"is_active,omitempty"`
	CreatedAt    *Timestamp `json:"created_at,omitempty" yaml:"-"`
}

// DisplayName resolves nickname, then username, then [GuestName]. Blank values count as absent.
func (p *UserProfile) DisplayName() string {
	if p == nil {
		return GuestName
	}
	if v, ok := present(p.Nickname); ok {
		return v
	}
	if v, ok := present(p.Username); ok {
		return v
	}
	return GuestName
}

// AvatarURL returns the profile image URL when one is set.
func (p *UserProfile) AvatarURL() (string, bool) {
	if p == nil {
		return "", false
	}
	return present(p.ProfileImage)
}

// Initial is the first letter of the display name, used as an avatar placeholder.
func (p *UserProfile) Initial() string {
	r, _ := utf8.DecodeRuneInString(p.DisplayName())
	return strings.ToUpper(string(r))
}

// EmailAddress returns the email or "".
func (p *UserProfile) EmailAddress() string {
	if p == nil {
		return ""
	}
	v, _ := present(p.Email)
	return v
}

func present(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

// StringPtr returns a pointer to s. Convenient for building optional fields.
func StringPtr(s string) *string { return &s }

// Token is the body returned by the login endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Registration is the signup form. Nickname is optional; the backend defaults it to the username.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Nickname        string `json:"nickname,omitempty"`
	ConfirmPassword string `json:"-"`
	AgreeTerms      bool   `json:"-"`
}

// Validate applies the signup rules before anything is sent.
func (r Registration) Validate() error {
	var errs FieldErrors
	switch {
	case blank(r.Username):
		errs = append(errs, &FieldError{Field: "username", Message: "username is required"})
	case utf8.RuneCountInString(strings.TrimSpace(r.Username)) < 2:
		errs = append(errs, &FieldError{Field: "username", Message: "username must be at least 2 characters"})
	}
	errs = append(errs, validateEmail(r.Email)...)
	switch {
	case r.Password == "":
		errs = append(errs, &FieldError{Field: "password", Message: "password is required"})
	case len(r.Password) < 8:
		errs = append(errs, &FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	if r.ConfirmPassword != r.Password {
		errs = append(errs, &FieldError{Field: "confirm_password", Message: "passwords do not match"})
	}
	if !r.AgreeTerms {
		errs = append(errs, &FieldError{Field: "agree_terms", Message: "you must accept the terms of service"})
	}
	return errs.err()
}

// Credentials is the login form.
type Credentials struct {
	Username string
	Password string
}

// Validate requires both fields.
func (c Credentials) Validate() error {
	var errs FieldErrors
	if blank(c.Username) {
		errs = append(errs, &FieldError{Field: "username", Message: "username is required"})
	}
	if c.Password == "" {
		errs = append(errs, &FieldError{Field: "password", Message: "password is required"})
	}
	return errs.err()
}

// ProfileUpdate is the body of PUT /users/me. Nil fields are left unchanged.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.Nickname == nil
}

// Validate checks only the fields being changed.
func (u ProfileUpdate) Validate() error {
	var errs FieldErrors
	if u.Empty() {
		errs = append(errs, &FieldError{Field: "profile", Message: "nothing to update"})
	}
	if u.Username != nil && utf8.RuneCountInString(strings.TrimSpace(*u.Username)) < 2 {
		errs = append(errs, &FieldError{Field: "username", Message: "username must be at least 2 characters"})
	}
	if u.Email != nil {
		errs = append(errs, validateEmail(*u.Email)...)
	}
	return errs.err()
}

// PasswordChange is the body of PUT /users/me/password.
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate requires the current password and a new one of at least 8 characters that differs from it.
func (p PasswordChange) Validate() error {
	var errs FieldErrors
	if p.CurrentPassword == "" {
		errs = append(errs, &FieldError{Field: "current_password", Message: "current password is required"})
	}
	switch {
	case len(p.NewPassword) < 8:
		errs = append(errs, &FieldError{Field: "new_password", Message: "password must be at least 8 characters"})
	case p.NewPassword == p.CurrentPassword:
		errs = append(errs, &FieldError{Field: "new_password", Message: "new password must differ from the current one"})
	}
	return errs.err()
}

func validateEmail(email string) FieldErrors {
	switch {
	case blank(email):
		return FieldErrors{{Field: "email", Message: "email is required"}}
	case !emailPattern.MatchString(email):
		return FieldErrors{{Field: "email", Message: "enter a valid email address"}}
	}
	return nil
}

// PasswordStrength scores a password from 0 (empty) to 5 and returns a label for display.
func PasswordStrength(password string) (int, string) {
	switch n := len(password); {
	case n == 0:
		return 0, ""
	case n < 4:
		return 1, "very weak"
	case n < 6:
		return 2, "weak"
	case n < 8:
		return 3, "fair"
	}

	score := 3
	for _, class := range []*regexp.Regexp{upperPattern, digitPattern, symbolPattern} {
		if class.MatchString(password) {
			score++
		}
	}
	switch {
	case score >= 6:
		return 5, "very strong"
	case score >= 5:
		return 4, "strong"
	default:
		return 3, "fair"
	}
}

var (
	upperPattern  = regexp.MustCompile(`[A-Z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
	symbolPattern = regexp.MustCompile(`[^A-Za-z0-9]`)
)
