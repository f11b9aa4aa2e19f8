package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musiq/internal/models"
)

type formKind int

const (
	formLogin formKind = iota
	formSignup
	formAccount
	formSearch
	formArtistSearch
	formNewPlaylist
	formAddSong
	formComment
)

// modal reports whether the form is one of the full-screen account dialogs rather than a prompt.
func (k formKind) modal() bool {
	return k == formLogin || k == formSignup || k == formAccount
}

type field struct {
	name  string
	label string
	input textinput.Model
}

// form is a small stack of text inputs. Field errors are shown under the matching input.
type form struct {
	kind    formKind
	title   string
	fields  []field
	focus   int
	errs    map[string]string
	message string
	busy    bool
	songID  int64
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

func newForm(kind formKind, title string, fields ...field) *form {
	f := &form{kind: kind, title: title, fields: fields, errs: map[string]string{}}
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

func loginForm(username string) *form {
	f := newForm(formLogin, "Log in",
		field{name: "username", label: "Username", input: newInput("username", false)},
		field{name: "password", label: "Password", input: newInput("password", true)},
	)
	if username != "" {
		f.fields[0].input.SetValue(username)
		f.next()
	}
	return f
}

func signupForm() *form {
	return newForm(formSignup, "Sign up",
		field{name: "username", label: "Username", input: newInput("at least 2 characters", false)},
		field{name: "email", label: "Email", input: newInput("you@example.com", false)},
		field{name: "nickname", label: "Nickname", input: newInput("optional", false)},
		field{name: "password", label: "Password", input: newInput("at least 8 characters", true)},
		field{name: "confirm_password", label: "Confirm", input: newInput("repeat password", true)},
		field{name: "agree_terms", label: "Accept terms (y/n)", input: newInput("y", false)},
	)
}

func accountForm(p *models.UserProfile) *form {
	f := newForm(formAccount, "Account",
		field{name: "username", label: "Username", input: newInput("username", false)},
		field{name: "email", label: "Email", input: newInput("email", false)},
		field{name: "nickname", label: "Nickname", input: newInput("nickname", false)},
	)
	if p != nil {
		f.fields[0].input.SetValue(deref(p.Username))
		f.fields[1].input.SetValue(deref(p.Email))
		f.fields[2].input.SetValue(deref(p.Nickname))
	}
	return f
}

func promptForm(kind formKind, label, placeholder string) *form {
	return newForm(kind, label, field{name: promptField(kind), label: label, input: newInput(placeholder, false)})
}

func promptField(kind formKind) string {
	switch kind {
	case formNewPlaylist:
		return "title"
	case formComment:
		return "content"
	case formAddSong:
		return "playlist"
	default:
		return "query"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (f *form) value(name string) string {
	for _, fd := range f.fields {
		if fd.name == name {
			return fd.input.Value()
		}
	}
	return ""
}

func (f *form) next() {
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + 1) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

// last reports whether the focused input is the final one.
func (f *form) last() bool { return f.focus == len(f.fields)-1 }

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

// fail spreads err over the inputs. Errors that name no field become the form message.
func (f *form) fail(err error) {
	f.busy = false
	f.errs = map[string]string{}
	f.message = ""

	var many models.FieldErrors
	var one *models.FieldError
	switch {
	case errors.As(err, &many):
		for _, fe := range many {
			f.errs[fe.Field] = fe.Message
		}
	case errors.As(err, &one):
		f.errs[one.Field] = one.Message
	default:
		f.message = err.Error()
		return
	}

	for name, msg := range f.errs {
		if !f.has(name) {
			f.message = msg
		}
	}
}

func (f *form) has(name string) bool {
	for _, fd := range f.fields {
		if fd.name == name {
			return true
		}
	}
	return false
}

func (f *form) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(f.title))
	b.WriteString("\n")
	for i, fd := range f.fields {
		label := fd.label
		if i == f.focus {
			label = "› " + label
		} else {
			label = "  " + label
		}
		fmt.Fprintf(&b, "%s\n  %s\n", styles.label.Render(label), fd.input.View())
		if msg, ok := f.errs[fd.name]; ok {
			fmt.Fprintf(&b, "  %s\n", styles.err.Render(msg))
		} else if fd.name == "password" && f.kind == formSignup {
			if _, label := models.PasswordStrength(fd.input.Value()); label != "" {
				fmt.Fprintf(&b, "  %s\n", styles.help.Render("strength: "+label))
			}
		}
	}
	if f.message != "" {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(f.message))
	}
	if f.busy {
		fmt.Fprintf(&b, "\n%s\n", styles.help.Render("working..."))
	}
	if !f.kind.modal() {
		return b.String()
	}
	return styles.modal.Render(b.String())
}

// registration reads the signup inputs.
func (f *form) registration() models.Registration {
	agree := strings.ToLower(strings.TrimSpace(f.value("agree_terms")))
	return models.Registration{
		Username:        strings.TrimSpace(f.value("username")),
		Email:           strings.TrimSpace(f.value("email")),
		Nickname:        strings.TrimSpace(f.value("nickname")),
		Password:        f.value("password"),
		ConfirmPassword: f.value("confirm_password"),
		AgreeTerms:      agree == "y" || agree == "yes",
	}
}

// profileUpdate reads the account inputs, keeping only the fields that differ from p.
func (f *form) profileUpdate(p *models.UserProfile) models.ProfileUpdate {
	var u models.ProfileUpdate
	changed := func(name string, current *string) *string {
		v := strings.TrimSpace(f.value(name))
		if v == deref(current) || (v == "" && current == nil) {
			return nil
		}
		return models.StringPtr(v)
	}
	if p == nil {
		p = &models.UserProfile{}
	}
	u.Username = changed("username", p.Username)
	u.Email = changed("email", p.Email)
	u.Nickname = changed("nickname", p.Nickname)
	return u
}
