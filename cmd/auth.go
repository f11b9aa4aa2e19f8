package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
	"github.com/urfave/cli/v3"
)

// prompt fills empty values through an interactive form. Without a terminal it leaves them empty,
// and validation reports what is missing.
func (r *Runner) prompt(fields ...huh.Field) error {
	if !r.interactive || len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

// AuthLogin exchanges credentials for a token and stores the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	creds := models.Credentials{Username: cmd.String("username"), Password: cmd.String("password")}
	var fields []huh.Field
	if creds.Username == "" {
		fields = append(fields, huh.NewInput().Title("Username").Value(&creds.Username))
	}
	if creds.Password == "" {
		fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&creds.Password))
	}
	if err := r.prompt(fields...); err != nil {
		return err
	}
	creds.Username = strings.TrimSpace(creds.Username)

	var profile *models.UserProfile
	err := r.wait(ctx, "Logging in...", func(ctx context.Context) error {
		var err error
		profile, err = r.service.Login(ctx, creds)
		return err
	})
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			return fmt.Errorf("%w: check your username and password", err)
		}
		return err
	}

	r.logger.Info("logged in", "user", profile.DisplayName())
	return r.writePlain("✓ Logged in as %s\n", profile.DisplayName())
}

// AuthLogout clears the stored session. Logging out twice is not an error.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}
	if !r.store.IsAuthenticated() {
		return r.writePlain("Not logged in\n")
	}
	r.service.Logout()
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports the stored session without contacting the backend.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	current := r.store.Current()
	return r.render(cmd, current, func() error {
		if !current.Authenticated {
			r.writePlain("Authentication: ✗ Not logged in\n")
			return r.writePlain("Run 'musiq auth login' to sign in\n")
		}
		r.writePlain("Authentication: ✓ Logged in\n")
		r.writePlain("User: %s\n", current.Profile.DisplayName())
		if email := current.Profile.EmailAddress(); email != "" {
			r.writePlain("Email: %s\n", email)
		}
		return nil
	})
}

// AuthSignup registers an account. The user logs in separately afterwards.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	reg := models.Registration{
		Username:   cmd.String("username"),
		Email:      cmd.String("email"),
		Nickname:   cmd.String("nickname"),
		Password:   cmd.String("password"),
		AgreeTerms: cmd.Bool("agree"),
	}
	reg.ConfirmPassword = reg.Password

	var fields []huh.Field
	if reg.Username == "" {
		fields = append(fields, huh.NewInput().Title("Username").Value(&reg.Username))
	}
	if reg.Email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(&reg.Email))
	}
	if reg.Password == "" {
		fields = append(fields,
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&reg.Password),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&reg.ConfirmPassword),
		)
	}
	if !reg.AgreeTerms {
		fields = append(fields, huh.NewConfirm().Title("Accept the terms of service?").Value(&reg.AgreeTerms))
	}
	if err := r.prompt(fields...); err != nil {
		return err
	}

	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := reg.Validate(); err != nil {
		return err
	}

	if err := r.wait(ctx, "Creating account...", func(ctx context.Context) error {
		return r.service.Register(ctx, reg)
	}); err != nil {
		return err
	}

	r.writePlain("✓ Account created for %s\n", reg.Username)
	return r.writePlain("Run 'musiq auth login -u %s' to sign in\n", reg.Username)
}

// AccountShow fetches the current profile.
func (r *Runner) AccountShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	profile, err := r.service.Me(ctx)
	if err != nil {
		return err
	}
	return r.render(cmd, profile, func() error { return r.writeProfile(profile) })
}

func (r *Runner) writeProfile(p *models.UserProfile) error {
	r.writePlainHeader(p.DisplayName())
	if p.Username != nil {
		r.writePlain("Username: %s\n", *p.Username)
	}
	if email := p.EmailAddress(); email != "" {
		r.writePlain("Email: %s\n", email)
	}
	if p.Nickname != nil {
		r.writePlain("Nickname: %s\n", *p.Nickname)
	}
	if avatar, ok := p.AvatarURL(); ok {
		r.writePlain("Avatar: %s\n", avatar)
	}
	if p.CreatedAt != nil && !p.CreatedAt.IsZero() {
		r.writePlain("Member since: %s\n", p.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

// AccountUpdate sends only the flags that were set.
func (r *Runner) AccountUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	var update models.ProfileUpdate
	for name, dst := range map[string]**string{
		"username": &update.Username,
		"email":    &update.Email,
		"nickname": &update.Nickname,
	} {
		if cmd.IsSet(name) {
			*dst = models.StringPtr(strings.TrimSpace(cmd.String(name)))
		}
	}
	if err := update.Validate(); err != nil {
		return err
	}

	profile, err := r.service.UpdateMe(ctx, update)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Profile updated for %s\n", profile.DisplayName())
}

// AccountPassword changes the password. Missing values are prompted for.
func (r *Runner) AccountPassword(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	change := models.PasswordChange{CurrentPassword: cmd.String("current"), NewPassword: cmd.String("new")}
	var fields []huh.Field
	if change.CurrentPassword == "" {
		fields = append(fields, huh.NewInput().Title("Current password").EchoMode(huh.EchoModePassword).Value(&change.CurrentPassword))
	}
	if change.NewPassword == "" {
		fields = append(fields, huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&change.NewPassword))
	}
	if err := r.prompt(fields...); err != nil {
		return err
	}
	if err := change.Validate(); err != nil {
		return err
	}

	if err := r.service.ChangePassword(ctx, change); err != nil {
		return err
	}
	return r.writePlain("✓ Password changed\n")
}
