package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/breathsave/breathsave/internal/auth"
	"github.com/breathsave/breathsave/internal/config"
	"github.com/breathsave/breathsave/internal/store"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage dashboard accounts",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create an account",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUserRegister,
}

var userLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Check a username and password",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUserLogin,
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd [username]",
	Short: "Change an account password",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUserPasswd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered accounts",
	RunE:  runUserList,
}

func init() {
	userCmd.AddCommand(userRegisterCmd, userLoginCmd, userPasswdCmd, userListCmd)
	rootCmd.AddCommand(userCmd)
}

const userOpTimeout = 10 * time.Second

// openCredentials returns the credential store selected by [auth] backend.
// The returned func releases it.
func openCredentials(cfg config.Config) (auth.CredentialStore, func(), error) {
	switch cfg.Auth.Backend {
	case config.BackendJSON:
		return auth.NewJSONFile(config.CredentialsPath(cfg)), func() {}, nil
	case config.BackendSQLite, "":
		creds, err := store.OpenCredentials(config.CredentialsPath(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("opening credential database: %w", err)
		}
		return creds, func() { _ = creds.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown auth backend %q (want %s or %s)",
		cfg.Auth.Backend, config.BackendSQLite, config.BackendJSON)
}

func authService(cfg config.Config) (*auth.Service, func(), error) {
	creds, closeFn, err := openCredentials(cfg)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewService(creds, cfg.Auth.MinPasswordLen), closeFn, nil
}

func usernameArg(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(args[0])
	}
	return ""
}

func usernameField(v *string) *huh.Input {
	return huh.NewInput().
		Title("Username").
		Value(v).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("username is required")
			}
			return nil
		})
}

func passwordField(title string, v *string) *huh.Input {
	return huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(v)
}

func runUserRegister(_ *cobra.Command, args []string) error {
	cfg := loadConfig()
	svc, closeFn, err := authService(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	username := usernameArg(args)
	var password, confirm string
	form := huh.NewForm(huh.NewGroup(
		usernameField(&username),
		passwordField("Password", &password).
			Description(fmt.Sprintf("At least %d characters.", cfg.Auth.MinPasswordLen)),
		passwordField("Confirm password", &confirm),
	).Title("Create a breathsave account"))
	if err := form.Run(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), userOpTimeout)
	defer cancel()
	if err := svc.Register(ctx, username, password, confirm); err != nil {
		return err
	}
	fmt.Printf("  Registered %s (%s backend)\n", strings.TrimSpace(username), cfg.Auth.Backend)
	return nil
}

func runUserLogin(_ *cobra.Command, args []string) error {
	cfg := loadConfig()
	svc, closeFn, err := authService(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	username := usernameArg(args)
	var password string
	form := huh.NewForm(huh.NewGroup(
		usernameField(&username),
		passwordField("Password", &password),
	).Title("Sign in"))
	if err := form.Run(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), userOpTimeout)
	defer cancel()
	sess, err := svc.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Printf("  Signed in as %s\n", sess.Username)
	fmt.Printf("  Session %s at %s\n", sess.ID, sess.LoginTime.Format(time.RFC3339))
	return nil
}

func runUserPasswd(_ *cobra.Command, args []string) error {
	cfg := loadConfig()
	svc, closeFn, err := authService(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	username := usernameArg(args)
	var current, next, confirm string
	form := huh.NewForm(huh.NewGroup(
		usernameField(&username),
		passwordField("Current password", &current),
		passwordField("New password", &next),
		passwordField("Confirm new password", &confirm),
	).Title("Change password"))
	if err := form.Run(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), userOpTimeout)
	defer cancel()
	if err := svc.UpdatePassword(ctx, username, current, next, confirm); err != nil {
		return err
	}
	fmt.Printf("  Password updated for %s\n", strings.TrimSpace(username))
	return nil
}

// usernameLister is implemented by both credential backends.
type usernameLister interface {
	Usernames(ctx context.Context) ([]string, error)
}

func runUserList(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	creds, closeFn, err := openCredentials(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	lister, ok := creds.(usernameLister)
	if !ok {
		return fmt.Errorf("the %s backend cannot list users", cfg.Auth.Backend)
	}
	ctx, cancel := context.WithTimeout(context.Background(), userOpTimeout)
	defer cancel()
	names, err := lister.Usernames(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	if len(names) == 0 {
		fmt.Println("  No accounts yet. Create one with `breathsave user register`.")
		return nil
	}
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
	return nil
}
