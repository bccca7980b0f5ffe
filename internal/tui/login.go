package tui

import (
	"context"
	"strings"
	"time"

	"github.com/breathsave/breathsave/internal/auth"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

const (
	modeLogin    = "login"
	modeRegister = "register"

	authTimeout = 5 * time.Second
)

// loginValues is bound to the login form fields. It lives on the heap so the
// form keeps writing to the same values as App is copied between updates.
type loginValues struct {
	mode     string
	username string
	password string
	confirm  string
}

type authResultMsg struct {
	session auth.Session
	mode    string
	err     error
}

func newLoginForm(v *loginValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("breathsave").
				Description("Sign in to view the community dashboard.").
				Options(
					huh.NewOption("Sign in", modeLogin),
					huh.NewOption("Create an account", modeRegister),
				).
				Value(&v.mode),
			huh.NewInput().
				Title("Username").
				Value(&v.username),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&v.password),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&v.confirm),
		).WithHideFunc(func() bool { return v.mode != modeRegister }),
	).WithShowHelp(true)
}

// openLogin shows a fresh login form, keeping the last username.
func (a App) openLogin(errMsg string) (tea.Model, tea.Cmd) {
	prev := a.loginVals
	a.loginVals = &loginValues{mode: modeLogin}
	if prev != nil {
		a.loginVals.mode = prev.mode
		a.loginVals.username = prev.username
	}
	a.loginErr = errMsg
	a.loginForm = newLoginForm(a.loginVals)
	a.sizeForm(a.loginForm)
	return a, a.loginForm.Init()
}

func (a App) updateLoginForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.loginForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.loginForm = f
	}

	switch a.loginForm.State {
	case huh.StateCompleted:
		v := *a.loginVals
		a.loginForm = nil
		return a, authCmd(a.opts.Auth, v)
	case huh.StateAborted:
		return a, tea.Quit
	}
	return a, cmd
}

// authCmd registers (when asked) and signs in off the update loop.
func authCmd(svc *auth.Service, v loginValues) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()

		username := strings.TrimSpace(v.username)
		if v.mode == modeRegister {
			if err := svc.Register(ctx, username, v.password, v.confirm); err != nil {
				return authResultMsg{mode: v.mode, err: err}
			}
		}
		sess, err := svc.Login(ctx, username, v.password)
		return authResultMsg{session: sess, mode: v.mode, err: err}
	}
}

func (a App) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return a.openLogin(authErrorText(msg.err))
	}
	a.session = &msg.session
	a.loginForm = nil
	a.loginErr = ""
	a.loginVals = nil
	a.recompute()
	if msg.mode == modeRegister {
		a.setFlash("account created, welcome " + msg.session.Username)
	} else {
		a.setFlash("welcome back, " + msg.session.Username)
	}
	return a, nil
}

// authErrorText turns auth errors into the message shown above the form.
func authErrorText(err error) string {
	s := err.Error()
	if s == "" {
		return "sign in failed"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
