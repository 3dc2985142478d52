package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/transcribeflow/internal/identity"
	"github.com/desertthunder/transcribeflow/internal/trial"
	"github.com/urfave/cli/v3"
)

func (r *Runner) sessionManager() (SessionManager, error) {
	if !r.config.Identity.Configured() && r.identity == nil {
		return nil, fmt.Errorf("%w: set [identity] client_id and issuer (or auth_url and token_url) in %s", identity.ErrNotConfigured, r.configName())
	}

	p, err := r.provider()
	if err != nil {
		return nil, err
	}

	sm, ok := p.(SessionManager)
	if !ok {
		return nil, identity.ErrNotConfigured
	}
	return sm, nil
}

func (r *Runner) configName() string {
	if r.configPath == "" {
		return "config.toml"
	}
	return r.configPath
}

// AuthLogin signs in through the browser and stores the session locally.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	sm, err := r.sessionManager()
	if err != nil {
		return err
	}

	r.logger.Info("starting browser sign-in")
	user, err := sm.Login(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("authentication successful", "user", user.ID)
	return r.writePlain("✓ Signed in as %s\n", user.DisplayName())
}

// AuthLogout forgets the local session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	sm, err := r.sessionManager()
	if err != nil {
		return err
	}

	if err := sm.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return r.writePlain("✓ Signed out\n")
}

type authStatus struct {
	Authenticated   bool   `json:"authenticated"`
	User            any    `json:"user,omitempty"`
	RemainingTrials int    `json:"remaining_trials"`
	Backend         string `json:"backend"`
	BackendHealthy  bool   `json:"backend_healthy"`
	BackendError    string `json:"backend_error,omitempty"`
}

// AuthStatus reports who is signed in, the trial allowance and whether the backend is reachable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	gate, provider, err := r.gate(ctx)
	if err != nil {
		return err
	}

	status := authStatus{
		Authenticated:   gate.Authenticated(),
		RemainingTrials: gate.RemainingTrials(),
		Backend:         r.config.API.BaseURL,
	}
	user := provider.CurrentUser()
	if user != nil {
		status.User = user
	}

	if svc, err := r.service(); err != nil {
		status.BackendError = err.Error()
	} else if err := svc.Health(ctx); err != nil {
		status.BackendError = err.Error()
	} else {
		status.BackendHealthy = true
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if status.Authenticated {
		r.writePlain("Authentication: ✓ Signed in as %s\n", user.DisplayName())
	} else {
		r.writePlain("Authentication: ✗ Not signed in (trial uploads remaining: %d/%d)\n", status.RemainingTrials, trial.MaxTrialUploads)
	}

	if status.BackendHealthy {
		r.writePlain("Backend:        ✓ %s\n", status.Backend)
		return nil
	}
	return r.writePlain("Backend:        ✗ %s (%s)\n", status.Backend, status.BackendError)
}
