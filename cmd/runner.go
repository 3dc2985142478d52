package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/transcribeflow/internal/identity"
	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/repositories"
	"github.com/desertthunder/transcribeflow/internal/services"
	"github.com/desertthunder/transcribeflow/internal/shared"
	"github.com/desertthunder/transcribeflow/internal/trial"
	"github.com/urfave/cli/v3"
)

// SessionManager is an identity provider that can also sign in and out.
type SessionManager interface {
	identity.Provider
	Login(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        services.Service
	identity   identity.Provider
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	input      io.Reader
	output     io.Writer
	errOutput  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        services.Service
	Identity   identity.Provider
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Input      io.Reader
	Output     io.Writer
	ErrOutput  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		identity:   opts.Identity,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		input:      opts.Input,
		output:     opts.Output,
		errOutput:  opts.ErrOutput,
	}
}

// SetLogger replaces the runner's logger and the backend client's.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	if api, ok := r.api.(*services.APIService); ok {
		api.WithLogger(shared.WithLogger(l, "component", "api"))
	}
}

// Close releases the database connection opened by any command.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		uploadCommand, historyCommand, authCommand, trialCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) service() (services.Service, error) {
	if r.api == nil {
		return nil, fmt.Errorf("%w: backend API client not initialized", shared.ErrServiceUnavailable)
	}
	return r.api, nil
}

// database opens (once) the configured database and runs pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

// provider returns the injected identity provider or builds one from [identity] config.
//
// Without client settings every upload is a trial upload.
func (r *Runner) provider() (identity.Provider, error) {
	if r.identity != nil {
		return r.identity, nil
	}

	if !r.config.Identity.Configured() {
		r.logger.Debug("identity not configured, uploads run in trial mode")
		r.identity = &identity.Static{}
		return r.identity, nil
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}

	r.identity = identity.NewOAuthProvider(identity.OAuthProviderOpts{
		Config:     r.config.IdentityConfig(),
		Store:      repositories.NewSessionStore(repositories.NewMetadataRepository(db)),
		Logger:     shared.WithLogger(r.logger, "component", "identity"),
		HTTPClient: r.httpClient,
	})
	return r.identity, nil
}

// useToken replaces the identity provider with a fixed bearer token.
func (r *Runner) useToken(token string) {
	r.logger.Debug("using bearer token from flag")
	r.identity = &identity.Static{User: &models.User{ID: "token", Name: "token user"}, Token: token}
}

// gate builds an initialized trial gate over the local metadata store.
func (r *Runner) gate(ctx context.Context) (*trial.Gate, identity.Provider, error) {
	db, err := r.database()
	if err != nil {
		return nil, nil, err
	}

	p, err := r.provider()
	if err != nil {
		return nil, nil, err
	}

	g := trial.NewGate(p, repositories.NewMetadataRepository(db), shared.WithLogger(r.logger, "component", "trial"))
	g.Initialize(ctx)
	return g, p, nil
}

// confirm asks a yes/no question on the runner's input.
func (r *Runner) confirm(question string) bool {
	fmt.Fprintf(r.errOutput, "%s [y/N]: ", question)
	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
