package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/repositories"
	"github.com/desertthunder/musiq/internal/services"
	"github.com/desertthunder/musiq/internal/session"
	"github.com/desertthunder/musiq/internal/shared"
	"github.com/desertthunder/musiq/internal/tasks"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// runStore records export runs and lists past ones.
type runStore interface {
	tasks.RunRecorder
	List(limit int) ([]*models.ExportRun, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Commands that talk to the backend call [Runner.connect] first, which opens the database and
// builds the session store, bus and service unless they were injected.
type Runner struct {
	config      *shared.Config
	configPath  string
	db          *sql.DB
	bus         *events.Bus
	store       *session.Store
	service     services.Service
	library     *tasks.Library
	exporter    *tasks.Exporter
	runs        runStore
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	interactive bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Bus         *events.Bus
	Store       *session.Store
	Service     services.Service
	Runs        runStore
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Interactive bool
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		bus:         opts.Bus,
		store:       opts.Store,
		runs:        opts.Runs,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		interactive: opts.Interactive,
	}
	if opts.Service != nil {
		r.useService(opts.Service)
	}
	return r
}

func (r *Runner) useService(svc services.Service) {
	r.service = svc
	r.library = tasks.NewLibrary(svc, r.bus, r.logger)
	var runs tasks.RunRecorder
	if r.runs != nil {
		runs = r.runs
	}
	r.exporter = tasks.NewExporter(svc, runs, r.logger)
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// connect opens the database and wires the session store, bus, gateway and service.
func (r *Runner) connect() error {
	if r.service != nil {
		return nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	r.db = db

	if r.bus == nil {
		r.bus = events.NewBus(r.logger)
	}
	if r.store == nil {
		r.store = session.NewStore(repositories.NewKVRepository(db), r.bus, r.logger)
	}
	if r.runs == nil {
		r.runs = repositories.NewExportRunRepository(db)
	}

	gw := services.NewGateway(services.GatewayOpts{
		BaseURL:   r.config.API.BaseURL,
		Client:    &http.Client{Timeout: r.config.API.RequestTimeout()},
		UserAgent: r.config.API.UserAgent,
		Logger:    r.logger,
	}, r.store)
	r.useService(services.NewMusiqService(gw, r.store))

	r.logger.Debug("connected", "api", r.config.API.BaseURL, "database", r.config.Database.Path)
	return nil
}

// Close releases the database opened by [Runner.connect].
func (r *Runner) Close() error {
	if r.bus != nil {
		r.bus.Close()
	}
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		authCommand, accountCommand, playlistsCommand, likedCommand, likeCommand, searchCommand,
		chartCommand, artistsCommand, exportCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// wait runs fn behind a spinner when attached to a terminal and directly otherwise.
func (r *Runner) wait(ctx context.Context, title string, fn func(context.Context) error) error {
	if !r.interactive {
		return fn(ctx)
	}
	return spinner.New().Title(title).Context(ctx).ActionWithErr(fn).Run()
}

// render writes data as JSON or YAML when --output asks for it, and calls text otherwise.
func (r *Runner) render(cmd *cli.Command, data any, text func() error) error {
	switch format := strings.ToLower(cmd.String("output")); format {
	case "json":
		return r.writeJSON(data, true)
	case "yaml", "yml":
		return r.writeYAML(data)
	case "", "text":
		return text()
	default:
		return fmt.Errorf("%w: output %q (want text, json or yaml)", shared.ErrInvalidFlag, format)
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

func (r *Runner) writeYAML(data any) error {
	output, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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

// parseID reads a positive numeric id from the named argument.
func parseID(cmd *cli.Command, name string) (int64, error) {
	raw := strings.TrimSpace(cmd.StringArg(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}

// requireArg returns the named argument or ErrMissingArgument.
func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// isTerminal reports whether f is attached to a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
