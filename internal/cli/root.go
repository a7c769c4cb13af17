// Package cli implements the histomorph command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"histo-analyzer/internal/app"
	"histo-analyzer/internal/calibration"
	"histo-analyzer/internal/config"
	"histo-analyzer/internal/measure"
	"histo-analyzer/internal/prefs"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// appID names the fyne application whose preferences the fyne backend uses.
const appID = "histo-analyzer"

// newFyneApp creates the application behind the fyne profile backend.
var newFyneApp = func() fyne.App { return fyneapp.NewWithID(appID) }

// env is the state shared by one command invocation.
type env struct {
	v       *viper.Viper
	cfg     config.Config
	cfgFile string
	closers []func() error
}

// Execute runs the command line and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the full command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:           "histomorph",
		Short:         "Morphometry and calibration for histology micrographs",
		Long:          "histomorph measures lengths, areas and layer thickness on micrographs and converts them to micrometers using line or stage micrometer calibrations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.initConfig(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.cfgFile, "config", "", "config file (default .histomorph.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("profiles-backend", config.BackendFile, "calibration profile store: file, sqlite, fyne or memory")
	flags.String("profiles-path", "", "calibration profile store path")
	flags.Int("thickness-samples", 200, "points each thickness boundary is resampled to")
	flags.String("units", "cyrillic", "physical unit labels: cyrillic or greek")

	_ = e.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = e.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = e.v.BindPFlag("profiles.backend", flags.Lookup("profiles-backend"))
	_ = e.v.BindPFlag("profiles.path", flags.Lookup("profiles-path"))
	_ = e.v.BindPFlag("thickness.samples", flags.Lookup("thickness-samples"))
	_ = e.v.BindPFlag("units.labels", flags.Lookup("units"))

	root.AddCommand(
		e.measureCommand(),
		e.thicknessCommand(),
		e.calibrateCommand(),
		e.profilesCommand(),
		e.projectCommand(),
		e.exportCommand(),
		e.tissueCommand(),
		versionCommand(),
	)
	return root
}

func (e *env) initConfig(logOut io.Writer) error {
	if e.cfgFile != "" {
		e.v.SetConfigFile(e.cfgFile)
	} else {
		e.v.SetConfigName(".histomorph")
		e.v.SetConfigType("yaml")
		e.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			e.v.AddConfigPath(home)
		}
	}

	e.v.SetEnvPrefix("HISTOMORPH")
	e.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	e.v.AutomaticEnv()

	if err := e.v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit one must load.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || e.cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := config.Load(e.v)
	if err != nil {
		return err
	}
	e.cfg = cfg
	slog.SetDefault(cfg.Log.NewLogger(logOut))
	if used := e.v.ConfigFileUsed(); used != "" {
		slog.Debug("config loaded", "file", used)
	}
	return nil
}

func (e *env) close() error {
	var first error
	for _, c := range e.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}

// openStore opens the configured calibration profile store.
func (e *env) openStore() (prefs.Store, error) {
	path := e.cfg.Profiles.Path
	switch e.cfg.Profiles.Backend {
	case config.BackendMemory:
		return prefs.NewMemory(), nil
	case config.BackendFyne:
		return prefs.NewPreferences(newFyneApp().Preferences()), nil
	case config.BackendSQLite:
		if path == "" {
			path = filepath.Join(filepath.Dir(prefs.DefaultPath()), "preferences.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create preferences dir: %w", err)
		}
		s, err := prefs.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, s.Close)
		return s, nil
	default:
		if path == "" {
			path = prefs.DefaultPath()
		}
		return prefs.OpenFile(path)
	}
}

func (e *env) openLibrary() (*calibration.Library, error) {
	store, err := e.openStore()
	if err != nil {
		return nil, err
	}
	return calibration.OpenLibrary(store)
}

// session opens a measurement session, loading projectPath when given.
func (e *env) session(projectPath string) (*app.State, error) {
	lib, err := e.openLibrary()
	if err != nil {
		return nil, err
	}
	s := app.NewState(lib,
		app.WithLabels(measure.LabelsByName(e.cfg.Units.Labels)),
		app.WithThicknessSamples(e.cfg.Thickness.Samples),
	)
	if projectPath != "" {
		if err := s.LoadProject(projectPath); err != nil {
			return nil, err
		}
	}
	return s, nil
}
