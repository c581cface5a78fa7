package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"bookman/internal/catalog"
	"bookman/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// app carries state shared by every command of one invocation.
type app struct {
	version    string
	configFile string
	cfg        Config

	// runOnboarding is swapped out in tests.
	runOnboarding func(dir string) (string, error)
}

// Execute runs the bookman command tree.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	a := &app{version: version, runOnboarding: runOnboarding}

	root := &cobra.Command{
		Use:   "bookman",
		Short: "bookman manages a remote book catalog",
		Long: `bookman is a terminal client for a remote book catalog.

Without a subcommand it opens the interactive table. The list, get, add,
update and delete subcommands run a single request and exit.`,
		Version:           version,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
		RunE:              a.runTUI,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: ~/.bookman/config.yaml)")
	pf.String("base-url", "", "catalog endpoint (default: "+catalog.DefaultBaseURL+")")
	pf.Duration("timeout", catalog.DefaultTimeout, "per-request timeout")
	pf.String("log-file", "", "append debug output to this file")

	root.AddCommand(
		newVersionCmd(a),
		newServeCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newAddCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
	)
	return root
}

// load reads .env files and resolves the configuration before any command runs.
func (a *app) load(cmd *cobra.Command, args []string) error {
	loadDotEnv(".env")
	loadDotEnv(".env.local")

	dir, err := configDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(newViper(dir), a.configFile, dir, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) client() (*catalog.Client, error) {
	return catalog.NewClient(a.cfg.BaseURL,
		catalog.WithTimeout(a.cfg.Timeout),
		catalog.WithUserAgent("bookman/"+a.version),
	)
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	if a.shouldOnboard(cmd) {
		baseURL, err := a.runOnboarding(a.cfg.Dir)
		if err != nil {
			return fmt.Errorf("failed to run onboarding: %w", err)
		}
		if baseURL != "" {
			a.cfg.BaseURL = baseURL
		}
	}

	closeLog, err := setupLogging(a.cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := a.client()
	if err != nil {
		return err
	}

	prefsPath, err := ui.DefaultPrefsPath()
	if err != nil {
		log.Printf("table preferences disabled: %v", err)
		prefsPath = ""
	}

	p := tea.NewProgram(ui.New(client, ui.Options{
		Endpoint:  client.BaseURL(),
		PrefsPath: prefsPath,
	}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}

// shouldOnboard is true on the first interactive run: no config file, no endpoint from flag or env.
func (a *app) shouldOnboard(cmd *cobra.Command) bool {
	if a.cfg.File != "" || a.configFile != "" || baseURLOverridden(cmd.Flags()) {
		return false
	}
	return stdinIsTerminal()
}

// setupLogging sends the standard logger to path, or discards it. Stdout belongs to the renderer.
func setupLogging(path string) (func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := tea.LogToFile(path, "bookman")
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return func() { f.Close() }, nil
}

func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
