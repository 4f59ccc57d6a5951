package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/seamline/internal/config"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	WriteConfig bool
}

// InitResult is the outcome of init.
type InitResult struct {
	Database      string `json:"database"`
	Styles        int    `json:"styles"`
	ConfigWritten string `json:"config_written,omitempty"`
}

func (r InitResult) String() string {
	s := fmt.Sprintf("Database ready: %s", r.Database)
	if r.Styles > 0 {
		s += fmt.Sprintf("\nTemplates: %d styles", r.Styles)
	}
	if r.ConfigWritten != "" {
		s += fmt.Sprintf("\nWrote %s", r.ConfigWritten)
	}
	return s
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and check templates",
		Long: `Create the SQLite database (applying the schema) and compile the configured
style templates.

Example:
  seamline init --db ./seamline.db
  seamline init --write-config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.WriteConfig, "write-config", false, "write the effective config to "+config.DefaultFile+" if it does not exist")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	result := InitResult{Database: a.cfg.Database, Styles: len(a.catalog)}

	if opts.WriteConfig {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			return NewExitError(ExitCommandError, config.DefaultFile+" already exists")
		}
		data, err := yaml.Marshal(a.cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if err := os.WriteFile(config.DefaultFile, data, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write config", err)
		}
		result.ConfigWritten = config.DefaultFile
	}

	opts.Logger.Info("database initialized", "path", result.Database, "styles", result.Styles)
	return opts.formatter(cmd).Success(result)
}
