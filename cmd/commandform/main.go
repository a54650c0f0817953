package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-commandform"
	"github.com/goliatone/go-commandform/internal/config"
	"github.com/goliatone/go-commandform/internal/logging"
)

var (
	configPath  string
	document    string
	operation   string
	endpoint    string
	valuesPath  string
	resetPolicy string
	interactive bool
	allowHTTP   bool
	verbose     bool
	force       bool
	attempts    int

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "commandform",
	Short:   "Validate and submit OpenAPI request bodies as forms",
	Version: commandform.Version,
	Long: `commandform treats the request body of an OpenAPI operation as a form.

Values come from a YAML/JSON file, interactive prompts, or both. They are
validated against the operation schema and submitted to the endpoint; field
errors returned by the server are mapped back onto the form.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, loaded)
		cfg = loaded

		var level zap.AtomicLevel
		logger, level, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if verbose {
			level.SetLevel(zapcore.DebugLevel)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the operations declared in the document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newApp(cmd).operations(cmd.Context())
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Long: `init writes the configuration resolved from defaults, the existing file,
environment variables and flags back to --config. Use --force to overwrite.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newApp(cmd).writeConfig(configPath, force)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate form values against the operation schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newApp(cmd).validate(cmd.Context())
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate form values and submit them to the operation endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newApp(cmd).submit(cmd.Context())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "commandform.yaml", "Path to the configuration file")
	flags.StringVarP(&document, "document", "d", "", "OpenAPI document path or URL")
	flags.StringVarP(&operation, "operation", "o", "", "Operation ID whose request body is the form")
	flags.BoolVar(&allowHTTP, "allow-http", false, "Allow fetching the document over http(s)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	for _, cmd := range []*cobra.Command{validateCmd, submitCmd} {
		cmd.Flags().StringVarP(&valuesPath, "values", "f", "", "YAML or JSON file with form values")
		cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for values in the terminal")
	}
	submitCmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "Base URL overriding the document servers")
	submitCmd.Flags().StringVar(&resetPolicy, "reset", "", "Reset policy: never, onSuccess, onError, always")
	submitCmd.Flags().IntVar(&attempts, "attempts", 3, "Interactive attempts before giving up on validation errors")

	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(initCmd, operationsCmd, validateCmd, submitCmd)
}

// applyFlags lets explicitly set flags win over file and environment values.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("document") {
		c.Document = document
	}
	if changed("operation") {
		c.Operation = operation
	}
	if changed("endpoint") {
		c.Endpoint = endpoint
	}
	if changed("reset") {
		c.Reset = resetPolicy
	}
	if changed("allow-http") {
		c.AllowHTTP = allowHTTP
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
