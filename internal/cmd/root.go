// Package cmd provides the command-line interface for scout.
// It handles command parsing, configuration loading and dispatch to the
// parsing, query, analysis and crawl packages.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pyscout/scout/internal/config"
	"github.com/pyscout/scout/internal/logging"
)

var (
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

// Execute runs the root command with os.Args
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// app is the state shared by one command tree: its viper instance and the
// configuration resolved before a subcommand runs
type app struct {
	v         *viper.Viper
	cfgFile   string
	cfg       *config.Config
	logCloser io.Closer
}

type flagBinding struct {
	viperKey string
	flagName string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	def := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "scout",
		Short: "Parse, query and crawl HTML and XML documents",
		Long: `scout parses HTML and XML into a navigable tree, selects nodes with
CSS-style selectors, analyzes text and structure, renders documents as
JSON, Markdown or markup, and crawls a site from a seed URL.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if done, err := a.handleShowConfig(cmd); done {
				return err
			}
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./scout.yml)")
	pf.Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Logging flags
	pf.String("log-level", def.LogLevel, "Log level: debug, info, warn or error")
	pf.String("log-format", def.LogFormat, "Log format: text or json")
	pf.String("log-file", "", "Also write logs to this file, rotated by size")

	// Parsing and output flags
	pf.String("mode", def.Mode, "Document syntax: html or xml")
	pf.String("encoding", "", "Source charset (detected when empty)")
	pf.StringP("format", "f", def.Format, "Output format: json, markdown, pretty, html or text")
	pf.String("indent", def.Indent, "Indent used by json and pretty output")
	pf.String("heading-style", def.HeadingStyle, "Markdown heading style: atx or setext")

	// Database flags
	pf.StringP("database", "d", "", "Path to SQLite database file (crawl results are not stored when empty)")

	a.bindFlags(pf, []flagBinding{
		{"log_level", "log-level"},
		{"log_format", "log-format"},
		{"log_file", "log-file"},
		{"mode", "mode"},
		{"encoding", "encoding"},
		{"format", "format"},
		{"indent", "indent"},
		{"heading_style", "heading-style"},
		{"database_path", "database"},
	})

	root.AddCommand(
		a.newCrawlCmd(),
		a.newSelectCmd(),
		a.newAnalyzeCmd(),
		a.newRenderCmd(),
		a.newRunsCmd(),
	)
	return root
}

func (a *app) bindFlags(fs *pflag.FlagSet, binds []flagBinding) {
	for _, bind := range binds {
		if err := a.v.BindPFlag(bind.viperKey, fs.Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
}

// initConfig reads in the config file and environment variables
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("scout")
	}

	a.v.AutomaticEnv()
	a.v.SetEnvPrefix("SCOUT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	err := a.v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if a.cfgFile == "" && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

// setup resolves the configuration and installs the logger
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.initConfig(); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if err := a.v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logCfg.FilePath = cfg.LogFile
	logCfg.Output = cmd.ErrOrStderr()
	closer, err := logging.SetDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	a.logCloser = closer

	if used := a.v.ConfigFileUsed(); used != "" {
		slog.Debug("Using config file", "path", used)
	}

	if show, _ := cmd.Flags().GetBool("show-config"); show {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.logCloser == nil {
		return nil
	}
	return a.logCloser.Close()
}

// handleShowConfig prints the configuration when --show-config is set.
// done reports whether the command should stop here.
func (a *app) handleShowConfig(cmd *cobra.Command) (done bool, err error) {
	show, _ := cmd.Flags().GetBool("show-config")
	if !show {
		return false, nil
	}
	return true, showCurrentConfig(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.cfg)
}

func showCurrentConfig(w, warn io.Writer, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(warn, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(warn, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current scout configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./scout.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: SCOUT_\n\n")

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (SCOUT_ prefix)\n")
	fmt.Fprintf(w, "# 3. Configuration file (scout.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")
	return nil
}
