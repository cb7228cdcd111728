package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reoring/configurator"
	"github.com/reoring/configurator/jsonschema"
	"github.com/reoring/configurator/loader"
	"github.com/reoring/configurator/schemafile"
)

var errInvalidConfig = errors.New("configuration is invalid")

type globalFlags struct {
	schema   string
	config   string
	env      string
	logLevel string
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "configurator",
		Short: "Check and inspect configuration against a schema",
		Long: `configurator loads a per-environment configuration file, applies it to a
YAML schema and reports what is missing, rejected or unknown.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	env := os.Getenv("CONFIGURATOR_ENV")
	if env == "" {
		env = "development"
	}
	cmd.PersistentFlags().StringVarP(&g.schema, "schema", "s", "schema.yaml", "schema file")
	cmd.PersistentFlags().StringVarP(&g.config, "config", "c", "config.yaml", "configuration file")
	cmd.PersistentFlags().StringVarP(&g.env, "env", "e", env, "environment to load")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newCheckCommand(g))
	cmd.AddCommand(newDumpCommand(g))
	cmd.AddCommand(newGetCommand(g))
	cmd.AddCommand(newEnvsCommand(g))
	cmd.AddCommand(newSchemaCommand(g))
	return cmd
}

func (g *globalFlags) logger(w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(g.logLevel)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).Level(lvl).With().Timestamp().Logger()
}

// load builds the schema and loads the environment into it. The returned
// Config is usable even when err reports missing requirements.
func (g *globalFlags) load(cmd *cobra.Command) (*configurator.Config, error) {
	lg := g.logger(cmd.ErrOrStderr())

	doc, err := schemafile.ParseFile(g.schema)
	if err != nil {
		return nil, err
	}
	cfg, err := configurator.New(schemafile.Define(doc), configurator.WithLogger(lg))
	if err != nil {
		return nil, err
	}
	src, err := loader.New(g.config, loader.WithLogger(lg))
	if err != nil {
		return nil, err
	}
	lg.Debug().Str("schema", g.schema).Str("config", src.Path()).Str("env", g.env).Msg("loading configuration")
	return cfg, cfg.Load(src, g.env)
}

func newCheckCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate a configuration file against a schema",
		Example: `  configurator check --schema schema.yaml --config config.yaml --env production`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd)
			out := cmd.OutOrStdout()
			if err != nil {
				iss, ok := configurator.AsIssues(err)
				if !ok {
					return err
				}
				printIssues(out, "error", iss)
				if cfg != nil {
					printIssues(out, "warning", cfg.Issues())
				}
				return fmt.Errorf("%w: %d problem(s) in %s", errInvalidConfig, len(iss), g.env)
			}
			printIssues(out, "warning", cfg.Issues())
			fmt.Fprintf(out, "%s: ok\n", g.env)
			return nil
		},
	}
}

func printIssues(w io.Writer, severity string, iss configurator.Issues) {
	for _, is := range iss {
		fmt.Fprintf(w, "%s: %s: %s (%s)\n", severity, is.Path, is.Message, is.Code)
	}
}

func newDumpCommand(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			var b []byte
			switch strings.ToLower(format) {
			case "yaml", "yml":
				b, err = cfg.ToYAML()
			case "json":
				b, err = cfg.ToJSON()
				b = append(b, '\n')
			default:
				return fmt.Errorf("unknown format %q, expected yaml or json", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, json)")
	return cmd
}

func newGetCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "get <path>",
		Short:   "Print one resolved value",
		Example: `  configurator get database.host --env production`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			n, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if sec, ok := n.(*configurator.Section); ok {
				b, err := sec.ToYAML()
				if err != nil {
					return err
				}
				_, err = out.Write(b)
				return err
			}
			v, err := n.Value()
			if err != nil {
				return err
			}
			if _, ok := v.(map[string]any); ok {
				b, err := yaml.Marshal(v)
				if err != nil {
					return err
				}
				_, err = out.Write(b)
				return err
			}
			_, err = fmt.Fprintln(out, formatValue(v))
			return err
		},
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = formatValue(e)
		}
		return strings.Join(parts, "\n")
	}
	return fmt.Sprint(v)
}

func newEnvsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "envs",
		Short: "List the environments of a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := loader.New(g.config, loader.WithLogger(g.logger(cmd.ErrOrStderr())))
			if err != nil {
				return err
			}
			envs, err := src.Environments()
			if err != nil {
				return err
			}
			sort.Strings(envs)
			for _, e := range envs {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}
}

func newSchemaCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the schema as JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := schemafile.ParseFile(g.schema)
			if err != nil {
				return err
			}
			root := configurator.NewRoot(configurator.WithLogger(g.logger(cmd.ErrOrStderr())))
			if err := schemafile.Build(root, doc); err != nil {
				return err
			}
			b, err := jsonschema.Marshal(root)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}
