package main

import (
	"fmt"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/overlay/internal/app"
	"github.com/dshills/overlay/internal/config"
	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/settings"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	pluginDir  string
	logLevel   string

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "overlay",
		Short: "Overlay plugin host",
		Long: `Overlay discovers plugin archives, restores the plugins that were
active last session and saves their state again on exit.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadConfig(cmd)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nCommit: %s\nBuilt: %s\nPlatform: %s/%s\n",
		commit, date, runtime.GOOS, runtime.GOARCH))

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultPath(), "config file path")
	root.PersistentFlags().StringVar(&c.pluginDir, "plugin-dir", "", "plugin archive directory (overrides config)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		c.newRunCommand(),
		c.newScanCommand(),
		c.newSettingsCommand(),
		c.newConfigCommand(),
		newVersionCommand(),
	)
	return root
}

// loadConfig layers command-line flags over the loaded configuration.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("plugin-dir") {
		cfg.Plugins.Dir = c.pluginDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	return nil
}

func (c *cli) newRunCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the plugin host until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("watch") {
				c.cfg.Plugins.Watch = watch
			}

			application, err := app.New(c.cfg, app.Options{})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rescan archives when the plugin directory changes")
	return cmd
}

func (c *cli) newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List plugin archives and what they can build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scanner := plugin.NewScanner(c.cfg.Plugins.Dir, plugin.WithExtension(c.cfg.Plugins.Extension))
			defer scanner.Close()

			result, err := scanner.Scan()
			if err != nil {
				return err
			}
			return writeScan(cmd, result)
		},
	}
}

func writeScan(cmd *cobra.Command, result plugin.ScanResult) error {
	names := make([]string, 0, len(result.Modules))
	for name := range result.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ARCHIVE\tVERSION\tKINDS\tSTATUS")
	for _, name := range names {
		lr := result.Modules[name]
		if lr.Failed() {
			fmt.Fprintf(w, "%s\t-\t-\t%s\n", name, plugin.NewBad(name, lr.Err).DescribeError())
			continue
		}

		kinds := make([]string, 0, 2)
		for _, k := range result.Capabilities[name].Sorted() {
			kinds = append(kinds, k.String())
		}
		kindList := strings.Join(kinds, ",")
		if kindList == "" {
			kindList = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\tok\n", name, lr.Unit.Manifest().Version, kindList)
	}
	return w.Flush()
}

func (c *cli) newSettingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the stored plugin bookkeeping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tree, err := settings.OpenTree(c.cfg.Storage.SettingsPath)
			if err != nil {
				return err
			}
			data, err := tree.MarshalTOML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func (c *cli) newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := c.cfg.TOML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "overlay %s\nCommit: %s\nBuilt: %s\n", version, commit, date)
		},
	}
}
