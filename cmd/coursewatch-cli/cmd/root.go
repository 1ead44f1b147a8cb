package cmd

import (
	"coursewatch-backend/internal/app"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/config"
	"coursewatch-backend/lib/serviceutil"
	libtelemetry "coursewatch-backend/lib/telemetry"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	cfg        config.Config
	components *app.App
)

var rootCmd = &cobra.Command{
	Use:   "coursewatch-cli",
	Short: "coursewatch-cli reads the course schedule and manages the watch list without the http server.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		libtelemetry.InitSlog(verbose)

		var err error
		cfg, err = config.Read(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		components, err = app.Open(cfg, nil, telemetry.SlogAPI{})
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if components == nil {
			return nil
		}
		return components.Close()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "Path to the configuration file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func Execute() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
