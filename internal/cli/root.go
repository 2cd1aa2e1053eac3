// Package cli provides the command-line interface for bridge-udd.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/logging"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/version"
)

var (
	cfgFile string
	verbose bool

	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bridge-udd",
		Short: "Package a study participant's data for download",
		Long: `bridge-udd ` + version.Version + ` - Built: ` + version.BuildTime + `
Exports a participant's rows from the study's Synapse tables, bundles the
CSVs and attachments into a zip archive, uploads it, and prints a
time-limited download URL.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(verbose)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newPackageCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the root context so
// in-flight downloads stop and scratch files come down.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancelFunc()
	}()

	return NewRootCmd().ExecuteContext(rootContext)
}
