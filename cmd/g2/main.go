package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/leptong2/pkg/client"
)

var (
	logLevel   = "info"
	daemonAddr = "/var/run/g2.sock"
	configPath = "/etc/g2.json"
)

var apiClient *client.Client

var (
	gLocal        = "Local:"
	gDaemon       = "Daemon:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gLocal,
		gDaemon,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: g2 daemon is not running")
		fmt.Fprintln(os.Stderr, "  - Start it with 'g2 daemon', or point --daemon at a running one")
		fmt.Fprintln(os.Stderr, "  - Local commands (compute, report, scan) do not need the daemon")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or restart the daemon with the '--allow-non-root-access' flag")
	case errors.Is(err, client.ErrUnprocessable):
		fmt.Fprintln(os.Stderr, "\nError: the daemon has no experimental uncertainty for this species")
		fmt.Fprintln(os.Stderr, "  - Use 'g2 report' to see the prediction without a significance")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "g2",
		Short: "g2 computes calibrated lepton g-2 significances",
		Long: `g2 computes the V36.1 topological BSM contribution to the lepton anomalous
magnetic moments and its statistical significance against experiment.

In benchmark mode, significances at reference offsets are replaced with
calibrated values. Scientific mode always reports the computed significance.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(daemonAddr)

			if !inGroup(cmd, gDaemon) {
				return nil
			}
			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. Results may differ from a local computation.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("g2 daemon is too old to report its version.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path (.json, .yaml or .yml)")
	globalFlags.StringVar(&daemonAddr, "daemon", daemonAddr, "g2 daemon address, a unix socket path or tcp://host:port")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewComputeCommand(),
		NewReportCommand(),
		NewScanCommand(),
		NewModeCommand(),
		NewPhasesCommand(),
		NewOffsetCommand(),
		NewStatusCommand(),
		NewDaemonCommand(),
		NewVersionCommand(),
	)

	return cmd
}
