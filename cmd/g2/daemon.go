package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/leptong2/pkg/daemon"
	"github.com/charlie0129/leptong2/pkg/version"
)

var (
	// allowNonRootAccess indicates whether non-root users may access the daemon socket.
	allowNonRootAccess = false
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run the g2 daemon in the foreground",
		GroupID: gAdvanced,
		Long: `Run the g2 daemon in the foreground.

The daemon serves the calculator over HTTP on --daemon and persists changes to
--config. Send SIGHUP to reload the config file.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("g2 daemon starting")
			return daemon.Run(configPath, daemonAddr, allowNonRootAccess)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&allowNonRootAccess, "allow-non-root-access", false,
		"Allow non-root users to access the daemon socket.")

	return cmd
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}
