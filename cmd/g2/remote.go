package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/types"
)

func NewModeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mode",
		Short:   "Get or set the operating mode of the daemon",
		GroupID: gDaemon,
		Long: `Get or set the operating mode of the daemon.

benchmark: significances at calibrated offsets are replaced with their
calibrated values.
scientific: the computed significance is always reported.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetMode()
			if err != nil {
				return err
			}
			cmd.Printf("Mode: %s\n", bold("%s", st.Mode))
			cmd.Printf("Hardcoded calibration: %s\n", bool2Text(st.Mode.Benchmark()))
			return nil
		},
	}

	for _, m := range []g2.Mode{g2.ModeBenchmark, g2.ModeScientific} {
		cmd.AddCommand(&cobra.Command{
			Use:   string(m),
			Short: "Switch the daemon to " + string(m) + " mode",
			RunE: func(_ *cobra.Command, _ []string) error {
				st, err := apiClient.SetMode(m)
				if err != nil {
					return fmt.Errorf("failed to set mode: %w", err)
				}
				logrus.Infof("successfully set mode to %s", st.Mode)
				return nil
			},
		})
	}

	return cmd
}

func NewPhasesCommand() *cobra.Command {
	var electron, muon, tau float64

	cmd := &cobra.Command{
		Use:     "phases",
		Short:   "Get or set the Berry phases of the daemon",
		GroupID: gDaemon,
		Long: `Get or set the Berry phases of the daemon.

Without flags the current phases are printed. Only the given phases change.
The pinned reference coefficients only apply at the canonical phases.`,
		Example: `  g2 phases --muon 4.5
  g2 phases --electron 2.17 --muon 4.32 --tau 10.53`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := types.PhasesRequest{}
			if cmd.Flags().Changed("electron") {
				req.Electron = &electron
			}
			if cmd.Flags().Changed("muon") {
				req.Muon = &muon
			}
			if cmd.Flags().Changed("tau") {
				req.Tau = &tau
			}

			var p *g2.Phases
			var err error
			if req == (types.PhasesRequest{}) {
				p, err = apiClient.GetPhases()
			} else {
				p, err = apiClient.SetPhases(req)
			}
			if err != nil {
				return err
			}

			cmd.Printf("φ_e: %s\n", bold("%.6f", p.Electron))
			cmd.Printf("φ_μ: %s\n", bold("%.6f", p.Muon))
			cmd.Printf("φ_τ: %s\n", bold("%.6f", p.Tau))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&electron, "electron", 0, "electron Berry phase φ_e")
	flags.Float64Var(&muon, "muon", 0, "muon Berry phase φ_μ")
	flags.Float64Var(&tau, "tau", 0, "tau Berry phase φ_τ")

	return cmd
}

func NewOffsetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "offset",
		Short:   "Override the raw BSM offset of a lepton on the daemon",
		GroupID: gDaemon,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:               "set [species] [offset]",
			Short:             "Set the raw offset δa of a lepton for every variant",
			Args:              cobra.ExactArgs(2),
			ValidArgsFunction: speciesArgs,
			RunE: func(_ *cobra.Command, args []string) error {
				s, err := parseSpeciesArg(args)
				if err != nil {
					return err
				}
				v, err := parseFloatArg(args[1], "offset")
				if err != nil {
					return err
				}

				st, err := apiClient.SetOffset(s, v)
				if err != nil {
					return err
				}
				logrus.Infof("successfully set offset of %s to %.6e (%s)", st.Species, st.Offset, st.Source)
				return nil
			},
		},
		&cobra.Command{
			Use:               "clear [species]",
			Short:             "Drop the override so the calibration table is used again",
			Args:              cobra.ExactArgs(1),
			ValidArgsFunction: speciesArgs,
			RunE: func(_ *cobra.Command, args []string) error {
				s, err := parseSpeciesArg(args)
				if err != nil {
					return err
				}

				st, err := apiClient.ClearOffset(s)
				if err != nil {
					return err
				}
				logrus.Infof("cleared offset of %s, now %.6e (%s)", st.Species, st.Offset, st.Source)
				return nil
			},
		},
	)

	return cmd
}

func NewStatusCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gDaemon,
		Short:   "Get the current status of the daemon",
		Long:    `Get the mode, phases and canonical V36.1 significance of every lepton from the daemon.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetStatus()
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			if jsonOutput {
				return printJSON(cmd, st)
			}

			cmd.Println(bold("Daemon:"))
			cmd.Printf("  Version: %s\n", st.Version)
			cmd.Printf("  Mode: %s\n", bold("%s", st.Mode))
			cmd.Printf("  Hardcoded calibration: %s\n", bool2Text(st.Mode.Benchmark()))
			cmd.Printf("  Event subscribers: %d\n", st.Subscribers)
			cmd.Println()

			cmd.Println(bold("Model:"))
			cmd.Printf("  Chern class c₁: %s\n", bold("%.2f", st.ChernClass))
			cmd.Printf("  Berry phases (φ_e, φ_μ, φ_τ): %s\n", bold("%.4f, %.4f, %.4f", st.Phases.Electron, st.Phases.Muon, st.Phases.Tau))
			cmd.Println()

			cmd.Println(bold("Significance (V36.1):"))
			for _, sp := range st.Species {
				cmd.Printf("  %s:\n", sp.Species)
				cmd.Printf("    Raw offset: %.6e (%s)\n", sp.Offset, sp.OffsetSource)
				cmd.Printf("    BSM contribution: %.6e\n", sp.Contribution)
				if sp.Significance == nil {
					cmd.Printf("    Significance: %s (%s)\n", bold("N/A"), sp.Error)
					continue
				}
				cmd.Printf("    Significance: %s\n", sigma(*sp.Significance))
				cmd.Printf("    Calibrated override: %s\n", bool2Text(sp.OverrideApplied))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the status as JSON")

	return cmd
}
