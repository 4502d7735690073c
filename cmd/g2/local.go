package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// localFlags are shared by the commands that compute without the daemon.
type localFlags struct {
	variant      string
	mode         string
	offset       string
	noCorrection bool
	json         bool
}

func (f *localFlags) register(cmd *cobra.Command, withOffset bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.variant, "variant", string(calibration.VariantV361), "model variant (standard, V36, V36.1)")
	flags.StringVar(&f.mode, "mode", "", "operating mode (benchmark, scientific); defaults to the config file")
	if withOffset {
		flags.StringVar(&f.offset, "offset", "", "raw BSM offset δa, replacing the configured one")
		flags.BoolVar(&f.noCorrection, "no-correction", false, "exclude the topological BSM correction")
		flags.BoolVar(&f.json, "json", false, "print the result as JSON")
	}
}

func (f *localFlags) calculator() (*g2.Calculator, calibration.Variant, error) {
	v, err := calibration.ParseVariant(f.variant)
	if err != nil {
		return nil, "", err
	}
	calc, err := newLocalCalculator()
	if err != nil {
		return nil, "", err
	}
	if f.mode != "" {
		m, err := g2.ParseMode(f.mode)
		if err != nil {
			return nil, "", err
		}
		calc.SetMode(m)
	}
	return calc, v, nil
}

func NewComputeCommand() *cobra.Command {
	f := &localFlags{}
	cmd := &cobra.Command{
		Use:     "compute [species]",
		Short:   "Compute the anomalous moment and significance of a lepton",
		GroupID: gLocal,
		Args:    cobra.ExactArgs(1),

		ValidArgsFunction: speciesArgs,
		Long: `Compute the BSM contribution to the anomalous magnetic moment of a lepton and
its significance against experiment, without the daemon.

Species: electron (e), muon (mu, μ), tau (τ). The tau has no experimental
uncertainty, so its significance cannot be computed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseSpeciesArg(args)
			if err != nil {
				return err
			}
			calc, v, err := f.calculator()
			if err != nil {
				return err
			}

			req := g2.Request{
				Species:           s,
				OverlapCorrection: !f.noCorrection,
				Canonical:         v.Canonical(),
				V361:              v.OverlapCorrected(),
			}
			if f.offset != "" {
				o, err := parseFloatArg(f.offset, "offset")
				if err != nil {
					return err
				}
				req.Offset = &o
			}

			am, err := calc.ComputeAnomalousMoment(req)
			if err != nil {
				return fmt.Errorf("failed to compute anomalous moment: %w", err)
			}

			if f.json {
				return printJSON(cmd, am)
			}
			printMoment(cmd, am)
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func printMoment(cmd *cobra.Command, am g2.AnomalousMoment) {
	res := am.Significance
	cmd.Println(bold("Anomalous moment of the %s (%s):", am.Species, am.Variant))
	cmd.Printf("  Raw offset δa: %s (%s)\n", bold("%.6e", am.RawOffset), am.Prediction.Source)
	cmd.Printf("  BSM contribution: %s\n", bold("%.6e", am.BSMOffset))
	cmd.Printf("  Total: %s\n", bold("%.12e", res.Total))
	cmd.Printf("  Deviation from experiment: %s\n", bold("%.6e", res.Delta))
	cmd.Printf("  Computed significance: %s (p = %.4g)\n", sigma(res.Computed), res.PValue)
	cmd.Printf("  Applied significance: %s\n", sigma(res.Applied))
	cmd.Printf("  Calibrated override (%s mode): %s\n", res.Mode, bool2Text(res.OverrideApplied))
}

func NewReportCommand() *cobra.Command {
	f := &localFlags{}
	cmd := &cobra.Command{
		Use:     "report [species]",
		Short:   "Print the canonical prediction report of a lepton",
		GroupID: gLocal,
		Args:    cobra.ExactArgs(1),

		ValidArgsFunction: speciesArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseSpeciesArg(args)
			if err != nil {
				return err
			}
			calc, v, err := f.calculator()
			if err != nil {
				return err
			}

			report, err := calc.Report(s, v)
			if err != nil {
				return fmt.Errorf("failed to build report: %w", err)
			}
			cmd.Print(report)
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func NewScanCommand() *cobra.Command {
	f := &localFlags{}
	var (
		from, to, target, tolerance float64
		steps                       int
		jsonOutput                  bool
	)

	cmd := &cobra.Command{
		Use:     "scan [species]",
		Short:   "Sweep the raw offset to find a target significance",
		GroupID: gLocal,
		Args:    cobra.ExactArgs(1),

		ValidArgsFunction: speciesArgs,
		Long: `Sweep the raw BSM offset of a lepton over [from, to] and report the offset
whose computed significance is closest to the target. Overrides are never
applied during a scan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseSpeciesArg(args)
			if err != nil {
				return err
			}
			calc, v, err := f.calculator()
			if err != nil {
				return err
			}

			ret, err := calc.Scan(g2.ScanOptions{
				Species:   s,
				Variant:   v,
				From:      from,
				To:        to,
				Steps:     steps,
				Target:    target,
				Tolerance: tolerance,
			})
			if err != nil {
				return fmt.Errorf("failed to scan offsets: %w", err)
			}

			if jsonOutput {
				return printJSON(cmd, ret)
			}

			cmd.Println(bold("Offset scan of the %s (%s):", ret.Species, ret.Variant))
			cmd.Printf("  Points: %d over [%.4e, %.4e]\n", len(ret.Points), from, to)
			cmd.Printf("  Best offset: %s\n", bold("%.6e", ret.Best.Offset))
			cmd.Printf("  Significance at best: %s (target %.2fσ ± %.2f)\n", sigma(ret.Best.Significance), ret.Target, ret.Tolerance)
			cmd.Printf("  Converged: %s\n", bool2Text(ret.Converged))
			cmd.Printf("  Range: %.2fσ to %.2fσ, mean %.2fσ\n", ret.Min, ret.Max, ret.Mean)
			if !ret.Converged {
				logrus.Warn("no offset reached the target, widen the range or add steps")
			}
			return nil
		},
	}
	f.register(cmd, false)

	flags := cmd.Flags()
	flags.Float64Var(&from, "from", 3.2e-11, "first offset of the sweep")
	flags.Float64Var(&to, "to", 3.4e-11, "last offset of the sweep")
	flags.IntVar(&steps, "steps", 201, "number of offsets to evaluate")
	flags.Float64Var(&target, "target", 0, "target significance")
	flags.Float64Var(&tolerance, "tolerance", g2.DefaultScanTolerance, "accepted distance from the target")
	flags.BoolVar(&jsonOutput, "json", false, "print the result as JSON")

	return cmd
}

// speciesArgs completes species names.
func speciesArgs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ret := make([]string, 0, len(lepton.All))
	for _, s := range lepton.All {
		ret = append(ret, string(s))
	}
	return ret, cobra.ShellCompDirectiveNoFileComp
}
