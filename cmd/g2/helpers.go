package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/leptong2/pkg/config"
	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
	"github.com/charlie0129/leptong2/pkg/version"
)

func parseSpeciesArg(args []string) (lepton.Species, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("missing species, one of electron, muon, tau")
	}
	return lepton.Parse(args[0])
}

func parseFloatArg(arg string, valueName string) (float64, error) {
	value, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}
	return value, nil
}

// inGroup reports whether cmd or one of its parents belongs to group.
func inGroup(cmd *cobra.Command, group string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.GroupID == group {
			return true
		}
	}
	return false
}

// newLocalCalculator builds a calculator from the config file. A missing file
// yields the defaults.
func newLocalCalculator() (*g2.Calculator, error) {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config.NewCalculator(conf)
}

func getVersion() (clientVersion, daemonVersion string, err error) {
	daemonVersion, err = apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(b))
	return nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

func sigma(v float64) string {
	return bold("%.2fσ", v)
}
