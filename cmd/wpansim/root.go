// SPDX-License-Identifier: GPL-3.0

package main

import (
	"fmt"

	"github.com/csma-noba/wpancsma/internal/engine"
	"github.com/csma-noba/wpancsma/internal/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var variantNames = []string{"beb", "standard", "noba", "sw-noba", "gnu-noba"}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "wpansim",
		Short: "Run the slotted CSMA/CA variants against a synthetic channel",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				telemetry.Log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable per-device trace logging")

	root.AddCommand(newRunCmd(), newScenariosCmd(), newVariantsCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario file (or the built-in default) to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := DefaultScenario()
			if path != "" {
				loaded, err := LoadScenario(path)
				if err != nil {
					return err
				}
				sc = loaded
			}
			d, err := NewDriver(sc)
			if err != nil {
				return err
			}
			d.Run(engine.Clock(sc.Duration))
			d.Report()
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "scenario", "s", "", "path to a scenario YAML file")
	return cmd
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "Print the built-in default scenario as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(DefaultScenario())
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func newVariantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the supported CSMA/CA variant names",
		Run: func(cmd *cobra.Command, args []string) {
			for _, v := range variantNames {
				fmt.Println(v)
			}
		},
	}
}
