package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long:  "Prints the merged configuration (file, environment, defaults), suitable as a starting point for ~/.gheval/config.yaml.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return eris.Wrap(err, "config")
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
