package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// defaultsCmd prints the default run config so it can be saved and edited.
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default run configuration as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeDefaults(cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Failed to print defaults: %v", err)
		}
	},
}

func writeDefaults(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(DefaultRunConfig()); err != nil {
		return err
	}
	return enc.Close()
}
