// Package cmd provides the root command and CLI setup for subsample.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// verboseFlag enables debug logging and plain console output.
var verboseFlag bool

const rootLongDescription = `Subsample fetches a small, randomly sampled subset of per-subject
recordings from a large versioned dataset without materializing the whole
dataset. It binds a metadata-only working copy, filters subjects by an
experimental-condition token, draws a random sample and resolves only the
selected recordings.

Datasets are addressed by accession number (e.g. ds005385); the working copy
is managed with git and git-annex.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "subsample",
		Short:        "Sparse random sampler for versioned datasets",
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "enable debug logging and plain output")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
