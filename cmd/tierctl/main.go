// Command tierctl evaluates startup spreadsheets from the terminal and
// exposes the valuation projection used in market analysis prompts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tiervc/pkg/contracts"
)

var rootCmd = &cobra.Command{
	Use:           "tierctl",
	Short:         "Evaluate startups into investment tiers",
	Version:       contracts.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("tierctl " + contracts.GetFullVersionString() + "\n")
	rootCmd.AddCommand(newEvaluateCmd(), newProjectCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
