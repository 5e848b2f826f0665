// Package cli implements the "simulate" command-line surface using Cobra,
// per spec §6: simulate run MODEL_SPEC [-o RESULTS_DIR] [-i ARTIFACT_PATH]
// [-v] [--pdb].
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "simulate",
	Short:         "simulate — run a discrete-event microsimulation model",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; called from cmd/simulate/main.go. Returns
// the process exit code: 0 on success, non-zero on any error, per spec §6's
// CLI exit-code contract.
func Execute(version string) int {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
