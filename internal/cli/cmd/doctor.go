package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ja/internal/config"
	"ja/internal/util"
	"ja/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (ninja, meson, cmake)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ninja, err := deps.FindNinja(config.Load().Ninja)
			if err != nil {
				return &ExitError{Code: ExitMissingDep, Err: err}
			}
			if err := deps.SupportsFrontend(cmd.Context(), util.ExecRunner{}, ninja); err != nil {
				return &ExitError{Code: ExitMissingDep, Err: err}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ninja:  %s (--frontend supported)\n", ninja)
			// Generators are only needed to configure new build directories.
			for _, name := range []string{"meson", "cmake"} {
				p, err := deps.FindGenerator(name)
				if err != nil {
					p = "not found"
				}
				fmt.Fprintf(out, "%-7s %s\n", name+":", p)
			}
			return nil
		},
	}
}
