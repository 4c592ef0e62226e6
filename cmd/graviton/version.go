// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"
)

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the graviton version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "graviton %s\n", getVersionString())
			fmt.Fprintf(out, "%s %s/%s\n", goruntime.Version(), goruntime.GOOS, goruntime.GOARCH)
			if v := app.getenv(envVersion); v != "" {
				fmt.Fprintf(out, "installed build %s at %s\n", v, app.getenv(envPath))
			}
			return nil
		},
	}
}
