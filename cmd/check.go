package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"asset-dedup/pkg/ui"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check [prefix...]",
	Short: "Report duplicate assets without changing anything",
	Long: `Hash every catalogued asset under the given storage prefixes (all assets
when none are given), resolve usage across templates and posts, group
duplicates and decide which copies can go.

The report is written to the report directory; pass its removableIds to
'remove' to act on it.

Examples:
  asset-dedup check
  asset-dedup check originals/blog/ originals/campaigns/`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the report as JSON instead of a summary")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.driver.Check(ctx, args)
	if err != nil {
		return err
	}
	if _, err := a.reports.Write(rep); err != nil {
		// The summary still goes to stdout
		fmt.Fprintln(os.Stderr, ui.FormatWarning(err.Error()))
	}

	if checkJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.RenderReport(rep))
	return nil
}
