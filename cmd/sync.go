package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asset-dedup/pkg/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync [prefix]",
	Short: "Catalog stored images that have no row or no digest",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.catalog.Sync(ctx, prefix)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.FormatTitle("asset-dedup sync"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+ui.RenderKeyValue("Listed", fmt.Sprintf("%d", res.Listed), 8))
	fmt.Fprintln(out, "  "+ui.RenderKeyValue("Missing", fmt.Sprintf("%d", res.Missing), 8))
	fmt.Fprintln(out, "  "+ui.RenderKeyValue("Unhashed", fmt.Sprintf("%d", res.Unhashed), 8))
	fmt.Fprintln(out, "  "+ui.RenderKeyValue("Upserted", fmt.Sprintf("%d", res.Upserted), 8))
	fmt.Fprintln(out, "  "+ui.RenderKeyValue("Failures", fmt.Sprintf("%d", len(res.Failures)), 8))
	for _, f := range res.Failures {
		fmt.Fprintln(out, ui.FormatWarning(fmt.Sprintf("[%s] %s: %s", f.Kind, f.Path, f.Error)))
	}
	return nil
}
