package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"asset-dedup/pkg/ui"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-file> <dest-folder>",
	Short: "Store a local image and catalog it",
	Args:  cobra.ExactArgs(2),
	RunE:  runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	asset, err := a.catalog.Upload(ctx, f, filepath.Base(args[0]), args[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("Uploaded asset %d", asset.ID)))
	fmt.Fprintln(out, "  "+ui.RenderKeyValue("Path", asset.StoragePath, 4))
	fmt.Fprintln(out, "  "+ui.RenderKeyValue("URL", asset.PublicURL, 4))
	fmt.Fprintln(out, "  "+ui.RenderKeyValue("MD5", asset.ContentHashMD5, 4))
	return nil
}
