package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"asset-dedup/internal/report"
	"asset-dedup/pkg/ui"
)

var (
	removeFromReport string
	removeYes        bool
)

var removeCmd = &cobra.Command{
	Use:   "remove [id...]",
	Short: "Remove approved duplicate assets",
	Long: `Delete the blob and catalog row of each given asset id. Usage is checked
again first: an asset referenced by any template or post is skipped.

Ids come from the arguments, from a check report's removableIds, or both.

Examples:
  asset-dedup remove 41 42
  asset-dedup remove --from-report backup/asset-dedup-check-2025-05-01T09-30-00-000Z.json`,
	Args: requireRemoveTargets,
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().StringVar(&removeFromReport, "from-report", "", "remove the removableIds of a check report")
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "skip confirmation prompt")
}

// requireRemoveTargets rejects a call that names neither ids nor a report.
func requireRemoveTargets(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return nil
	}
	if path, _ := cmd.Flags().GetString("from-report"); path != "" {
		return nil
	}
	return fmt.Errorf("requires at least one asset id or --from-report")
}

func runRemove(cmd *cobra.Command, args []string) error {
	ids, err := collectRemoveIDs(args, removeFromReport)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Nothing to remove"))
		return nil
	}

	if !removeYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Remove %d asset(s)? (yes/no): ", len(ids)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatInfo("Aborted"))
			return nil
		}
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.driver.Remove(ctx, ids)
	if err != nil {
		return err
	}
	if _, err := a.reports.Write(rep); err != nil {
		fmt.Fprintln(os.Stderr, ui.FormatWarning(err.Error()))
	}

	out := cmd.OutOrStdout()
	for _, r := range rep.Removals {
		if r.Removed {
			fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("%d %s", r.AssetID, r.Path)))
		} else {
			fmt.Fprintln(out, ui.FormatError(fmt.Sprintf("%d %s [%s] %s", r.AssetID, r.Path, r.Kind, r.Error)))
		}
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, ui.RenderReport(rep))
	return nil
}

// collectRemoveIDs merges ids given as arguments with those of a report.
func collectRemoveIDs(args []string, reportPath string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid asset id: %q", arg)
		}
		ids = append(ids, id)
	}

	if reportPath != "" {
		rep, err := report.Read(reportPath)
		if err != nil {
			return nil, err
		}
		ids = append(ids, rep.RemovableIDs...)
	}
	return ids, nil
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, ui.StyleWarning.Render(prompt))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "yes" || answer == "y", nil
}
