package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newDownloadCmd downloads images for a query and prints the saved paths.
func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <query>",
		Short: "Download images for a query",
		Long: `Downloads up to --limit images into --dir, naming them after the query
(query0.png, query1.jpg, ...). Existing files are never overwritten. When a
candidate fails to download or is not an image, the next candidate is tried,
so fewer files than requested means the results ran out.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDownloadCommand,
	}
	addLimitFlag(cmd, "number of images to save")
	return cmd
}

func runDownloadCommand(cmd *cobra.Command, words []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("--limit must be >= 0, got %d", limit)
	}

	args := queryArgs(appInstance, words, limit)
	paths, err := appInstance.GetClient().Download(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("download %q: %w", args.Query, err)
	}

	out := cmd.OutOrStdout()
	for _, p := range paths {
		if _, err := fmt.Fprintln(out, p); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	logger := appInstance.GetLogger()
	if len(paths) < limit {
		logger.Warn("Fewer images saved than requested.",
			zap.Int("requested", limit),
			zap.Int("saved", len(paths)),
		)
	}
	logger.Info("Download command finished.", zap.Int("saved", len(paths)))
	return nil
}
