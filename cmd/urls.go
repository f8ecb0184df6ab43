package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newURLsCmd prints one image URL per line.
func newURLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urls <query>",
		Short: "Print image URLs for a query, one per line",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runURLsCommand,
	}
	addLimitFlag(cmd, "maximum number of URLs to print (0 prints all)")
	return cmd
}

func runURLsCommand(cmd *cobra.Command, words []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	args := queryArgs(appInstance, words, limit)
	urls, err := appInstance.GetClient().URLs(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("urls %q: %w", args.Query, err)
	}

	out := cmd.OutOrStdout()
	for _, u := range urls {
		if _, err := fmt.Fprintln(out, u); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	appInstance.GetLogger().Info("URLs command finished.", zap.Int("urls", len(urls)))
	return nil
}
