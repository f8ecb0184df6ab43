package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newSearchCmd prints the extracted image records as JSON.
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Print image records for a query as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearchCommand,
	}
	addLimitFlag(cmd, "maximum number of records to print (0 prints all)")
	return cmd
}

func runSearchCommand(cmd *cobra.Command, words []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	args := queryArgs(appInstance, words, limit)
	images, err := appInstance.GetClient().Search(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("search %q: %w", args.Query, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(images); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	appInstance.GetLogger().Info("Search command finished.", zap.Int("records", len(images)))
	return nil
}
