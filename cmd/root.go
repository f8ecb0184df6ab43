// Package cmd defines and implements the CLI commands for the imgsearch executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/imgsearch/internal/app"
	"github.com/JakeFAU/imgsearch/internal/config"
	"github.com/JakeFAU/imgsearch/internal/search"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

const defaultLimit = 10

// App defines the application interface that commands will use.
// This allows tests to inject an app with a fake fetcher.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() config.Config
	GetClient() *search.Client
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(cfg config.Config) (App, error) {
	return app.New(cfg)
}

// configFlags maps persistent flags onto config keys.
var configFlags = map[string]string{
	"dir":        "download.directory",
	"timeout":    "download.timeout",
	"thumbnails": "download.thumbnails",
	"block-host": "download.blocked_hosts",
	"color":      "filters.color",
	"color-type": "filters.color_type",
	"license":    "filters.license",
	"image-type": "filters.image_type",
	"time":       "filters.time",
	"ratio":      "filters.ratio",
	"format":     "filters.format",
	"log-level":  "logging.level",
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "imgsearch",
		Short: "Search for images and download them.",
		Long: `imgsearch queries an image search results page, extracts the image
records embedded in it, and optionally downloads a fixed number of them,
falling back to further candidates whenever a download fails.`,
		SilenceUsage: true,

		// Builds the application once flags are parsed, before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			for name, key := range configFlags {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
					return fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./imgsearch.yaml or $HOME/.imgsearch/imgsearch.yaml)")
	flags.String("dir", "", "download directory (default is ./images)")
	flags.Duration("timeout", 0, "per-image download timeout (default 20s, 0s disables it)")
	flags.Bool("thumbnails", false, "use thumbnail URLs instead of full-resolution images")
	flags.StringSlice("block-host", nil, "never download from this host; *.example.org covers subdomains (repeatable)")
	flags.String("color", "", "dominant color filter (red, orange, yellow, green, teal, blue, purple, pink, white, gray, black, brown)")
	flags.String("color-type", "", "color type filter (color, grayscale, transparent)")
	flags.String("license", "", "usage rights filter (creative_commons, other)")
	flags.String("image-type", "", "image type filter (face, photo, clipart, lineart, animated)")
	flags.String("time", "", "posting time filter (day, week, month, year)")
	flags.String("ratio", "", "aspect ratio filter (tall, square, wide, panoramic)")
	flags.String("format", "", "file format filter (jpg, gif, png, bmp, svg, webp, ico, raw)")
	flags.String("log-level", "", "minimum log level (debug, info, warn, error)")

	cmd.AddCommand(newSearchCmd(), newURLsCmd(), newDownloadCmd())

	return cmd
}

// Execute is the main entry point. SIGINT and SIGTERM cancel in-flight work.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// queryArgs joins the positional words into one query and applies the
// configured defaults.
func queryArgs(appInstance App, words []string, limit int) search.Arguments {
	return appInstance.GetConfig().Arguments(strings.Join(words, " "), limit)
}

func addLimitFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().Int("limit", defaultLimit, usage)
}
