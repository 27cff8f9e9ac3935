package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mofc/compile"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Recompile MOF directories whenever a file in them changes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		engine, err := newEngine(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		rebuild := func() {
			issues, err := engine.Rebuild(ctx, args)
			if err != nil {
				logger.Error("Error compiling", zap.Error(err))
				return
			}
			if len(issues) == 0 {
				fmt.Fprintln(out, "no issues found")
				if engine.Config().Store != "" {
					if err := engine.Save(ctx); err != nil {
						logger.Error("Error saving repository", zap.Error(err))
					}
				}
				return
			}
			fmt.Fprintf(out, "found %d issues\n", len(issues))
			if err := reportIssues(out, issues, nil, false, ""); err != nil {
				logger.Error("Error reporting issues", zap.Error(err))
			}
		}

		watcher, err := compile.NewWatcher(logger, args, compile.DefaultWatchDelay)
		if err != nil {
			return err
		}
		rebuild()
		return watcher.Run(ctx, func(paths []string) {
			logger.Info("files changed", zap.Strings("files", paths))
			rebuild()
		})
	},
}
