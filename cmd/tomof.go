package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	tomofNamespace string
	tomofOutput    string
	tomofFromStore bool
)

var tomofCmd = &cobra.Command{
	Use:   "tomof [paths...]",
	Short: "Compile MOF and write the resulting repository back as MOF",
	Long: `Compile MOF and write the resulting repository back as MOF.

Qualifier declarations come first in name order, then classes in the
order they were compiled, then instances. Without --only every namespace
is written, each introduced by a namespace pragma. With --from-store the
repository is read from the configured store instead of paths.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		engine, err := newEngine(cmd)
		if err != nil {
			return err
		}

		if tomofFromStore {
			if err := engine.Load(ctx); err != nil {
				return fmt.Errorf("loading repository: %w", err)
			}
		}
		if len(args) == 0 && !tomofFromStore {
			return fmt.Errorf("requires at least 1 path or --from-store")
		}

		issues, sources, err := compileArgs(ctx, cmd.InOrStdin(), engine, args)
		if err != nil {
			return err
		}
		if len(issues) > 0 {
			if err := reportIssues(cmd.ErrOrStderr(), issues, sources, false, ""); err != nil {
				return err
			}
			return ErrIssuesFound
		}

		var w io.Writer = cmd.OutOrStdout()
		if tomofOutput != "" {
			f, err := os.Create(tomofOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		bw := bufio.NewWriter(w)
		if err := engine.WriteMOF(bw, tomofNamespace); err != nil {
			return err
		}
		return bw.Flush()
	},
}

func init() {
	tomofCmd.Flags().StringVar(&tomofNamespace, "only", "", "Write only this namespace")
	tomofCmd.Flags().StringVarP(&tomofOutput, "output", "o", "", "Write to this file instead of standard output")
	tomofCmd.Flags().BoolVar(&tomofFromStore, "from-store", false, "Start from the repository saved in the store")
}
