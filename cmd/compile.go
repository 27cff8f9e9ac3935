package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mofc/compile"
	"github.com/gnoswap-labs/mofc/formatter"
	tt "github.com/gnoswap-labs/mofc/internal/types"
)

var (
	namespace   string
	searchPaths []string
	batch       bool
	storePath   string
	jsonOutput  bool
	outPath     string
)

var compileCmd = &cobra.Command{
	Use:   "compile [paths...]",
	Short: "Compile MOF files and directories into a repository",
	Long: `Compile MOF files and directories into a repository.

Directories are compiled file by file in path order. A path of "-" reads
MOF from standard input. With a store configured the repository is saved
once every file compiled cleanly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		engine, err := newEngine(cmd)
		if err != nil {
			return err
		}

		issues, sources, err := compileArgs(ctx, cmd.InOrStdin(), engine, args)
		if err != nil {
			return err
		}
		if err := reportIssues(cmd.OutOrStdout(), issues, sources, jsonOutput, outPath); err != nil {
			return err
		}
		if len(issues) > 0 {
			return ErrIssuesFound
		}

		if engine.Config().Store != "" {
			if err := engine.Save(ctx); err != nil {
				return fmt.Errorf("saving repository: %w", err)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{compileCmd, tomofCmd, watchCmd, replCmd} {
		addCompileFlags(c)
	}
	compileCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output issues in JSON format")
	compileCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
}

func addCompileFlags(c *cobra.Command) {
	c.Flags().StringVarP(&namespace, "namespace", "n", "", "Target namespace (default from config, else root/cimv2)")
	c.Flags().StringArrayVarP(&searchPaths, "search-path", "I", nil, "Directory searched for <ClassName>.mof and includes (repeatable)")
	c.Flags().BoolVar(&batch, "batch", false, "Keep compiling after a semantic error and report all of them")
	c.Flags().StringVar(&storePath, "store", "", "SQLite database the repository is saved to")
}

// loadConfig reads the configuration file and applies the flags cmd was
// given on top of it.
func loadConfig(cmd *cobra.Command) (compile.Config, error) {
	config, err := compile.LoadConfig(configPath())
	if err != nil {
		return config, err
	}

	flags := cmd.Flags()
	if flags.Changed("namespace") {
		config.Namespace = namespace
	}
	if flags.Changed("search-path") {
		config.SearchPaths = append(config.SearchPaths, searchPaths...)
	}
	if flags.Changed("batch") {
		config.Batch = batch
	}
	if flags.Changed("store") {
		config.Store = storePath
	}
	return config, nil
}

func newEngine(cmd *cobra.Command) (*compile.Engine, error) {
	config, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		zap.String("namespace", config.Namespace),
		zap.Strings("search_paths", config.SearchPaths),
		zap.Bool("batch", config.Batch))
	return compile.New(config, logger), nil
}

// compileArgs compiles every path in args, reading "-" from stdin. It
// returns the sources that did not come from disk so that issues in them
// can still be shown with code.
func compileArgs(ctx context.Context, stdin io.Reader, engine *compile.Engine, args []string) ([]tt.Issue, map[string][]byte, error) {
	sources := make(map[string][]byte)
	var allIssues []tt.Issue
	for _, arg := range args {
		var (
			issues []tt.Issue
			err    error
		)
		if arg == "-" {
			data, readErr := io.ReadAll(stdin)
			if readErr != nil {
				return nil, nil, fmt.Errorf("reading standard input: %w", readErr)
			}
			sources[compile.StdinFile] = data
			src := compile.Source{Name: compile.StdinFile, Data: data}
			issues, err = compile.ProcessSources(ctx, logger, engine, []compile.Source{src}, compile.ProcessSource)
		} else {
			issues, err = compile.ProcessPath(ctx, logger, engine, arg, compile.ProcessFile)
		}
		allIssues = append(allIssues, issues...)
		if err != nil {
			logger.Error("Error processing path", zap.String("path", arg), zap.Error(err))
			return nil, nil, err
		}
	}
	return allIssues, sources, nil
}

func reportIssues(w io.Writer, issues []tt.Issue, sources map[string][]byte, isJSON bool, jsonPath string) error {
	issuesByFile := make(map[string][]tt.Issue)
	for _, issue := range issues {
		issuesByFile[issue.Filename] = append(issuesByFile[issue.Filename], issue)
	}

	if isJSON {
		d, err := json.Marshal(issuesByFile)
		if err != nil {
			return fmt.Errorf("marshalling issues to JSON: %w", err)
		}
		if jsonPath == "" {
			_, err = fmt.Fprintln(w, string(d))
			return err
		}
		return os.WriteFile(jsonPath, d, 0o644)
	}

	for _, filename := range slices.Sorted(maps.Keys(issuesByFile)) {
		fmt.Fprint(w, formatter.GenerateFormattedIssue(issuesByFile[filename], readSource(filename, sources)))
	}
	return nil
}

func readSource(filename string, sources map[string][]byte) *tt.SourceCode {
	if data, ok := sources[filename]; ok {
		return tt.NewSourceCode(string(data))
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil
	}
	return tt.NewSourceCode(string(data))
}
