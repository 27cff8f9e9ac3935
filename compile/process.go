package compile

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mofc/scanner"
	tt "github.com/gnoswap-labs/mofc/internal/types"
)

// progressWriter receives the progress bar drawn while compiling a
// directory.
var progressWriter io.Writer = os.Stderr

// Source is MOF text that does not come from a file on disk.
type Source struct {
	Name string
	Data []byte
}

func ProcessSources(
	ctx context.Context,
	logger *zap.Logger,
	engine CompileEngine,
	sources []Source,
	processor func(CompileEngine, Source) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return allIssues, err
		}
		issues, err := processor(engine, source)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing source", zap.String("source", source.Name), zap.Error(err))
			}
			return nil, err
		}
		allIssues = append(allIssues, issues...)
	}

	return allIssues, nil
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine CompileEngine,
	paths []string,
	processor func(CompileEngine, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	for _, path := range paths {
		issues, err := ProcessPath(ctx, logger, engine, path, processor)
		allIssues = append(allIssues, issues...)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return allIssues, err
		}
	}

	return allIssues, nil
}

// ProcessPath compiles path, which is either a file or a directory whose
// .mof files are compiled in path order. The order matters: a file may
// use classes compiled from an earlier one. Files that fail to compile
// at all are reported as issues and the walk continues. On cancellation
// the issues found so far are returned with the context's error.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine CompileEngine,
	path string,
	processor func(CompileEngine, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		return processor(engine, path)
	}

	files, err := scanner.New(path, scanner.MOFExt).Scan()
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(progressWriter),
		progressbar.OptionSetDescription(path),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	defer fmt.Fprintln(progressWriter)

	issues := []tt.Issue{}
	for _, file := range files {
		select {
		case <-ctx.Done():
			return issues, ctx.Err()
		default:
		}

		fileIssues, err := processor(engine, file.Path)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing file", zap.String("file", file.Path), zap.Error(err))
			}
			fileIssues = Issues(err)
		}
		issues = append(issues, fileIssues...)
		bar.Add(1)
	}

	return issues, nil
}

func ProcessFile(engine CompileEngine, filePath string) ([]tt.Issue, error) {
	return engine.Run(filePath)
}

func ProcessSource(engine CompileEngine, source Source) ([]tt.Issue, error) {
	return engine.RunSource(source.Name, source.Data)
}
