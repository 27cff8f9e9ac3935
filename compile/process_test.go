package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	tt "github.com/gnoswap-labs/mofc/internal/types"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Run(filePath string) ([]tt.Issue, error) {
	args := m.Called(filePath)
	return args.Get(0).([]tt.Issue), args.Error(1)
}

func (m *mockEngine) RunSource(filename string, source []byte) ([]tt.Issue, error) {
	args := m.Called(filename, source)
	return args.Get(0).([]tt.Issue), args.Error(1)
}

func TestProcessPath_Directory(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, zaptest.NewLogger(t))
	issues, err := ProcessPath(context.Background(), zaptest.NewLogger(t), engine, filepath.Join("testdata", "project"), ProcessFile)
	require.NoError(t, err)
	assert.Empty(t, issues)

	ns, ok := engine.Repository().Lookup("")
	require.True(t, ok)
	assert.Equal(t, []string{"EX_Base", "EX_Device"}, ns.CompileOrderedClassNames())
}

func TestProcessPath_Broken(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, zaptest.NewLogger(t))
	issues, err := ProcessPath(context.Background(), nil, engine, filepath.Join("testdata", "broken"), ProcessFile)
	require.NoError(t, err)
	require.Len(t, issues, 3)

	type row struct {
		rule string
		file string
		line int
	}
	var got []row
	for _, issue := range issues {
		got = append(got, row{issue.Rule, filepath.Base(issue.Filename), issue.Start.Line})
	}
	assert.Equal(t, []row{
		{"parse-error", "a_syntax.mof", 3},
		{"lex-error", "b_lex.mof", 2},
		{"failed", "c_semantic.mof", 1},
	}, got)
}

func TestProcessPath_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()
		engine := new(mockEngine)
		_, err := ProcessPath(context.Background(), nil, engine, filepath.Join(t.TempDir(), "nope"), ProcessFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error accessing")
		engine.AssertNotCalled(t, "Run", mock.Anything)
	})

	t.Run("single file error is returned", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "one.mof")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		engine := new(mockEngine)
		engine.On("Run", path).Return([]tt.Issue(nil), errors.New("boom")).Once()

		_, err := ProcessPath(context.Background(), nil, engine, path, ProcessFile)
		assert.EqualError(t, err, "boom")
		engine.AssertExpectations(t)
	})

	t.Run("file error in directory becomes an issue", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		first := filepath.Join(dir, "a.mof")
		second := filepath.Join(dir, "b.mof")
		require.NoError(t, os.WriteFile(first, nil, 0o644))
		require.NoError(t, os.WriteFile(second, nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

		engine := new(mockEngine)
		engine.On("Run", first).Return([]tt.Issue(nil), errors.New("boom")).Once()
		engine.On("Run", second).Return([]tt.Issue{{Rule: "type-mismatch"}}, nil).Once()

		issues, err := ProcessPath(context.Background(), zaptest.NewLogger(t), engine, dir, ProcessFile)
		require.NoError(t, err)
		require.Len(t, issues, 2)
		assert.Equal(t, "failed", issues[0].Rule)
		assert.Equal(t, "boom", issues[0].Message)
		assert.Equal(t, "type-mismatch", issues[1].Rule)
		engine.AssertExpectations(t)
	})
}

func TestProcessPathContextCancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("test%d.mof", i)), nil, 0o644))
	}

	ctx, cancel := context.WithCancel(context.Background())
	engine := new(mockEngine)
	engine.On("Run", filepath.Join(dir, "test0.mof")).
		Return([]tt.Issue{{Rule: "failed"}}, nil).
		Run(func(mock.Arguments) { cancel() }).
		Once()

	issues, err := ProcessPath(ctx, nil, engine, dir, ProcessFile)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, issues, 1)
	engine.AssertNumberOfCalls(t, "Run", 1)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.mof")
	b := filepath.Join(dir, "b.mof")
	require.NoError(t, os.WriteFile(a, nil, 0o644))
	require.NoError(t, os.WriteFile(b, nil, 0o644))

	engine := new(mockEngine)
	engine.On("Run", a).Return([]tt.Issue{{Rule: "failed", Filename: a}}, nil).Once()
	engine.On("Run", b).Return([]tt.Issue{{Rule: "failed", Filename: b}}, nil).Once()

	issues, err := ProcessFiles(context.Background(), nil, engine, []string{b, a}, ProcessFile)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, b, issues[0].Filename)
	assert.Equal(t, a, issues[1].Filename)

	_, err = ProcessFiles(context.Background(), zaptest.NewLogger(t), engine, []string{filepath.Join(dir, "c.mof")}, ProcessFile)
	assert.Error(t, err)
}

func TestProcessSources(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, zaptest.NewLogger(t))
	sources := []Source{
		{Name: StdinFile, Data: []byte("class EX_A {\n   string Id;\n};\n")},
		{Name: "extra.mof", Data: []byte("class EX_B : EX_A {\n   uint8 Small = 256;\n};\n")},
	}
	issues, err := ProcessSources(context.Background(), nil, engine, sources, ProcessSource)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "type-mismatch", issues[0].Rule)
	assert.Equal(t, "extra.mof", issues[0].Filename)

	mocked := new(mockEngine)
	mocked.On("RunSource", "x.mof", []byte("x")).Return([]tt.Issue(nil), errors.New("boom")).Once()
	_, err = ProcessSources(context.Background(), zaptest.NewLogger(t), mocked, []Source{{Name: "x.mof", Data: []byte("x")}}, ProcessSource)
	assert.EqualError(t, err, "boom")
	mocked.AssertExpectations(t)
}
