package compile

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	progressWriter = io.Discard
	color.NoColor = true
	os.Exit(m.Run())
}

func projectFiles() []string {
	return []string{
		filepath.Join("testdata", "project", "a_qualifiers.mof"),
		filepath.Join("testdata", "project", "b_base.mof"),
		filepath.Join("testdata", "project", "c_device.mof"),
	}
}

func TestEngine_Run(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, zaptest.NewLogger(t))
	for _, path := range projectFiles() {
		issues, err := engine.Run(path)
		require.NoError(t, err)
		assert.Empty(t, issues, path)
	}

	ns, ok := engine.Repository().Lookup("root/cimv2")
	require.True(t, ok)
	assert.Equal(t, []string{"EX_Base", "EX_Device"}, ns.CompileOrderedClassNames())
	assert.Len(t, ns.EnumerateInstances(), 1)
}

func TestEngine_RunOutOfOrder(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, zaptest.NewLogger(t))
	issues, err := engine.Run(projectFiles()[2])
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Equal(t, "failed", issues[0].Rule)
	assert.Contains(t, issues[0].Message, "EX_Base")
}

func TestEngine_SearchPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	schema := filepath.Join(dir, "schema")
	require.NoError(t, os.Mkdir(schema, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(schema, "EX_Base.mof"),
		[]byte("class EX_Base {\n   string Id;\n};\n"), 0o644))

	engine := New(Config{Namespace: "root/test", SearchPaths: []string{schema}}, zaptest.NewLogger(t))
	issues, err := engine.RunSource("device.mof", []byte("class EX_Device : EX_Base {\n   uint32 Size;\n};\n"))
	require.NoError(t, err)
	assert.Empty(t, issues)

	ns, ok := engine.Repository().Lookup("root/test")
	require.True(t, ok)
	assert.Equal(t, []string{"EX_Base", "EX_Device"}, ns.CompileOrderedClassNames())
}

func TestEngine_RunMissingFile(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, nil)
	issues, err := engine.Run(filepath.Join(t.TempDir(), "missing.mof"))
	assert.Error(t, err)
	assert.Nil(t, issues)
}

func TestEngine_WriteMOF(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, zaptest.NewLogger(t))
	_, err := engine.RunSource("a.mof", []byte("class EX_A {\n   string Id;\n};\n"))
	require.NoError(t, err)
	_, err = engine.RunSource("b.mof", []byte("#pragma namespace (\"root/other\")\nclass EX_B {\n   string Id;\n};\n"))
	require.NoError(t, err)

	var one strings.Builder
	require.NoError(t, engine.WriteMOF(&one, "root/other"))
	assert.Equal(t, "class EX_B {\n\n   string Id;\n\n};\n\n", one.String())

	var all strings.Builder
	require.NoError(t, engine.WriteMOF(&all, ""))
	want := "#pragma namespace (\"root/cimv2\")\n\n" +
		"class EX_A {\n\n   string Id;\n\n};\n\n" +
		"#pragma namespace (\"root/other\")\n\n" +
		"class EX_B {\n\n   string Id;\n\n};\n\n"
	assert.Equal(t, want, all.String())

	// the combined output compiles back into the same layout
	again := New(Config{}, nil)
	issues, err := again.RunSource("all.mof", []byte(all.String()))
	require.NoError(t, err)
	assert.Empty(t, issues)
	var back strings.Builder
	require.NoError(t, again.WriteMOF(&back, ""))
	assert.Equal(t, all.String(), back.String())

	err = engine.WriteMOF(io.Discard, "root/nowhere")
	assert.ErrorContains(t, err, "namespace root/nowhere not found")
}

func TestEngine_SaveAndLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	config := Config{Store: filepath.Join(t.TempDir(), "repo.db")}
	engine := New(config, zaptest.NewLogger(t))
	for _, path := range projectFiles() {
		_, err := engine.Run(path)
		require.NoError(t, err)
	}
	require.NoError(t, engine.Save(ctx))

	loaded := New(config, zaptest.NewLogger(t))
	require.NoError(t, loaded.Load(ctx))

	var want, got strings.Builder
	require.NoError(t, engine.WriteMOF(&want, ""))
	require.NoError(t, loaded.WriteMOF(&got, ""))
	assert.Equal(t, want.String(), got.String())
}

func TestEngine_NoStore(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, nil)
	assert.ErrorIs(t, engine.Save(context.Background()), errNoStore)
	assert.ErrorIs(t, engine.Load(context.Background()), errNoStore)
}

func TestEngine_Rebuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "schema.mof")
	require.NoError(t, os.WriteFile(path, []byte("class EX_A {\n   string Id;\n};\n"), 0o644))

	engine := New(Config{}, zaptest.NewLogger(t))
	issues, err := engine.Rebuild(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Empty(t, issues)

	require.NoError(t, os.WriteFile(path, []byte("class EX_B {\n   string Id;\n};\n"), 0o644))
	issues, err = engine.Rebuild(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Empty(t, issues)

	ns, ok := engine.Repository().Lookup("root/cimv2")
	require.True(t, ok)
	assert.Equal(t, []string{"EX_B"}, ns.CompileOrderedClassNames())
}
