package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnoswap-labs/mofc/internal/types"
)

var (
	projectDir = filepath.Join("..", "compile", "testdata", "project")
	brokenDir  = filepath.Join("..", "compile", "testdata", "broken")
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with a configuration file that does not
// exist unless the test writes it.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "mofc.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := execute(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, "mofc - a MOF compiler for CIM schemas")
	assert.Contains(t, out, "tomof")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"init", "--config", path})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Configuration file created: "+path+"\n", out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "namespace: root/cimv2")

	rootCmd.SetArgs([]string{"init", "--config", path})
	assert.ErrorContains(t, rootCmd.Execute(), "already exists")
}

func TestCompile_Clean(t *testing.T) {
	out, err := execute(t, "", "compile", projectDir)
	require.NoError(t, err)
	assert.Empty(t, out)

	// bare paths behave like compile
	out, err = execute(t, "", projectDir)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCompile_Issues(t *testing.T) {
	out, err := execute(t, "", "compile", brokenDir)
	assert.ErrorIs(t, err, ErrIssuesFound)

	assert.Contains(t, out, "error: parse-error\n --> "+filepath.Join(brokenDir, "a_syntax.mof")+":3:1\n")
	assert.Contains(t, out, "error: lex-error\n")
	assert.Contains(t, out, `invalid token "@"`)
	assert.Contains(t, out, "error: failed\n --> "+filepath.Join(brokenDir, "c_semantic.mof")+":1:1\n")
	assert.Contains(t, out, "1 | class EX_C : EX_Missing {")
	assert.Contains(t, out, "= note: status code 1")
}

func TestCompile_Stdin(t *testing.T) {
	src := "class EX_A {\n   uint8 Small = 300;\n};\n"
	out, err := execute(t, src, "compile", "-")
	assert.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, out, "error: type-mismatch\n --> <stdin>:2:")
	assert.Contains(t, out, "2 | uint8 Small = 300;")
}

func TestCompile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.json")
	_, err := execute(t, "", "compile", "--json", "-o", path, filepath.Join(brokenDir, "c_semantic.mof"))
	assert.ErrorIs(t, err, ErrIssuesFound)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var byFile map[string][]tt.Issue
	require.NoError(t, json.Unmarshal(data, &byFile))
	issues := byFile[filepath.Join(brokenDir, "c_semantic.mof")]
	require.Len(t, issues, 1)
	assert.Equal(t, "failed", issues[0].Rule)
}

func TestCompile_Flags(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "schema")
	require.NoError(t, os.Mkdir(schema, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(schema, "EX_Base.mof"), []byte("class EX_Base { string Id; };\n"), 0o644))

	src := "class EX_A : EX_Base { };\n"
	_, err := execute(t, src, "compile", "-")
	assert.ErrorIs(t, err, ErrIssuesFound)

	_, err = execute(t, src, "compile", "-I", schema, "-")
	assert.NoError(t, err)
}

func TestTomof(t *testing.T) {
	out, err := execute(t, "", "tomof", projectDir)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "#pragma namespace (\"root/cimv2\")\n\n"), out)
	assert.Contains(t, out, "Qualifier Key : boolean = false,")
	assert.Contains(t, out, "class EX_Device : EX_Base {")
	assert.Contains(t, out, "instance of EX_Device {")
	assert.Less(t, strings.Index(out, "class EX_Base"), strings.Index(out, "class EX_Device"))

	// the output compiles back to itself
	path := filepath.Join(t.TempDir(), "all.mof")
	_, err = execute(t, "", "tomof", "-o", path, projectDir)
	require.NoError(t, err)
	again, err := execute(t, "", "tomof", path)
	require.NoError(t, err)
	assert.Equal(t, out, again)

	only, err := execute(t, "", "tomof", "--only", "root/cimv2", projectDir)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(out, "#pragma namespace (\"root/cimv2\")\n\n"), only)
}

func TestTomof_Issues(t *testing.T) {
	out, err := execute(t, "", "tomof", brokenDir)
	assert.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, out, "error: parse-error")
	assert.NotContains(t, out, "#pragma")

	_, err = execute(t, "", "tomof")
	assert.ErrorContains(t, err, "--from-store")
}

func TestCompile_StoreThenTomof(t *testing.T) {
	db := filepath.Join(t.TempDir(), "repo.db")
	_, err := execute(t, "", "compile", "--store", db, projectDir)
	require.NoError(t, err)

	fromStore, err := execute(t, "", "tomof", "--store", db, "--from-store")
	require.NoError(t, err)
	direct, err := execute(t, "", "tomof", projectDir)
	require.NoError(t, err)
	assert.Equal(t, direct, fromStore)
}

func TestCompile_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "mofc.yaml")
	require.NoError(t, os.WriteFile(config, []byte("namespace: root/test\n"), 0o644))

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader("class EX_A { string Id; };\n"))
	rootCmd.SetArgs([]string{"--config", config, "tomof", "-"})
	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "#pragma namespace (\"root/test\")"), out.String())
}
