package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gnoswap-labs/mofc/internal/compiler"
	"github.com/gnoswap-labs/mofc/internal/repository"
	"github.com/gnoswap-labs/mofc/internal/store"
)

const schema = `
Qualifier Key : boolean = false, Scope(property, reference), Flavor(DisableOverride, ToSubclass);

class EX_Base {
   [Key] string Id;
};

class EX_Sub : EX_Base {
   uint32 Size = 4;
};

instance of EX_Sub {
   Id = "one";
};
`

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "repo.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func compiled(t *testing.T) *repository.Repository {
	t.Helper()

	c := compiler.New(repository.New(), compiler.Options{}, nil)
	require.NoError(t, c.CompileString(schema, ""))
	require.NoError(t, c.CompileString("#pragma namespace (\"root/other\")\nclass EX_Lonely { string Note; };", ""))
	return c.Repository()
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	assert.NoError(t, db.Migrate())

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSaveAndEntries(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	repo := compiled(t)

	require.NoError(t, db.Save(ctx, repo))

	names, err := db.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"root/cimv2", "root/other"}, names)

	entries, err := db.Entries(ctx, `\ROOT\cimv2`)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	type row struct {
		kind store.Kind
		name string
	}
	var got []row
	for _, e := range entries {
		got = append(got, row{e.Kind, e.Name})
	}
	assert.Equal(t, []row{
		{store.KindQualifier, "Key"},
		{store.KindClass, "EX_Base"},
		{store.KindClass, "EX_Sub"},
		{store.KindInstance, `root/cimv2:EX_Sub.Id="one"`},
	}, got)
	assert.Contains(t, entries[2].MOF, "class EX_Sub : EX_Base {")
}

func TestSaveReplacesNamespace(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, compiled(t)))

	c := compiler.New(repository.New(), compiler.Options{}, nil)
	require.NoError(t, c.CompileString("class EX_Only { string Id; };", ""))
	require.NoError(t, db.Save(ctx, c.Repository()))

	entries, err := db.Entries(ctx, "root/cimv2")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "EX_Only", entries[0].Name)

	other, err := db.Entries(ctx, "root/other")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestLoadRecompiles(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	repo := compiled(t)
	require.NoError(t, db.Save(ctx, repo))

	c := compiler.New(repository.New(), compiler.Options{}, nil)
	require.NoError(t, db.Load(ctx, c))

	for _, want := range repo.Namespaces() {
		got, ok := c.Repository().Lookup(want.Name())
		require.True(t, ok, want.Name())
		assert.Equal(t, want.CompileOrderedClassNames(), got.CompileOrderedClassNames())
		for _, class := range want.EnumerateClasses() {
			loaded, err := got.GetClass(class.Name)
			require.NoError(t, err)
			assert.Equal(t, class, loaded)
		}
		assert.Equal(t, want.EnumerateInstances(), got.EnumerateInstances())
	}
}

type mockCompiler struct {
	mock.Mock
}

func (m *mockCompiler) CompileSource(filename, src, namespace string) error {
	args := m.Called(filename, src, namespace)
	return args.Error(0)
}

func TestLoadWithMockCompiler(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	repo := compiled(t)
	require.NoError(t, db.Save(ctx, repo))

	cimv2, _ := repo.Lookup("root/cimv2")
	other, _ := repo.Lookup("root/other")

	t.Run("sources in namespace order", func(t *testing.T) {
		mc := new(mockCompiler)
		mc.On("CompileSource", "store:root/cimv2", cimv2.MOF(), "root/cimv2").Return(nil).Once()
		mc.On("CompileSource", "store:root/other", other.MOF(), "root/other").Return(nil).Once()

		require.NoError(t, db.Load(ctx, mc))
		mc.AssertExpectations(t)
	})

	t.Run("compile error stops loading", func(t *testing.T) {
		mc := new(mockCompiler)
		mc.On("CompileSource", "store:root/cimv2", mock.Anything, "root/cimv2").Return(errors.New("boom")).Once()

		err := db.Load(ctx, mc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load namespace root/cimv2: boom")
		mc.AssertNotCalled(t, "CompileSource", "store:root/other", mock.Anything, mock.Anything)
	})
}
