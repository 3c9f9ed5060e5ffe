package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEmbeddedMigrations(t *testing.T) {
	all := Migrations()
	require.NotEmpty(t, all)
	assert.Equal(t, "000001_init", all[0].ID())

	m, ok := all.Find(1)
	require.True(t, ok)
	for _, table := range []string{"recipes", "recipe_ingredients", "recipe_tags", "follows", "favorite_recipes", "shop_recipes"} {
		assert.True(t, strings.Contains(m.Up, "CREATE TABLE IF NOT EXISTS "+table), table)
		assert.True(t, strings.Contains(m.Down, "DROP TABLE IF EXISTS "+table), table)
	}
	_, ok = all.Find(999)
	assert.False(t, ok)
}

func TestLoadCatalog(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		want    []string
		wantErr string
	}{
		{
			name: "ordered by version",
			files: fstest.MapFS{
				"m/000002_tags.up.sql":   {Data: []byte("b")},
				"m/000002_tags.down.sql": {Data: []byte("b-")},
				"m/000001_init.up.sql":   {Data: []byte("a")},
				"m/000001_init.down.sql": {Data: []byte("a-")},
				"m/README.md":            {Data: []byte("ignored")},
			},
			want: []string{"000001_init", "000002_tags"},
		},
		{
			name:    "missing rollback",
			files:   fstest.MapFS{"m/000001_init.up.sql": {Data: []byte("a")}},
			wantErr: "no rollback",
		},
		{
			name:    "bad name",
			files:   fstest.MapFS{"m/init.up.sql": {Data: []byte("a")}},
			wantErr: "want NNNNNN_name",
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"m/000001_a.up.sql":   {Data: []byte("a")},
				"m/000001_a.down.sql": {Data: []byte("a")},
				"m/000001_b.up.sql":   {Data: []byte("b")},
				"m/000001_b.down.sql": {Data: []byte("b")},
			},
			wantErr: "already used",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadCatalog(tt.files, "m")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			var ids []string
			for _, m := range c {
				ids = append(ids, m.ID())
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCatalogCheckApplied(t *testing.T) {
	c := Catalog{{Version: 1}, {Version: 2}}
	assert.NoError(t, c.checkApplied(nil))
	assert.NoError(t, c.checkApplied([]int{1, 2}))

	err := c.checkApplied([]int{1, 7, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000003, 000007")

	pending := c.Pending([]int{1})
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}

func TestMigratorUpDown(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "m.db")), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	m := newMigratorWithCatalog(db, Catalog{
		{Version: 1, Name: "notes", Up: "CREATE TABLE notes (id INTEGER PRIMARY KEY)", Down: "DROP TABLE notes"},
		{Version: 2, Name: "labels", Up: "CREATE TABLE labels (id INTEGER PRIMARY KEY)", Down: "DROP TABLE labels"},
	})

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	done, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Len(t, done, 2)
	assert.True(t, db.Migrator().HasTable("notes"))

	done, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, done, "second run is a no-op")

	require.NoError(t, m.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("labels"))
	applied, err = m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	err = m.Down(ctx, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not been applied")
	assert.Error(t, m.Down(ctx, 42))
}

func TestMigratorFailedStepIsNotRecorded(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "m.db")), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	m := newMigratorWithCatalog(db, Catalog{
		{Version: 1, Name: "ok", Up: "CREATE TABLE ok (id INTEGER)", Down: "DROP TABLE ok"},
		{Version: 2, Name: "broken", Up: "CREATE TABLE", Down: ""},
	})
	done, err := m.Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002_broken")
	assert.Len(t, done, 1)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
}
