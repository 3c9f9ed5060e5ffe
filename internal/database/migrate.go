package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Migration is one embedded schema change with its rollback script.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// ID is the file stem, e.g. 000001_init.
func (m Migration) ID() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// Catalog is a set of migrations ordered by version.
type Catalog []Migration

//go:embed migrations/*.sql
var migrationFS embed.FS

var embedded = mustLoadCatalog(migrationFS, "migrations")

func mustLoadCatalog(fsys fs.FS, dir string) Catalog {
	c, err := LoadCatalog(fsys, dir)
	if err != nil {
		panic(err)
	}
	return c
}

// Migrations returns the catalog compiled into the binary.
func Migrations() Catalog {
	return embedded
}

// LoadCatalog reads NNNNNN_name.up.sql files from dir together with their
// .down.sql counterparts. A malformed name, a missing rollback or a repeated
// version is an error.
func LoadCatalog(fsys fs.FS, dir string) (Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var c Catalog
	seen := map[int]string{}
	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(file, ".up.sql") {
			continue
		}
		stem := strings.TrimSuffix(file, ".up.sql")
		num, name, ok := strings.Cut(stem, "_")
		version, err := strconv.Atoi(num)
		if !ok || err != nil || version <= 0 || name == "" {
			return nil, fmt.Errorf("migration %s: want NNNNNN_name.up.sql", file)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration %s: version %d already used by %s", file, version, prev)
		}
		seen[version] = file

		up, err := fs.ReadFile(fsys, path.Join(dir, file))
		if err != nil {
			return nil, err
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, stem+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no rollback: %w", stem, err)
		}
		c = append(c, Migration{Version: version, Name: name, Up: string(up), Down: string(down)})
	}

	sort.Slice(c, func(i, j int) bool { return c[i].Version < c[j].Version })
	return c, nil
}

// Find looks a migration up by version.
func (c Catalog) Find(version int) (Migration, bool) {
	i := sort.Search(len(c), func(i int) bool { return c[i].Version >= version })
	if i < len(c) && c[i].Version == version {
		return c[i], true
	}
	return Migration{}, false
}

// Pending returns the migrations whose versions are not in applied.
func (c Catalog) Pending(applied []int) []Migration {
	done := make(map[int]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}
	var out []Migration
	for _, m := range c {
		if _, ok := done[m.Version]; !ok {
			out = append(out, m)
		}
	}
	return out
}

// checkApplied rejects a database that has versions this binary does not know.
func (c Catalog) checkApplied(applied []int) error {
	var unknown []string
	for _, v := range applied {
		if _, ok := c.Find(v); !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("migration_logs has versions unknown to this build: %s (reset the development database to rebuild)",
		strings.Join(unknown, ", "))
}
