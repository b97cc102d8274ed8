package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/migrations"
)

func TestReadMigrationsOrdersAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_phase.up.sql":        {Data: []byte("ALTER TABLE x ADD COLUMN y TEXT;")},
		"001_initial_schema.up.sql":   {Data: []byte("CREATE TABLE x (id INT);")},
		"001_initial_schema.down.sql": {Data: []byte("DROP TABLE x;")},
		"README.md":                   {Data: []byte("notes")},
		"nounderscore.up.sql":         {Data: []byte("SELECT 1;")},
	}

	got, err := ReadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "001", got[0].Version)
	assert.Equal(t, "initial schema", got[0].Title)
	assert.Equal(t, "002", got[1].Version)
	assert.Equal(t, calculateChecksum("CREATE TABLE x (id INT);"), got[0].Checksum)
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	got, err := ReadMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	assert.Equal(t, "001", got[0].Version)
	for _, m := range got {
		assert.NotEmpty(t, m.UpSQL, m.Version)
	}
}
