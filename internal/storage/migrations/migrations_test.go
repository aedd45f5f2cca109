package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-market-lab/internal/storage"
)

func TestSQLFiles_Embedded(t *testing.T) {
	pg, err := sqlFiles(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_feature_set.sql", "002_psa_data.sql"}, pg)

	ch, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_feature_set.sql"}, ch)
}

func TestSchemas_DeclareEveryFeatureSetColumn(t *testing.T) {
	for _, path := range []string{"postgres/001_feature_set.sql", "clickhouse/001_feature_set.sql"} {
		var fsys fs.FS = PostgresFS
		if strings.HasPrefix(path, "clickhouse") {
			fsys = ClickhouseFS
		}
		data, err := fs.ReadFile(fsys, path)
		require.NoError(t, err)

		for _, col := range storage.FeatureSetColumns() {
			assert.Contains(t, string(data), "\n    "+col+" ", "%s missing column %s", path, col)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y UInt8) ENGINE = Memory;
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b"))
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b'`))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/cards")
	require.NoError(t, err)
	assert.Equal(t, "cards", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
