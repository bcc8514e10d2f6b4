package dbtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := map[string]int{
		"oracle":     Oracle,
		" Oracle ":   Oracle,
		"oci8":       Oracle,
		"mysql":      MySQL,
		"mariadb":    MariaDB,
		"mssql":      SQLServer,
		"postgresql": Postgres,
		"gauss":      OpenGauss,
		"sqlite":     SQLite3,
		"sqlite2":    SQLite2,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Parse(name)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := Parse("db2")
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "oracle", Name(Oracle))
	assert.Equal(t, "sqlserver", Name(SQLServer))
	assert.Equal(t, "dbtype(99)", Name(99))
}
