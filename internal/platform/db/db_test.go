package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/internal/models"
	cfgpkg "github.com/fatflowers/pointsledger/pkg/config"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{driver: "", want: "postgres"},
		{driver: DriverPostgres, want: "postgres"},
		{driver: DriverMySQL, want: "mysql"},
		{driver: DriverSQLite, want: "sqlite"},
		{driver: "oracle", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := Dialector(tt.driver, "dsn")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}
}

func TestNewDB_EmptyDSN(t *testing.T) {
	_, err := NewDB(zap.NewNop().Sugar(), &cfgpkg.Config{})
	assert.Error(t, err)
}

func TestNewDB_SQLiteAndMigrate(t *testing.T) {
	cfg := &cfgpkg.Config{Database: cfgpkg.DBConfig{Driver: DriverSQLite, DSN: "file:newdb?mode=memory&cache=shared"}}
	gdb, err := NewDB(zap.NewNop().Sugar(), cfg)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(zap.NewNop().Sugar(), gdb))

	for _, m := range models.All() {
		assert.True(t, gdb.Migrator().HasTable(m))
	}
}
