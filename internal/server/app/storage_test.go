package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vulntracker/internal/server/config"
)

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		cfg     config.StorageConfig
		name    string
		wantErr string
	}{
		{name: "sqlite", cfg: config.StorageConfig{Driver: config.DriverSQLite, DSN: filepath.Join(dir, "data.db")}},
		{name: "bolt", cfg: config.StorageConfig{Driver: config.DriverBolt, DSN: filepath.Join(dir, "data.bolt")}},
		{name: "unknown driver", cfg: config.StorageConfig{Driver: "mysql", DSN: "x"}, wantErr: `unknown storage driver "mysql"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := OpenStorage(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Ping(context.Background()))
			assert.NoError(t, s.Close())
		})
	}
}
