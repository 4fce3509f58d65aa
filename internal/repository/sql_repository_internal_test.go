package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/rongwang/kasciraya-server/internal/config"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotTxOptions(t *testing.T) {
	opts := snapshotTxOptions(config.DriverPostgres)
	require.NotNil(t, opts)
	assert.Equal(t, sql.LevelRepeatableRead, opts.Isolation)
	assert.True(t, opts.ReadOnly)

	assert.Nil(t, snapshotTxOptions(config.DriverSQLite))
}

func TestUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique", &pq.Error{Code: "23505"}, true},
		{"postgres unique wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"postgres foreign key", &pq.Error{Code: "23503"}, false},
		{"plain error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uniqueViolation(tt.err))
		})
	}
}

func TestSQLiteDuplicateUsernameIsDuplicate(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "ledger.db"),
		},
	}
	db, err := config.SetupDatabase(cfg)
	require.NoError(t, err)
	repo := NewSQLRepository(db)
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, &models.User{Name: "A", Username: "taken", Password: "x", Role: models.RoleViewer}))

	// An insert that slipped past the username check hits the constraint
	_, err = repo.db.ExecContext(ctx, repo.q(`
		INSERT INTO users (id, name, username, password, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), "other-id", "B", "taken", "x", models.RoleViewer, now(), now())
	require.Error(t, err)
	assert.True(t, uniqueViolation(err), "got %v", err)
	assert.ErrorIs(t, writeError(err), ErrDuplicate)
}
