// Package databasetest provides an isolated migrated sqlite database per test.
package databasetest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"civic-realtime/internal/config"
	"civic-realtime/internal/database"
	"civic-realtime/pkg/logger"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seq atomic.Int64

func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", URI: dsn, MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, logger.Discard()))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
