package db

import (
	"context"
	"testing"

	"github.com/angelmondragon/rentalcrm-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		DSN:          "file:dbclient?mode=memory&cache=shared",
		Driver:       "sqlite",
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "sqlite3", client.Dialect())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NotNil(t, client.DB())
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: "sqlite"}, nil)
	assert.Error(t, err)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{DSN: "x", Driver: "mysql"}, nil)
	assert.Error(t, err)
}

func TestDialectDefaultsToPostgres(t *testing.T) {
	assert.Equal(t, "postgres", (&Client{dialect: "postgres"}).Dialect())
}
