package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{
		Host:         "ch",
		Port:         9000,
		Database:     "tradepulse",
		User:         "default",
		Password:     "pw",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	}
	assert.Equal(t, "clickhouse://default:pw@ch:9000/tradepulse?async_insert=1&dial_timeout=5s&max_execution_time=30&wait_for_async_insert=1", cfg.dsn())

	cfg = Config{Host: "ch", Port: 8123, Database: "db", User: "default", UseHTTP: true}
	assert.Equal(t, "clickhouse+http://default:@ch:8123/db", cfg.dsn())
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(Config{Database: "db"})
	assert.Error(t, err)
	_, err = NewClient(Config{Host: "ch"})
	assert.Error(t, err)
}

func TestInitSchemaStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := FromDB(db, "tradepulse")
	defer c.Close()

	mock.ExpectExec("CREATE DATABASE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("boom"))

	err = c.InitSchema(context.Background(), []string{"CREATE DATABASE x", "CREATE TABLE y", "CREATE TABLE z"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 1")
	assert.Equal(t, "tradepulse", c.Database())
	assert.NoError(t, mock.ExpectationsWereMet())
}
