package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wms-imagery/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "wms", Password: "secret", Name: "wms_imagery"})
	require.Equal(t, "host=db port=5433 user=wms password=secret dbname=wms_imagery sslmode=disable", dsn)

	dsn = DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "wms", Name: "wms_imagery", SSLMode: "require"})
	require.Contains(t, dsn, "sslmode=require")
}
