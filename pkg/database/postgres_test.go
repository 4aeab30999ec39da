package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/council-portal-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "council", Password: "p4ss", Name: "portal"})
	assert.Equal(t, "host=db port=5432 user=council password=p4ss dbname=portal sslmode=disable connect_timeout=5 application_name=council-portal-api", dsn)
}

func TestDSNQuotesAwkwardValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "council", Password: `it's a \secret`, Name: "portal", SSLMode: "require"})
	assert.Contains(t, dsn, `password='it\'s a \\secret'`)
	assert.Contains(t, dsn, "sslmode=require")
}
