package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/fs"
)

func TestDSN(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "db",
		Port:          "5432",
		Name:          "ratiba",
		User:          "app",
		Password:      "p@ss",
		AdminUser:     "postgres",
		AdminPassword: "root",
		DisableTLS:    true,
	}}

	tests := []struct {
		name     string
		admin    bool
		wantUser string
		wantPwd  string
	}{
		{name: "app user", wantUser: "app", wantPwd: "p@ss"},
		{name: "admin user", admin: true, wantUser: "postgres", wantPwd: "root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(dsn("ratiba", tt.admin, conf))
			require.NoError(t, err)
			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, "db:5432", u.Host)
			assert.Equal(t, "/ratiba", u.Path)
			assert.Equal(t, tt.wantUser, u.User.Username())
			pwd, _ := u.User.Password()
			assert.Equal(t, tt.wantPwd, pwd)
			assert.Equal(t, "disable", u.Query().Get("sslmode"))
		})
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := appfs.FS.ReadDir(migrationsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
