package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"groupfeed-backend/lib/telemetry"

	_ "modernc.org/sqlite"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService stands up telemetry and an in-memory database for one
// service test package.
func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	var database *sql.DB
	if params.DbSchema != "" {
		var err error
		database, err = sql.Open("sqlite", ":memory:")
		if err != nil {
			t.Fatal(err)
		}
		_, err = database.Exec("PRAGMA foreign_keys=ON")
		if err != nil {
			t.Fatal(err)
		}
		_, err = database.Exec(params.DbSchema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			t.Fatal(err)
		}
	}

	return ServiceResult{DB: database}, func() {
		if database != nil {
			database.Close()
		}
		cleanup()
	}
}
