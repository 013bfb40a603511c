package db

import (
	"context"
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, url := StartPostgresContainer()
	os.Setenv("POSTGRES_URL", url)

	code := m.Run()

	if db != nil {
		db.Close()
	}
	_ = container.Terminate(ctx)

	os.Exit(code)
}
