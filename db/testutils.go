package db

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testDB     *sqlx.DB
	testDBOnce sync.Once
)

// GetDb connects to POSTGRES_URL once per test binary and initializes the
// schema. Tests share the database, so they must use fresh ids.
func GetDb(t *testing.T) *sqlx.DB {
	testDBOnce.Do(func() {
		var err error
		testDB, err = sqlx.Open("postgres", os.Getenv("POSTGRES_URL"))
		require.NoError(t, err)

		err = InitializeDatabaseSchema(testDB)
		require.NoError(t, err)
	})
	return testDB
}

// RunWithPostgres runs the tests of m against POSTGRES_URL, starting a
// throwaway container when it is not set.
func RunWithPostgres(m *testing.M) int {
	if os.Getenv("POSTGRES_URL") != "" {
		return m.Run()
	}

	fmt.Printf("\033[1;33m%s\033[0m", "> Setup postgres container\n")
	container, connStr := StartPostgresContainer()
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			fmt.Printf("\033[1;31m%s\033[0m", "> Teardown failed\n")
		}
	}()

	if err := os.Setenv("POSTGRES_URL", connStr); err != nil {
		panic(err)
	}

	return m.Run()
}

func StartPostgresContainer() (testcontainers.Container, string) {
	ctx := context.Background()

	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
		postgres.WithDatabase("db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable", "application_name=test")
	if err != nil {
		panic(err)
	}

	return postgresContainer, connStr
}
