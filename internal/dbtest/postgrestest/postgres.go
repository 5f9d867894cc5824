// Package postgrestest runs a throwaway PostgreSQL server with the session
// schema applied.
package postgrestest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/session"
	migrations "github.com/openkcm/session-client/sql"
)

const (
	DBHost     = "localhost"
	DBUser     = "postgres"
	DBPassword = "secret"
	DBName     = "session_client"
	DBSSLMode  = "disable"
)

// SeededKey is the record inserted by Start.
const SeededKey = "seeded.auth"

// SeededState is the state stored under SeededKey.
var SeededState = session.State{
	Authenticated: true,
	Identity:      session.Identity{Username: "seed", Email: "seed@example.com", Groups: []string{"users"}},
	AccessToken:   "seed-access-token",
	AccessExpiry:  session.InstantOf(time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)),
	TokenType:     "Bearer",
	ExpiresIn:     900,
	RefreshToken:  "seed-refresh-token",
	RefreshExpiry: session.InstantOf(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)),
}

// Start initialises a database instance and returns a connection pool, database port, and termination function.
//
// Database credentials are available as exported constants.
// The database is migrated and contains the SeededState record.
func Start(ctx context.Context) (*pgxpool.Pool, nat.Port, func(ctx context.Context)) {
	pgContainer, err := postgres.Run(
		ctx,
		"postgres:17-alpine",
		postgres.WithDatabase(DBName),
		postgres.WithUsername(DBUser),
		postgres.WithPassword(DBPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		slogctx.Error(ctx, "Failed to start PostgreSQL", slog.String("error", err.Error()))
		panic(err)
	}

	port, err := pgContainer.MappedPort(ctx, nat.Port("5432"))
	if err != nil {
		slogctx.Error(ctx, "Failed to get mapped port for the PostgreSQL container", slog.String("error", err.Error()))
		panic(err)
	}

	migrateDB(ctx, port)
	dbPool := makeDBConn(ctx, port)
	seedDB(ctx, dbPool)

	terminate := func(ctx context.Context) {
		dbPool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			slogctx.Error(ctx, "Failed to terminate PostgreSQL container", slog.String("error", err.Error()))
			panic(err)
		}
	}

	return dbPool, port, terminate
}

// ConnStr returns the key/value connection string for the mapped port.
func ConnStr(port nat.Port) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s", DBHost, DBUser, DBPassword, DBName, port.Port(), DBSSLMode)
}

func makeDBConn(ctx context.Context, port nat.Port) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, ConnStr(port))
	if err != nil {
		panic(err)
	}

	return pool
}

func migrateDB(ctx context.Context, port nat.Port) {
	db, err := sql.Open("pgx", ConnStr(port))
	if err != nil {
		panic(err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		panic(err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		panic(err)
	}
}

func seedDB(ctx context.Context, dbPool *pgxpool.Pool) {
	if _, err := dbPool.Exec(ctx, `INSERT INTO session_records (key, record) VALUES ($1, $2);`, SeededKey, SeededState); err != nil {
		panic(err)
	}
}
