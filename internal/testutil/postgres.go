package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/pawsocial/payment-service-go/internal/db"
)

const (
	dbUser     = "payment_user"
	dbPassword = "payment_pass"
	dbName     = "payments"
)

// StartPostgres launches a temporary Postgres container, applies the embedded
// migrations, and returns a pgx pool plus a cleanup function.
func StartPostgres(ctx context.Context, t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	containerName := "payment-int-" + uuid.NewString()
	runArgs := []string{
		"run", "--rm", "-d",
		"-e", fmt.Sprintf("POSTGRES_USER=%s", dbUser),
		"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", dbPassword),
		"-e", fmt.Sprintf("POSTGRES_DB=%s", dbName),
		"-P",
		"--name", containerName,
		"postgres:16-alpine",
	}

	if err := exec.CommandContext(ctx, "docker", runArgs...).Run(); err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	var pool *pgxpool.Pool
	cleanup := func() {
		if pool != nil {
			pool.Close()
		}
		_ = exec.Command("docker", "stop", containerName).Run()
	}

	hostPort := waitForPort(ctx, t, containerName)
	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUser, dbPassword, hostPort, dbName)

	waitForReady(ctx, t, dsn)

	if err := db.RunMigrations(dsn, zerolog.Nop()); err != nil {
		cleanup()
		t.Fatalf("apply migrations: %v", err)
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		cleanup()
		t.Fatalf("open pool: %v", err)
	}

	return pool, cleanup
}

func waitForPort(ctx context.Context, t *testing.T, containerName string) string {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for postgres port")
		}

		out, err := exec.CommandContext(ctx, "docker", "port", containerName, "5432/tcp").Output()
		if err == nil {
			parts := strings.Split(strings.TrimSpace(string(out)), ":")
			if len(parts) == 2 {
				return parts[1]
			}
		}

		select {
		case <-ctx.Done():
			t.Fatalf("context cancelled waiting for postgres port: %v", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// waitForReady polls with database/sql until the server accepts connections.
func waitForReady(ctx context.Context, t *testing.T, dsn string) {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	var lastErr error
	for {
		conn, err := sql.Open("postgres", dsn)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = conn.PingContext(pingCtx)
			cancel()
			_ = conn.Close()
			if err == nil {
				return
			}
		}
		lastErr = err

		if time.Now().After(deadline) {
			t.Fatalf("timeout connecting to postgres: %v", lastErr)
		}

		select {
		case <-ctx.Done():
			t.Fatalf("context cancelled connecting to postgres: %v", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}
