//go:build integration

package storage

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sevigo/review-broker/internal/config"
	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/db"
)

var (
	testDB        *db.DB
	testRedisAddr string
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	redisCtr, err := tcRedis.Run(ctx, "redis:7-alpine")
	if err != nil {
		log.Fatalf("start redis container: %v", err)
	}
	defer redisCtr.Terminate(ctx) //nolint:errcheck

	redisConnStr, err := redisCtr.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("redis connection string: %v", err)
	}
	testRedisAddr = strings.TrimPrefix(redisConnStr, "redis://")

	pgCtr, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("reviewdb"),
		tcPostgres.WithUsername("review"),
		tcPostgres.WithPassword("review"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}
	defer pgCtr.Terminate(ctx) //nolint:errcheck

	host, err := pgCtr.Host(ctx)
	if err != nil {
		log.Fatalf("postgres host: %v", err)
	}
	port, err := pgCtr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("postgres port: %v", err)
	}

	database, closeDB, err := db.NewDatabase(&config.DBConfig{
		Host:     host,
		Port:     port.Int(),
		Username: "review",
		Password: "review",
		Database: "reviewdb",
		SSLMode:  "disable",
	})
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer closeDB()
	testDB = database

	return m.Run()
}

func truncate(t *testing.T, conn *sqlx.DB) {
	t.Helper()
	_, err := conn.Exec(`TRUNCATE review_tasks, review_cache, webhook_deliveries`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	t.Cleanup(func() {
		client.FlushDB(context.Background()) //nolint:errcheck
		client.Close()                       //nolint:errcheck
	})
	return client
}

func TestPostgresTaskStore(t *testing.T) {
	testTaskStoreContract(t, func(t *testing.T) core.TaskStore {
		truncate(t, testDB.DB)
		return NewPostgresTaskStore(testDB.DB, 5*time.Second)
	})
}

func TestPostgresCacheStore(t *testing.T) {
	testCacheStoreContract(t, func(t *testing.T) core.CacheStore {
		truncate(t, testDB.DB)
		return NewPostgresCacheStore(testDB.DB, 5*time.Second)
	})
}

func TestPostgresDeliveryStore(t *testing.T) {
	testDeliveryStoreContract(t, func(t *testing.T) core.DeliveryStore {
		truncate(t, testDB.DB)
		return NewPostgresDeliveryStore(testDB.DB, 5*time.Second)
	}, true)
}

func TestRedisCacheStore(t *testing.T) {
	testCacheStoreContract(t, func(t *testing.T) core.CacheStore {
		return NewRedisCacheStore(newRedisClient(t), "test", 5*time.Second)
	})
}

func TestRedisDeliveryStore(t *testing.T) {
	testDeliveryStoreContract(t, func(t *testing.T) core.DeliveryStore {
		return NewRedisDeliveryStore(newRedisClient(t), "test", time.Hour, 5*time.Second)
	}, false)
}
