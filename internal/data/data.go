package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"replybot/internal/biz"
	"replybot/internal/conf"
	"replybot/internal/data/postgres/sqlc"
	pkgredis "replybot/internal/pkg/redis"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisCache,
	wire.Bind(new(pkgredis.Cache), new(*pkgredis.Redis)),
	NewRuleNotifier,
	wire.Bind(new(biz.RuleChangeNotifier), new(*RuleNotifier)),
	NewRuleRepo,
	NewHashIndexProvider,
	NewDetectorPolicy,
	NewOCR,
	NewImageFetcher,
)

// Data struct for db client
type Data struct {
	Pool    *pgxpool.Pool // pgxpool for sqlc (pgx/v5)
	Queries *sqlc.Queries // sqlc queries
	DB      *sql.DB       // database/sql for migrations
}

// NewData connects to postgres and brings the schema up to date.
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	pool, db, err := connect(context.Background(), c)
	if err != nil {
		return nil, nil, err
	}
	if err := RunMigrate(db); err != nil {
		pool.Close()
		db.Close()
		return nil, nil, err
	}
	helper.Info("connected to postgres, schema up to date")

	cleanup := func() {
		helper.Info("closing db connections")
		pool.Close()
		db.Close()
	}

	return &Data{
		Pool:    pool,
		Queries: sqlc.New(pool),
		DB:      db,
	}, cleanup, nil
}

func connect(ctx context.Context, c *conf.Data) (*pgxpool.Pool, *sql.DB, error) {
	pgxConfig, err := newPgxPoolConfig(c)
	if err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pgxConfig)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// database/sql handle for migrations
	db, err := sql.Open(driverName(c), c.Database.Source)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, db, nil
}

// OpenDB opens only the database/sql handle, for the migrate command.
func OpenDB(c *conf.Data) (*sql.DB, error) {
	return sql.Open(driverName(c), c.Database.Source)
}

func driverName(c *conf.Data) string {
	if c.Database.Driver == "" {
		return "postgres"
	}
	return c.Database.Driver
}

// newPgxPoolConfig creates a pgxpool.Config from conf.Data
func newPgxPoolConfig(c *conf.Data) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.Database.Source)
	if err != nil {
		return nil, err
	}
	pool := c.Database.Pool
	if pool.MaxOpenConns > 0 {
		cfg.MaxConns = pool.MaxOpenConns
	}
	if pool.MinIdleConns > 0 {
		cfg.MinConns = pool.MinIdleConns
	}
	if pool.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = time.Duration(pool.MaxConnLifetime) * time.Minute
	}
	if pool.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = time.Duration(pool.MaxConnIdleTime) * time.Minute
	}
	return cfg, nil
}
