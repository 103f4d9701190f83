package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/migrate"
	"github.com/target/mmk-genstudio/internal/service"
)

const (
	connectTimeout = 5 * time.Second
	// apiConnHeadroom reserves pool connections for HTTP handlers next to background polling.
	apiConnHeadroom = 8
	// redisPoolSize covers lock acquire and release from the poller and reconciler loops.
	redisPoolSize = 4
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	// MaxOpenConns caps the Postgres pool. Zero means apiConnHeadroom.
	MaxOpenConns int
	Logger       *slog.Logger
}

// PoolSizeFor sizes the Postgres pool for cfg: each external id polled in
// parallel may complete DefaultMaterializeConcurrency jobs at once, and the
// API gets its own headroom.
func PoolSizeFor(cfg *config.AppConfig) int {
	return cfg.Poller.Concurrency*service.DefaultMaterializeConcurrency + apiConnHeadroom
}

func postgresDSN(cfg config.DBConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// ConnectDB opens the job store's Postgres pool through the pgx driver and pings it.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = apiConnHeadroom
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(max(2, maxOpen/4))
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping database: %w", err), db.Close())
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"database", cfg.DBConfig.Name,
			"max_open_conns", maxOpen)
	}
	return db, nil
}

// ConnectRedis connects the client backing the distributed sweep lock. It
// returns a nil client when Redis is disabled; the poller and reconciler then
// run without a cross-instance lock.
//
//nolint:ireturn // the concrete client depends on the configured topology.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	if !cfg.RedisConfig.Enabled {
		if cfg.Logger != nil {
			cfg.Logger.Info("redis disabled; background sweeps run without a distributed lock")
		}
		return nil, nil //nolint:nilnil // a disabled Redis is not an error
	}

	opts, cluster, err := redisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	var client redis.UniversalClient
	if cluster {
		client = redis.NewClusterClient(opts.Cluster())
	} else {
		client = redis.NewUniversalClient(opts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis: %w", err), client.Close())
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected",
			"addrs", strings.Join(opts.Addrs, ","),
			"master", opts.MasterName,
			"cluster", cluster)
	}
	return client, nil
}

// redisOptions maps RedisConfig onto UniversalOptions. Sentinel wins over
// cluster nodes, which win over the single URI. cluster reports whether the
// caller must build a cluster client even for a single seed address.
func redisOptions(cfg config.RedisConfig) (opts *redis.UniversalOptions, cluster bool, err error) {
	opts = &redis.UniversalOptions{
		Password:    cfg.Password,
		PoolSize:    redisPoolSize,
		DialTimeout: connectTimeout,
	}

	switch {
	case cfg.UseSentinel:
		opts.Addrs = nonEmpty(cfg.SentinelNodes)
		if len(opts.Addrs) == 0 {
			return nil, false, errors.New("redis sentinel mode requires at least one sentinel node")
		}
		opts.MasterName = cfg.SentinelMasterName
		opts.SentinelPassword = cfg.SentinelPassword
	case len(nonEmpty(cfg.ClusterNodes)) > 0:
		opts.Addrs = nonEmpty(cfg.ClusterNodes)
		cluster = true
	default:
		uri := strings.TrimSpace(cfg.URI)
		if uri == "" {
			return nil, false, errors.New("redis requires a URI, sentinel nodes or cluster nodes")
		}
		if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
			opts.Addrs = []string{uri}
			break
		}
		parsed, perr := redis.ParseURL(uri)
		if perr != nil {
			return nil, false, fmt.Errorf("parse redis url: %w", perr)
		}
		opts.Addrs = []string{parsed.Addr}
		opts.Username = parsed.Username
		opts.DB = parsed.DB
		opts.TLSConfig = parsed.TLSConfig
		if parsed.Password != "" {
			opts.Password = parsed.Password
		}
	}
	return opts, cluster, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// RunMigrations applies the embedded job store migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
