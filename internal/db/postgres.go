package db

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// PostgresDialer opens a PostgreSQL pool through the pgx stdlib driver. The
// pool has no push notifications, so liveness is polled every
// Config.HeartbeatInterval.
type PostgresDialer struct{}

// Dial opens the pool and validates connectivity immediately.
func (PostgresDialer) Dial(ctx context.Context, cfg Config, sink EventSink) (Conn, error) {
	connCfg, err := pgx.ParseConfig(cfg.URI)
	if err != nil {
		return nil, err
	}
	connCfg.ConnectTimeout = cfg.ServerSelectionTimeout
	connCfg.DialFunc = newTCPDialer(cfg.ServerSelectionTimeout, cfg.ForceIPv4).DialContext

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(int(cfg.MaxPoolSize))
	db.SetMaxIdleConns(int(cfg.MaxPoolSize))
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ServerSelectionTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	c := &postgresConn{
		db:      db,
		ping:    db.PingContext,
		host:    connCfg.Host,
		name:    connCfg.Database,
		timeout: cfg.ServerSelectionTimeout,
		done:    make(chan struct{}),
	}
	go c.heartbeat(cfg.HeartbeatInterval, sink)
	return c, nil
}

type postgresConn struct {
	db      *sql.DB
	ping    func(ctx context.Context) error
	host    string
	name    string
	timeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func (c *postgresConn) Host() string { return c.host }
func (c *postgresConn) Name() string { return c.name }

func (c *postgresConn) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.db != nil {
			err = c.db.Close()
		}
	})
	return err
}

// heartbeat pings the pool and reports up/down transitions on sink.
func (c *postgresConn) heartbeat(interval time.Duration, sink EventSink) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	up := true
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		err := c.ping(ctx)
		cancel()

		select {
		case <-c.done:
			return
		default:
		}

		switch {
		case err != nil:
			sink.Error(err)
			if up {
				up = false
				sink.Disconnected()
			}
		case !up:
			up = true
			sink.Connected()
		}
	}
}
