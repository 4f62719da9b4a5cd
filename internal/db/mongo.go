package db

import (
	"context"
	"log/slog"
	"sync"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDialer connects to MongoDB with the official driver.
type MongoDialer struct {
	Logger *slog.Logger
}

// NewMongoDialer returns a MongoDialer that logs driver commands to logger
// when Config.Debug is set.
func NewMongoDialer(logger *slog.Logger) *MongoDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoDialer{Logger: logger}
}

// Dial creates a client and waits until the primary answers a ping.
func (d *MongoDialer) Dial(ctx context.Context, cfg Config, sink EventSink) (Conn, error) {
	host, name, err := describeURI(cfg.URI)
	if err != nil {
		return nil, err
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetSocketTimeout(cfg.SocketTimeout).
		SetDialer(newTCPDialer(cfg.ServerSelectionTimeout, cfg.ForceIPv4)).
		SetServerMonitor(newServerMonitor(sink))
	if cfg.Debug {
		opts.SetMonitor(newCommandMonitor(d.logger()))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ServerSelectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &mongoConn{client: client, host: host, name: name}, nil
}

func (d *MongoDialer) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

type mongoConn struct {
	client *mongo.Client
	host   string
	name   string
}

func (c *mongoConn) Host() string { return c.host }
func (c *mongoConn) Name() string { return c.name }

func (c *mongoConn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// newServerMonitor reports topology availability changes as connect and
// disconnect events and heartbeat failures as errors.
func newServerMonitor(sink EventSink) *event.ServerMonitor {
	var (
		mu        sync.Mutex
		available bool
	)
	return &event.ServerMonitor{
		TopologyDescriptionChanged: func(evt *event.TopologyDescriptionChangedEvent) {
			now := topologyAvailable(evt.NewDescription)
			mu.Lock()
			prev := available
			available = now
			mu.Unlock()

			switch {
			case now && !prev:
				sink.Connected()
			case !now && prev:
				sink.Disconnected()
			}
		},
		ServerHeartbeatFailed: func(evt *event.ServerHeartbeatFailedEvent) {
			sink.Error(evt.Failure)
		},
	}
}

func topologyAvailable(t description.Topology) bool {
	for _, s := range t.Servers {
		if s.Kind != description.Unknown {
			return true
		}
	}
	return false
}

func newCommandMonitor(logger *slog.Logger) *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(_ context.Context, evt *event.CommandStartedEvent) {
			logger.Debug("mongo_command",
				"command", evt.CommandName,
				"database", evt.DatabaseName,
				"request_id", evt.RequestID,
			)
		},
		Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
			logger.Debug("mongo_command_failed",
				"command", evt.CommandName,
				"request_id", evt.RequestID,
				"error", evt.Failure,
			)
		},
	}
}
