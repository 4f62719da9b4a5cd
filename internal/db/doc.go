// Package db owns the lifecycle of the single outbound database connection
// used by the server. A Manager connects with a bounded fixed-interval retry,
// reconnects when the transport reports a disconnect, and releases the handle
// on shutdown. Drivers plug in through the Dialer interface; MongoDialer is the
// default and PostgresDialer is available for deployments on PostgreSQL.
package db
