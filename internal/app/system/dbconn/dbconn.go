// Package dbconn owns the process's MongoDB connection.
//
// A Conn is created at startup and closed at shutdown. EnsureConnected is
// idempotent: concurrent callers share one in-flight connect attempt, and
// a failed attempt leaves the Conn ready to retry.
package dbconn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by EnsureConnected after Close.
var ErrClosed = errors.New("dbconn: connection closed")

// Options tunes the client. Zero values keep driver defaults.
type Options struct {
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ServerSelectionTimeout time.Duration
}

type Conn struct {
	uri    string
	dbName string
	opts   Options
	log    *zap.Logger

	group singleflight.Group

	mu     sync.RWMutex
	client *mongo.Client
	closed bool
}

// New returns an unconnected Conn.
func New(uri, dbName string, opts Options, log *zap.Logger) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conn{uri: uri, dbName: dbName, opts: opts, log: log}
}

// EnsureConnected connects and pings if not already connected, and returns
// the database handle.
func (c *Conn) EnsureConnected(ctx context.Context) (*mongo.Database, error) {
	c.mu.RLock()
	client, closed := c.client, c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if client != nil {
		return client.Database(c.dbName), nil
	}

	v, err, _ := c.group.Do("connect", func() (any, error) {
		// Another caller may have finished while we waited for the group.
		c.mu.RLock()
		existing := c.client
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		return c.connect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*mongo.Client).Database(c.dbName), nil
}

func (c *Conn) connect(ctx context.Context) (*mongo.Client, error) {
	start := time.Now()
	co := options.Client().ApplyURI(c.uri)
	if c.opts.MaxPoolSize > 0 {
		co.SetMaxPoolSize(c.opts.MaxPoolSize)
	}
	if c.opts.MinPoolSize > 0 {
		co.SetMinPoolSize(c.opts.MinPoolSize)
	}
	if c.opts.ServerSelectionTimeout > 0 {
		co.SetServerSelectionTimeout(c.opts.ServerSelectionTimeout)
	}

	client, err := mongo.Connect(ctx, co)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = client.Disconnect(context.Background())
		return nil, ErrClosed
	}
	c.client = client
	c.log.Info("connected to MongoDB",
		zap.String("database", c.dbName),
		zap.Duration("took", time.Since(start)))
	return client, nil
}

// Client returns the connected client, or nil before EnsureConnected
// succeeds.
func (c *Conn) Client() *mongo.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Database returns the database handle, or nil when not connected.
func (c *Conn) Database() *mongo.Database {
	if cl := c.Client(); cl != nil {
		return cl.Database(c.dbName)
	}
	return nil
}

// Close disconnects. Further EnsureConnected calls fail with ErrClosed.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.closed = true
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	c.log.Info("disconnecting MongoDB client")
	return client.Disconnect(ctx)
}
