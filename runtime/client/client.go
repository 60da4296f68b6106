// Package client provides the ORM entry point: a Client bound to a
// configuration and a schema provider, and the QuerySet used to query and
// modify the rows of a model.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phormium-go/phormium/config"
	"github.com/phormium-go/phormium/internal/debug"
	"github.com/phormium-go/phormium/query/sqlgen"
	"github.com/phormium-go/phormium/runtime/database"
	"github.com/phormium-go/phormium/runtime/types"
)

// Client is the main ORM client. Like the Database it wraps, a Client is
// meant to be used by one goroutine at a time.
type Client struct {
	cfg        *config.Config
	schema     types.SchemaProvider
	chain      *database.Chain
	factory    database.ConnectionFactory
	db         *database.Database
	logger     *slog.Logger
	extensions *ExtensionChain

	middlewares []database.Middleware
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used for statement logging when debug is on
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMiddleware registers middleware on the statement chain
func WithMiddleware(middlewares ...database.Middleware) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}

// WithFactory replaces the connection factory built from the configuration.
// The factory is responsible for running statements through Chain().
func WithFactory(factory database.ConnectionFactory) Option {
	return func(c *Client) {
		c.factory = factory
	}
}

// WithExtension registers a model operation extension
func WithExtension(ext Extension) Option {
	return func(c *Client) {
		c.extensions.Add(ext)
	}
}

// New creates a client over the given configuration. A nil schema provider
// is replaced by an empty types.Registry, which still resolves struct models.
func New(cfg *config.Config, schema types.SchemaProvider, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: no configuration given", config.ErrConfiguration)
	}
	if schema == nil {
		schema = types.NewRegistry()
	}

	c := &Client{
		cfg:        cfg,
		schema:     schema,
		chain:      database.NewChain(),
		extensions: NewExtensionChain(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Debug {
		debug.Init(true)
		if c.logger == nil {
			c.logger = debug.Logger()
		}
		c.chain.Use(database.LoggingMiddleware(c.logger))
	}
	for _, m := range c.middlewares {
		c.chain.Use(m)
	}

	if c.factory == nil {
		c.factory = database.NewFactory(cfg.Databases, c.chain)
	}
	c.db = database.New(c.factory, c.chain)

	return c, nil
}

// Config returns the configuration the client was created with
func (c *Client) Config() *config.Config {
	return c.cfg
}

// Database returns the underlying connection manager
func (c *Client) Database() *database.Database {
	return c.db
}

// Chain returns the statement middleware chain
func (c *Client) Chain() *database.Chain {
	return c.chain
}

// Use adds statement middleware
func (c *Client) Use(middleware database.Middleware) {
	c.chain.Use(middleware)
}

// Extend adds a model operation extension
func (c *Client) Extend(ext Extension) {
	c.extensions.Add(ext)
}

// Close disconnects every open connection, rolling back open transactions
func (c *Client) Close(ctx context.Context) error {
	return c.db.DisconnectAll(ctx)
}

// WatchConfig loads the configuration at path and keeps the factory in
// sync with it. Connections already open are not affected by a reload.
func (c *Client) WatchConfig(path string) error {
	setter, ok := c.factory.(interface {
		SetDatabases(map[string]config.Database)
	})
	if !ok {
		return fmt.Errorf("%w: connection factory does not support reloading", config.ErrConfiguration)
	}

	cfg, err := config.Watch(path, func(cfg *config.Config, err error) {
		if err != nil {
			debug.Warn("configuration reload failed", "path", path, "error", err)
			return
		}
		debug.Debug("configuration reloaded", "path", path, "databases", cfg.Names())
		setter.SetDatabases(cfg.Databases)
	})
	if err != nil {
		return err
	}

	setter.SetDatabases(cfg.Databases)
	return nil
}

// Objects returns a QuerySet over all rows of model. Model is anything the
// schema provider resolves: a registered name, a *types.Meta or a struct.
func (c *Client) Objects(model interface{}) (*QuerySet, error) {
	meta, err := c.schema.Meta(model)
	if err != nil {
		return nil, err
	}
	return newQuerySet(c, meta), nil
}

// MustObjects is like Objects but panics on error
func (c *Client) MustObjects(model interface{}) *QuerySet {
	qs, err := c.Objects(model)
	if err != nil {
		panic(err)
	}
	return qs
}

// connection returns the connection of meta's database with a generator
// for its dialect.
func (c *Client) connection(ctx context.Context, meta *types.Meta) (database.Conn, sqlgen.Generator, error) {
	conn, err := c.db.GetConnection(ctx, meta.Database)
	if err != nil {
		return nil, nil, err
	}

	gen, err := sqlgen.NewGenerator(string(conn.Dialect()))
	if err != nil {
		return nil, nil, err
	}
	return conn, gen, nil
}
