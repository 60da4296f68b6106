package database

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// QueryEvent describes a single statement executed on a connection
type QueryEvent struct {
	Conn       Conn
	Connection string
	Query      string
	Args       []interface{}
	Prepared   bool

	Start    time.Time
	End      time.Time
	Duration time.Duration

	// RowsAffected is set for executes, Rows for queries
	RowsAffected int64
	Rows         int
	Error        error
}

// Middleware intercepts statements. It must call next to run the statement.
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// Chain is an ordered list of middleware shared by the connections of a
// database. Safe for concurrent use.
type Chain struct {
	mu          sync.RWMutex
	middlewares []Middleware
}

// NewChain creates a chain with the given middleware
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: append([]Middleware(nil), middlewares...)}
}

// Use appends middleware to the chain
func (c *Chain) Use(middleware Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, middleware)
}

// Len returns the number of registered middleware
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.middlewares)
}

// Run passes event through the chain and finally calls exec. Timing and
// the error are recorded on event before the middleware sees next return.
func (c *Chain) Run(ctx context.Context, event *QueryEvent, exec func() error) error {
	var middlewares []Middleware
	if c != nil {
		c.mu.RLock()
		middlewares = append(middlewares, c.middlewares...)
		c.mu.RUnlock()
	}

	event.Start = time.Now()

	var next func() error
	index := 0

	next = func() error {
		if index >= len(middlewares) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}

		middleware := middlewares[index]
		index++
		return middleware(ctx, event, next)
	}

	return next()
}

// LoggingMiddleware logs every statement at debug level, and failures at
// warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()

		attrs := []any{
			"connection", event.Connection,
			"query", event.Query,
			"args", len(event.Args),
			"prepared", event.Prepared,
			"duration", event.Duration,
		}
		if err != nil {
			logger.WarnContext(ctx, "query failed", append(attrs, "error", err)...)
			return err
		}

		logger.DebugContext(ctx, "query executed", append(attrs, "rows_affected", event.RowsAffected, "rows", event.Rows)...)
		return nil
	}
}

// TimingMiddleware reports the duration of every statement
func TimingMiddleware(onTiming func(query string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Query, event.Duration)
		}
		return err
	}
}
