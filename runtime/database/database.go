package database

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/phormium-go/phormium/internal/debug"
)

// ConnectionFactory creates connections by configured name
type ConnectionFactory interface {
	NewConnection(ctx context.Context, name string) (Conn, error)
}

// Database holds the open connections of a set of configured databases
// and the transaction marker spanning them.
//
// A transaction begun on the Database is not started on any connection
// up front. Each connection joins the first time it runs a statement while
// the marker is set, so connections unused during the transaction window
// never take part in it.
//
// A Database is not safe for concurrent use.
type Database struct {
	factory     ConnectionFactory
	chain       *Chain
	connections map[string]Conn

	beginTriggered bool
	txID           string
}

// New creates a database and registers its transaction enrolment on chain.
// The chain must be the one shared with the connections the factory creates.
func New(factory ConnectionFactory, chain *Chain) *Database {
	if chain == nil {
		chain = NewChain()
	}

	d := &Database{
		factory:     factory,
		chain:       chain,
		connections: make(map[string]Conn),
	}
	chain.Use(d.enrol)
	return d
}

// enrol begins a transaction on a connection about to run a statement
// while a database transaction is pending.
func (d *Database) enrol(ctx context.Context, event *QueryEvent, next func() error) error {
	if d.beginTriggered && d.owns(event.Conn) && !event.Conn.InTransaction() {
		debug.Debug("enrolling connection in transaction", "connection", event.Connection, "tx", d.txID)
		if err := event.Conn.Begin(ctx); err != nil {
			return err
		}
	}
	return next()
}

func (d *Database) owns(conn Conn) bool {
	if conn == nil {
		return false
	}
	for _, c := range d.connections {
		if c == conn {
			return true
		}
	}
	return false
}

// Chain returns the middleware chain shared with the connections
func (d *Database) Chain() *Chain {
	return d.chain
}

// GetConnection returns the named connection, opening it on first use
func (d *Database) GetConnection(ctx context.Context, name string) (Conn, error) {
	if conn, ok := d.connections[name]; ok {
		return conn, nil
	}

	if d.factory == nil {
		return nil, fmt.Errorf("%w: database %q is not configured", ErrDatabase, name)
	}

	conn, err := d.factory.NewConnection(ctx, name)
	if err != nil {
		return nil, err
	}
	d.connections[name] = conn
	return conn, nil
}

// SetConnection registers an open connection under name
func (d *Database) SetConnection(name string, conn Conn) error {
	if _, ok := d.connections[name]; ok {
		return fmt.Errorf("%w: connection %q is already connected", ErrDatabase, name)
	}
	d.connections[name] = conn
	return nil
}

// IsConnected reports whether a connection is open under name
func (d *Database) IsConnected(name string) bool {
	_, ok := d.connections[name]
	return ok
}

// Connections returns the names of the open connections in sorted order
func (d *Database) Connections() []string {
	return slices.Sorted(maps.Keys(d.connections))
}

// Disconnect closes the named connection, rolling back its transaction
// first. Disconnecting an unknown name does nothing.
func (d *Database) Disconnect(ctx context.Context, name string) error {
	conn, ok := d.connections[name]
	if !ok {
		return nil
	}
	delete(d.connections, name)

	var errs []error
	if conn.InTransaction() {
		debug.Debug("rolling back before disconnect", "connection", name, "tx", d.txID)
		if err := conn.Rollback(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := conn.Disconnect(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DisconnectAll rolls back every open transaction and closes all
// connections. The transaction marker is cleared since nothing is left
// for it to cover.
func (d *Database) DisconnectAll(ctx context.Context) error {
	var errs []error
	for _, name := range d.Connections() {
		conn := d.connections[name]
		if conn.InTransaction() {
			if err := conn.Rollback(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, name := range d.Connections() {
		if err := d.Disconnect(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}

	if d.beginTriggered {
		debug.Debug("transaction abandoned by disconnect", "tx", d.txID)
	}
	d.beginTriggered = false
	d.txID = ""

	return errors.Join(errs...)
}

// Begin marks the start of a transaction spanning all connections
func (d *Database) Begin() error {
	if d.beginTriggered {
		return fmt.Errorf("%w: already in transaction", ErrDatabase)
	}

	d.beginTriggered = true
	d.txID = uuid.NewString()
	debug.Debug("transaction begun", "tx", d.txID)
	return nil
}

// Commit commits every connection enrolled in the transaction
func (d *Database) Commit(ctx context.Context) error {
	if !d.beginTriggered {
		return fmt.Errorf("%w: cannot commit, not in transaction", ErrDatabase)
	}

	return d.finish(ctx, "commit", Conn.Commit)
}

// Rollback rolls back every connection enrolled in the transaction
func (d *Database) Rollback(ctx context.Context) error {
	if !d.beginTriggered {
		return fmt.Errorf("%w: cannot roll back, not in transaction", ErrDatabase)
	}

	return d.finish(ctx, "rollback", Conn.Rollback)
}

func (d *Database) finish(ctx context.Context, action string, fn func(Conn, context.Context) error) error {
	var errs []error
	for _, name := range d.Connections() {
		conn := d.connections[name]
		if !conn.InTransaction() {
			continue
		}

		debug.Debug("finishing transaction", "action", action, "connection", name, "tx", d.txID)
		if err := fn(conn, ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s failed on %q: %w", action, name, err))
		}
	}

	d.beginTriggered = false
	d.txID = ""

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrDatabase, errors.Join(errs...))
	}
	return nil
}

// BeginTriggered reports whether a transaction is pending
func (d *Database) BeginTriggered() bool {
	return d.beginTriggered
}

// TransactionID returns the id of the pending transaction, empty when idle
func (d *Database) TransactionID() string {
	return d.txID
}

// Transaction runs fn inside a transaction. It commits when fn returns nil
// and rolls back when fn returns an error or panics. Panics are re-raised
// after the rollback.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := d.Begin(); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = d.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := d.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w: transaction failed, rollback failed: %w", ErrDatabase, errors.Join(err, rbErr))
		}
		return fmt.Errorf("%w: transaction failed, rolled back: %w", ErrDatabase, err)
	}

	return d.Commit(ctx)
}
