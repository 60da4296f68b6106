package client

import "context"

// TransactionFunc is a function that runs within a transaction
type TransactionFunc func(ctx context.Context) error

// Begin starts a transaction spanning every database. Connections join it
// when they first run a statement.
func (c *Client) Begin() error {
	return c.db.Begin()
}

// Commit commits the transaction on every connection that joined it
func (c *Client) Commit(ctx context.Context) error {
	return c.db.Commit(ctx)
}

// Rollback rolls back the transaction on every connection that joined it
func (c *Client) Rollback(ctx context.Context) error {
	return c.db.Rollback(ctx)
}

// Transaction executes fn within a transaction.
// If fn returns an error or panics the transaction is rolled back,
// otherwise it is committed.
func (c *Client) Transaction(ctx context.Context, fn TransactionFunc) error {
	return c.db.Transaction(ctx, fn)
}
