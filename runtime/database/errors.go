package database

import "errors"

var (
	// ErrConnection is returned for misuse of a single connection, such as
	// transaction depth violations or use after disconnect.
	ErrConnection = errors.New("connection error")

	// ErrDatabase is returned for misuse of the cross connection
	// transaction state, connection registration conflicts and
	// configuration failures raised while connecting.
	ErrDatabase = errors.New("database error")
)
