package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/phormium-go/phormium/config"
)

// Factory opens connections to configured databases
type Factory struct {
	mu        sync.RWMutex
	databases map[string]config.Database
	chain     *Chain
}

// NewFactory creates a factory over the given database configuration.
// Connections it opens run their statements through chain.
func NewFactory(databases map[string]config.Database, chain *Chain) *Factory {
	f := &Factory{chain: chain}
	f.SetDatabases(databases)
	return f
}

// SetDatabases replaces the configuration used for connections opened
// from now on. Open connections are not affected.
func (f *Factory) SetDatabases(databases map[string]config.Database) {
	copied := make(map[string]config.Database, len(databases))
	for name, db := range databases {
		copied[name] = db
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.databases = copied
}

// NewConnection opens a new connection to the named database and applies
// its configured attributes.
func (f *Factory) NewConnection(ctx context.Context, name string) (Conn, error) {
	f.mu.RLock()
	cfg, ok := f.databases[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: database %q is not configured", ErrDatabase, name)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.ParseDriver(cfg.DSN)
	}
	driver, ok = config.NormalizeDriver(driver)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported driver %q for database %q", ErrDatabase, cfg.Driver, name)
	}

	db, err := openDB(driver, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed opening database %q: %w", ErrDatabase, name, err)
	}

	if err := applyAttributes(ctx, db, name, cfg.Attributes); err != nil {
		db.Close()
		return nil, err
	}

	conn, err := Open(ctx, name, driver, db, f.chain)
	if err != nil {
		db.Close()
		return nil, err
	}
	return conn, nil
}

func openDB(driver string, cfg config.Database) (*sql.DB, error) {
	dsn := stripDriverPrefix(driver, cfg.DSN)

	switch driver {
	case "mysql":
		formatted, err := mysqlDSN(dsn, cfg.Username, cfg.Password)
		if err != nil {
			return nil, err
		}
		return sql.Open("mysql", formatted)

	case "postgres":
		formatted, err := postgresDSN(dsn, cfg.Username, cfg.Password)
		if err != nil {
			return nil, err
		}
		return sql.Open("postgres", formatted)

	case "pgx":
		connConfig, err := pgx.ParseConfig(pdoToKeyValue(dsn))
		if err != nil {
			return nil, err
		}
		if cfg.Username != "" {
			connConfig.User = cfg.Username
		}
		if cfg.Password != "" {
			connConfig.Password = cfg.Password
		}
		return stdlib.OpenDB(*connConfig), nil

	case "sqlite":
		return sql.Open("sqlite3", dsn)
	}

	return nil, fmt.Errorf("unsupported driver %q", driver)
}

// stripDriverPrefix removes a "driver:" prefix as found in PDO style DSNs.
// URLs and sqlite "file:" URIs are left alone.
func stripDriverPrefix(driver, dsn string) string {
	prefix, rest, ok := strings.Cut(dsn, ":")
	if !ok || strings.HasPrefix(rest, "//") || strings.EqualFold(prefix, "file") {
		return dsn
	}
	if normalized, ok := config.NormalizeDriver(prefix); ok && normalized == driver {
		return rest
	}
	return dsn
}

// pdoToKeyValue converts "host=h;dbname=d" into "host=h dbname=d"
func pdoToKeyValue(dsn string) string {
	if strings.Contains(dsn, "://") || !strings.Contains(dsn, ";") {
		return dsn
	}

	parts := strings.Split(dsn, ";")
	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

func postgresDSN(dsn, username, password string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		converted, err := pq.ParseURL(dsn)
		if err != nil {
			return "", err
		}
		dsn = converted
	} else {
		dsn = pdoToKeyValue(dsn)
	}

	if username != "" {
		dsn += " user=" + quotePostgresValue(username)
	}
	if password != "" {
		dsn += " password=" + quotePostgresValue(password)
	}
	return strings.TrimSpace(dsn), nil
}

func quotePostgresValue(value string) string {
	value = strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + value + "'"
}

// mysqlDSN accepts both the native driver format
// ("user:pass@tcp(host:3306)/name") and the PDO key/value format
// ("host=localhost;port=3306;dbname=name").
func mysqlDSN(dsn, username, password string) (string, error) {
	var cfg *mysql.Config
	if isKeyValue(dsn) {
		cfg = mysql.NewConfig()
		host, port := "127.0.0.1", "3306"
		for _, part := range strings.Split(dsn, ";") {
			key, value, _ := strings.Cut(strings.TrimSpace(part), "=")
			switch strings.ToLower(key) {
			case "host":
				host = value
			case "port":
				port = value
			case "dbname":
				cfg.DBName = value
			case "unix_socket":
				cfg.Net = "unix"
				cfg.Addr = value
			case "charset":
				cfg.Params = map[string]string{"charset": value}
			}
		}
		if cfg.Net != "unix" {
			cfg.Net = "tcp"
			cfg.Addr = net.JoinHostPort(host, port)
		}
	} else {
		parsed, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", err
		}
		cfg = parsed
	}

	if username != "" {
		cfg.User = username
	}
	if password != "" {
		cfg.Passwd = password
	}
	return cfg.FormatDSN(), nil
}

func isKeyValue(dsn string) bool {
	key, _, ok := strings.Cut(dsn, "=")
	return ok && !strings.ContainsAny(key, "@/()")
}

// applyAttributes configures the pool in a stable order so the reported
// failure does not depend on map iteration.
func applyAttributes(ctx context.Context, db *sql.DB, name string, attributes map[string]interface{}) error {
	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		raw := attributes[key]
		if err := applyAttribute(ctx, db, key, raw); err != nil {
			return fmt.Errorf("%w: failed setting attribute %q to \"%v\" on database %q: %w", ErrDatabase, key, raw, name, err)
		}
	}
	return nil
}

func applyAttribute(ctx context.Context, db *sql.DB, key string, raw interface{}) error {
	value, err := config.ConvertAttribute(key, raw)
	if err != nil {
		return err
	}

	switch strings.ToLower(key) {
	case config.AttrMaxOpenConns:
		db.SetMaxOpenConns(value.(int))
	case config.AttrMaxIdleConns:
		db.SetMaxIdleConns(value.(int))
	case config.AttrConnMaxLifetime:
		db.SetConnMaxLifetime(value.(time.Duration))
	case config.AttrConnMaxIdleTime:
		db.SetConnMaxIdleTime(value.(time.Duration))
	case config.AttrPing:
		if value.(bool) {
			return db.PingContext(ctx)
		}
	}
	return nil
}
