package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
)

// Connection attributes applied to the connection pool of a database
const (
	AttrMaxOpenConns    = "max_open_conns"
	AttrMaxIdleConns    = "max_idle_conns"
	AttrConnMaxLifetime = "conn_max_lifetime"
	AttrConnMaxIdleTime = "conn_max_idle_time"
	AttrPing            = "ping"
)

// ErrUnknownAttribute is returned by ConvertAttribute for unsupported names
var ErrUnknownAttribute = errors.New("unknown attribute")

var attributes = map[string]func(interface{}) (interface{}, error){
	AttrMaxOpenConns:    func(v interface{}) (interface{}, error) { return cast.ToIntE(v) },
	AttrMaxIdleConns:    func(v interface{}) (interface{}, error) { return cast.ToIntE(v) },
	AttrConnMaxLifetime: toDuration,
	AttrConnMaxIdleTime: toDuration,
	AttrPing:            func(v interface{}) (interface{}, error) { return cast.ToBoolE(v) },
}

func toDuration(v interface{}) (interface{}, error) {
	d, err := cast.ToDurationE(v)
	if err != nil {
		return nil, err
	}
	if d < 0 {
		return nil, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// ConvertAttribute converts a configured attribute value to its typed form:
// int for the connection counts, time.Duration for the lifetimes and bool
// for ping. Names are case-insensitive.
func ConvertAttribute(name string, value interface{}) (interface{}, error) {
	convert, ok := attributes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAttribute, name)
	}
	return convert(value)
}

// PostProcess validates every database entry, expands ${VAR} references in
// connection settings, resolves the driver and converts attributes.
func (c *Config) PostProcess() error {
	for _, name := range c.Names() {
		db := c.Databases[name]

		db.DSN = os.ExpandEnv(db.DSN)
		db.Username = os.ExpandEnv(db.Username)
		db.Password = os.ExpandEnv(db.Password)

		if db.DSN == "" {
			return fmt.Errorf("%w: missing dsn in configuration for database %q", ErrConfiguration, name)
		}

		driver := db.Driver
		if driver == "" {
			driver = ParseDriver(db.DSN)
		}
		normalized, ok := NormalizeDriver(driver)
		if !ok {
			return fmt.Errorf("%w: unsupported driver %q in configuration for database %q", ErrConfiguration, driver, name)
		}
		db.Driver = normalized

		converted := make(map[string]interface{}, len(db.Attributes))
		for attr, value := range db.Attributes {
			v, err := ConvertAttribute(attr, value)
			if errors.Is(err, ErrUnknownAttribute) {
				return fmt.Errorf("%w: invalid attribute %q specified in configuration for database %q", ErrConfiguration, attr, name)
			}
			if err != nil {
				return fmt.Errorf("%w: invalid value given for attribute %q, in configuration for database %q", ErrConfiguration, attr, name)
			}
			converted[strings.ToLower(attr)] = v
		}
		db.Attributes = converted

		c.Databases[name] = db
	}
	return nil
}

// ParseDriver extracts the driver from a DSN: the URL scheme
// ("postgres://...") or the PDO style prefix ("mysql:host=...").
func ParseDriver(dsn string) string {
	if i := strings.Index(dsn, "://"); i > 0 {
		return dsn[:i]
	}
	if i := strings.Index(dsn, ":"); i > 0 {
		return dsn[:i]
	}
	return ""
}

// NormalizeDriver maps driver aliases onto the supported driver names:
// mysql, postgres, pgx and sqlite.
func NormalizeDriver(driver string) (string, bool) {
	switch strings.ToLower(driver) {
	case "mysql":
		return "mysql", true
	case "postgres", "postgresql", "pgsql":
		return "postgres", true
	case "pgx":
		return "pgx", true
	case "sqlite", "sqlite3", "file":
		return "sqlite", true
	}
	return "", false
}
