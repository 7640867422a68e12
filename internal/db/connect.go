package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options selects the database backend. SQLite is the default for
// single-machine deployments; MySQL serves shared setups.
type Options struct {
	Driver   string // "sqlite" or "mysql"
	Path     string // sqlite file path
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN builds the MySQL DSN for the given options.
func DSN(o Options) string {
	user := o.User
	if user == "" {
		user = "root"
	}
	cred := user
	if o.Password != "" {
		cred = user + ":" + o.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", cred, o.Host, o.Port, o.Database)
}

// Connect opens a GORM connection for the configured backend.
func Connect(o Options) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	switch o.Driver {
	case "", "sqlite":
		path := o.Path
		if path == "" {
			path = "ratchet.db"
		}
		db, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
		}
		return db, nil
	case "mysql":
		db, err := gorm.Open(mysql.Open(DSN(o)), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", o.Host, o.Port, o.Database, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("db: unknown driver %q", o.Driver)
	}
}
