package database

import (
	"context"
	"fmt"
	"net"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Supported database/sql driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

func init() {
	// sqlx does not know the pure-Go sqlite driver name; it uses '?' like sqlite3.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Options describes how to reach the database.  When DSN is empty a MySQL
// DSN is assembled from the discrete fields.
type Options struct {
	Driver string
	DSN    string
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
}

// Open connects to the configured database and verifies the connection.
func Open(opts Options) (*sqlx.DB, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverMySQL
	}
	dsn := opts.DSN
	if dsn == "" {
		if driver != DriverMySQL {
			return nil, fmt.Errorf("database: DSN is required for driver %q", driver)
		}
		dsn = mysqlDSN(opts)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	if driver == DriverSQLite {
		// one writer at a time; an in-memory database also lives only as long as its connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// mysqlDSN builds a DSN where DATETIME scans into time.Time in UTC and
// UPDATE reports matched rather than changed rows.
func mysqlDSN(opts Options) string {
	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(opts.Host, opts.Port)
	cfg.DBName = opts.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}
