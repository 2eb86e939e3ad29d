package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/smartclass/portal/core"
	appfs "github.com/smartclass/portal/fs"
)

const (
	migrationsDir = "migrations"
	maintenanceDB = "postgres"
	pingAttempts  = 30
)

// dsn builds the connection URL of dbName, using the admin credentials when asked and configured.
func dsn(conf core.DatabaseConfig, dbName string, admin bool) string {
	creds := url.UserPassword(conf.User, conf.Password)
	if admin && conf.AdminUser != "" {
		creds = url.UserPassword(conf.AdminUser, conf.AdminPassword)
	}

	q := url.Values{"timezone": {"utc"}, "sslmode": {"require"}}
	if conf.DisableTLS {
		q.Set("sslmode", "disable")
	}

	u := url.URL{Scheme: conf.Engine, User: creds, Host: conf.Address(), Path: dbName, RawQuery: q.Encode()}
	return u.String()
}

// connect opens dbName and blocks until it answers.
func connect(conf *core.Config, dbName string, admin bool) (*sqlx.DB, error) {
	db, err := sqlx.Open(conf.Database.Engine, dsn(conf.Database, dbName, admin))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = waitReady(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects to the application database as the application user.
func Open(conf *core.Config) (*sqlx.DB, error) {
	return connect(conf, conf.Database.Name, false)
}

// waitReady pings db until it answers, backing off a little more after every failure.
func waitReady(db *sql.DB) error {
	var err error
	for i := 1; i <= pingAttempts; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(i) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "database not ready")
}

func rowExists(db *sqlx.DB, query, arg string) (bool, error) {
	var found bool
	if err := db.Get(&found, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return found, nil
}

// CreateIfNotExist provisions the application role (as admin), then the application database (as that role).
func CreateIfNotExist(conf *core.Config) error {
	admin, err := connect(conf, maintenanceDB, true)
	if err != nil {
		return err
	}
	defer func() { _ = admin.Close() }()

	if conf.Database.User != "" {
		found, err := rowExists(admin, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
		if err != nil {
			return errors.Wrap(err, "looking up app role")
		}
		if !found {
			// DDL does not take bind parameters
			stmt := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
			if _, err = admin.Exec(stmt); err != nil {
				return errors.Wrap(err, "creating app role")
			}
		}
	}

	app, err := connect(conf, maintenanceDB, false)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	found, err := rowExists(app, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "looking up database")
	}
	if found {
		return nil
	}
	_, err = app.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name))
	return errors.Wrap(err, "creating database")
}

// Migrate runs a goose command (up, down, status, redo, ...) against the embedded migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	return errors.Wrapf(goose.Run(command, db, migrationsDir, args...), "migrating database (%s)", command)
}

// HealthChecker reports whether the database answers pings.
type HealthChecker struct {
	DB *sqlx.DB
}

var _ core.HealthChecker = (*HealthChecker)(nil)

func (hc HealthChecker) Healthy(ctx context.Context) bool {
	return hc.DB.PingContext(ctx) == nil
}
