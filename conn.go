package dml

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/assembly-hub/dml/dbtype"
)

// 各数据库默认的 database/sql 驱动名，驱动由调用方（或 cmd/dmlgen）注册
var defaultDriver = map[int]string{
	dbtype.MySQL:     "mysql",
	dbtype.MariaDB:   "mysql",
	dbtype.SQLServer: "sqlserver",
	dbtype.Postgres:  "pgx",
	dbtype.OpenGauss: "opengauss",
	dbtype.SQLite2:   "sqlite3",
	dbtype.SQLite3:   "sqlite3",
	dbtype.Oracle:    "oci8",
}

type Client struct {
	cfg *Config
}

func NewClient(cfg *Config) *Client {
	c := new(Client)
	c.cfg = cfg
	return c
}

// DriverName returns the configured driver, or the dialect's default one.
func (c *Client) DriverName() (string, error) {
	if c.cfg.Driver != "" {
		return c.cfg.Driver, nil
	}
	t, err := c.cfg.DBType()
	if err != nil {
		return "", err
	}
	return defaultDriver[t], nil
}

// DataSource returns the configured DSN, or builds one in the dialect's format.
func (c *Client) DataSource() (string, error) {
	if c.cfg.DSN != "" {
		return c.cfg.DSN, nil
	}
	t, err := c.cfg.DBType()
	if err != nil {
		return "", err
	}

	cfg := c.cfg
	var dsn string
	switch t {
	case dbtype.MySQL, dbtype.MariaDB:
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		if cfg.DSNParams != "" {
			dsn += "?" + cfg.DSNParams
		}
	case dbtype.Postgres, dbtype.OpenGauss:
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DBName)
		if cfg.DSNParams != "" {
			dsn += " " + cfg.DSNParams
		}
	case dbtype.SQLServer:
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.Username, cfg.Password),
			Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			RawQuery: "database=" + url.QueryEscape(cfg.DBName),
		}
		if cfg.DSNParams != "" {
			u.RawQuery += "&" + cfg.DSNParams
		}
		dsn = u.String()
	case dbtype.SQLite2, dbtype.SQLite3:
		dsn = cfg.DBName
		if cfg.DSNParams != "" {
			dsn += "?" + cfg.DSNParams
		}
	case dbtype.Oracle:
		dsn = fmt.Sprintf("%s/%s@%s:%d/%s", cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		if cfg.DSNParams != "" {
			dsn += "?" + cfg.DSNParams
		}
	default:
		return "", ErrDBType
	}
	return dsn, nil
}

func (c *Client) Connect() (*sql.DB, error) {
	driver, err := c.DriverName()
	if err != nil {
		return nil, err
	}
	dsn, err := c.DataSource()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(time.Duration(c.cfg.ConnMaxLifeTime) * time.Millisecond)
	db.SetConnMaxIdleTime(time.Duration(c.cfg.ConnMaxIdleTime) * time.Millisecond)
	db.SetMaxOpenConns(c.cfg.MaxOpenConn)
	db.SetMaxIdleConns(c.cfg.MaxIdleConn)
	return db, nil
}
