package dml

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/assembly-hub/dml/dbtype"
	"github.com/assembly-hub/dml/internal/logging"
)

// Config is the yaml configuration of a connection and its static schema.
type Config struct {
	// Dialect is a dbtype name: oracle, mysql, sqlserver, postgres, opengauss, sqlite3 ...
	Dialect string `yaml:"dialect"`
	// Driver overrides the database/sql driver name.
	Driver string `yaml:"driver"`
	// DSN overrides the data source built from the fields below.
	DSN       string `yaml:"dsn"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	DBName    string `yaml:"dbname"`
	DSNParams string `yaml:"dsn_params"`

	MaxOpenConn int `yaml:"max_open_conn"`
	MaxIdleConn int `yaml:"max_idle_conn"`
	// 毫秒
	ConnMaxLifeTime int `yaml:"conn_max_life_time"`
	ConnMaxIdleTime int `yaml:"conn_max_idle_time"`

	Log    logging.Config `yaml:"log"`
	Tables []TableConfig  `yaml:"tables"`
}

type TableConfig struct {
	Name     string         `yaml:"name"`
	Sequence string         `yaml:"sequence"`
	Columns  []ColumnConfig `yaml:"columns"`
	Uniques  []UniqueConfig `yaml:"uniques"`
}

type ColumnConfig struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	PrimaryKey    bool   `yaml:"pk"`
	AutoIncrement bool   `yaml:"auto_increment"`
	NotNull       bool   `yaml:"not_null"`
}

type UniqueConfig struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

// LoadConfig reads and validates a yaml config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := new(Config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if _, err := cfg.DBType(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) DBType() (int, error) {
	t, err := dbtype.Parse(c.Dialect)
	if err != nil {
		return 0, fmt.Errorf("config dialect: %w", err)
	}
	if dbConfMap[t] == nil {
		return 0, fmt.Errorf("config dialect %s: %w", c.Dialect, ErrDBType)
	}
	return t, nil
}

// Reference turns the tables section into a schema registry.
func (c *Config) Reference() (ref *Reference, err error) {
	t, err := c.DBType()
	if err != nil {
		return nil, err
	}
	// 注册失败时 Reference 会 panic
	defer func() {
		if p := recover(); p != nil {
			ref, err = nil, fmt.Errorf("config tables: %v", p)
		}
	}()

	ref = NewReference(t)
	for _, tc := range c.Tables {
		ts := &TableSchema{Name: tc.Name, SequenceName: tc.Sequence}
		for _, cc := range tc.Columns {
			col := NewColumn(cc.Name, cc.Type)
			col.AutoIncrement = cc.AutoIncrement
			col.AllowNull = !cc.NotNull
			ts.Columns = append(ts.Columns, col)
			if cc.PrimaryKey {
				ts.PrimaryKey = append(ts.PrimaryKey, cc.Name)
			}
		}
		for _, uc := range tc.Uniques {
			ts.Uniques = append(ts.Uniques, Constraint{Name: uc.Name, Columns: uc.Columns})
		}
		ref.AddTable(ts)
	}
	return ref, nil
}
