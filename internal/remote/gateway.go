// Package remote is the gateway to the authoritative relational store. It
// exposes CRUD over the account profile and the three slip tables and maps
// driver failures onto a small set of error codes.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jask/slipbook/internal/slip"
)

// Gateway bundles the account store and the slip tables over one connection.
type Gateway struct {
	db  *gorm.DB
	c   *conn
	log logrus.FieldLogger

	Accounts   *Accounts
	Incentives *SlipTable[slip.Incentive, IncentiveRow]
	Salaries   *SlipTable[slip.Salary, SalaryRow]
	Profits    *SlipTable[slip.Profits, ProfitsRow]
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout bounds every gateway call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.c.timeout = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Gateway) { g.log = l }
}

// conn is shared by the tables of one gateway.
type conn struct {
	db      *gorm.DB
	timeout time.Duration
	log     logrus.FieldLogger
}

func (c *conn) begin(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if c.timeout <= 0 {
		return c.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return c.db.WithContext(ctx), cancel
}

func (c *conn) fail(table, op string, err error) error {
	err = classify(table+"."+op, err)
	c.log.WithFields(logrus.Fields{
		"table": table,
		"op":    op,
		"code":  CodeOf(err),
	}).WithError(err).Debug("remote call failed")
	return err
}

// Dialector returns the gorm dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(driver) {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("unknown remote driver %q", driver)
}

// Open connects to the store named by driver and dsn and migrates its schema.
func Open(driver, dsn string, opts ...Option) (*Gateway, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect remote: %w", err)
	}
	return New(db, opts...)
}

// New wraps an open connection and migrates the schema.
func New(db *gorm.DB, opts ...Option) (*Gateway, error) {
	g := &Gateway{db: db, c: &conn{db: db}, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(g)
	}
	g.c.log = g.log

	for _, m := range []any{&AccountRow{}, &IncentiveRow{}, &SalaryRow{}, &ProfitsRow{}} {
		if err := db.AutoMigrate(m); err != nil {
			return nil, fmt.Errorf("automigrate %T: %w", m, err)
		}
	}

	g.Accounts = &Accounts{c: g.c}
	g.Incentives = &SlipTable[slip.Incentive, IncentiveRow]{c: g.c, table: "incentive_slips", toRow: incentiveToRow, fromRow: incentiveFromRow}
	g.Salaries = &SlipTable[slip.Salary, SalaryRow]{c: g.c, table: "salary_slips", toRow: salaryToRow, fromRow: salaryFromRow}
	g.Profits = &SlipTable[slip.Profits, ProfitsRow]{c: g.c, table: "profits_slips", toRow: profitsToRow, fromRow: profitsFromRow}
	return g, nil
}

// DB exposes the connection for tooling and tests.
func (g *Gateway) DB() *gorm.DB { return g.db }

func (g *Gateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
