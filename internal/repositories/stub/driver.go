package stub

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
)

// The stub repositories hand out *sql.Tx values so code under test can run its
// real begin/commit/rollback flow; the transactions come from a no-op driver
// and carry no state of their own.

type nopDriver struct{}

func (nopDriver) Open(string) (driver.Conn, error) { return nopConn{}, nil }

type nopConn struct{}

func (nopConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("stub: not supported") }
func (nopConn) Close() error                        { return nil }
func (nopConn) Begin() (driver.Tx, error)           { return nopTx{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

var (
	nopDB     *sql.DB
	nopDBOnce sync.Once
)

func txSource() *sql.DB {
	nopDBOnce.Do(func() {
		sql.Register("rws-stub", nopDriver{})
		nopDB, _ = sql.Open("rws-stub", "")
	})
	return nopDB
}
