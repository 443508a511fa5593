package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// stubConn is a minimal database/sql driver.Conn standing in for a real
// Postgres connection in tests: a single-table bucket/payload key-value
// store recognizing just the statements this package's Service issues.
type stubConn struct {
	mu    sync.Mutex
	state map[string][]byte
}

func newStubDB() *sql.DB {
	conn := &stubConn{state: make(map[string][]byte)}
	name := fmt.Sprintf("itemstate-stubpg-%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return &stubTx{}, nil }
func (c *stubConn) Ping(context.Context) error          { return nil }

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	upper := strings.ToUpper(strings.TrimSpace(query))
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "INSERT INTO"):
		if len(args) < 2 {
			return nil, fmt.Errorf("stub: expected bucket+payload args, got %d", len(args))
		}
		bucket, _ := args[0].Value.(string)
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("stub: payload arg not []byte")
		}
		c.state[bucket] = payload
		return driver.RowsAffected(1), nil
	default:
		return driver.RowsAffected(0), nil
	}
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	upper := strings.ToUpper(strings.TrimSpace(query))
	c.mu.Lock()
	defer c.mu.Unlock()
	if !strings.HasPrefix(upper, "SELECT PAYLOAD") {
		return &stubRows{}, nil
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("stub: select missing bucket arg")
	}
	bucket, _ := args[0].Value.(string)
	payload, ok := c.state[bucket]
	if !ok {
		return &stubRows{}, nil
	}
	return &stubRows{rows: [][]driver.Value{{payload}}}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return []string{"payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
