// Package device reads attendance transactions from access-control terminals.
package device

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultPort    = 4370
	DefaultTimeout = 4000 * time.Millisecond
)

// Row is one transaction record as read from a terminal. Card may be empty
// for non-swipe records such as door or alarm events.
type Row struct {
	Card       string
	Pin        string
	Door       string
	EventType  string
	EntryExit  string
	VerifyMode string
	Time       time.Time
}

// Rows iterates over the transactions of an open connection.
type Rows interface {
	Next() bool
	Row() Row
	Err() error
}

// Conn is an open terminal connection.
type Conn interface {
	Transactions(ctx context.Context, unreadOnly bool) (Rows, error)
	Close() error
}

// Driver opens terminal connections from a connection string.
type Driver interface {
	Open(ctx context.Context, connstr string) (Conn, error)
}

// Options are the connection settings shared by every terminal.
type Options struct {
	Password   string
	Port       int
	Timeout    time.Duration
	UnreadOnly bool
}

// ConnString builds the terminal connection string for address.
func ConnString(address string, opts Options) string {
	port := opts.Port
	if port <= 0 {
		port = DefaultPort
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return fmt.Sprintf("protocol=TCP,ipaddress=%s,port=%d,timeout=%d,passwd=%s",
		address, port, timeout.Milliseconds(), opts.Password)
}

// ConnectionError wraps a failure to open or read a terminal.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Collect opens the terminal at address, passes every transaction row to fn
// and closes the connection whether iteration succeeds or fails.
func Collect(ctx context.Context, driver Driver, address string, opts Options, fn func(Row) error) (err error) {
	conn, err := driver.Open(ctx, ConnString(address, opts))
	if err != nil {
		return &ConnectionError{Address: address, Err: err}
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = &ConnectionError{Address: address, Err: fmt.Errorf("close: %w", closeErr)}
		}
	}()

	rows, err := conn.Transactions(ctx, opts.UnreadOnly)
	if err != nil {
		return &ConnectionError{Address: address, Err: err}
	}

	for rows.Next() {
		if err := fn(rows.Row()); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &ConnectionError{Address: address, Err: fmt.Errorf("rows iteration error: %w", err)}
	}

	return nil
}

// SliceRows adapts an in-memory slice to Rows.
type SliceRows struct {
	rows []Row
	pos  int
}

// NewSliceRows returns Rows over rows.
func NewSliceRows(rows []Row) *SliceRows {
	return &SliceRows{rows: rows, pos: -1}
}

func (r *SliceRows) Next() bool {
	if r.pos+1 >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *SliceRows) Row() Row {
	return r.rows[r.pos]
}

func (r *SliceRows) Err() error {
	return nil
}
