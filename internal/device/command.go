package device

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Environment variables the vendor CLI reads its connection from.
const (
	EnvConnString = "PYZKACCESS_CONNECT_CONNSTR"
	EnvModel      = "PYZKACCESS_CONNECT_MODEL"
)

// Runner executes a command and returns its stdout and stderr.
type Runner func(ctx context.Context, name string, args, env []string) (stdout, stderr []byte, err error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args, env []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// CommandDriver reads terminals through the pyzkaccess command line tool,
// which prints the Transaction table as CSV.
type CommandDriver struct {
	Command  string
	Model    string
	Timeout  time.Duration
	Location *time.Location
	Run      Runner
	Logger   *zap.Logger
}

// Open records the connection string; the command runs on Transactions.
func (d *CommandDriver) Open(ctx context.Context, connstr string) (Conn, error) {
	if d.Command == "" {
		return nil, errors.New("device command is not configured")
	}
	return &commandConn{driver: d, connstr: connstr}, nil
}

type commandConn struct {
	driver  *CommandDriver
	connstr string
}

func (c *commandConn) Transactions(ctx context.Context, unreadOnly bool) (Rows, error) {
	d := c.driver

	args := []string{"connect", "ENV", "--format", "csv", "table", "Transaction"}
	if unreadOnly {
		args = append(args, "unread")
	}
	env := []string{EnvConnString + "=" + c.connstr}
	if d.Model != "" {
		env = append(env, EnvModel+"="+d.Model)
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	run := d.Run
	if run == nil {
		run = ExecRunner
	}

	if d.Logger != nil {
		d.Logger.Debug("running device command",
			zap.String("command", d.Command),
			zap.Strings("args", args),
			zap.Bool("unread_only", unreadOnly))
	}

	stdout, stderr, err := run(ctx, d.Command, args, env)
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return nil, fmt.Errorf("device command failed: %s", msg)
	}
	if err != nil {
		return nil, fmt.Errorf("device command failed: %w", err)
	}

	rows, err := DecodeCSV(bytes.NewReader(stdout), d.Location)
	if err != nil {
		return nil, err
	}
	return NewSliceRows(rows), nil
}

func (c *commandConn) Close() error {
	return nil
}

// DecodeCSV reads a Transaction table with a header row. The card and time
// columns are required; the time of a row without a card is not parsed.
func DecodeCSV(r io.Reader, loc *time.Location) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"card", "time"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("transaction table has no %q column", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction line %d: %w", line, err)
		}

		row := Row{
			Card:       field(record, "card"),
			Pin:        field(record, "pin"),
			Door:       field(record, "door"),
			EventType:  field(record, "event_type"),
			EntryExit:  field(record, "entry_exit"),
			VerifyMode: field(record, "verify_mode"),
		}
		if row.Card != "" {
			row.Time, err = ParseDeviceTime(field(record, "time"), loc)
			if err != nil {
				return nil, fmt.Errorf("transaction line %d: %w", line, err)
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
