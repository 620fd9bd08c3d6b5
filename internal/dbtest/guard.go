package dbtest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var (
	tableRegex = regexp.MustCompile("^\\s*CREATE TABLE `([\\-_a-zA-Z]+)` \\(")
	viewRegex  = regexp.MustCompile("^\\s*CREATE (?:OR REPLACE )?VIEW `([\\-_a-zA-Z]+)` AS")
)

// CleanupGuard drops everything SetupTables created once Close is called:
// views first, then tables in the reverse order they were created in.
type CleanupGuard struct {
	Views    []string
	Tables   []string
	Disabled bool

	conn   *sql.Conn
	logf   func(format string, args ...any)
	closed bool
}

func (g *CleanupGuard) log(format string, args ...any) {
	if g.logf != nil {
		g.logf(format, args...)
		return
	}
	slog.Info(fmt.Sprintf(format, args...))
}

// Close is safe to call more than once, only the first call does anything.
func (g *CleanupGuard) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	defer g.conn.Close()

	if g.Disabled {
		g.log("cleanup disabled, keeping views %v and tables %v", g.Views, g.Tables)
		return nil
	}

	ctx := context.Background()
	var errlist []error
	for _, view := range g.Views {
		_, err := g.conn.ExecContext(ctx, fmt.Sprintf("DROP VIEW IF EXISTS `%s`", view))
		if err != nil {
			errlist = append(errlist, fmt.Errorf("drop view %s: %w", view, err))
		}
	}
	for i := len(g.Tables) - 1; i >= 0; i-- {
		_, err := g.conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", g.Tables[i]))
		if err != nil {
			errlist = append(errlist, fmt.Errorf("drop table %s: %w", g.Tables[i], err))
		}
	}
	return errors.Join(errlist...)
}

// ObjectName returns the name of the table or view a statement creates.
func ObjectName(stmt string) (name string, view bool, err error) {
	if match := tableRegex.FindStringSubmatch(stmt); match != nil {
		return match[1], false, nil
	}
	if match := viewRegex.FindStringSubmatch(stmt); match != nil {
		return match[1], true, nil
	}
	return "", false, fmt.Errorf("expected a table or view definition, got '%s'", firstLine(stmt))
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stmt), "\n")
	return line
}

// SetupTables runs every statement on conn and records what it created. The
// guard takes ownership of conn and is returned even on error so whatever was
// created before the failure still gets dropped.
func SetupTables(ctx context.Context, conn *sql.Conn, statements []string) (*CleanupGuard, error) {
	guard := &CleanupGuard{conn: conn}
	for _, stmt := range statements {
		name, view, err := ObjectName(stmt)
		if err != nil {
			return guard, err
		}
		_, err = conn.ExecContext(ctx, stmt)
		if err != nil {
			return guard, fmt.Errorf("create %s: %w", name, err)
		}
		if view {
			guard.Views = append(guard.Views, name)
		} else {
			guard.Tables = append(guard.Tables, name)
		}
	}
	return guard, nil
}

// Exec runs a raw statement on the guarded connection.
func (g *CleanupGuard) Exec(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	return g.conn.ExecContext(ctx, stmt, args...)
}

// VerifyEmpty fails if the database contains any user table or view.
func VerifyEmpty(ctx context.Context, database *sql.DB) error {
	rows, err := database.QueryContext(
		ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name",
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(names) > 0 {
		return fmt.Errorf("database is not empty: %s", strings.Join(names, ", "))
	}
	return nil
}
