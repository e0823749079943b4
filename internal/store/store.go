// Package store exports check results to a SQLite database, the format
// downstream dashboards ingest: one row per run, plus diagnostics,
// dependencies and coverage tables keyed by run id.
package store

import (
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"plcheck/internal/checker"
	"plcheck/internal/profiler"
)

// Export writes one batch of results. The file is created when missing
// and appended to otherwise; all rows of a batch commit in a single
// immediate transaction.
func Export(path string, results []*checker.Result, coverage map[string]profiler.Coverage) (err error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA synchronous = NORMAL", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode = WAL", nil); err != nil {
		return err
	}
	if err := createTables(conn); err != nil {
		return err
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	now := time.Now().Unix()
	for _, res := range results {
		runID, insErr := insertRun(conn, res, now)
		if insErr != nil {
			err = insErr
			return err
		}
		if insErr := insertDiagnostics(conn, runID, res); insErr != nil {
			err = insErr
			return err
		}
		if insErr := insertDependencies(conn, runID, res); insErr != nil {
			err = insErr
			return err
		}
		if cov, ok := coverage[res.Routine.Signature]; ok {
			if insErr := insertCoverage(conn, runID, cov); insErr != nil {
				err = insErr
				return err
			}
		}
	}
	return nil
}

func createTables(conn *sqlite.Conn) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	oid INTEGER NOT NULL,
	signature TEXT NOT NULL,
	checked INTEGER NOT NULL,
	has_errors INTEGER NOT NULL,
	checked_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS diagnostics (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	level TEXT NOT NULL,
	sqlstate TEXT NOT NULL,
	line INTEGER,
	stmt TEXT,
	message TEXT NOT NULL,
	detail TEXT,
	hint TEXT,
	query TEXT,
	position INTEGER
);
CREATE TABLE IF NOT EXISTS dependencies (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	kind TEXT NOT NULL,
	oid INTEGER NOT NULL,
	schema TEXT,
	name TEXT NOT NULL,
	signature TEXT
);
CREATE TABLE IF NOT EXISTS coverage (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	statements INTEGER NOT NULL,
	executed_statements INTEGER NOT NULL,
	branches INTEGER NOT NULL,
	executed_branches INTEGER NOT NULL
);`
	return sqlitex.ExecuteScript(conn, schema, nil)
}

func insertRun(conn *sqlite.Conn, res *checker.Result, ts int64) (int64, error) {
	stmt, err := conn.Prepare(
		`INSERT INTO runs (oid, signature, checked, has_errors, checked_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	stmt.BindInt64(1, int64(res.Routine.Oid))
	stmt.BindText(2, res.Routine.Signature)
	stmt.BindBool(3, res.IsChecked)
	stmt.BindBool(4, res.HasErrors())
	stmt.BindInt64(5, ts)
	if _, err := stmt.Step(); err != nil {
		return 0, err
	}
	if err := stmt.Reset(); err != nil {
		return 0, err
	}
	return conn.LastInsertRowID(), nil
}

func insertDiagnostics(conn *sqlite.Conn, runID int64, res *checker.Result) error {
	stmt, err := conn.Prepare(
		`INSERT INTO diagnostics (run_id, level, sqlstate, line, stmt, message, detail, hint, query, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	for i := range res.Diagnostics {
		d := &res.Diagnostics[i]
		stmt.BindInt64(1, runID)
		stmt.BindText(2, d.Severity.String())
		stmt.BindText(3, d.Code.String())
		stmt.BindInt64(4, int64(d.Span.Line))
		stmt.BindText(5, d.StmtKind)
		stmt.BindText(6, d.Message)
		stmt.BindText(7, d.Detail)
		stmt.BindText(8, d.Hint)
		stmt.BindText(9, d.Query)
		stmt.BindInt64(10, int64(d.Span.Pos))
		if _, err := stmt.Step(); err != nil {
			return err
		}
		if err := stmt.Reset(); err != nil {
			return err
		}
	}
	return nil
}

func insertDependencies(conn *sqlite.Conn, runID int64, res *checker.Result) error {
	stmt, err := conn.Prepare(
		`INSERT INTO dependencies (run_id, kind, oid, schema, name, signature) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	for _, dep := range res.Dependencies {
		stmt.BindInt64(1, runID)
		stmt.BindText(2, string(dep.Kind))
		stmt.BindInt64(3, int64(dep.Oid))
		stmt.BindText(4, dep.Schema)
		stmt.BindText(5, dep.Name)
		stmt.BindText(6, dep.Signature)
		if _, err := stmt.Step(); err != nil {
			return err
		}
		if err := stmt.Reset(); err != nil {
			return err
		}
	}
	return nil
}

func insertCoverage(conn *sqlite.Conn, runID int64, cov profiler.Coverage) error {
	stmt, err := conn.Prepare(
		`INSERT INTO coverage (run_id, statements, executed_statements, branches, executed_branches)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	stmt.BindInt64(1, runID)
	stmt.BindInt64(2, int64(cov.Statements))
	stmt.BindInt64(3, int64(cov.ExecutedStatements))
	stmt.BindInt64(4, int64(cov.Branches))
	stmt.BindInt64(5, int64(cov.ExecutedBranches))
	if _, err := stmt.Step(); err != nil {
		return err
	}
	return stmt.Reset()
}
