// Package worktreestore provides SQLite-backed persistence for worktree
// metadata, keyed by (project path, branch).
package worktreestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/automaker/automaker/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed worktree metadata persistence
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite handles one writer at a time; a single pooled connection keeps
	// interleaved runner and API writes from tripping over SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, err
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the metadata record for (projectPath, branch).
// Returns (nil, nil) when no record exists.
func (s *Store) Get(projectPath, branch string) (*domain.WorktreeMetadata, error) {
	row := s.db.QueryRow(`
		SELECT branch, created_at, init_script_ran, init_script_status, init_script_error, pr
		FROM worktrees WHERE project_path = ? AND branch = ?
	`, projectPath, branch)

	meta, err := scanMetadata(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return meta, err
}

// Put writes the full record for (projectPath, branch), replacing any
// existing row. Callers own the merge: fields they do not manage (notably
// PR) must already be carried over from a prior Get.
func (s *Store) Put(projectPath string, meta *domain.WorktreeMetadata) error {
	var pr sql.NullString
	if len(meta.PR) > 0 {
		pr = sql.NullString{String: string(meta.PR), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO worktrees (project_path, branch, created_at, init_script_ran, init_script_status, init_script_error, pr, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_path, branch) DO UPDATE SET
			created_at = excluded.created_at,
			init_script_ran = excluded.init_script_ran,
			init_script_status = excluded.init_script_status,
			init_script_error = excluded.init_script_error,
			pr = excluded.pr,
			updated_at = excluded.updated_at
	`,
		projectPath,
		meta.Branch,
		meta.CreatedAt,
		meta.InitScriptRan,
		string(meta.InitScriptStatus),
		meta.InitScriptError,
		pr,
		time.Now(),
	)
	return err
}

// Delete removes the record for (projectPath, branch)
func (s *Store) Delete(projectPath, branch string) error {
	_, err := s.db.Exec(`DELETE FROM worktrees WHERE project_path = ? AND branch = ?`,
		projectPath, branch)
	return err
}

// WorktreeRecord pairs a metadata record with its owning project
type WorktreeRecord struct {
	ProjectPath string
	Metadata    *domain.WorktreeMetadata
}

// ListOptions specifies filters for listing worktree records
type ListOptions struct {
	ProjectPath string
	Status      domain.InitScriptStatus
}

// List returns worktree records matching the given options
func (s *Store) List(opts ListOptions) ([]WorktreeRecord, error) {
	query := `SELECT project_path, branch, created_at, init_script_ran, init_script_status, init_script_error, pr FROM worktrees WHERE 1=1`
	var args []interface{}

	if opts.ProjectPath != "" {
		query += " AND project_path = ?"
		args = append(args, opts.ProjectPath)
	}
	if opts.Status != "" {
		query += " AND init_script_status = ?"
		args = append(args, string(opts.Status))
	}

	query += " ORDER BY project_path, branch"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []WorktreeRecord
	for rows.Next() {
		var rec WorktreeRecord
		var meta domain.WorktreeMetadata
		var status string
		var errMsg, pr sql.NullString

		if err := rows.Scan(&rec.ProjectPath, &meta.Branch, &meta.CreatedAt, &meta.InitScriptRan, &status, &errMsg, &pr); err != nil {
			return nil, err
		}
		meta.InitScriptStatus = domain.InitScriptStatus(status)
		if errMsg.Valid {
			meta.InitScriptError = errMsg.String
		}
		if pr.Valid && pr.String != "" {
			meta.PR = json.RawMessage(pr.String)
		}
		rec.Metadata = &meta
		records = append(records, rec)
	}

	return records, rows.Err()
}

// RecoverDangling marks records left in the running state by a previous
// process as failed. Called once at startup: a record can only be stuck in
// running if the process that spawned the script died before its terminal
// write.
func (s *Store) RecoverDangling() (int, error) {
	res, err := s.db.Exec(`
		UPDATE worktrees
		SET init_script_ran = TRUE, init_script_status = ?, init_script_error = ?, updated_at = ?
		WHERE init_script_status = ?
	`,
		string(domain.InitScriptFailed),
		"Interrupted: runner exited before the script finished",
		time.Now(),
		string(domain.InitScriptRunning),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanMetadata(row *sql.Row) (*domain.WorktreeMetadata, error) {
	var meta domain.WorktreeMetadata
	var status string
	var errMsg, pr sql.NullString

	err := row.Scan(&meta.Branch, &meta.CreatedAt, &meta.InitScriptRan, &status, &errMsg, &pr)
	if err != nil {
		return nil, err
	}

	meta.InitScriptStatus = domain.InitScriptStatus(status)
	if errMsg.Valid {
		meta.InitScriptError = errMsg.String
	}
	if pr.Valid && pr.String != "" {
		meta.PR = json.RawMessage(pr.String)
	}

	return &meta, nil
}
