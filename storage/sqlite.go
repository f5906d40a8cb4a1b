package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"broker_inbox/models"
)

// SQLiteStore holds operational data: the command queue, import runs, and
// their logs. Domain data lives in Postgres.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS import_runs (
		id INTEGER PRIMARY KEY,
		source TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		messages_seen INTEGER DEFAULT 0,
		listings_new INTEGER DEFAULT 0,
		listings_saved INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Import runs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.ImportRun) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO import_runs (source, started_at, status) VALUES (?, ?, ?)`,
		run.Source, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) FinishRun(run *models.ImportRun) error {
	now := time.Now()
	run.FinishedAt = &now
	_, err := s.db.Exec(
		`UPDATE import_runs SET finished_at = ?, status = ?, messages_seen = ?,
			listings_new = ?, listings_saved = ?, errors_count = ? WHERE id = ?`,
		run.FinishedAt, run.Status, run.MessagesSeen,
		run.ListingsNew, run.ListingsSaved, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) AddLog(runID *int64, level models.LogLevel, message string) error {
	_, err := s.db.Exec(
		`INSERT INTO run_logs (run_id, timestamp, level, message) VALUES (?, ?, ?, ?)`,
		runID, time.Now(), level, message)
	return err
}

// GetRunLogs returns the log lines recorded for one run, oldest first.
func (s *SQLiteStore) GetRunLogs(runID int64, limit int) ([]models.RunLog, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, timestamp, level, message FROM run_logs
		WHERE run_id = ? ORDER BY timestamp LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.RunLog
	for rows.Next() {
		var l models.RunLog
		var rid sql.NullInt64
		if err := rows.Scan(&l.ID, &rid, &l.Timestamp, &l.Level, &l.Message); err != nil {
			return nil, err
		}
		if rid.Valid {
			l.RunID = &rid.Int64
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) GetRecentRuns(limit int) ([]models.ImportRun, error) {
	rows, err := s.db.Query(
		`SELECT id, source, started_at, finished_at, status, messages_seen,
			listings_new, listings_saved, errors_count
		FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ImportRun
	for rows.Next() {
		var r models.ImportRun
		if err := rows.Scan(
			&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.MessagesSeen, &r.ListingsNew, &r.ListingsSaved, &r.ErrorsCount,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// Commands
// =============================================================================

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) error {
	var paramsJSON []byte
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params) VALUES (?, ?)`, cmd, paramsJSON)
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(
		`SELECT id, command, params, created_at FROM commands
		WHERE processed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}
