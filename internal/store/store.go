// Package store persists lists, tasks, completions, sensor states, and the
// queue's eligibility memory in SQLite. It is the host side of the core:
// the evaluators only ever see it through the narrow read interfaces they
// declare.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hearthd/hearth/internal/model"
)

// ErrNotFound is returned when a list or task does not exist.
var ErrNotFound = fmt.Errorf("not found")

// Store provides access to the hearth database.
type Store struct {
	db         *sql.DB
	historyCap int
}

// New opens (or creates) the SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, historyCap: model.HistoryCap}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// SetHistoryCap overrides the completion-history cap enforced on writes.
func (s *Store) SetHistoryCap(n int) {
	if n > 0 {
		s.historyCap = n
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lists (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		owner        TEXT DEFAULT '',
		visibility   TEXT NOT NULL DEFAULT 'private',
		shared_with  TEXT DEFAULT '[]',
		is_inbox     INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS items (
		id             TEXT PRIMARY KEY,
		list_id        TEXT NOT NULL REFERENCES lists(id),
		title          TEXT NOT NULL,
		description    TEXT DEFAULT '',
		traits         TEXT NOT NULL DEFAULT '["actionable"]',
		tags           TEXT DEFAULT '[]',
		status         TEXT NOT NULL DEFAULT 'pending',
		needs_detail   INTEGER NOT NULL DEFAULT 0,
		due            DATETIME,
		time_estimate  INTEGER NOT NULL DEFAULT 0,
		buffer_before  INTEGER NOT NULL DEFAULT 0,
		buffer_after   INTEGER NOT NULL DEFAULT 0,
		priority       TEXT DEFAULT '',
		recurrence     TEXT,
		blockers       TEXT,
		requirements   TEXT,
		current_streak INTEGER NOT NULL DEFAULT 0,
		created_at     DATETIME NOT NULL,
		created_by     TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS completions (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id   TEXT NOT NULL REFERENCES items(id),
		actor     TEXT DEFAULT '',
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sensors (
		name       TEXT PRIMARY KEY,
		state      INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS eligibility (
		item_id      TEXT PRIMARY KEY,
		blocked      INTEGER NOT NULL DEFAULT 0,
		unblocked_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- Lists ---

// CreateList inserts a new list.
func (s *Store) CreateList(l *model.List) error {
	shared, _ := json.Marshal(l.SharedWith)
	_, err := s.db.Exec(
		`INSERT INTO lists (id, name, owner, visibility, shared_with, is_inbox) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Owner, l.Visibility, string(shared), boolInt(l.IsInbox),
	)
	if err != nil {
		return fmt.Errorf("insert list: %w", err)
	}
	return nil
}

// GetList returns a list by ID, without its items.
func (s *Store) GetList(id string) (*model.List, error) {
	row := s.db.QueryRow(`SELECT id, name, owner, visibility, shared_with, is_inbox FROM lists WHERE id = ?`, id)
	return scanList(row)
}

// Lists returns every list, without items.
func (s *Store) Lists() ([]*model.List, error) {
	rows, err := s.db.Query(`SELECT id, name, owner, visibility, shared_with, is_inbox FROM lists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	var lists []*model.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(row rowScanner) (*model.List, error) {
	var l model.List
	var shared string
	var inbox int
	err := row.Scan(&l.ID, &l.Name, &l.Owner, &l.Visibility, &shared, &inbox)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan list: %w", err)
	}
	if err := json.Unmarshal([]byte(shared), &l.SharedWith); err != nil {
		return nil, fmt.Errorf("decode shared_with: %w", err)
	}
	l.IsInbox = inbox != 0
	return &l, nil
}

// --- Items ---

const itemColumns = `id, list_id, title, description, traits, tags, status, needs_detail, due,
	time_estimate, buffer_before, buffer_after, priority, recurrence, blockers, requirements,
	current_streak, created_at, created_by`

// CreateItem inserts a task into its list.
func (s *Store) CreateItem(t *model.Task) error {
	if _, err := s.GetList(t.ListID); err != nil {
		return fmt.Errorf("list %s: %w", t.ListID, err)
	}
	query := `INSERT INTO items (` + itemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, itemArgs(t)...); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return s.replaceCompletions(t)
}

// UpdateItem replaces a task row and its completion history.
func (s *Store) UpdateItem(t *model.Task) error {
	args := itemArgs(t)[1:] // id moves to the WHERE clause
	args = append(args, t.ID)
	res, err := s.db.Exec(
		`UPDATE items SET list_id = ?, title = ?, description = ?, traits = ?, tags = ?,
		 status = ?, needs_detail = ?, due = ?, time_estimate = ?, buffer_before = ?,
		 buffer_after = ?, priority = ?, recurrence = ?, blockers = ?, requirements = ?,
		 current_streak = ?, created_at = ?, created_by = ? WHERE id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return s.replaceCompletions(t)
}

func itemArgs(t *model.Task) []any {
	traits, _ := json.Marshal(t.Traits)
	tags, _ := json.Marshal(t.Tags)
	return []any{
		t.ID, t.ListID, t.Title, t.Description, string(traits), string(tags),
		string(t.Status), boolInt(t.NeedsDetail), t.Due,
		t.TimeEstimate, t.BufferBefore, t.BufferAfter, string(t.Priority),
		marshalRecurrence(t.Recurrence), marshalBlockers(t.Blockers), marshalRequirements(t.Requirements),
		t.CurrentStreak, t.CreatedAt, t.CreatedBy,
	}
}

// replaceCompletions rewrites the completion rows for an item from the
// task's in-memory history, enforcing the cap.
func (s *Store) replaceCompletions(t *model.Task) error {
	if _, err := s.db.Exec(`DELETE FROM completions WHERE item_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clear completions: %w", err)
	}
	history := t.CompletionHistory
	if n := len(history); n > s.historyCap {
		history = history[n-s.historyCap:]
	}
	for _, rec := range history {
		if _, err := s.db.Exec(
			`INSERT INTO completions (item_id, actor, timestamp) VALUES (?, ?, ?)`,
			t.ID, rec.Actor, rec.Timestamp,
		); err != nil {
			return fmt.Errorf("insert completion: %w", err)
		}
	}
	return nil
}

// GetItem returns a task with its completion history.
func (s *Store) GetItem(id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	t, err := scanItem(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadCompletions(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListItems returns the tasks of one list, with completion history.
func (s *Store) ListItems(listID string) ([]*model.Task, error) {
	return s.queryItems(`SELECT `+itemColumns+` FROM items WHERE list_id = ? ORDER BY created_at`, listID)
}

// AllItems returns every task across every list, with completion history.
func (s *Store) AllItems() ([]*model.Task, error) {
	return s.queryItems(`SELECT ` + itemColumns + ` FROM items ORDER BY created_at`)
}

func (s *Store) queryItems(query string, args ...any) ([]*model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if err := s.loadCompletions(t); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (s *Store) loadCompletions(t *model.Task) error {
	rows, err := s.db.Query(
		`SELECT actor, timestamp FROM completions WHERE item_id = ? ORDER BY timestamp`, t.ID,
	)
	if err != nil {
		return fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	t.CompletionHistory = nil
	for rows.Next() {
		var rec model.CompletionRecord
		if err := rows.Scan(&rec.Actor, &rec.Timestamp); err != nil {
			return fmt.Errorf("scan completion: %w", err)
		}
		t.CompletionHistory = append(t.CompletionHistory, rec)
	}
	return rows.Err()
}

// DeleteItem removes a task and its completions.
func (s *Store) DeleteItem(id string) error {
	if _, err := s.db.Exec(`DELETE FROM completions WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("delete completions: %w", err)
	}
	res, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus changes just the status of a task.
func (s *Store) SetStatus(id string, status model.Status) error {
	if !model.ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}
	res, err := s.db.Exec(`UPDATE items SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanItem(row rowScanner) (*model.Task, error) {
	var t model.Task
	var traits, tags, status, priority string
	var needsDetail int
	var due sql.NullTime
	var recur, block, req sql.NullString

	err := row.Scan(
		&t.ID, &t.ListID, &t.Title, &t.Description, &traits, &tags, &status, &needsDetail, &due,
		&t.TimeEstimate, &t.BufferBefore, &t.BufferAfter, &priority, &recur, &block, &req,
		&t.CurrentStreak, &t.CreatedAt, &t.CreatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}

	if err := json.Unmarshal([]byte(traits), &t.Traits); err != nil {
		return nil, fmt.Errorf("decode traits: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	t.Status = model.Status(status)
	t.Priority = model.Priority(priority)
	t.NeedsDetail = needsDetail != 0
	if due.Valid {
		d := due.Time
		t.Due = &d
	}
	if err := decodeSpec(recur, &t.Recurrence); err != nil {
		return nil, fmt.Errorf("decode recurrence: %w", err)
	}
	if err := decodeSpec(block, &t.Blockers); err != nil {
		return nil, fmt.Errorf("decode blockers: %w", err)
	}
	if err := decodeSpec(req, &t.Requirements); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	return &t, nil
}

func marshalRecurrence(r *model.RecurrenceRule) any {
	if r == nil {
		return nil
	}
	data, _ := json.Marshal(r)
	return string(data)
}

func marshalBlockers(b *model.BlockerSpec) any {
	if b == nil {
		return nil
	}
	data, _ := json.Marshal(b)
	return string(data)
}

func marshalRequirements(r *model.RequirementSpec) any {
	if r == nil {
		return nil
	}
	data, _ := json.Marshal(r)
	return string(data)
}

func decodeSpec[T any](col sql.NullString, dst **T) error {
	if !col.Valid || col.String == "" {
		*dst = nil
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

// --- Sensors ---

// SetSensor records the current boolean state of a sensor.
func (s *Store) SetSensor(name string, on bool) error {
	_, err := s.db.Exec(
		`INSERT INTO sensors (name, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		name, boolInt(on), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set sensor: %w", err)
	}
	return nil
}

// SensorState implements the sensor lookup the evaluators need. Unknown
// sensors report known=false; the evaluators degrade them to not-on.
func (s *Store) SensorState(name string) (on bool, known bool) {
	var state int
	err := s.db.QueryRow(`SELECT state FROM sensors WHERE name = ?`, name).Scan(&state)
	if err != nil {
		return false, false
	}
	return state != 0, true
}

// Sensors returns every known sensor name and state.
func (s *Store) Sensors() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT name, state FROM sensors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query sensors: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		var state int
		if err := rows.Scan(&name, &state); err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}
		out[name] = state != 0
	}
	return out, rows.Err()
}

// --- Queue source adapters ---

// Tasks implements the queue's task enumeration across all lists.
func (s *Store) Tasks() ([]*model.Task, error) {
	return s.AllItems()
}

// FindTask implements blocker reference resolution across all lists.
func (s *Store) FindTask(id string) (*model.Task, bool) {
	t, err := s.GetItem(id)
	if err != nil {
		return nil, false
	}
	return t, true
}

// --- Eligibility memory ---

// SaveEligibility persists the queue builder's cross-call memory so a new
// process can still honor the recently-unblocked bonus.
func (s *Store) SaveEligibility(blocked map[string]bool, unblockedAt map[string]time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM eligibility`); err != nil {
		return fmt.Errorf("clear eligibility: %w", err)
	}
	for id, isBlocked := range blocked {
		var at any
		if ts, ok := unblockedAt[id]; ok {
			at = ts
		}
		if _, err := s.db.Exec(
			`INSERT INTO eligibility (item_id, blocked, unblocked_at) VALUES (?, ?, ?)`,
			id, boolInt(isBlocked), at,
		); err != nil {
			return fmt.Errorf("insert eligibility: %w", err)
		}
	}
	return nil
}

// LoadEligibility restores the queue builder's cross-call memory.
func (s *Store) LoadEligibility() (map[string]bool, map[string]time.Time, error) {
	rows, err := s.db.Query(`SELECT item_id, blocked, unblocked_at FROM eligibility`)
	if err != nil {
		return nil, nil, fmt.Errorf("query eligibility: %w", err)
	}
	defer rows.Close()

	blocked := make(map[string]bool)
	unblockedAt := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var b int
		var at sql.NullTime
		if err := rows.Scan(&id, &b, &at); err != nil {
			return nil, nil, fmt.Errorf("scan eligibility: %w", err)
		}
		blocked[id] = b != 0
		if at.Valid {
			unblockedAt[id] = at.Time
		}
	}
	return blocked, unblockedAt, rows.Err()
}

// --- Settings ---

// SetSetting stores a small key/value setting (context overrides live here).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// GetSetting returns a setting value, or "" if unset.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
