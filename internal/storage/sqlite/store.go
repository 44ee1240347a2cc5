// Package sqlite persists sessions and outcome records in a SQLite
// database. It is the default store: a single file, WAL mode, no
// external service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
)

// Store is the SQLite implementation of SessionStore and OutcomeStore.
type Store struct {
	db *sql.DB
}

var (
	_ ports.SessionStore = (*Store)(nil)
	_ ports.OutcomeStore = (*Store)(nil)
)

// New opens (or creates) the database at dbPath and initializes the
// schema. Use ":memory:" for an ephemeral database in tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pool connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			product TEXT NOT NULL,
			params TEXT NOT NULL,
			status TEXT NOT NULL,
			phase TEXT NOT NULL,
			outcome TEXT,
			final_price INTEGER,
			strategy TEXT NOT NULL,
			market TEXT NOT NULL,
			metrics TEXT NOT NULL,
			tactics TEXT,
			created_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			kind TEXT NOT NULL,
			sent_at TIMESTAMP NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			category TEXT NOT NULL,
			approach TEXT NOT NULL,
			outcome TEXT NOT NULL,
			tactics_used TEXT,
			listed_price INTEGER NOT NULL,
			target_price INTEGER NOT NULL,
			final_price INTEGER,
			savings INTEGER NOT NULL,
			gap_closed_pct REAL NOT NULL,
			duration_ns INTEGER NOT NULL,
			message_count INTEGER NOT NULL,
			agent_count INTEGER NOT NULL,
			seller_count INTEGER NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_category ON outcomes(category, approach)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// SaveSession implements ports.SessionStore. The full session record,
// messages included, is written transactionally; messages are replaced
// wholesale since the log only ever grows.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	product, err := json.Marshal(session.Product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	params, err := json.Marshal(session.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	strategy, err := json.Marshal(session.Strategy)
	if err != nil {
		return fmt.Errorf("marshal strategy: %w", err)
	}
	market, err := json.Marshal(session.Market)
	if err != nil {
		return fmt.Errorf("marshal market: %w", err)
	}
	metrics, err := json.Marshal(session.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	tactics, err := json.Marshal(session.Tactics)
	if err != nil {
		return fmt.Errorf("marshal tactics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var endedAt any
	if session.EndedAt != nil {
		endedAt = session.EndedAt.UTC()
	}
	var finalPrice any
	if session.FinalPrice != nil {
		finalPrice = *session.FinalPrice
	}
	var outcome any
	if session.Outcome != "" {
		outcome = string(session.Outcome)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO sessions
		(id, product, params, status, phase, outcome, final_price, strategy, market, metrics, tactics, created_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			phase = excluded.phase,
			outcome = excluded.outcome,
			final_price = excluded.final_price,
			metrics = excluded.metrics,
			tactics = excluded.tactics,
			ended_at = excluded.ended_at`,
		session.ID, string(product), string(params), string(session.Status), string(session.Phase),
		outcome, finalPrice, string(strategy), string(market), string(metrics), string(tactics),
		session.CreatedAt.UTC(), endedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	for i, msg := range session.Messages {
		_, err := tx.ExecContext(ctx, `INSERT INTO messages (id, session_id, seq, sender, content, kind, sent_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, session.ID, i, string(msg.Sender), msg.Content, string(msg.Kind), msg.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSession implements ports.SessionStore.
func (s *Store) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, product, params, status, phase, outcome, final_price,
		strategy, market, metrics, tactics, created_at, ended_at
		FROM sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	messages, err := s.loadMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Messages = messages
	return session, nil
}

// ListSessions implements ports.SessionStore. Results are ordered by
// creation time, newest first. Messages are not loaded.
func (s *Store) ListSessions(ctx context.Context, opts ports.ListOptions) ([]*domain.Session, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, product, params, status, phase, outcome, final_price,
		strategy, market, metrics, tactics, created_at, ended_at FROM sessions`
	args := []any{}
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, opts.Status)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		session    domain.Session
		product    string
		params     string
		status     string
		phase      string
		outcome    sql.NullString
		finalPrice sql.NullInt64
		strategy   string
		market     string
		metrics    string
		tactics    sql.NullString
		endedAt    sql.NullTime
	)

	err := row.Scan(&session.ID, &product, &params, &status, &phase, &outcome, &finalPrice,
		&strategy, &market, &metrics, &tactics, &session.CreatedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(product), &session.Product); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &session.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal([]byte(strategy), &session.Strategy); err != nil {
		return nil, fmt.Errorf("unmarshal strategy: %w", err)
	}
	if err := json.Unmarshal([]byte(market), &session.Market); err != nil {
		return nil, fmt.Errorf("unmarshal market: %w", err)
	}
	if err := json.Unmarshal([]byte(metrics), &session.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if tactics.Valid && tactics.String != "" {
		if err := json.Unmarshal([]byte(tactics.String), &session.Tactics); err != nil {
			return nil, fmt.Errorf("unmarshal tactics: %w", err)
		}
	}

	session.Status = domain.SessionStatus(status)
	session.Phase = domain.NegotiationPhase(phase)
	if outcome.Valid {
		session.Outcome = domain.SessionOutcome(outcome.String)
	}
	if finalPrice.Valid {
		v := int(finalPrice.Int64)
		session.FinalPrice = &v
	}
	if endedAt.Valid {
		t := endedAt.Time
		session.EndedAt = &t
	}
	return &session, nil
}

func (s *Store) loadMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, sender, content, kind, sent_at
		FROM messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		var (
			msg    domain.ChatMessage
			sender string
			kind   string
		)
		if err := rows.Scan(&msg.ID, &sender, &msg.Content, &kind, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.SessionID = sessionID
		msg.Sender = domain.Sender(sender)
		msg.Kind = domain.MessageKind(kind)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AppendOutcome implements ports.OutcomeStore.
func (s *Store) AppendOutcome(ctx context.Context, record *domain.OutcomeRecord) error {
	tactics, err := json.Marshal(record.TacticsUsed)
	if err != nil {
		return fmt.Errorf("marshal tactics: %w", err)
	}
	var finalPrice any
	if record.FinalPrice != nil {
		finalPrice = *record.FinalPrice
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO outcomes
		(session_id, category, approach, outcome, tactics_used, listed_price, target_price,
		 final_price, savings, gap_closed_pct, duration_ns, message_count, agent_count, seller_count, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID, record.Category, string(record.Approach), string(record.Outcome),
		string(tactics), record.ListedPrice, record.TargetPrice, finalPrice, record.Savings,
		record.GapClosedPct, int64(record.Duration), record.MessageCount, record.AgentCount,
		record.SellerCount, record.RecordedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// ListOutcomes implements ports.OutcomeStore. Empty category or
// approach matches everything.
func (s *Store) ListOutcomes(ctx context.Context, category string, approach domain.Approach) ([]*domain.OutcomeRecord, error) {
	query := `SELECT session_id, category, approach, outcome, tactics_used, listed_price, target_price,
		final_price, savings, gap_closed_pct, duration_ns, message_count, agent_count, seller_count, recorded_at
		FROM outcomes`
	var (
		conds []string
		args  []any
	)
	if category != "" {
		conds = append(conds, "category = ?")
		args = append(args, category)
	}
	if approach != "" {
		conds = append(conds, "approach = ?")
		args = append(args, string(approach))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []*domain.OutcomeRecord
	for rows.Next() {
		var (
			rec        domain.OutcomeRecord
			appr       string
			outcome    string
			tactics    sql.NullString
			finalPrice sql.NullInt64
			durationNs int64
		)
		err := rows.Scan(&rec.SessionID, &rec.Category, &appr, &outcome, &tactics,
			&rec.ListedPrice, &rec.TargetPrice, &finalPrice, &rec.Savings, &rec.GapClosedPct,
			&durationNs, &rec.MessageCount, &rec.AgentCount, &rec.SellerCount, &rec.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.Approach = domain.Approach(appr)
		rec.Outcome = domain.SessionOutcome(outcome)
		rec.Duration = time.Duration(durationNs)
		if tactics.Valid && tactics.String != "" {
			if err := json.Unmarshal([]byte(tactics.String), &rec.TacticsUsed); err != nil {
				return nil, fmt.Errorf("unmarshal tactics: %w", err)
			}
		}
		if finalPrice.Valid {
			v := int(finalPrice.Int64)
			rec.FinalPrice = &v
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// CountOutcomes implements ports.OutcomeStore.
func (s *Store) CountOutcomes(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outcomes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count outcomes: %w", err)
	}
	return n, nil
}

// PruneOutcomes implements ports.OutcomeStore. It deletes the oldest
// records until at most keep remain.
func (s *Store) PruneOutcomes(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM outcomes WHERE id NOT IN
		(SELECT id FROM outcomes ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("prune outcomes: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
