package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/farelProject/v-technology/internal/model"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLStore implements Store on sqlite3 or postgres. Messages of a session
// are kept as one JSON column.
type SQLStore struct {
	db     *sql.DB
	driver Driver
}

// NewSQLStore opens the database and creates the schema.
func NewSQLStore(driver Driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("database URL is required")
	}
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err = s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		dsn += sep + "_busy_timeout=5000"
		sep = "&"
	}
	if !strings.Contains(dsn, "_txlock") {
		dsn += sep + "_txlock=immediate"
	}
	return dsn
}

func (s *SQLStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        reset_token TEXT,
        reset_expires BIGINT,
        chat_count INTEGER NOT NULL DEFAULT 0,
        chat_limit INTEGER NOT NULL,
        last_reset TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS chat_sessions (
        id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        title TEXT NOT NULL,
        timestamp TEXT NOT NULL,
        messages TEXT NOT NULL,
        PRIMARY KEY (user_id, id)
    );

    CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions (user_id, timestamp);
    `
	if s.driver == DriverPostgres {
		_, err := s.db.Exec(schema)
		return err
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = "id, name, email, password_hash, reset_token, reset_expires, chat_count, chat_limit, last_reset, created_at"

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		token     sql.NullString
		expires   sql.NullInt64
		lastReset string
		createdAt string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &token, &expires,
		&u.ChatLimit.Count, &u.ChatLimit.Limit, &lastReset, &createdAt)
	if err != nil {
		return nil, err
	}
	if token.Valid {
		u.ResetPasswordToken = &token.String
	}
	if expires.Valid {
		u.ResetPasswordExpires = &expires.Int64
	}
	u.ChatLimit.LastReset = parseTime(lastReset)
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

func nullableString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullableInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func (s *SQLStore) CreateUser(ctx context.Context, user *model.User) error {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER(?)"), user.Email).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return ErrUserAlreadyExists
	}

	_, err = s.db.ExecContext(ctx, s.rebind(
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		user.ID, user.Name, user.Email, user.PasswordHash,
		nullableString(user.ResetPasswordToken), nullableInt(user.ResetPasswordExpires),
		user.ChatLimit.Count, user.ChatLimit.Limit, formatTime(user.ChatLimit.LastReset), formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) queryUser(ctx context.Context, where string, args ...any) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE "+where), args...)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.queryUser(ctx, "id = ?", id)
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.queryUser(ctx, "LOWER(email) = LOWER(?)", email)
}

func (s *SQLStore) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return s.queryUser(ctx, "reset_token = ? AND reset_expires > ?", token, now.UnixMilli())
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *SQLStore) UpdateUser(ctx context.Context, user *model.User) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
        UPDATE users SET name = ?, email = ?, password_hash = ?, reset_token = ?, reset_expires = ?
        WHERE id = ?`),
		user.Name, user.Email, user.PasswordHash,
		nullableString(user.ResetPasswordToken), nullableInt(user.ResetPasswordExpires),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLStore) DeleteUser(ctx context.Context, id string) ([]model.ChatSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sessions, err := s.querySessions(ctx, tx, "user_id = ?", id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM chat_sessions WHERE user_id = ?"), id); err != nil {
		return nil, fmt.Errorf("failed to delete sessions: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return sessions, nil
}

func (s *SQLStore) UpdateChatLimit(ctx context.Context, userID string, fn func(*model.ChatLimit) error) (model.ChatLimit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ChatLimit{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := "SELECT chat_count, chat_limit, last_reset FROM users WHERE id = ?"
	if s.driver == DriverPostgres {
		query += " FOR UPDATE"
	}

	var (
		limit     model.ChatLimit
		lastReset string
	)
	err = tx.QueryRowContext(ctx, s.rebind(query), userID).Scan(&limit.Count, &limit.Limit, &lastReset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ChatLimit{}, ErrUserNotFound
		}
		return model.ChatLimit{}, fmt.Errorf("failed to read chat limit: %w", err)
	}
	limit.LastReset = parseTime(lastReset)

	current := limit
	if err := fn(&limit); err != nil {
		return current, err
	}

	_, err = tx.ExecContext(ctx, s.rebind("UPDATE users SET chat_count = ?, chat_limit = ?, last_reset = ? WHERE id = ?"),
		limit.Count, limit.Limit, formatTime(limit.LastReset), userID)
	if err != nil {
		return model.ChatLimit{}, fmt.Errorf("failed to write chat limit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.ChatLimit{}, fmt.Errorf("failed to commit: %w", err)
	}
	return limit, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLStore) querySessions(ctx context.Context, q queryer, where string, args ...any) ([]model.ChatSession, error) {
	rows, err := q.QueryContext(ctx, s.rebind(
		"SELECT id, user_id, title, timestamp, messages FROM chat_sessions WHERE "+where+" ORDER BY timestamp DESC"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.ChatSession
	for rows.Next() {
		var (
			session   model.ChatSession
			timestamp string
			messages  string
		)
		if err := rows.Scan(&session.ID, &session.UserID, &session.Title, &timestamp, &messages); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.Timestamp = parseTime(timestamp)
		if err := json.Unmarshal([]byte(messages), &session.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode messages: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLStore) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	return s.querySessions(ctx, s.db, "user_id = ?", userID)
}

func (s *SQLStore) GetSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	sessions, err := s.querySessions(ctx, s.db, "user_id = ? AND id = ?", userID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrSessionNotFound
	}
	return &sessions[0], nil
}

func (s *SQLStore) SaveSession(ctx context.Context, userID string, session *model.ChatSession) error {
	saved := *session
	saved.Messages = append([]model.Message{}, session.Messages...)
	stripLoading(&saved)

	messages, err := json.Marshal(saved.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
        INSERT INTO chat_sessions (id, user_id, title, timestamp, messages)
        SELECT CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT)
        WHERE EXISTS (SELECT 1 FROM users WHERE id = ?)
        ON CONFLICT (user_id, id) DO UPDATE SET
            title = excluded.title, timestamp = excluded.timestamp, messages = excluded.messages`),
		saved.ID, userID, saved.Title, formatTime(saved.Timestamp), string(messages), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM chat_sessions WHERE user_id = ? AND id = ?"), userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
