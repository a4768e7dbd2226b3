package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finance-tracker/internal/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timestampLayout is how created_at columns are written.
const timestampLayout = "2006-01-02T15:04:05"

var (
	// ErrNotFound is returned when a looked up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned when a username is already registered,
	// compared case-insensitively.
	ErrUsernameTaken = errors.New("username already exists")
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// NewDB opens a database connection and runs migrations. The parent
// directory of path is created if needed; ":memory:" opens a private
// in-memory database.
func NewDB(path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time, and every connection to
	// ":memory:" would otherwise see its own empty database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) timestamp() string {
	return db.now().Format(timestampLayout)
}

func parseTimestamp(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.ParseInLocation(timestampLayout, s.String, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullIfEmpty(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// ---- users ----

const userColumns = "id, username, name, email, password_hash, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var createdAt sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = parseTimestamp(createdAt)
	return &u, nil
}

// CreateUser creates a new user. It returns ErrUsernameTaken when the
// username exists in any letter case.
func (db *DB) CreateUser(ctx context.Context, username, name, email, passwordHash string) (*models.User, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (username, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		strings.TrimSpace(username), strings.TrimSpace(name), strings.TrimSpace(email), passwordHash, db.timestamp(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(ctx, id)
}

// UserExists reports whether a username is registered, ignoring case.
func (db *DB) UserExists(ctx context.Context, username string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE LOWER(username) = LOWER(?)",
		strings.TrimSpace(username),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return true, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByUsername retrieves a user by username, ignoring case.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(username) = LOWER(?)",
		strings.TrimSpace(username)))
}

// ListUsers returns all users, newest first.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// ---- transactions ----

// AddTransaction stores a transaction for a user. Merchant and notes are
// trimmed and stored as NULL when empty.
func (db *DB) AddTransaction(ctx context.Context, userID int64, tx models.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO transactions (user_id, date, amount, category, merchant, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, strings.TrimSpace(tx.Date), tx.Amount.InexactFloat64(), tx.Category,
		nullIfEmpty(tx.Merchant), nullIfEmpty(tx.Notes), db.timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return result.LastInsertId()
}

// ListTransactions returns a user's transactions ordered by date descending,
// newest ID first within a day.
func (db *DB) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, date, amount, category, merchant, notes, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var (
			t               models.Transaction
			owner           sql.NullInt64
			merchant, notes sql.NullString
			createdAt       sql.NullString
		)
		if err := rows.Scan(&t.ID, &owner, &t.Date, &t.Amount, &t.Category, &merchant, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if owner.Valid {
			id := owner.Int64
			t.UserID = &id
		}
		t.Merchant = merchant.String
		t.Notes = notes.String
		t.CreatedAt = parseTimestamp(createdAt)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ClearUserData deletes a user's transactions and budgets. The user row is
// kept.
func (db *DB) ClearUserData(ctx context.Context, userID int64) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM transactions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM budgets WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete budgets: %w", err)
	}
	return nil
}

// ---- budgets ----

// UpsertBudget sets the target for a user, month and category, replacing
// any previous amount.
func (db *DB) UpsertBudget(ctx context.Context, b models.Budget) error {
	if !b.Category.Valid() {
		return models.ErrUnknownCategory
	}
	if !b.Amount.IsPositive() {
		return models.ErrInvalidAmount
	}
	if _, err := time.Parse("2006-01", b.Month); err != nil {
		return fmt.Errorf("invalid budget month %q: %w", b.Month, err)
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO budgets (user_id, month, category, budget_amount, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, month, category) DO UPDATE SET budget_amount = excluded.budget_amount`,
		b.UserID, b.Month, b.Category, b.Amount.InexactFloat64(), db.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// ListBudgets returns a user's budgets for one month, by category.
func (db *DB) ListBudgets(ctx context.Context, userID int64, month string) ([]models.Budget, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, month, category, budget_amount, created_at
		FROM budgets
		WHERE user_id = ? AND month = ?
		ORDER BY category`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		var b models.Budget
		var createdAt sql.NullString
		if err := rows.Scan(&b.ID, &b.UserID, &b.Month, &b.Category, &b.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.CreatedAt = parseTimestamp(createdAt)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ---- sessions ----

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt.Unix(), db.now().Unix(),
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the
// associated user and session times. Unknown or expired tokens return
// ErrNotFound.
func (db *DB) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.name, u.email, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?`, token, db.now().Unix())

	var u models.User
	var createdAt sql.NullString
	var lastActivity, expiresAt int64
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &createdAt, &lastActivity, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = parseTimestamp(createdAt)

	return &SessionInfo{
		User:         &u,
		LastActivity: time.Unix(lastActivity, 0),
		ExpiresAt:    time.Unix(expiresAt, 0),
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		db.now().Unix(), newExpiresAt.Unix(), token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions and returns how many
// were deleted.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", db.now().Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
