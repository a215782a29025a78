package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/voicechat/internal/infra/logging"
)

// SQLiteRepositoryConfig holds configuration for the SQLite chat repository.
type SQLiteRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/chatfake.db"`
}

// SQLiteRepository implements Repository using SQLite as the storage backend.
type SQLiteRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepositoryFactory creates a factory function that returns a new SQLiteRepository.
func SQLiteRepositoryFactory(cfg SQLiteRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteRepository(cfg)
	}
}

// NewSQLiteRepository creates a new SQLiteRepository with the given configuration.
// It initializes the database connection and creates the schema if needed.
func NewSQLiteRepository(cfg SQLiteRepositoryConfig) (*SQLiteRepository, error) {
	log := logging.GetLogger("repo.chat.sqlite").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeDB(db); err != nil {
		return nil, fmt.Errorf("initialize db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			email         TEXT    UNIQUE NOT NULL,
			username      TEXT    NOT NULL,
			password_hash BLOB    NOT NULL,
			picture       TEXT    NOT NULL DEFAULT '',
			created_at    INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			sender_id   INTEGER NOT NULL,
			receiver_id INTEGER NOT NULL,
			text_note   TEXT,
			audio       TEXT    NOT NULL DEFAULT '',
			audio_type  TEXT    NOT NULL DEFAULT '',
			media       TEXT    NOT NULL DEFAULT '',
			media_type  TEXT    NOT NULL DEFAULT '',
			timestamp   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS messages_pair ON messages (sender_id, receiver_id, timestamp);
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

const (
	userColumns    = "id, email, username, password_hash, picture, created_at"
	messageColumns = "id, sender_id, receiver_id, text_note, audio, audio_type, media, media_type, timestamp"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*UserRecord, error) {
	var (
		user      UserRecord
		createdAt int64
	)

	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.Picture, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck
	}

	user.CreatedAt = time.UnixMilli(createdAt).UTC()

	return &user, nil
}

func scanMessage(row scanner) (*MessageRecord, error) {
	var (
		msg       MessageRecord
		textNote  sql.NullString
		timestamp int64
	)

	if err := row.Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &textNote,
		&msg.Audio, &msg.AudioType, &msg.Media, &msg.MediaType, &timestamp,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if textNote.Valid {
		msg.TextNote = &textNote.String
	}

	msg.Timestamp = time.UnixMilli(timestamp).UTC()

	return &msg, nil
}

// CreateUser implements Repository.CreateUser using SQLite.
func (r *SQLiteRepository) CreateUser(ctx context.Context, user *UserRecord) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, username, password_hash, picture, created_at) VALUES (?, ?, ?, ?, ?)",
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Picture,
		user.CreatedAt.UnixMilli(),
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
				fallthrough
			case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				err = errors.Join(ErrEmailTaken, err)
			default:
				break
			}
		}

		return fmt.Errorf("insert user: %w", err)
	}

	if user.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	r.log.DebugContext(ctx, "user created", logging.Group("user", "id", user.ID, "email", user.Email))

	return nil
}

// GetUser implements Repository.GetUser using SQLite.
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (*UserRecord, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

// GetUserByEmail implements Repository.GetUserByEmail using SQLite.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

// ListUsers implements Repository.ListUsers using SQLite.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]*UserRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*UserRecord

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateUser implements Repository.UpdateUser using SQLite.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, id int64, changes UserChanges) (*UserRecord, error) {
	var (
		sets []string
		args []any
	)

	if changes.Email != nil {
		sets, args = append(sets, "email = ?"), append(args, *changes.Email)
	}

	if changes.Username != nil {
		sets, args = append(sets, "username = ?"), append(args, *changes.Username)
	}

	if changes.PasswordHash != nil {
		sets, args = append(sets, "password_hash = ?"), append(args, changes.PasswordHash)
	}

	if changes.Picture != nil {
		sets, args = append(sets, "picture = ?"), append(args, *changes.Picture)
	}

	if len(sets) > 0 {
		if err := r.exec(ctx, ErrUserNotFound,
			"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", append(args, id)...); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	return r.GetUser(ctx, id)
}

// DeleteUser implements Repository.DeleteUser using SQLite.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return ErrUserNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE sender_id = ? OR receiver_id = ?", id, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// CreateMessage implements Repository.CreateMessage using SQLite.
func (r *SQLiteRepository) CreateMessage(ctx context.Context, msg *MessageRecord) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (sender_id, receiver_id, text_note, audio, audio_type, media, media_type, timestamp) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		msg.SenderID,
		msg.ReceiverID,
		msg.TextNote,
		msg.Audio,
		msg.AudioType,
		msg.Media,
		msg.MediaType,
		msg.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if msg.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	return nil
}

// GetMessage implements Repository.GetMessage using SQLite.
func (r *SQLiteRepository) GetMessage(ctx context.Context, id int64) (*MessageRecord, error) {
	msg, err := scanMessage(r.db.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(ErrMessageNotFound, err)
		}

		return nil, fmt.Errorf("query message: %w", err)
	}

	return msg, nil
}

// ListConversation implements Repository.ListConversation using SQLite.
func (r *SQLiteRepository) ListConversation(ctx context.Context, user1ID, user2ID int64) ([]*MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages "+
			"WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?) "+
			"ORDER BY timestamp, id",
		user1ID, user2ID, user2ID, user1ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []*MessageRecord{}

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// UpdateMessage implements Repository.UpdateMessage using SQLite.
func (r *SQLiteRepository) UpdateMessage(ctx context.Context, id int64, changes MessageChanges) (*MessageRecord, error) {
	var (
		sets []string
		args []any
	)

	if changes.TextNote != nil {
		sets, args = append(sets, "text_note = ?"), append(args, *changes.TextNote)
	}

	if changes.Audio != nil {
		sets, args = append(sets, "audio = ?", "audio_type = ?"), append(args, *changes.Audio, changes.AudioType)
	}

	if changes.Media != nil {
		sets, args = append(sets, "media = ?", "media_type = ?"), append(args, *changes.Media, changes.MediaType)
	}

	if len(sets) > 0 {
		if err := r.exec(ctx, ErrMessageNotFound,
			"UPDATE messages SET "+strings.Join(sets, ", ")+" WHERE id = ?", append(args, id)...); err != nil {
			return nil, fmt.Errorf("update message: %w", err)
		}
	}

	return r.GetMessage(ctx, id)
}

// DeleteMessage implements Repository.DeleteMessage using SQLite.
func (r *SQLiteRepository) DeleteMessage(ctx context.Context, id int64) error {
	if err := r.exec(ctx, ErrMessageNotFound, "DELETE FROM messages WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	return nil
}

// exec runs a write statement and returns notFound if no row was affected.
func (r *SQLiteRepository) exec(ctx context.Context, notFound error, query string, args ...any) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			err = errors.Join(ErrEmailTaken, err)
		}

		return err //nolint:wrapcheck
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return notFound
	}

	return nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
