// Package history 把每次发布的结果记录到 SQLite，便于事后查询哪些回复已经发出。
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS publish_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT    NOT NULL,
	video_url    TEXT    NOT NULL DEFAULT '',
	video_title  TEXT    NOT NULL DEFAULT '',
	comment_id   INTEGER NOT NULL,
	username     TEXT    NOT NULL DEFAULT '',
	comment_text TEXT    NOT NULL DEFAULT '',
	reply        TEXT    NOT NULL DEFAULT '',
	modified     INTEGER NOT NULL DEFAULT 0,
	success      INTEGER NOT NULL DEFAULT 0,
	error        TEXT    NOT NULL DEFAULT '',
	published_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_publish_history_session ON publish_history(session_id);
CREATE INDEX IF NOT EXISTS idx_publish_history_time ON publish_history(published_at);
`

// DefaultLimit Recent 默认返回条数
const DefaultLimit = 100

// Entry 一条回复的发布记录
type Entry struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	VideoURL    string    `json:"video_url"`
	VideoTitle  string    `json:"video_title"`
	CommentID   int       `json:"comment_id"`
	Username    string    `json:"username"`
	CommentText string    `json:"comment_text"`
	Reply       string    `json:"reply"`
	Modified    bool      `json:"modified"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Store SQLite 发布记录
type Store struct {
	db *sql.DB
}

// Open 打开（必要时创建）数据库文件，path 为 ":memory:" 时使用内存库
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "create history dir")
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open history db")
	}
	// 内存库每个连接都是独立的数据库
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "set %s", p)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply history schema")
	}

	logrus.WithField("path", path).Info("发布记录数据库已打开")
	return &Store{db: db}, nil
}

// RecordPublish 在一个事务里写入一批发布记录
func (s *Store) RecordPublish(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO publish_history
			(session_id, video_url, video_title, comment_id, username, comment_text, reply, modified, success, error, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for _, e := range entries {
		at := e.PublishedAt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			e.SessionID, e.VideoURL, e.VideoTitle, e.CommentID, e.Username, e.CommentText,
			e.Reply, boolInt(e.Modified), boolInt(e.Success), e.Error, at.UnixMilli(),
		); err != nil {
			return errors.Wrapf(err, "insert comment %d", e.CommentID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// Recent 最近的发布记录，新的在前；sessionID 非空时只返回该会话的记录
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, session_id, video_url, video_title, comment_id, username, comment_text, reply, modified, success, error, published_at
		FROM publish_history`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY published_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e                 Entry
			modified, success int
			at                int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.VideoURL, &e.VideoTitle, &e.CommentID, &e.Username,
			&e.CommentText, &e.Reply, &modified, &success, &e.Error, &at); err != nil {
			return nil, errors.Wrap(err, "scan history")
		}
		e.Modified = modified != 0
		e.Success = success != 0
		e.PublishedAt = time.UnixMilli(at)
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate history")
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
