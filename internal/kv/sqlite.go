// Package kv 提供基于SQLite的持久化键值存储，用作收藏集合的落盘后端
package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	sferrors "github.com/yourusername/storefront/pkg/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLite 是单表键值存储
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("kv: create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}
	// SQLite只允许一个写连接；内存库每个连接都是独立的数据库
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: create schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Path 返回数据库路径
func (s *SQLite) Path() string {
	return s.path
}

// Get 读取键值；键不存在时ok为false
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, sferrors.ErrClosed
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return value, true, nil
}

// Put 写入键值（存在则覆盖）
func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	if s.db == nil {
		return sferrors.ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	return nil
}

// Delete 删除键，返回键是否存在
func (s *SQLite) Delete(ctx context.Context, key string) (bool, error) {
	if s.db == nil {
		return false, sferrors.ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("kv: delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close 关闭数据库
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
