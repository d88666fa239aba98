package cache

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultSQLTable is the table SQLStore uses when none is given.
const DefaultSQLTable = "tlcache_entries"

// SQLStore keeps entries in a SQL table:
//
//	cache_key TEXT PRIMARY KEY, value BLOB, expires_at INTEGER
//
// expires_at is a unix timestamp in seconds; 0 marks an entry that never
// expires. Expired rows read as a miss and are deleted lazily.
//
// Sets live in a second table, <table>_members, one row per member, so each
// set update is a single statement and needs no lock between processes.
type SQLStore struct {
	db      *sql.DB
	table   string
	members string
	clock   func() time.Time
}

// OpenSQLite opens (creating if needed) a SQLite database at path using the
// pure-Go modernc.org/sqlite driver, and migrates the entries table.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	store := NewSQLStore(db, DefaultSQLTable)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database. table must be a trusted identifier.
func NewSQLStore(db *sql.DB, table string) *SQLStore {
	if table == "" {
		table = DefaultSQLTable
	}
	return &SQLStore{
		db:      db,
		table:   table,
		members: table + "_members",
		clock:   time.Now,
	}
}

// Migrate creates the entries and members tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		cache_key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.members+` (
		set_key TEXT NOT NULL,
		member TEXT NOT NULL,
		PRIMARY KEY (set_key, member)
	)`)
	return err
}

// Get retrieves a value. Expired rows are deleted and reported as a miss.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM `+s.table+` WHERE cache_key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if expiresAt != 0 && s.clock().Unix() >= expiresAt {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM `+s.table+` WHERE cache_key = ? AND expires_at = ?`, key, expiresAt)
		if err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	return value, true, nil
}

// Put stores a value that expires after ttl, rounded up to whole seconds.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Forget(ctx, key)
	}
	seconds := int64((ttl + time.Second - 1) / time.Second)
	return s.upsert(ctx, key, value, s.clock().Unix()+seconds)
}

// Forever stores a value with no expiry.
func (s *SQLStore) Forever(ctx context.Context, key string, value []byte) error {
	return s.upsert(ctx, key, value, 0)
}

// Forget deletes a row.
func (s *SQLStore) Forget(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE cache_key = ?`, key)
	return err
}

func (s *SQLStore) upsert(ctx context.Context, key string, value []byte, expiresAt int64) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.table+` (cache_key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	return err
}

// AddMember adds member to the set stored at key.
func (s *SQLStore) AddMember(ctx context.Context, key, member string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.members+` (set_key, member) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		key, member)
	return err
}

// RemoveMember removes members from the set stored at key. A set with no
// rows left no longer exists.
func (s *SQLStore) RemoveMember(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, 0, len(members)+1)
	args = append(args, key)
	for _, m := range members {
		args = append(args, m)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(members)), ", ")
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM `+s.members+` WHERE set_key = ? AND member IN (`+placeholders+`)`,
		args...)
	return err
}

// Members returns the members of the set stored at key.
func (s *SQLStore) Members(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member FROM `+s.members+` WHERE set_key = ? ORDER BY member`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
