package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shuntingyard/goopho/collection"
	"github.com/shuntingyard/goopho/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens the database at dbPath and creates the schema if needed.
//
// The fingerprint column is an INTEGER holding the uint64 hash bit-cast to
// int64. SQLite integers are 64-bit, so the round trip is exact; storing the
// hash through any floating-point or textual intermediate would risk losing
// bits and silently break Hamming distances.
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		source_prefix TEXT,
		format TEXT,
		width INTEGER,
		height INTEGER,
		inserted_at TEXT,
		modified_at TEXT,
		size INTEGER,
		dhash INTEGER NOT NULL,
		UNIQUE(path, source_prefix)
	);
	CREATE INDEX IF NOT EXISTS idx_path ON images(path);
	CREATE INDEX IF NOT EXISTS idx_dhash ON images(dhash);`

	if _, err = db.Exec(createTableSQL); err != nil {
		return nil, err
	}

	return db, nil
}

// OpenDatabase opens an existing database connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// CheckImageExists reports whether an image is already indexed and returns
// its stored modification time, so unchanged files can be skipped.
func CheckImageExists(db *sql.DB, path string, sourcePrefix string) (bool, string, error) {
	var storedModTime string
	err := db.QueryRow(
		"SELECT modified_at FROM images WHERE path = ? AND source_prefix = ?",
		path, sourcePrefix,
	).Scan(&storedModTime)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("database error for %s: %v", path, err)
	}
	return true, storedModTime, nil
}

// StoreImageInfo stores one image row. With forceRewrite the row replaces
// any previous entry for the same path and prefix.
func StoreImageInfo(db *sql.DB, imageInfo types.ImageInfo, forceRewrite bool) error {
	now := time.Now().Format(time.RFC3339)

	var stmt *sql.Stmt
	var insertErr error

	if forceRewrite {
		stmt, insertErr = db.Prepare(`
			INSERT OR REPLACE INTO images (
				path, source_prefix, format, width, height, inserted_at, modified_at, size, dhash
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
	} else {
		stmt, insertErr = db.Prepare(`
			INSERT OR IGNORE INTO images (
				path, source_prefix, format, width, height, inserted_at, modified_at, size, dhash
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
	}

	if insertErr != nil {
		return fmt.Errorf("cannot prepare statement for %s: %v", imageInfo.Path, insertErr)
	}
	defer stmt.Close()

	_, err := stmt.Exec(
		imageInfo.Path,
		imageInfo.SourcePrefix,
		imageInfo.Format,
		imageInfo.Width,
		imageInfo.Height,
		now,
		imageInfo.ModifiedAt,
		imageInfo.Size,
		int64(imageInfo.DHash),
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %v", imageInfo.Path, err)
	}

	return nil
}

// GetSourcePrefix returns the stored source prefix for an indexed path, or
// the empty string when the path has no row.
func GetSourcePrefix(db *sql.DB, path string) (string, error) {
	var prefix string
	err := db.QueryRow(
		"SELECT source_prefix FROM images WHERE path = ? ORDER BY id LIMIT 1",
		path,
	).Scan(&prefix)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("database error for %s: %v", path, err)
	}
	return prefix, nil
}

// LoadCollection rebuilds the fingerprint-to-paths index from the stored
// rows, optionally restricted to one source prefix. The database is the
// authoritative record; snapshot files are just a faster way to reopen it.
func LoadCollection(db *sql.DB, sourcePrefix string) (*collection.Index, error) {
	var rows *sql.Rows
	var err error

	if sourcePrefix != "" {
		rows, err = db.Query(
			"SELECT dhash, path FROM images WHERE source_prefix = ? ORDER BY id",
			sourcePrefix,
		)
	} else {
		rows, err = db.Query("SELECT dhash, path FROM images ORDER BY id")
	}
	if err != nil {
		return nil, fmt.Errorf("cannot query image rows: %v", err)
	}
	defer rows.Close()

	idx := collection.NewIndex()
	for rows.Next() {
		var hash int64
		var path string
		if err := rows.Scan(&hash, &path); err != nil {
			return nil, fmt.Errorf("cannot scan image row: %v", err)
		}
		idx.Insert(uint64(hash), path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot read image rows: %v", err)
	}

	return idx, nil
}

// ScanStats contains statistics from a scan operation
type ScanStats struct {
	TotalImages  int
	UniqueHashes int
}

// GetScanStats retrieves statistics about indexed images
func GetScanStats(db *sql.DB, sourcePrefix string) (*ScanStats, error) {
	var stats ScanStats
	var args []interface{}

	totalQuery := "SELECT COUNT(*) FROM images"
	hashQuery := "SELECT COUNT(DISTINCT dhash) FROM images"
	if sourcePrefix != "" {
		totalQuery += " WHERE source_prefix = ?"
		hashQuery += " WHERE source_prefix = ?"
		args = append(args, sourcePrefix)
	}

	if err := db.QueryRow(totalQuery, args...).Scan(&stats.TotalImages); err != nil {
		return nil, fmt.Errorf("failed to get total images: %v", err)
	}
	if err := db.QueryRow(hashQuery, args...).Scan(&stats.UniqueHashes); err != nil {
		return nil, fmt.Errorf("failed to get unique hashes: %v", err)
	}

	return &stats, nil
}
