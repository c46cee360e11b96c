package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath keeps the index in memory for the lifetime of the process
const MemoryPath = ":memory:"

// Storage holds the asset GUID index
type Storage struct {
	db *sql.DB
}

// NewStorage opens or creates the index database and initializes the schema.
// Use MemoryPath for an index that is rebuilt on every run.
func NewStorage(dbPath string) (*Storage, error) {
	dsn := dbPath
	if dbPath != MemoryPath && !strings.HasPrefix(dbPath, "file:") {
		dsn = dbPath + "?_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		guid TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		asset_type TEXT NOT NULL DEFAULT '',
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assets_path ON assets(path);
	`

	_, err := s.db.Exec(schema)
	return err
}

// UpsertAsset inserts an asset or replaces the path and type of an existing GUID
func (s *Storage) UpsertAsset(a Asset) error {
	_, err := s.db.Exec(`
		INSERT INTO assets (guid, path, asset_type)
		VALUES (?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			path = EXCLUDED.path,
			asset_type = EXCLUDED.asset_type,
			indexed_at = CURRENT_TIMESTAMP
	`, a.GUID, a.Path, a.Type)
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", a.GUID, err)
	}
	return nil
}

// GetAsset retrieves an asset by GUID, returns nil if not found
func (s *Storage) GetAsset(guid string) (*Asset, error) {
	var a Asset
	err := s.db.QueryRow(`
		SELECT guid, path, asset_type, indexed_at
		FROM assets
		WHERE guid = ?
	`, guid).Scan(&a.GUID, &a.Path, &a.Type, &a.IndexedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return &a, nil
}

// GetAssetByPath retrieves an asset by its file path, returns nil if not found
func (s *Storage) GetAssetByPath(path string) (*Asset, error) {
	var a Asset
	err := s.db.QueryRow(`
		SELECT guid, path, asset_type, indexed_at
		FROM assets
		WHERE path = ?
	`, path).Scan(&a.GUID, &a.Path, &a.Type, &a.IndexedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset by path: %w", err)
	}

	return &a, nil
}

// ListAssets returns every indexed asset ordered by path
func (s *Storage) ListAssets() ([]*Asset, error) {
	rows, err := s.db.Query(`
		SELECT guid, path, asset_type, indexed_at
		FROM assets
		ORDER BY path ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.GUID, &a.Path, &a.Type, &a.IndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// CountAssets returns the number of indexed assets
func (s *Storage) CountAssets() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM assets").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return n, nil
}

// Clear removes every indexed asset
func (s *Storage) Clear() error {
	if _, err := s.db.Exec("DELETE FROM assets"); err != nil {
		return fmt.Errorf("failed to clear assets: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
