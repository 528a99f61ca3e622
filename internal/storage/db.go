package storage

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"platval/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS items (
  urlName TEXT PRIMARY KEY,
  itemName TEXT NOT NULL,
  marketId TEXT,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_itemName ON items(itemName);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  inputRef TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  grandTotal TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS line_results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  rawLine TEXT NOT NULL,
  status TEXT NOT NULL,
  reason TEXT NOT NULL,
  canonicalId TEXT,
  category TEXT,
  quantity INTEGER NOT NULL,
  unitPrice TEXT,
  subtotal TEXT NOT NULL,
  note TEXT,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
`
	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertItems(items []internal.CatalogItem) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO items (urlName, itemName, marketId, lastSeenAt)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(urlName) DO UPDATE SET
  itemName = excluded.itemName,
  marketId = excluded.marketId,
  lastSeenAt = CURRENT_TIMESTAMP
`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.Exec(item.URLName, item.ItemName, item.MarketID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListItems() ([]internal.CatalogItem, error) {
	rows, err := d.conn.Query(`SELECT urlName, itemName, COALESCE(marketId, '') FROM items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.CatalogItem{}
	for rows.Next() {
		var item internal.CatalogItem
		if err := rows.Scan(&item.URLName, &item.ItemName, &item.MarketID); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (d *DB) CountItems() (int, error) {
	var count int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value, updatedAt) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) InsertRun(traceID, inputRef string, counts map[string]int, grandTotal string) (int64, error) {
	blob, _ := json.Marshal(counts)
	res, err := d.conn.Exec(`INSERT INTO runs (traceId, inputRef, countsJson, grandTotal) VALUES (?, ?, ?, ?)`,
		traceID, inputRef, string(blob), grandTotal)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) InsertLineResult(runID int64, result internal.LineResult) error {
	var canonicalID, category, unitPrice *string
	if result.Item != nil {
		canonicalID = &result.Item.ID
		cat := string(result.Item.Category)
		category = &cat
	}
	if result.Quote != nil {
		price := result.Quote.Platinum.String()
		unitPrice = &price
	}

	_, err := d.conn.Exec(`
INSERT INTO line_results (runId, lineNo, rawLine, status, reason, canonicalId, category, quantity, unitPrice, subtotal, note)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, runID, result.Request.LineNo, result.Request.RawLine, string(result.Status), string(result.Reason),
		canonicalID, category, result.Request.Quantity, unitPrice, result.Subtotal.String(), result.Note)
	return err
}
