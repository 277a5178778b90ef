package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"beersync/internal"
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
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
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
CREATE TABLE IF NOT EXISTS producers (
  fsrarId TEXT PRIMARY KEY,
  shortName TEXT NOT NULL,
  fullName TEXT NOT NULL,
  inn TEXT
);

CREATE TABLE IF NOT EXISTS regulatory_products (
  code TEXT PRIMARY KEY,
  fullName TEXT NOT NULL,
  producerFsrarId TEXT NOT NULL,
  capacity REAL NOT NULL,
  kindCode INTEGER NOT NULL,
  warehouseQty INTEGER,
  shopQty INTEGER,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(producerFsrarId) REFERENCES producers(fsrarId)
);

CREATE TABLE IF NOT EXISTS commercial_products (
  uuid TEXT PRIMARY KEY,
  parentUuid TEXT,
  fullName TEXT NOT NULL,
  pathName TEXT,
  brewery TEXT,
  name TEXT NOT NULL,
  style TEXT,
  abv REAL NOT NULL DEFAULT 0,
  og REAL NOT NULL DEFAULT 0,
  ibu INTEGER NOT NULL DEFAULT 0,
  isAlco INTEGER NOT NULL DEFAULT 0,
  isDraft INTEGER NOT NULL DEFAULT 0,
  kind TEXT NOT NULL,
  capacity REAL NOT NULL DEFAULT 0,
  price TEXT NOT NULL DEFAULT '0',
  quantity INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_commercial_name ON commercial_products(name);
CREATE INDEX IF NOT EXISTS idx_commercial_brewery ON commercial_products(brewery, name);

CREATE TABLE IF NOT EXISTS links (
  uuid TEXT NOT NULL,
  code TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(uuid, code)
);

CREATE TABLE IF NOT EXISTS sales (
  saleDate TEXT NOT NULL,
  uuid TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  UNIQUE(saleDate, uuid)
);

CREATE TABLE IF NOT EXISTS journal (
  saleDate TEXT NOT NULL,
  rowNo INTEGER NOT NULL,
  commercialName TEXT NOT NULL,
  regulatoryName TEXT NOT NULL,
  code TEXT NOT NULL,
  kindCode INTEGER NOT NULL,
  capacity REAL NOT NULL,
  quantity INTEGER NOT NULL,
  price TEXT NOT NULL,
  UNIQUE(saleDate, rowNo)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := d.conn.Exec(schema)
	return err
}

// ReplaceCommercialProducts swaps the whole commercial snapshot: parsed
// attributes are never merged into rows from an earlier sync.
func (d *DB) ReplaceCommercialProducts(products []internal.CommercialProduct) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM commercial_products`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO commercial_products
  (uuid, parentUuid, fullName, pathName, brewery, name, style, abv, og, ibu, isAlco, isDraft, kind, capacity, price, quantity)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.Exec(
			p.UUID, p.ParentUUID, p.FullName, p.PathName, p.Brewery, p.Name, p.Style,
			p.ABV, p.OG, p.IBU, boolToInt(p.IsAlco), boolToInt(p.IsDraft), string(p.Kind),
			p.Capacity, p.Price.String(), p.Quantity,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListCommercialProducts() ([]internal.CommercialProduct, error) {
	rows, err := d.conn.Query(`
SELECT uuid, parentUuid, fullName, pathName, brewery, name, style, abv, og, ibu, isAlco, isDraft, kind, capacity, price, quantity
FROM commercial_products ORDER BY brewery, name, capacity
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CommercialProduct
	for rows.Next() {
		var p internal.CommercialProduct
		var isAlco, isDraft int
		var kind, price string
		if err := rows.Scan(
			&p.UUID, &p.ParentUUID, &p.FullName, &p.PathName, &p.Brewery, &p.Name, &p.Style,
			&p.ABV, &p.OG, &p.IBU, &isAlco, &isDraft, &kind, &p.Capacity, &price, &p.Quantity,
		); err != nil {
			return nil, err
		}
		p.IsAlco = isAlco != 0
		p.IsDraft = isDraft != 0
		p.Kind = internal.BeverageKind(kind)
		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("product %s: bad price %q: %w", p.UUID, price, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceRegulatoryProducts swaps the regulatory snapshot and upserts the
// producers it references.
func (d *DB) ReplaceRegulatoryProducts(goods []internal.RegulatoryProduct) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, g := range goods {
		if _, err := tx.Exec(`
INSERT INTO producers (fsrarId, shortName, fullName, inn) VALUES (?, ?, ?, ?)
ON CONFLICT(fsrarId) DO UPDATE SET shortName = excluded.shortName, fullName = excluded.fullName, inn = excluded.inn
`, g.Producer.FSRARID, g.Producer.ShortName, g.Producer.FullName, g.Producer.INN); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM regulatory_products`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO regulatory_products (code, fullName, producerFsrarId, capacity, kindCode, warehouseQty, shopQty)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range goods {
		if _, err := stmt.Exec(g.Code, g.FullName, g.Producer.FSRARID, g.Capacity, g.KindCode, g.Stock.Warehouse, g.Stock.Shop); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListRegulatoryProducts() ([]internal.RegulatoryProduct, error) {
	rows, err := d.conn.Query(`
SELECT g.code, g.fullName, g.capacity, g.kindCode, g.warehouseQty, g.shopQty,
       p.fsrarId, p.shortName, p.fullName, p.inn
FROM regulatory_products g
JOIN producers p ON p.fsrarId = g.producerFsrarId
ORDER BY p.shortName, g.fullName
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RegulatoryProduct
	for rows.Next() {
		var g internal.RegulatoryProduct
		if err := rows.Scan(
			&g.Code, &g.FullName, &g.Capacity, &g.KindCode, &g.Stock.Warehouse, &g.Stock.Shop,
			&g.Producer.FSRARID, &g.Producer.ShortName, &g.Producer.FullName, &g.Producer.INN,
		); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// InsertLinks adds the given links, ignoring pairs that already exist, and
// reports how many rows were new. Links are never deleted here: re-matching
// only adds.
func (d *DB) InsertLinks(links []internal.Link) (int, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	added := 0
	for _, link := range links {
		res, err := tx.Exec(`INSERT OR IGNORE INTO links (uuid, code) VALUES (?, ?)`, link.UUID, link.Code)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	return added, tx.Commit()
}

// ListLinks returns links in insertion order; the allocator depends on it.
func (d *DB) ListLinks() ([]internal.Link, error) {
	rows, err := d.conn.Query(`SELECT uuid, code FROM links ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Link
	for rows.Next() {
		var link internal.Link
		if err := rows.Scan(&link.UUID, &link.Code); err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

func (d *DB) ReplaceSales(date string, sales []internal.SaleRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM sales WHERE saleDate = ?`, date); err != nil {
		return err
	}
	for _, sale := range sales {
		if _, err := tx.Exec(`INSERT INTO sales (saleDate, uuid, quantity) VALUES (?, ?, ?)`, date, sale.UUID, sale.Quantity); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListSales(date string) ([]internal.SaleRecord, error) {
	rows, err := d.conn.Query(`SELECT uuid, quantity FROM sales WHERE saleDate = ? ORDER BY uuid`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SaleRecord
	for rows.Next() {
		var sale internal.SaleRecord
		if err := rows.Scan(&sale.UUID, &sale.Quantity); err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

// ApplyAllocation persists one allocation run as a single unit: the journal
// rows for the date and the register decrements commit together or not at
// all. Replaying a run without this atomicity would double-deplete.
func (d *DB) ApplyAllocation(date string, entries []internal.JournalEntry, stocks map[string]int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM journal WHERE saleDate = ?`, date); err != nil {
		return err
	}

	for i, e := range entries {
		if _, err := tx.Exec(`
INSERT INTO journal (saleDate, rowNo, commercialName, regulatoryName, code, kindCode, capacity, quantity, price)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, date, i+1, e.CommercialName, e.RegulatoryName, e.Code, e.KindCode, e.Capacity, e.Quantity, e.Price.String()); err != nil {
			return err
		}
	}

	for code, qty := range stocks {
		if _, err := tx.Exec(`UPDATE regulatory_products SET shopQty = ? WHERE code = ?`, qty, code); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RevertAllocation puts back the register quantities the stored journal for
// the date consumed and removes its rows, in one transaction. Re-allocating a
// date without reverting first would deplete the registers twice.
func (d *DB) RevertAllocation(date string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`SELECT code, SUM(quantity) FROM journal WHERE saleDate = ? GROUP BY code`, date)
	if err != nil {
		return err
	}
	consumed := map[string]int{}
	for rows.Next() {
		var code string
		var qty int
		if err := rows.Scan(&code, &qty); err != nil {
			_ = rows.Close()
			return err
		}
		consumed[code] = qty
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for code, qty := range consumed {
		if _, err := tx.Exec(`UPDATE regulatory_products SET shopQty = COALESCE(shopQty, 0) + ? WHERE code = ?`, qty, code); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM journal WHERE saleDate = ?`, date); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) ListJournal(date string) ([]internal.JournalEntry, error) {
	rows, err := d.conn.Query(`
SELECT commercialName, regulatoryName, code, kindCode, capacity, quantity, price
FROM journal WHERE saleDate = ? ORDER BY rowNo
`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.JournalEntry
	for rows.Next() {
		var e internal.JournalEntry
		var price string
		if err := rows.Scan(&e.CommercialName, &e.RegulatoryName, &e.Code, &e.KindCode, &e.Capacity, &e.Quantity, &price); err != nil {
			return nil, err
		}
		e.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("journal %s row: bad price %q: %w", date, price, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
