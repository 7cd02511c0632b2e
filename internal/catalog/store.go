package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xtding233/scale-backend/internal/drycost"
)

var ErrUnknownDriver = errors.New("unknown catalog driver")

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// PartRecord is a part definition as stored in the database.
type PartRecord struct {
	Name      string
	Title     string
	Cost      float64
	Resources []drycost.Resource
	Modules   []string
}

// Store reads part definitions from sqlite or postgres.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the catalog database.
func Open(driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the schema if missing.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS parts (
	name TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	cost REAL NOT NULL DEFAULT 0
	)`,
		`CREATE TABLE IF NOT EXISTS part_resources (
	part TEXT NOT NULL,
	resource TEXT NOT NULL,
	max_amount REAL NOT NULL DEFAULT 0,
	unit_cost REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (part, resource)
	)`,
		`CREATE TABLE IF NOT EXISTS part_modules (
	part TEXT NOT NULL,
	position INTEGER NOT NULL,
	module TEXT NOT NULL,
	PRIMARY KEY (part, position)
	)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// bind rewrites ? placeholders for postgres.
func (s *Store) bind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Insert writes one part and its resources/modules in a transaction.
func (s *Store) Insert(ctx context.Context, p PartRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO parts (name, title, cost) VALUES (?, ?, ?)`), p.Name, p.Title, p.Cost); err != nil {
		return fmt.Errorf("insert part %s: %w", p.Name, err)
	}
	for _, r := range p.Resources {
		if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO part_resources (part, resource, max_amount, unit_cost) VALUES (?, ?, ?, ?)`),
			p.Name, r.Name, r.MaxAmount, r.UnitCost); err != nil {
			return fmt.Errorf("insert resource %s/%s: %w", p.Name, r.Name, err)
		}
	}
	for i, m := range p.Modules {
		if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO part_modules (part, position, module) VALUES (?, ?, ?)`), p.Name, i, m); err != nil {
			return fmt.Errorf("insert module %s/%s: %w", p.Name, m, err)
		}
	}
	return tx.Commit()
}

// Load reads every part, ordered by name.
func (s *Store) Load(ctx context.Context) ([]PartRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, title, cost FROM parts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	var out []PartRecord
	idx := map[string]int{}
	for rows.Next() {
		var p PartRecord
		if err := rows.Scan(&p.Name, &p.Title, &p.Cost); err != nil {
			rows.Close()
			return nil, err
		}
		idx[p.Name] = len(out)
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT part, resource, max_amount, unit_cost FROM part_resources ORDER BY part, resource`)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	for rows.Next() {
		var part string
		var r drycost.Resource
		if err := rows.Scan(&part, &r.Name, &r.MaxAmount, &r.UnitCost); err != nil {
			rows.Close()
			return nil, err
		}
		if i, ok := idx[part]; ok {
			out[i].Resources = append(out[i].Resources, r)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT part, module FROM part_modules ORDER BY part, position`)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var part, module string
		if err := rows.Scan(&part, &module); err != nil {
			return nil, err
		}
		if i, ok := idx[part]; ok {
			out[i].Modules = append(out[i].Modules, module)
		}
	}
	return out, rows.Err()
}

// Populate loads the database into cat the way a lazy loader would: parts
// are published first, prototypes are attached afterwards.
func (s *Store) Populate(ctx context.Context, cat *Catalog, scaleModule string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	recs, err := s.Load(ctx)
	if err != nil {
		return err
	}
	parts := make([]*Part, len(recs))
	for i, r := range recs {
		parts[i] = NewPart(r.Name, r.Title, r.Cost)
	}
	cat.Append(parts...)
	for i, r := range recs {
		parts[i].SetPrototype(NewPrototype(r.Resources, r.Modules, scaleModule))
	}
	log.Info("entity catalog populated", "parts", len(parts))
	return nil
}
