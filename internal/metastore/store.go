// Package metastore keeps metadata envelopes in a sqlite database so that
// large libraries are indexed once and read per class on demand.
package metastore

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
)

const sqliteDriverName = "sqlite"

// Store is a metadata.Finder backed by sqlite. Every library shares the
// database file and is told apart by its key.
type Store struct {
	db     *sql.DB
	key    string
	logger *slog.Logger

	classStmt    *sql.Stmt
	partsStmt    *sql.Stmt
	namesStmt    *sql.Stmt
	packagesStmt *sql.Stmt

	cacheMu sync.RWMutex
	classes map[names.ClassID]*metadata.ClassData
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates the store at path for the library key.
func Open(path, key string, opts ...Option) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("metadata store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("metadata store path %q is a directory, expected file", cleanPath)
	}
	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping metadata store %q: %w", cleanPath, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		key = "default"
	}
	s := &Store{db: db, key: key, logger: slog.Default(), classes: make(map[names.ClassID]*metadata.ClassData)}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.prepare(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) prepare() error {
	var err error
	if s.classStmt, err = s.db.Prepare(`SELECT payload, source FROM envelopes
WHERE library = ? AND kind = ? AND name = ?`); err != nil {
		return fmt.Errorf("prepare class stmt: %w", err)
	}
	if s.partsStmt, err = s.db.Prepare(`SELECT payload FROM envelopes
WHERE library = ? AND kind = ? AND package = ?
ORDER BY id`); err != nil {
		return fmt.Errorf("prepare parts stmt: %w", err)
	}
	if s.namesStmt, err = s.db.Prepare(`SELECT short_name FROM envelopes
WHERE library = ? AND kind = ? AND package = ? AND top_level = 1
ORDER BY short_name`); err != nil {
		return fmt.Errorf("prepare class names stmt: %w", err)
	}
	if s.packagesStmt, err = s.db.Prepare(`SELECT DISTINCT package FROM envelopes WHERE library = ?`); err != nil {
		return fmt.Errorf("prepare packages stmt: %w", err)
	}
	return nil
}

func (s *Store) Key() string { return s.key }

func (s *Store) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.classStmt, s.partsStmt, s.namesStmt, s.packagesStmt} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

func (s *Store) clearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.classes = make(map[names.ClassID]*metadata.ClassData)
}

// Import replaces everything previously imported from source with envs.
func (s *Store) Import(source string, envs []*metadata.Envelope) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM envelopes WHERE library = ? AND source = ?`, s.key, source); err != nil {
		return fmt.Errorf("clear %s: %w", source, err)
	}
	insert, err := tx.Prepare(`INSERT INTO envelopes (library, kind, name, package, short_name, top_level, source, payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	for _, env := range envs {
		row, err := rowOf(env)
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		if env.Kind == metadata.KindClass {
			if _, err := tx.Exec(`DELETE FROM envelopes WHERE library = ? AND kind = ? AND name = ?`,
				s.key, int(metadata.KindClass), env.Name); err != nil {
				return fmt.Errorf("replace class %s: %w", env.Name, err)
			}
		}
		if _, err := insert.Exec(s.key, int(env.Kind), env.Name, row.pkg, row.short, row.topLevel, source, env.Marshal()); err != nil {
			return fmt.Errorf("insert %s %s: %w", env.Kind, env.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	s.clearCache()
	s.logger.Debug("imported metadata", "library", s.key, "source", source, "envelopes", len(envs))
	return nil
}

// ImportFile imports the envelopes of one metadata file.
func (s *Store) ImportFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	envs, err := metadata.ReadEnvelopes(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return s.Import(path, envs)
}

// Remove drops everything imported from source.
func (s *Store) Remove(source string) error {
	if _, err := s.db.Exec(`DELETE FROM envelopes WHERE library = ? AND source = ?`, s.key, source); err != nil {
		return fmt.Errorf("remove %s: %w", source, err)
	}
	s.clearCache()
	return nil
}

// Sources lists the imported files of the library.
func (s *Store) Sources() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT source FROM envelopes WHERE library = ? ORDER BY source`, s.key)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// Library loads the whole library into memory.
func (s *Store) Library() (*metadata.Library, error) {
	rows, err := s.db.Query(`SELECT payload, source FROM envelopes WHERE library = ? ORDER BY id`, s.key)
	if err != nil {
		return nil, fmt.Errorf("query library: %w", err)
	}
	defer rows.Close()
	lib := metadata.NewLibrary(s.key)
	for rows.Next() {
		var payload []byte
		var source string
		if err := rows.Scan(&payload, &source); err != nil {
			return nil, err
		}
		env := &metadata.Envelope{}
		if err := env.Unmarshal(payload); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		lib.Add(env, source)
	}
	return lib, rows.Err()
}

func (s *Store) FindClassData(id names.ClassID) (*metadata.ClassData, bool) {
	s.cacheMu.RLock()
	d, ok := s.classes[id]
	s.cacheMu.RUnlock()
	if ok {
		return d, true
	}

	var payload []byte
	var source string
	err := s.classStmt.QueryRow(s.key, int(metadata.KindClass), id.String()).Scan(&payload, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("class lookup failed", "library", s.key, "class", id.String(), "error", err)
		return nil, false
	}
	env := &metadata.Envelope{}
	if err := env.Unmarshal(payload); err != nil {
		s.logger.Warn("stored class is unreadable", "library", s.key, "class", id.String(), "error", err)
		return nil, false
	}
	d = &metadata.ClassData{ID: id, Envelope: env, Source: source}

	s.cacheMu.Lock()
	s.classes[id] = d
	s.cacheMu.Unlock()
	return d, true
}

func (s *Store) PackageParts(fq names.FqName) []*metadata.Envelope {
	rows, err := s.partsStmt.Query(s.key, int(metadata.KindPackage), fq.String())
	if err != nil {
		s.logger.Warn("package lookup failed", "library", s.key, "package", fq.String(), "error", err)
		return nil
	}
	defer rows.Close()
	var out []*metadata.Envelope
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			s.logger.Warn("package lookup failed", "library", s.key, "package", fq.String(), "error", err)
			return out
		}
		env := &metadata.Envelope{}
		if err := env.Unmarshal(payload); err != nil {
			s.logger.Warn("stored package part is unreadable", "library", s.key, "package", fq.String(), "error", err)
			continue
		}
		out = append(out, env)
	}
	return out
}

func (s *Store) ClassNames(fq names.FqName) []names.Name {
	rows, err := s.namesStmt.Query(s.key, int(metadata.KindClass), fq.String())
	if err != nil {
		s.logger.Warn("class name lookup failed", "library", s.key, "package", fq.String(), "error", err)
		return nil
	}
	defer rows.Close()
	var out []names.Name
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return out
		}
		out = append(out, names.Name(n))
	}
	return out
}

// Packages lists the packages with declarations together with their parents.
func (s *Store) Packages() []names.FqName {
	rows, err := s.packagesStmt.Query(s.key)
	if err != nil {
		s.logger.Warn("package listing failed", "library", s.key, "error", err)
		return nil
	}
	defer rows.Close()
	seen := make(map[names.FqName]bool)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			break
		}
		for fq := names.NewFqName(p); !seen[fq]; fq = fq.Parent() {
			seen[fq] = true
			if fq.IsRoot() {
				break
			}
		}
	}
	out := make([]names.FqName, 0, len(seen))
	for fq := range seen {
		out = append(out, fq)
	}
	slices.SortFunc(out, func(a, b names.FqName) int { return strings.Compare(a.String(), b.String()) })
	return out
}

type row struct {
	pkg      string
	short    string
	topLevel bool
}

func rowOf(env *metadata.Envelope) (row, error) {
	switch env.Kind {
	case metadata.KindClass:
		id := names.ParseClassID(env.Name)
		return row{pkg: id.Package.String(), short: id.ShortName().String(), topLevel: !id.IsNested()}, nil
	case metadata.KindPackage:
		return row{pkg: names.NewFqName(env.Name).String()}, nil
	default:
		return row{}, fmt.Errorf("envelope %q has unknown kind %d", env.Name, int(env.Kind))
	}
}

func migrate(db *sql.DB) error {
	var version int
	_ = db.QueryRow(`PRAGMA user_version`).Scan(&version)
	if version == 0 {
		_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS envelopes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  library TEXT NOT NULL,
  kind INTEGER NOT NULL,
  name TEXT NOT NULL,
  package TEXT NOT NULL DEFAULT '',
  short_name TEXT NOT NULL DEFAULT '',
  top_level INTEGER NOT NULL DEFAULT 0,
  source TEXT NOT NULL,
  payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_envelopes_name ON envelopes(library, kind, name);
CREATE INDEX IF NOT EXISTS idx_envelopes_package ON envelopes(library, kind, package);
CREATE INDEX IF NOT EXISTS idx_envelopes_source ON envelopes(library, source);
PRAGMA user_version = 1;
`)
		if err != nil {
			return fmt.Errorf("migrate metadata store: %w", err)
		}
	}
	return nil
}
