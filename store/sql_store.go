package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hermes-backend/models"
)

// Compile-time contract assertions.
var (
	_ Backend = (*SQLBackend)(nil)
	_ Store   = (*sqlRecords)(nil)
)

var sqlOpen = sql.Open

// SQLBackend stores records in PostgreSQL or SQLite through database/sql.
type SQLBackend struct {
	db *sql.DB
	d  dialect
}

// OpenPostgres connects to PostgreSQL using lib/pq.
func OpenPostgres(ctx context.Context, opts Options) (*SQLBackend, error) {
	db, err := sqlOpen("postgres", opts.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("gagal membuka koneksi PostgreSQL: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	lifetime := opts.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 10 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(lifetime)

	return newSQLBackend(ctx, db, DriverPostgres, opts.ConnectTimeout)
}

// OpenSQLite opens (and creates if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, opts Options) (*SQLBackend, error) {
	path := opts.SQLitePath
	if path == "" {
		path = filepath.Join("database", "personnel.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sqlOpen("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("gagal membuka basis data SQLite: %w", err)
	}
	// A single writer keeps SQLite from returning SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	return newSQLBackend(ctx, db, DriverSQLite, opts.ConnectTimeout)
}

// NewSQLBackend wraps an already opened database. Used by tests.
func NewSQLBackend(db *sql.DB, driver string) (*SQLBackend, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLBackend{db: db, d: d}, nil
}

func newSQLBackend(ctx context.Context, db *sql.DB, driver string, timeout time.Duration) (*SQLBackend, error) {
	b, err := NewSQLBackend(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := b.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("gagal melakukan ping ke basis data %s: %w", driver, err)
	}
	return b, nil
}

func (b *SQLBackend) Driver() string { return b.d.name }

func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.d.translate(b.db.PingContext(ctx))
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

// Migrate creates the tables and indexes of the given variants.
func (b *SQLBackend) Migrate(ctx context.Context, variants ...models.Variant) error {
	for _, v := range variants {
		for _, stmt := range b.d.schemaStatements(v) {
			if _, err := b.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate %s: %w", v.Table, b.d.translate(err))
			}
		}
	}
	return nil
}

func (b *SQLBackend) Records(v models.Variant) Store {
	cols := selectColumns(v)
	return &sqlRecords{
		db:      b.db,
		d:       b.d,
		v:       v,
		columns: strings.Join(cols, ", "),
	}
}

type sqlRecords struct {
	db      *sql.DB
	d       dialect
	v       models.Variant
	columns string
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *sqlRecords) Variant() models.Variant { return s.v }

func (s *sqlRecords) selectFrom(where string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", s.columns, s.v.Table)
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

func (s *sqlRecords) scan(row rowScanner) (*models.Record, error) {
	rec := &models.Record{KeyField: s.v.KeyField}
	optional := make([]sql.NullString, len(models.ColumnFields)-1)
	var chat sql.NullString
	var meta []byte

	dest := []any{&rec.ID, &rec.NaturalKey, &rec.Name}
	for i := range optional {
		dest = append(dest, &optional[i])
	}
	dest = append(dest, &chat)
	if s.v.HasMetadata {
		dest = append(dest, &meta)
	}
	dest = append(dest, &rec.CreatedAt, &rec.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	for i, f := range models.ColumnFields[1:] {
		if optional[i].Valid {
			v := optional[i].String
			rec.Set(f, &v)
		}
	}
	if chat.Valid {
		v := chat.String
		rec.ChatIdentity = &v
	}
	rec.Metadata = map[string]any{}
	if len(meta) > 0 {
		dec := json.NewDecoder(bytes.NewReader(meta))
		dec.UseNumber()
		if err := dec.Decode(&rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode additional_data of %s %d: %w", s.v.Table, rec.ID, err)
		}
		if rec.Metadata == nil {
			rec.Metadata = map[string]any{}
		}
	}
	return rec, nil
}

func (s *sqlRecords) queryOne(ctx context.Context, where string, args ...any) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, s.d.rebind(s.selectFrom(where)), args...)
	rec, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.d.translate(err)
	}
	return rec, nil
}

func (s *sqlRecords) queryMany(ctx context.Context, where string, args ...any) ([]models.Record, error) {
	q := s.selectFrom(where) + " ORDER BY LOWER(nama) ASC, id ASC"
	rows, err := s.db.QueryContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return nil, s.d.translate(err)
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		rec, err := s.scan(rows)
		if err != nil {
			return nil, s.d.translate(err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.d.translate(err)
	}
	return records, nil
}

func (s *sqlRecords) List(ctx context.Context) ([]models.Record, error) {
	return s.queryMany(ctx, "")
}

func (s *sqlRecords) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	return s.queryOne(ctx, "id = ?", id)
}

func (s *sqlRecords) GetByNaturalKey(ctx context.Context, key string) (*models.Record, error) {
	return s.queryOne(ctx, s.v.KeyField+" = ?", key)
}

func (s *sqlRecords) GetByChatIdentity(ctx context.Context, handle string) (*models.Record, error) {
	return s.queryOne(ctx, models.FieldChatIdentity.Column()+" = ?", handle)
}

func (s *sqlRecords) SearchByName(ctx context.Context, fragment string) ([]models.Record, error) {
	pattern := "%" + escapeLike(fragment) + "%"
	where := fmt.Sprintf(`%[1]s(nama) LIKE %[1]s(?) ESCAPE '\'`, s.d.lower)
	return s.queryMany(ctx, where, pattern)
}

func (s *sqlRecords) ListByStatus(ctx context.Context, status string) ([]models.Record, error) {
	return s.queryMany(ctx, "status = ?", status)
}

func (s *sqlRecords) FindByMetadata(ctx context.Context, key string, value any) ([]models.Record, error) {
	if !s.v.HasMetadata {
		return nil, fmt.Errorf("%w: %s has no additional_data", models.ErrUnsupported, s.v.Table)
	}
	if err := validateMetadataKey(key); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, models.Invalid("value of %q is not valid JSON: %v", key, err)
	}
	where, args := s.d.metadataMatch(key, string(raw))
	return s.queryMany(ctx, where, args...)
}

// fieldArgs returns the full-replace column list and values of in.
func (s *sqlRecords) fieldArgs(in models.Input) ([]string, []any, error) {
	cols := []string{s.v.KeyField}
	args := []any{in.NaturalKey}
	for _, f := range models.ColumnFields {
		cols = append(cols, f.Column())
		switch f {
		case models.FieldName:
			args = append(args, in.Name)
		case models.FieldStatus:
			args = append(args, statusOrDefault(in.Status))
		default:
			args = append(args, sqlValue(nullable(in.Value(f))))
		}
	}
	if s.v.HasMetadata {
		meta := in.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		raw, err := json.Marshal(meta)
		if err != nil {
			return nil, nil, models.Invalid("additional_data is not valid JSON: %v", err)
		}
		cols = append(cols, "additional_data")
		args = append(args, string(raw))
	}
	return cols, args, nil
}

func (s *sqlRecords) Create(ctx context.Context, in models.Input) (*models.Record, error) {
	cols, args, err := s.fieldArgs(in)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		s.v.Table, strings.Join(cols, ", "), placeholders(len(cols)))

	var id int64
	if err := s.db.QueryRowContext(ctx, s.d.rebind(q), args...).Scan(&id); err != nil {
		return nil, s.d.translate(err)
	}
	return s.mustGet(ctx, id)
}

func (s *sqlRecords) Replace(ctx context.Context, id int64, in models.Input) (*models.Record, error) {
	cols, args, err := s.fieldArgs(in)
	if err != nil {
		return nil, err
	}
	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", s.v.Table, strings.Join(sets, ", "))
	if err := s.exec(ctx, q, args...); err != nil {
		return nil, err
	}
	return s.mustGet(ctx, id)
}

// Patch writes exactly the fields present in p.
func (s *sqlRecords) Patch(ctx context.Context, id int64, p *models.Patch) (*models.Record, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return s.mustGet(ctx, id)
	}

	fields := p.Fields()
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		v, _ := p.Get(f)
		sets = append(sets, f.Column()+" = ?")
		args = append(args, sqlValue(v))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", s.v.Table, strings.Join(sets, ", "))
	if err := s.exec(ctx, q, args...); err != nil {
		return nil, err
	}
	return s.mustGet(ctx, id)
}

// PatchMetadataKey merges one key into additional_data in a single statement.
func (s *sqlRecords) PatchMetadataKey(ctx context.Context, id int64, key string, value any) error {
	if !s.v.HasMetadata {
		return fmt.Errorf("%w: %s has no additional_data", models.ErrUnsupported, s.v.Table)
	}
	if err := validateMetadataKey(key); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return models.Invalid("value of %q is not valid JSON: %v", key, err)
	}

	q := fmt.Sprintf("UPDATE %s SET additional_data = %s, updated_at = ? WHERE id = ?", s.v.Table, s.d.metadataSet)
	return s.exec(ctx, q, s.d.metadataPath(key), string(raw), time.Now().UTC(), id)
}

// Delete removes the row; deleting an absent id is not an error here.
func (s *sqlRecords) Delete(ctx context.Context, id int64) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.v.Table)
	_, err := s.db.ExecContext(ctx, s.d.rebind(q), id)
	return s.d.translate(err)
}

// exec runs an update that must touch exactly one row.
func (s *sqlRecords) exec(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return s.d.translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.d.translate(err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *sqlRecords) mustGet(ctx context.Context, id int64) (*models.Record, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, models.ErrNotFound
	}
	return rec, nil
}

// sqlValue passes NULL for a nil string.
func sqlValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
