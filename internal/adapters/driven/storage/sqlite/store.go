package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/docvault-labs/docvault-core/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docvault/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docvault", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// EmbeddingStore returns an EmbeddingStore interface backed by this store.
func (s *Store) EmbeddingStore() driven.EmbeddingStore {
	return &embeddingStore{store: s}
}

// AuditStore returns an AuditStore interface backed by this store.
func (s *Store) AuditStore() driven.AuditStore {
	return &auditStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, text, vendor, amount, txn_date, category,
			entity_confidence, entities_extracted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			text = excluded.text,
			vendor = excluded.vendor,
			amount = excluded.amount,
			txn_date = excluded.txn_date,
			category = excluded.category,
			entity_confidence = excluded.entity_confidence,
			entities_extracted_at = excluded.entities_extracted_at,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, doc.Text, doc.Vendor,
		nullFloat(doc.Amount), nullTime(doc.TxnDate), doc.Category,
		doc.EntityConfidence, nullTime(doc.EntitiesExtractedAt),
		doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, text, vendor, amount, txn_date, category,
			entity_confidence, entities_extracted_at, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocument(row)
}

// GetDocumentText retrieves only the extracted text of a document.
func (s *documentStore) GetDocumentText(ctx context.Context, id string) (string, error) {
	var text string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT text FROM documents WHERE id = ?", id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting document text: %w", err)
	}
	return text, nil
}

// QueryDocuments returns documents matching the filter. Every filter
// value is bound as a parameter; no user text enters the SQL template.
func (s *documentStore) QueryDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	query := `
		SELECT id, title, text, vendor, amount, txn_date, category,
			entity_confidence, entities_extracted_at, created_at, updated_at
		FROM documents`

	var conditions []string
	var args []any

	if filter.Vendor != "" {
		conditions = append(conditions, "vendor = ? COLLATE NOCASE")
		args = append(args, filter.Vendor)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.MinAmount != nil {
		conditions = append(conditions, "amount >= ?")
		args = append(args, *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		conditions = append(conditions, "amount <= ?")
		args = append(args, *filter.MaxAmount)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "txn_date >= ?")
		args = append(args, filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "txn_date <= ?")
		args = append(args, filter.DateTo.UTC())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY txn_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListDocuments returns all documents in creation order.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, text, vendor, amount, txn_date, category,
			entity_confidence, entities_extracted_at, created_at, updated_at
		FROM documents ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// UpdateDocumentEntities writes the derived entity fields and stamps
// the extraction time.
func (s *documentStore) UpdateDocumentEntities(ctx context.Context, id string, update domain.EntityUpdate) error {
	now := time.Now().UTC()
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET
			vendor = ?,
			amount = ?,
			txn_date = ?,
			category = ?,
			entity_confidence = ?,
			entities_extracted_at = ?,
			updated_at = ?
		WHERE id = ?
	`, update.Vendor, nullFloat(update.Amount), nullTime(update.TxnDate),
		update.Category, update.Confidence, now, now, id)
	if err != nil {
		return fmt.Errorf("updating document entities: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating document entities: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document. Its embedding row goes with it
// via the foreign key cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ==================== Embedding Store ====================

// embeddingStore implements driven.EmbeddingStore.
type embeddingStore struct {
	store *Store
}

var _ driven.EmbeddingStore = (*embeddingStore)(nil)

// Save stores or replaces the embedding record for a document. The
// whole row is replaced in one statement.
func (s *embeddingStore) Save(ctx context.Context, rec domain.EmbeddingRecord) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (document_id, vector, text_hash, vectorized_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			vector = excluded.vector,
			text_hash = excluded.text_hash,
			vectorized_at = excluded.vectorized_at
	`, rec.DocumentID, float32SliceToBytes(rec.Vector), rec.TextHash, rec.VectorizedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// Get retrieves the embedding record for a document.
func (s *embeddingStore) Get(ctx context.Context, documentID string) (*domain.EmbeddingRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, vector, text_hash, vectorized_at
		FROM embeddings WHERE document_id = ?
	`, documentID)

	var rec domain.EmbeddingRecord
	var blob []byte
	var vectorizedAt sql.NullTime
	if err := row.Scan(&rec.DocumentID, &blob, &rec.TextHash, &vectorizedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}

	rec.Vector = bytesToFloat32Slice(blob)
	if vectorizedAt.Valid {
		rec.VectorizedAt = vectorizedAt.Time
	}
	return &rec, nil
}

// List returns all embedding records.
func (s *embeddingStore) List(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, vector, text_hash, vectorized_at FROM embeddings
	`)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord
	for rows.Next() {
		var rec domain.EmbeddingRecord
		var blob []byte
		var vectorizedAt sql.NullTime
		if err := rows.Scan(&rec.DocumentID, &blob, &rec.TextHash, &vectorizedAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		rec.Vector = bytesToFloat32Slice(blob)
		if vectorizedAt.Valid {
			rec.VectorizedAt = vectorizedAt.Time
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes the embedding record for a document.
func (s *embeddingStore) Delete(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM embeddings WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting embedding: %w", err)
	}
	return nil
}

// ==================== Audit Store ====================

// auditStore implements driven.AuditStore. The table is append-only:
// no update or delete statement exists in this adapter.
type auditStore struct {
	store *Store
}

var _ driven.AuditStore = (*auditStore)(nil)

const auditColumns = `id, level, action, resource_type, resource_id, actor,
	timestamp, details, location, device, success, error_message,
	checksum, previous_entry_id, previous_checksum`

// Append stores a new entry.
func (s *auditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO audit_entries (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, string(entry.Level), entry.Action, entry.ResourceType,
		entry.ResourceID, entry.Actor,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.Details, entry.Location, entry.Device, entry.Success,
		entry.ErrorMessage, entry.Checksum,
		entry.PreviousEntryID, entry.PreviousChecksum)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *auditStore) Get(ctx context.Context, id string) (*domain.AuditEntry, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+auditColumns+" FROM audit_entries WHERE id = ?", id)
	return scanAuditEntry(row)
}

// Last returns the most recently appended entry.
func (s *auditStore) Last(ctx context.Context) (*domain.AuditEntry, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+auditColumns+" FROM audit_entries ORDER BY rowid DESC LIMIT 1")
	return scanAuditEntry(row)
}

// Recent returns up to limit entries, most recent first. A
// non-positive limit returns the whole trail.
func (s *auditStore) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	query := "SELECT " + auditColumns + " FROM audit_entries ORDER BY rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// nullFloat converts *float64 to a driver-friendly value.
func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// nullTime converts *time.Time to a driver-friendly value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var amount sql.NullFloat64
	var txnDate, extractedAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.Title, &doc.Text, &doc.Vendor,
		&amount, &txnDate, &doc.Category, &doc.EntityConfidence,
		&extractedAt, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	applyNullables(&doc, amount, txnDate, extractedAt)
	return &doc, nil
}

// scanDocuments scans a document result set.
func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var amount sql.NullFloat64
		var txnDate, extractedAt sql.NullTime

		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Text, &doc.Vendor,
			&amount, &txnDate, &doc.Category, &doc.EntityConfidence,
			&extractedAt, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		applyNullables(&doc, amount, txnDate, extractedAt)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// applyNullables copies nullable columns onto the document.
func applyNullables(doc *domain.Document, amount sql.NullFloat64, txnDate, extractedAt sql.NullTime) {
	if amount.Valid {
		doc.Amount = &amount.Float64
	}
	if txnDate.Valid {
		t := txnDate.Time
		doc.TxnDate = &t
	}
	if extractedAt.Valid {
		t := extractedAt.Time
		doc.EntitiesExtractedAt = &t
	}
}

// auditScanner is satisfied by both *sql.Row and *sql.Rows.
type auditScanner interface {
	Scan(dest ...any) error
}

// scanAuditEntry scans a single audit row, mapping sql.ErrNoRows to
// domain.ErrNotFound.
func scanAuditEntry(row *sql.Row) (*domain.AuditEntry, error) {
	entry, err := scanAuditEntryRow(row)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return entry, err
}

// scanAuditEntryRow scans an audit row from any scanner.
func scanAuditEntryRow(row auditScanner) (*domain.AuditEntry, error) {
	var entry domain.AuditEntry
	var level, timestamp string

	if err := row.Scan(&entry.ID, &level, &entry.Action, &entry.ResourceType,
		&entry.ResourceID, &entry.Actor, &timestamp, &entry.Details,
		&entry.Location, &entry.Device, &entry.Success, &entry.ErrorMessage,
		&entry.Checksum, &entry.PreviousEntryID, &entry.PreviousChecksum); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning audit entry: %w", err)
	}

	entry.Level = domain.AuditLevel(level)
	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing audit timestamp: %w", err)
	}
	entry.Timestamp = ts

	return &entry, nil
}
