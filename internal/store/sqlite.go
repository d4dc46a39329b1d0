package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.CommerceStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if logger == nil {
		logger = slog.Default()
	}
	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		form_name   TEXT,
		status      TEXT NOT NULL,
		items       TEXT,
		fields      TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id          TEXT PRIMARY KEY,
		ai_active   INTEGER NOT NULL DEFAULT 1,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transcript (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		sender          TEXT NOT NULL,
		body            TEXT NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_conv ON transcript(conversation_id, id);

	CREATE TABLE IF NOT EXISTS id_counters (
		prefix TEXT PRIMARY KEY,
		value  INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// nextID mints "<PREFIX>-<n>" with n starting at 1001 so every id carries
// at least four digits.
func (s *SQLiteStore) nextID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "ORD"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO id_counters (prefix, value) VALUES (?, 1000)
		 ON CONFLICT(prefix) DO NOTHING`, prefix); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE id_counters SET value = value + 1 WHERE prefix = ?`, prefix); err != nil {
		return "", err
	}

	var value int64
	if err := tx.QueryRowContext(ctx,
		`SELECT value FROM id_counters WHERE prefix = ?`, prefix).Scan(&value); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d", prefix, value), nil
}

func (s *SQLiteStore) CreateOrder(ctx context.Context, idPrefix string, args domain.CreateOrderArgs) (string, error) {
	rec := domain.Record{
		Kind:   domain.KindOrder,
		Status: domain.StatusPending,
		Items:  args.Items,
		Fields: map[string]string{
			"Full Name":        args.CustomerName,
			"Phone Number":     args.Phone,
			"Shipping Address": args.Address,
			"Payment Method":   args.PaymentMethod,
		},
	}
	return s.insertRecord(ctx, idPrefix, rec)
}

func (s *SQLiteStore) CreateBooking(ctx context.Context, idPrefix string, args domain.CreateBookingArgs) (string, error) {
	rec := domain.Record{
		Kind:   domain.KindBooking,
		Status: domain.StatusPending,
		Fields: map[string]string{
			"Full Name":    args.CustomerName,
			"Phone Number": args.Phone,
			"Service Name": args.ServiceName,
			"Date":         args.Date,
			"Time":         args.Time,
		},
	}
	return s.insertRecord(ctx, idPrefix, rec)
}

func (s *SQLiteStore) insertRecord(ctx context.Context, idPrefix string, rec domain.Record) (string, error) {
	id, err := s.nextID(ctx, idPrefix)
	if err != nil {
		return "", fmt.Errorf("mint record id: %w", err)
	}

	items, err := json.Marshal(rec.Items)
	if err != nil {
		return "", err
	}
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, kind, form_name, status, items, fields, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(rec.Kind), rec.FormName, string(rec.Status), string(items), string(fields), time.Now(),
	)
	if err != nil {
		return "", err
	}

	s.logger.Info("record created", "id", id, "kind", rec.Kind)
	return id, nil
}

// LookupRecord resolves an order/booking by exact id, or by any phone-like
// field matching the given value. A miss returns (nil, nil).
func (s *SQLiteStore) LookupRecord(ctx context.Context, idOrPhone string) (*domain.Record, error) {
	idOrPhone = strings.TrimSpace(idOrPhone)
	if idOrPhone == "" {
		return nil, nil
	}

	rec, err := s.scanRecord(s.db.QueryRowContext(ctx,
		`SELECT id, kind, form_name, status, items, fields, created_at FROM records WHERE id = ?`,
		idOrPhone))
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	// Phone lookup: fields are free-form JSON, so scan candidates and match
	// in code against the phone alias labels.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, form_name, status, items, fields, created_at FROM records ORDER BY created_at DESC LIMIT 200`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := s.scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		for key, val := range rec.Fields {
			if isPhoneLabel(key) && strings.TrimSpace(val) == idOrPhone {
				return rec, nil
			}
		}
	}
	return nil, rows.Err()
}

func isPhoneLabel(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "phone", "phone number", "mobile", "contact number":
		return true
	}
	return false
}

func (s *SQLiteStore) UpdateRecordField(ctx context.Context, recordID, field, value string) error {
	rec, err := s.scanRecord(s.db.QueryRowContext(ctx,
		`SELECT id, kind, form_name, status, items, fields, created_at FROM records WHERE id = ?`,
		recordID))
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("record %s not found", recordID)
	}

	// Read-modify-write of the whole field map; never a partial in-place edit.
	fields := make(map[string]string, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		fields[k] = v
	}
	// Overwrite an existing label case-insensitively so "phone number" and
	// "Phone Number" don't end up as two keys.
	target := field
	for k := range fields {
		if strings.EqualFold(k, field) {
			target = k
			break
		}
	}
	fields[target] = value

	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE records SET fields = ? WHERE id = ?`, string(data), recordID)
	return err
}

func (s *SQLiteStore) UpdateRecordStatus(ctx context.Context, recordID string, status domain.RecordStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE records SET status = ? WHERE id = ?`, string(status), recordID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("record %s not found", recordID)
	}
	return err
}

func (s *SQLiteStore) SetConversationAIActive(ctx context.Context, conversationID string, active bool) error {
	flag := 0
	if active {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, ai_active, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET ai_active = excluded.ai_active, updated_at = excluded.updated_at`,
		conversationID, flag, time.Now(), time.Now(),
	)
	return err
}

func (s *SQLiteStore) ConversationAIActive(ctx context.Context, conversationID string) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ctx,
		`SELECT ai_active FROM conversations WHERE id = ?`, conversationID).Scan(&flag)
	if err == sql.ErrNoRows {
		// Unknown conversations default to AI-driven.
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return flag == 1, nil
}

func (s *SQLiteStore) AppendTranscript(ctx context.Context, conversationID string, msg domain.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcript (conversation_id, sender, body, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, string(msg.Sender), string(body), time.Now(),
	)
	return err
}

// Transcript returns the most recent limit messages in chronological order.
func (s *SQLiteStore) Transcript(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM (
			SELECT id, body FROM transcript WHERE conversation_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var msg domain.Message
		if err := json.Unmarshal([]byte(body), &msg); err != nil {
			s.logger.Warn("skipping unreadable transcript row", "conversation", conversationID, "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanRecord(row *sql.Row) (*domain.Record, error) {
	rec, err := scanRecordFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (s *SQLiteStore) scanRecordRows(rows *sql.Rows) (*domain.Record, error) {
	return scanRecordFrom(rows)
}

func scanRecordFrom(sc rowScanner) (*domain.Record, error) {
	var rec domain.Record
	var kind, items, fields sql.NullString
	if err := sc.Scan(&rec.ID, &kind, &rec.FormName, (*string)(&rec.Status), &items, &fields, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Kind = domain.RecordKind(kind.String)
	if items.Valid && items.String != "" {
		if err := json.Unmarshal([]byte(items.String), &rec.Items); err != nil {
			return nil, fmt.Errorf("decode items for %s: %w", rec.ID, err)
		}
	}
	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode fields for %s: %w", rec.ID, err)
		}
	}
	if rec.Fields == nil {
		rec.Fields = map[string]string{}
	}
	return &rec, nil
}
