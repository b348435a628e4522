package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs. pgxmock satisfies it in
// tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is satisfied by both DB and pgx.Tx so helpers run inside and
// outside transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists leads and images in the relational database.
type PostgresStore struct {
	db DB
}

// NewPostgresStore initializes a store backed by a pgx pool.
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresStore{db: db}
}

const leadColumns = "id, name, email, phone, status, version, cached_image_count, created_at, updated_at"

const imageColumns = "id, lead_id, base64_data, file_name, content_type, size_bytes, description, uploaded_at, created_at, modified_at"

func (s *PostgresStore) InsertLead(ctx context.Context, lead *Lead) error {
	rec := lead.Record()
	query := `
		INSERT INTO leads (id, name, email, phone, status, version, cached_image_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query,
		rec.ID.UUID(),
		rec.Name,
		rec.Email,
		rec.Phone,
		string(rec.Status),
		rec.Version,
		rec.CachedImageCount,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("leads: insert lead: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id LeadID) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	rec, err := scanLeadRecord(s.db.QueryRow(ctx, query, id.UUID()))
	if err != nil {
		return nil, err
	}
	return LeadFromRecord(rec, nil, false)
}

func (s *PostgresStore) GetLeadWithImages(ctx context.Context, id LeadID) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	rec, err := scanLeadRecord(s.db.QueryRow(ctx, query, id.UUID()))
	if err != nil {
		return nil, err
	}
	images, err := s.ListImagesByLead(ctx, id)
	if err != nil {
		return nil, err
	}
	return LeadFromRecord(rec, images, true)
}

func (s *PostgresStore) LeadExists(ctx context.Context, id LeadID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`
	if err := s.db.QueryRow(ctx, query, id.UUID()).Scan(&exists); err != nil {
		return false, fmt.Errorf("leads: lead exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, lead *Lead) error {
	return s.updateLead(ctx, s.db, lead)
}

// updateLead performs the version-stamped conditional write. A stale stamp
// affects zero rows and surfaces ErrConflict so racing writers never both
// commit a capacity decision.
func (s *PostgresStore) updateLead(ctx context.Context, q querier, lead *Lead) error {
	rec := lead.Record()
	query := `
		UPDATE leads
		SET name = $2, email = $3, phone = $4, status = $5,
		    cached_image_count = $6, updated_at = $7, version = version + 1
		WHERE id = $1 AND version = $8
	`
	ct, err := q.Exec(ctx, query,
		rec.ID.UUID(),
		rec.Name,
		rec.Email,
		rec.Phone,
		string(rec.Status),
		rec.CachedImageCount,
		rec.UpdatedAt,
		rec.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("leads: update lead: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, rec.ID.UUID()).Scan(&exists); err != nil {
			return fmt.Errorf("leads: update lead precondition: %w", err)
		}
		if exists {
			return ErrConflict
		}
		return ErrLeadNotFound
	}
	lead.bumpVersion()
	return nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var clauses []string
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list leads: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		rec, err := scanLeadRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		lead, err := LeadFromRecord(rec, nil, false)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetImage(ctx context.Context, id ImageID) (*Image, error) {
	query := `SELECT ` + imageColumns + ` FROM lead_images WHERE id = $1`
	rec, err := scanImageRecord(s.db.QueryRow(ctx, query, id.UUID()))
	if err != nil {
		return nil, err
	}
	return ImageFromRecord(rec)
}

func (s *PostgresStore) ListImagesByLead(ctx context.Context, leadID LeadID) ([]*Image, error) {
	query := `SELECT ` + imageColumns + ` FROM lead_images WHERE lead_id = $1 ORDER BY uploaded_at, created_at`
	rows, err := s.db.Query(ctx, query, leadID.UUID())
	if err != nil {
		return nil, fmt.Errorf("leads: list images: %w", err)
	}
	defer rows.Close()

	var out []*Image
	for rows.Next() {
		rec, err := scanImageRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		img, err := ImageFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountImagesByLead(ctx context.Context, leadID LeadID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM lead_images WHERE lead_id = $1`
	if err := s.db.QueryRow(ctx, query, leadID.UUID()).Scan(&count); err != nil {
		return 0, fmt.Errorf("leads: count images: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ImageExists(ctx context.Context, id ImageID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM lead_images WHERE id = $1)`
	if err := s.db.QueryRow(ctx, query, id.UUID()).Scan(&exists); err != nil {
		return false, fmt.Errorf("leads: image exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ImageBelongsToLead(ctx context.Context, id ImageID, leadID LeadID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM lead_images WHERE id = $1 AND lead_id = $2)`
	if err := s.db.QueryRow(ctx, query, id.UUID(), leadID.UUID()).Scan(&exists); err != nil {
		return false, fmt.Errorf("leads: image ownership: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateImageDescription(ctx context.Context, img *Image) error {
	rec := img.Record()
	query := `UPDATE lead_images SET description = $2, modified_at = $3 WHERE id = $1`
	ct, err := s.db.Exec(ctx, query, rec.ID.UUID(), rec.Description, rec.ModifiedAt)
	if err != nil {
		return fmt.Errorf("leads: update image description: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}

func (s *PostgresStore) SetCachedImageCount(ctx context.Context, leadID LeadID, count int) error {
	query := `UPDATE leads SET cached_image_count = $2 WHERE id = $1`
	ct, err := s.db.Exec(ctx, query, leadID.UUID(), count)
	if err != nil {
		return fmt.Errorf("leads: set cached image count: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (s *PostgresStore) SaveNewImage(ctx context.Context, img *Image, lead *Lead) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("leads: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertImage(ctx, tx, img); err != nil {
		return err
	}
	if err := s.updateLead(ctx, tx, lead); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("leads: commit image save: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveNewImages(ctx context.Context, imgs []*Image, lead *Lead) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("leads: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, img := range imgs {
		if err := insertImage(ctx, tx, img); err != nil {
			return err
		}
	}
	if err := s.updateLead(ctx, tx, lead); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("leads: commit batch save: %w", err)
	}
	return nil
}

func (s *PostgresStore) SwapImage(ctx context.Context, oldID ImageID, img *Image, lead *Lead) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("leads: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM lead_images WHERE id = $1`, oldID.UUID())
	if err != nil {
		return fmt.Errorf("leads: delete replaced image: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	if err := insertImage(ctx, tx, img); err != nil {
		return err
	}
	if err := s.updateLead(ctx, tx, lead); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("leads: commit image swap: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteImage(ctx context.Context, id ImageID) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM lead_images WHERE id = $1`, id.UUID())
	if err != nil {
		return fmt.Errorf("leads: delete image: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}

// DeleteLeadCascade removes a lead and every image it owns in one
// transaction. Images go first so an interrupted cascade can never leave
// orphaned children behind.
func (s *PostgresStore) DeleteLeadCascade(ctx context.Context, id LeadID) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("leads: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	imagesDeleted, err := tx.Exec(ctx, `DELETE FROM lead_images WHERE lead_id = $1`, id.UUID())
	if err != nil {
		return 0, fmt.Errorf("leads: cascade delete images: %w", err)
	}
	ct, err := tx.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id.UUID())
	if err != nil {
		return 0, fmt.Errorf("leads: cascade delete lead: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return 0, ErrLeadNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("leads: commit cascade delete: %w", err)
	}
	return imagesDeleted.RowsAffected(), nil
}

func insertImage(ctx context.Context, q querier, img *Image) error {
	rec := img.Record()
	query := `
		INSERT INTO lead_images (id, lead_id, base64_data, file_name, content_type, size_bytes, description, uploaded_at, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := q.Exec(ctx, query,
		rec.ID.UUID(),
		rec.LeadID.UUID(),
		rec.Data,
		rec.FileName,
		rec.ContentType,
		rec.SizeBytes,
		rec.Description,
		rec.UploadedAt,
		rec.CreatedAt,
		rec.ModifiedAt,
	); err != nil {
		return fmt.Errorf("leads: insert image: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLeadRecord(row pgx.Row) (LeadRecord, error) {
	rec, err := scanLeadRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeadRecord{}, ErrLeadNotFound
		}
		return LeadRecord{}, fmt.Errorf("leads: scan lead: %w", err)
	}
	return rec, nil
}

func scanLeadRecordFromRows(rows pgx.Rows) (LeadRecord, error) {
	rec, err := scanLeadRow(rows)
	if err != nil {
		return LeadRecord{}, fmt.Errorf("leads: scan lead: %w", err)
	}
	return rec, nil
}

func scanLeadRow(row rowScanner) (LeadRecord, error) {
	var (
		rec    LeadRecord
		id     uuid.UUID
		status string
	)
	if err := row.Scan(
		&id,
		&rec.Name,
		&rec.Email,
		&rec.Phone,
		&status,
		&rec.Version,
		&rec.CachedImageCount,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return LeadRecord{}, err
	}
	rec.ID = LeadID(id)
	rec.Status = Status(status)
	return rec, nil
}

func scanImageRecord(row pgx.Row) (ImageRecord, error) {
	rec, err := scanImageRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ImageRecord{}, ErrImageNotFound
		}
		return ImageRecord{}, fmt.Errorf("leads: scan image: %w", err)
	}
	return rec, nil
}

func scanImageRecordFromRows(rows pgx.Rows) (ImageRecord, error) {
	rec, err := scanImageRow(rows)
	if err != nil {
		return ImageRecord{}, fmt.Errorf("leads: scan image: %w", err)
	}
	return rec, nil
}

func scanImageRow(row rowScanner) (ImageRecord, error) {
	var (
		rec      ImageRecord
		id       uuid.UUID
		leadID   uuid.UUID
		modified *time.Time
	)
	if err := row.Scan(
		&id,
		&leadID,
		&rec.Data,
		&rec.FileName,
		&rec.ContentType,
		&rec.SizeBytes,
		&rec.Description,
		&rec.UploadedAt,
		&rec.CreatedAt,
		&modified,
	); err != nil {
		return ImageRecord{}, err
	}
	rec.ID = ImageID(id)
	rec.LeadID = LeadID(leadID)
	rec.ModifiedAt = modified
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
