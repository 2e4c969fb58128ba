package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/repository"
)

const (
	createWorkordersTable = `
CREATE TABLE IF NOT EXISTS workorders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	qrcode TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`
	createWorkordersIndexes = `
CREATE INDEX IF NOT EXISTS idx_workorders_created_at ON workorders (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_workorders_qrcode ON workorders (qrcode);
CREATE INDEX IF NOT EXISTS idx_workorders_user_id ON workorders (user_id);
`
	workorderColumns = `id, qrcode, title, detail, priority, status, user_id, created_at, updated_at`
)

type WorkorderRepository struct {
	db *sql.DB
}

func NewWorkorderRepository(db *sql.DB) repository.WorkorderRepository {
	return &WorkorderRepository{db: db}
}

func (r *WorkorderRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createWorkordersTable); err != nil {
		return fmt.Errorf("create workorders table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createWorkordersIndexes); err != nil {
		return fmt.Errorf("create workorders indexes: %w", err)
	}
	return nil
}

// Create inserts the workorder. A zero CreatedAt is stamped with the current time.
func (r *WorkorderRepository) Create(ctx context.Context, wo *domain.Workorder) (int64, error) {
	if wo.CreatedAt.IsZero() {
		wo.CreatedAt = time.Now().UTC()
	}
	wo.UpdatedAt = wo.CreatedAt
	if wo.Status == "" {
		wo.Status = domain.WorkorderStatusOpen
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO workorders (qrcode, title, detail, priority, status, user_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		wo.QRCode,
		wo.Title,
		wo.Detail,
		wo.Priority,
		string(wo.Status),
		wo.UserID,
		toNanos(wo.CreatedAt),
		toNanos(wo.UpdatedAt),
	)
	if err != nil {
		return 0, dataAccess("insert workorder", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, dataAccess("get last insert id", err)
	}
	wo.ID = id
	return id, nil
}

func (r *WorkorderRepository) Get(ctx context.Context, id int64) (*domain.Workorder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workorderColumns+` FROM workorders WHERE id = ?`, id)
	return scanWorkorder(row)
}

func (r *WorkorderRepository) GetByQRCode(ctx context.Context, qrcode string) (*domain.Workorder, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+workorderColumns+`
FROM workorders
WHERE qrcode = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`,
		qrcode,
	)
	return scanWorkorder(row)
}

func (r *WorkorderRepository) ListBefore(ctx context.Context, before *time.Time, limit int) ([]domain.Workorder, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if before != nil {
		rows, err = r.db.QueryContext(ctx, `
SELECT `+workorderColumns+`
FROM workorders
WHERE created_at < ?
ORDER BY created_at DESC, id DESC
LIMIT ?`,
			toNanos(*before),
			limit,
		)
	} else {
		rows, err = r.db.QueryContext(ctx, `
SELECT `+workorderColumns+`
FROM workorders
ORDER BY created_at DESC, id DESC
LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, dataAccess("list workorders", err)
	}
	return collectWorkorders(rows)
}

func (r *WorkorderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Workorder, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+workorderColumns+`
FROM workorders
WHERE user_id = ?
ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, dataAccess("list workorders by user", err)
	}
	return collectWorkorders(rows)
}

func (r *WorkorderRepository) Update(ctx context.Context, id int64, patch domain.WorkorderPatch) (*domain.Workorder, error) {
	wo, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.QRCode != nil {
		wo.QRCode = *patch.QRCode
	}
	if patch.Title != nil {
		wo.Title = *patch.Title
	}
	if patch.Detail != nil {
		wo.Detail = *patch.Detail
	}
	if patch.Priority != nil {
		wo.Priority = *patch.Priority
	}
	if patch.Status != nil {
		wo.Status = *patch.Status
	}
	wo.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
UPDATE workorders
SET qrcode=?, title=?, detail=?, priority=?, status=?, updated_at=?
WHERE id=?`,
		wo.QRCode,
		wo.Title,
		wo.Detail,
		wo.Priority,
		string(wo.Status),
		toNanos(wo.UpdatedAt),
		wo.ID,
	)
	if err != nil {
		return nil, dataAccess("update workorder", err)
	}
	return wo, nil
}

func (r *WorkorderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workorders WHERE id = ?`, id)
	if err != nil {
		return false, dataAccess("delete workorder", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dataAccess("delete workorder rows affected", err)
	}
	return n > 0, nil
}

func collectWorkorders(rows *sql.Rows) ([]domain.Workorder, error) {
	defer rows.Close()

	var workorders []domain.Workorder
	for rows.Next() {
		wo, err := scanWorkorder(rows)
		if err != nil {
			return nil, err
		}
		workorders = append(workorders, *wo)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("iterate workorders", err)
	}
	return workorders, nil
}

func scanWorkorder(row scanner) (*domain.Workorder, error) {
	var (
		wo        domain.Workorder
		status    string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&wo.ID,
		&wo.QRCode,
		&wo.Title,
		&wo.Detail,
		&wo.Priority,
		&status,
		&wo.UserID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, notFound("workorder", err)
	}
	wo.Status = domain.WorkorderStatus(status)
	wo.CreatedAt = fromNanos(createdAt)
	wo.UpdatedAt = fromNanos(updatedAt)
	return &wo, nil
}
