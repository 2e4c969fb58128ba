package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/repository"
)

const createCommentsTable = `
CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	workorder_id INTEGER NOT NULL REFERENCES workorders(id) ON DELETE CASCADE,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_workorder_id ON comments (workorder_id);
`

type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCommentsTable); err != nil {
		return fmt.Errorf("create comments table: %w", err)
	}
	return nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (int64, error) {
	comment.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO comments (text, image, workorder_id, user_id, created_at)
VALUES (?, ?, ?, ?, ?)`,
		comment.Text,
		comment.Image,
		comment.WorkorderID,
		comment.UserID,
		toNanos(comment.CreatedAt),
	)
	if err != nil {
		return 0, dataAccess("insert comment", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, dataAccess("comment last insert id", err)
	}
	comment.ID = id
	return id, nil
}

func (r *CommentRepository) Get(ctx context.Context, id int64) (*domain.Comment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, text, image, workorder_id, user_id, created_at
FROM comments
WHERE id = ?`,
		id,
	)
	return scanComment(row)
}

func (r *CommentRepository) ListByWorkorder(ctx context.Context, workorderID int64) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, text, image, workorder_id, user_id, created_at
FROM comments
WHERE workorder_id = ?
ORDER BY created_at ASC, id ASC`,
		workorderID,
	)
	if err != nil {
		return nil, dataAccess("list comments", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *comment)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("iterate comments", err)
	}
	return comments, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return false, dataAccess("delete comment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dataAccess("delete comment rows affected", err)
	}
	return n > 0, nil
}

func scanComment(row scanner) (*domain.Comment, error) {
	var (
		comment   domain.Comment
		createdAt int64
	)
	if err := row.Scan(
		&comment.ID,
		&comment.Text,
		&comment.Image,
		&comment.WorkorderID,
		&comment.UserID,
		&createdAt,
	); err != nil {
		return nil, notFound("comment", err)
	}
	comment.CreatedAt = fromNanos(createdAt)
	return &comment, nil
}
