package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// KBRepository encapsulates knowledge-base persistence.
type KBRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.KBArticle, error)
	List(ctx context.Context) ([]domain.KBArticle, error)
	Create(ctx context.Context, article *domain.KBArticle) error
	Update(ctx context.Context, article *domain.KBArticle) error
	Delete(ctx context.Context, id int64) error
}

type kbRepository struct {
	pool *pgxpool.Pool
}

// NewKBRepository instantiates repository.
func NewKBRepository(pool *pgxpool.Pool) KBRepository {
	return &kbRepository{pool: pool}
}

const kbColumns = `id, title, content, category, is_public, author, created_at, updated_at`

func (r *kbRepository) GetByID(ctx context.Context, id int64) (*domain.KBArticle, error) {
	query := `SELECT ` + kbColumns + ` FROM kb_articles WHERE id=$1`
	return scanArticle(r.pool.QueryRow(ctx, query, id))
}

func (r *kbRepository) List(ctx context.Context) ([]domain.KBArticle, error) {
	query := `SELECT ` + kbColumns + ` FROM kb_articles ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KBArticle
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *article)
	}
	return result, rows.Err()
}

func (r *kbRepository) Create(ctx context.Context, article *domain.KBArticle) error {
	const query = `
        INSERT INTO kb_articles (title, content, category, is_public, author)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		article.Title, article.Content, article.Category, article.IsPublic, article.Author,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
}

func (r *kbRepository) Update(ctx context.Context, article *domain.KBArticle) error {
	const query = `
        UPDATE kb_articles SET title=$2, content=$3, category=$4, is_public=$5, updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query,
		article.ID, article.Title, article.Content, article.Category, article.IsPublic,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *kbRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM kb_articles WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanArticle(row pgx.Row) (*domain.KBArticle, error) {
	var article domain.KBArticle
	if err := row.Scan(
		&article.ID, &article.Title, &article.Content, &article.Category,
		&article.IsPublic, &article.Author, &article.CreatedAt, &article.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &article, nil
}
