package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizforge/quizforge-backend/internal/model"
)

// PackageRepository handles the sealed-package registry. Only cleartext
// facts about a package are stored; the archive itself is the distributable.
type PackageRepository struct {
	pool *pgxpool.Pool
}

// NewPackageRepository creates a new PackageRepository.
func NewPackageRepository(pool *pgxpool.Pool) *PackageRepository {
	return &PackageRepository{pool: pool}
}

// Create inserts a registry row for a freshly sealed package.
func (r *PackageRepository) Create(ctx context.Context, p *model.PackageRecord) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO packages (id, test_name, total_questions, size_bytes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		p.ID, p.TestName, p.TotalQuestions, p.SizeBytes,
	).Scan(&p.CreatedAt)
}

// GetByID retrieves one registry row.
func (r *PackageRepository) GetByID(ctx context.Context, id string) (*model.PackageRecord, error) {
	p := &model.PackageRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_name, total_questions, size_bytes, created_at
		 FROM packages
		 WHERE id = $1`, id,
	).Scan(&p.ID, &p.TestName, &p.TotalQuestions, &p.SizeBytes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List retrieves all registry rows, newest first.
func (r *PackageRepository) List(ctx context.Context) ([]model.PackageRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_name, total_questions, size_bytes, created_at
		 FROM packages
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.PackageRecord
	for rows.Next() {
		var p model.PackageRecord
		if err := rows.Scan(&p.ID, &p.TestName, &p.TotalQuestions, &p.SizeBytes, &p.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}
