package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/cardscope/cardscope/cardscope/database/models"
	"github.com/uptrace/bun"
)

var ErrScanNotFound = errors.New("scan not found")

type ScanRepository interface {
	Create(ctx context.Context, scan *models.Scan) error
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.Scan, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Scan, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type scanRepository struct {
	db *bun.DB
}

func NewScanRepository(db *bun.DB) ScanRepository {
	return &scanRepository{db: db}
}

func (r *scanRepository) Create(ctx context.Context, scan *models.Scan) error {
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().
		Model(scan).
		Exec(ctx)
	return err
}

func (r *scanRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*models.Scan, error) {
	scan := new(models.Scan)
	err := r.db.NewSelect().
		Model(scan).
		Where("fingerprint = ?", fingerprint).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, ErrScanNotFound
	}
	return scan, nil
}

func (r *scanRepository) GetRecent(ctx context.Context, limit int) ([]*models.Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	var scans []*models.Scan
	err := r.db.NewSelect().
		Model(&scans).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return scans, nil
}

func (r *scanRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	return r.db.NewSelect().
		Model((*models.Scan)(nil)).
		Where("created_at >= ?", since).
		Count(ctx)
}
