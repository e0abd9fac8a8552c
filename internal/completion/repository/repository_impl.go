package repository

import (
	"context"

	completiondomain "github.com/smallbiznis/factuur/internal/completion/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) completiondomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, run *completiondomain.CompletionRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}
