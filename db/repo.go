package db

import (
	"context"

	"equipment_loan_tool/inventory"
	"equipment_loan_tool/models"

	"gorm.io/gorm"
)

// Repo 基于 postgres 的 inventory.Store
type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

var _ inventory.Store = (*Repo)(nil)

// 物资

func (r *Repo) ListMaterials(ctx context.Context) ([]models.Material, error) {
	var ms []models.Material
	err := r.DB.WithContext(ctx).Order("created_at ASC").Find(&ms).Error
	return ms, err
}

func (r *Repo) CreateMaterial(ctx context.Context, m models.Material) error {
	return r.DB.WithContext(ctx).Create(&m).Error
}

// UpdateMaterial 整行覆盖，本地状态为准
func (r *Repo) UpdateMaterial(ctx context.Context, m models.Material) error {
	return r.DB.WithContext(ctx).Save(&m).Error
}

func (r *Repo) DeleteMaterial(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Delete(&models.Material{}, "id = ?", id).Error
}

// 借用

func (r *Repo) ListLoans(ctx context.Context) ([]models.Loan, error) {
	var ls []models.Loan
	err := r.DB.WithContext(ctx).Order("created_at ASC").Find(&ls).Error
	return ls, err
}

func (r *Repo) CreateLoan(ctx context.Context, l models.Loan) error {
	return r.DB.WithContext(ctx).Create(&l).Error
}

func (r *Repo) UpdateLoan(ctx context.Context, l models.Loan) error {
	return r.DB.WithContext(ctx).Save(&l).Error
}

func (r *Repo) DeleteLoan(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Delete(&models.Loan{}, "id = ?", id).Error
}
