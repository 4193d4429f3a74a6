package db

import (
	"context"

	"gorm.io/gorm/clause"
)

// BugFilter narrows ListBugs. Zero values match everything.
type BugFilter struct {
	AssignedToID *uint
	Status       string
}

func (d *DB) CreateBug(ctx context.Context, bug *Bug) error {
	bug.IsCurrentProject = true
	return d.conn(ctx).Omit(clause.Associations).Create(bug).Error
}

func (d *DB) GetBug(ctx context.Context, id uint) (*Bug, error) {
	bug := &Bug{}
	if err := d.conn(ctx).First(bug, id).Error; err != nil {
		return nil, err
	}
	return bug, nil
}

func (d *DB) ListBugs(ctx context.Context, filter BugFilter) ([]Bug, error) {
	bugs := make([]Bug, 0)

	query := d.conn(ctx).Order("id")
	if filter.AssignedToID != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Find(&bugs).Error; err != nil {
		return nil, err
	}
	return bugs, nil
}

// SaveBug writes every column of bug and refreshes its updated date.
func (d *DB) SaveBug(ctx context.Context, bug *Bug) error {
	return d.conn(ctx).Omit(clause.Associations).Save(bug).Error
}

func (d *DB) DeleteBug(ctx context.Context, id uint) error {
	result := d.conn(ctx).Delete(&Bug{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
