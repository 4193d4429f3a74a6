package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateProject stores the project together with its member references.
// Members must already exist.
func (d *DB) CreateProject(ctx context.Context, project *Project) error {
	return d.conn(ctx).Omit("Users.*").Create(project).Error
}

func (d *DB) GetProject(ctx context.Context, id uint) (*Project, error) {
	project := &Project{}
	if err := d.conn(ctx).Preload("Users").First(project, id).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func (d *DB) ListProjects(ctx context.Context) ([]Project, error) {
	projects := make([]Project, 0)
	if err := d.conn(ctx).Preload("Users").Order("id").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// ListProjectsForMember returns the projects userID belongs to.
func (d *DB) ListProjectsForMember(ctx context.Context, userID uint) ([]Project, error) {
	projects := make([]Project, 0)
	err := d.conn(ctx).Preload("Users").
		Joins("JOIN project_users ON project_users.project_id = projects.id").
		Where("project_users.user_id = ?", userID).
		Order("projects.id").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// ProjectNameTaken reports whether a project other than exceptID already
// uses name.
func (d *DB) ProjectNameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	var count int64
	err := d.conn(ctx).Model(&Project{}).
		Where("project_name = ? AND id <> ?", name, exceptID).
		Count(&count).Error
	return count > 0, err
}

// UpdateProject saves the project columns. When members is non-nil the
// membership set is replaced by it.
func (d *DB) UpdateProject(ctx context.Context, project *Project, members []User) error {
	return d.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(project).Error; err != nil {
			return err
		}

		if members == nil {
			return nil
		}

		association := tx.Model(project).Omit("Users.*").Association("Users")
		if len(members) == 0 {
			err := association.Clear()
			if err != nil {
				return fmt.Errorf("clear members of project %d: %w", project.ID, err)
			}
		} else if err := association.Replace(members); err != nil {
			return fmt.Errorf("replace members of project %d: %w", project.ID, err)
		}
		project.Users = members
		return nil
	})
}

func (d *DB) IsProjectMember(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := d.conn(ctx).Table("project_users").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// DeleteProject removes the project, its bugs and its memberships.
func (d *DB) DeleteProject(ctx context.Context, id uint) error {
	return d.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&Project{}, id).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&Bug{}).Error; err != nil {
			return fmt.Errorf("delete bugs of project %d: %w", id, err)
		}

		if err := tx.Exec("DELETE FROM project_users WHERE project_id = ?", id).Error; err != nil {
			return fmt.Errorf("drop members of project %d: %w", id, err)
		}

		return tx.Delete(&Project{}, id).Error
	})
}
