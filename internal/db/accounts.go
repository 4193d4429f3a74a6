package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Departments

func (d *DB) CreateDepartment(ctx context.Context, department *Department) error {
	return d.conn(ctx).Create(department).Error
}

func (d *DB) ListDepartments(ctx context.Context) ([]Department, error) {
	departments := make([]Department, 0)
	if err := d.conn(ctx).Order("id").Find(&departments).Error; err != nil {
		return nil, err
	}
	return departments, nil
}

func (d *DB) GetDepartment(ctx context.Context, id uint) (*Department, error) {
	department := &Department{}
	if err := d.conn(ctx).First(department, id).Error; err != nil {
		return nil, err
	}
	return department, nil
}

func (d *DB) SaveDepartment(ctx context.Context, department *Department) error {
	return d.conn(ctx).Save(department).Error
}

// DeleteDepartment removes the department and detaches it from its users.
func (d *DB) DeleteDepartment(ctx context.Context, id uint) error {
	return d.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&User{}).Where("department_id = ?", id).Update("department_id", nil).Error; err != nil {
			return fmt.Errorf("detach users from department %d: %w", id, err)
		}

		result := tx.Delete(&Department{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Roles

func (d *DB) CreateRole(ctx context.Context, role *Role) error {
	return d.conn(ctx).Create(role).Error
}

func (d *DB) ListRoles(ctx context.Context) ([]Role, error) {
	roles := make([]Role, 0)
	if err := d.conn(ctx).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (d *DB) GetRole(ctx context.Context, id uint) (*Role, error) {
	role := &Role{}
	if err := d.conn(ctx).First(role, id).Error; err != nil {
		return nil, err
	}
	return role, nil
}

func (d *DB) SaveRole(ctx context.Context, role *Role) error {
	return d.conn(ctx).Save(role).Error
}

// DeleteRole removes the role and detaches it from its users. Users keep
// their staff flag.
func (d *DB) DeleteRole(ctx context.Context, id uint) error {
	return d.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&User{}).Where("role_id = ?", id).Update("role_id", nil).Error; err != nil {
			return fmt.Errorf("detach users from role %d: %w", id, err)
		}

		result := tx.Delete(&Role{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Users

func (d *DB) CreateUser(ctx context.Context, user *User) error {
	return d.conn(ctx).Omit(clause.Associations).Create(user).Error
}

func (d *DB) SaveUser(ctx context.Context, user *User) error {
	return d.conn(ctx).Omit(clause.Associations).Save(user).Error
}

func (d *DB) GetUserByID(ctx context.Context, id uint) (*User, error) {
	user := &User{}
	if err := d.conn(ctx).First(user, id).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	if err := d.conn(ctx).Where("email = ?", email).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	users := make([]User, 0)
	if err := d.conn(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// EmailTaken reports whether another user than exceptID already uses email.
func (d *DB) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	return d.userFieldTaken(ctx, "email", email, exceptID)
}

// UsernameTaken reports whether another user than exceptID already uses
// username.
func (d *DB) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	return d.userFieldTaken(ctx, "username", username, exceptID)
}

func (d *DB) userFieldTaken(ctx context.Context, column, value string, exceptID uint) (bool, error) {
	var count int64
	err := d.conn(ctx).Model(&User{}).
		Where(column+" = ? AND id <> ?", value, exceptID).
		Count(&count).Error
	return count > 0, err
}

// DeleteUser removes a user. Bugs they created go with them, bugs assigned
// to them become unassigned and their project memberships are dropped.
func (d *DB) DeleteUser(ctx context.Context, id uint) error {
	return d.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&User{}, id).Error; err != nil {
			return err
		}

		if err := tx.Where("created_by_id = ?", id).Delete(&Bug{}).Error; err != nil {
			return fmt.Errorf("delete bugs created by user %d: %w", id, err)
		}

		if err := tx.Model(&Bug{}).Where("assigned_to_id = ?", id).Update("assigned_to_id", nil).Error; err != nil {
			return fmt.Errorf("unassign bugs of user %d: %w", id, err)
		}

		if err := tx.Exec("DELETE FROM project_users WHERE user_id = ?", id).Error; err != nil {
			return fmt.Errorf("drop memberships of user %d: %w", id, err)
		}

		if err := tx.Where("user_id = ?", id).Delete(&BlacklistedToken{}).Error; err != nil {
			return fmt.Errorf("drop tokens of user %d: %w", id, err)
		}

		return tx.Delete(&User{}, id).Error
	})
}

// IsNotFound reports whether err means a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
