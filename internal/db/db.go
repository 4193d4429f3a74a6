package db

import (
	"context"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{&Department{}, &Role{}, &User{}, &Project{}, &Bug{}, &BlacklistedToken{}}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func (d *DB) conn(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}
