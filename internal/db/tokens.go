package db

import "context"

func (d *DB) BlacklistToken(ctx context.Context, token *BlacklistedToken) error {
	return d.conn(ctx).Create(token).Error
}

func (d *DB) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := d.conn(ctx).Model(&BlacklistedToken{}).Where("jti = ?", jti).Count(&count).Error
	return count > 0, err
}
