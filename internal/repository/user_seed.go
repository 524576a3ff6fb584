package repository

import "context"

// SeedSuperAdmin ensures a bootstrap superAdmin account exists so a fresh
// deployment can be logged into. Existing accounts are left untouched.
func (r UserRepository) SeedSuperAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO users (username, phone, role, station_id, password_hash, active, created_at, updated_at)
		VALUES ($1, '', 'superAdmin', NULL, $2, true, now(), now())
		ON CONFLICT (username) DO NOTHING
	`, username, passwordHash)
	return err
}
