package storage

import (
	"context"
	"database/sql"

	"mywallet/internal/core"
)

const userColumns = `id, name, email, date_of_birth, password_hash, verified, created_at`

func scanUser(row scanner) (core.User, error) {
	var (
		u        core.User
		dob      sql.NullInt64
		verified int64
		created  int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &dob, &u.PasswordHash, &verified, &created); err != nil {
		return core.User{}, notFound(err)
	}
	if dob.Valid {
		t := fromMillis(dob.Int64)
		u.DateOfBirth = &t
	}
	u.Verified = verified != 0
	u.CreatedAt = fromMillis(created)
	return u, nil
}

const createUser = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u core.User) error {
	var dob sql.NullInt64
	if u.DateOfBirth != nil {
		dob = sql.NullInt64{Int64: toMillis(*u.DateOfBirth), Valid: true}
	}
	_, err := q.db.ExecContext(ctx, createUser,
		u.ID, u.Name, u.Email, dob, u.PasswordHash, boolToInt(u.Verified), toMillis(u.CreatedAt))
	return err
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const updateUserProfile = `UPDATE users SET name = ?, email = ? WHERE id = ?
RETURNING ` + userColumns

func (q *Queries) UpdateUserProfile(ctx context.Context, id, name, email string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserProfile, name, email, id))
}

const setUserVerified = `UPDATE users SET verified = 1 WHERE id = ?`

func (q *Queries) SetUserVerified(ctx context.Context, id string) error {
	return expectOne(q.db.ExecContext(ctx, setUserVerified, id))
}

const updateUserPassword = `UPDATE users SET password_hash = ? WHERE id = ?`

func (q *Queries) UpdateUserPassword(ctx context.Context, id, hash string) error {
	return expectOne(q.db.ExecContext(ctx, updateUserPassword, hash, id))
}

const deleteUser = `DELETE FROM users WHERE id = ? RETURNING ` + userColumns

func (q *Queries) DeleteUser(ctx context.Context, id string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, deleteUser, id))
}
