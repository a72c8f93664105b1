package repositories

import (
	"context"

	"eventos-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	DB DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, nombre, email, telefono, password_hash, role, status, totp_secret, totp_enabled, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Nombre, &u.Email, &u.Telefono, &u.PasswordHash, &u.Role, &u.Status,
		&u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleCoordinador
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO usuarios(nombre, email, telefono, password_hash, role)
		 VALUES($1, $2, $3, $4, $5)
		 RETURNING id, status, created_at, updated_at`,
		u.Nombre, u.Email, u.Telefono, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	return mapErr("create user", err)
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id=$1`, id))
	if err != nil {
		return nil, rowErr("get user", "usuario", id, err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE LOWER(email)=LOWER($1)`, email))
	if err != nil {
		return nil, rowErr("get user by email", "usuario", 0, err)
	}
	return u, nil
}

// List returns all users, newest first
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+userColumns+` FROM usuarios ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapErr("list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapErr("scan user", err)
		}
		users = append(users, *u)
	}
	return users, mapErr("list users", rows.Err())
}

// Update keeps the stored password when PasswordHash is empty
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	if u.PasswordHash != "" {
		return execOne(ctx, r.DB, "usuario", "update user", u.ID,
			`UPDATE usuarios SET nombre=$1, email=$2, telefono=$3, password_hash=$4, role=$5, updated_at=NOW()
			 WHERE id=$6`,
			u.Nombre, u.Email, u.Telefono, u.PasswordHash, u.Role, u.ID)
	}
	return execOne(ctx, r.DB, "usuario", "update user", u.ID,
		`UPDATE usuarios SET nombre=$1, email=$2, telefono=$3, role=$4, updated_at=NOW() WHERE id=$5`,
		u.Nombre, u.Email, u.Telefono, u.Role, u.ID)
}

func (r *UserRepository) SetStatus(ctx context.Context, id int, status models.RecordStatus) error {
	return execOne(ctx, r.DB, "usuario", "set user status", id,
		`UPDATE usuarios SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
}

// SetTOTPSecret stores the secret during setup, before it is verified
func (r *UserRepository) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	return execOne(ctx, r.DB, "usuario", "set totp secret", id,
		`UPDATE usuarios SET totp_secret=$1, updated_at=NOW() WHERE id=$2`, secret, id)
}

func (r *UserRepository) SetTOTPEnabled(ctx context.Context, id int, enabled bool) error {
	if !enabled {
		return execOne(ctx, r.DB, "usuario", "disable totp", id,
			`UPDATE usuarios SET totp_enabled=FALSE, totp_secret='', updated_at=NOW() WHERE id=$1`, id)
	}
	return execOne(ctx, r.DB, "usuario", "enable totp", id,
		`UPDATE usuarios SET totp_enabled=TRUE, updated_at=NOW() WHERE id=$1`, id)
}

// Count is used at boot to decide whether to seed the first admin
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&n)
	return n, mapErr("count users", err)
}
