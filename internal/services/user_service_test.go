package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/auth"
	"eventos-backend/internal/config"
	"eventos-backend/internal/models"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	byID map[int]*models.User
	next int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[int]*models.User)}
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return apperr.Conflict("registro duplicado (usuarios_email_key)", 1)
		}
	}
	m.next++
	u.ID = m.next
	if u.Status == "" {
		u.Status = models.StatusActivo
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) Get(_ context.Context, id int) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("usuario", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for id, u := range m.byID {
		if u.Email == email {
			return m.Get(ctx, id)
		}
	}
	return nil, apperr.NotFoundMsg("usuario no encontrado")
}

func (m *memUsers) List(context.Context) ([]models.User, error) { return nil, nil }

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	cur, ok := m.byID[u.ID]
	if !ok {
		return apperr.NotFound("usuario", u.ID)
	}
	hash := u.PasswordHash
	if hash == "" {
		hash = cur.PasswordHash
	}
	cp := *u
	cp.PasswordHash = hash
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) SetStatus(_ context.Context, id int, status models.RecordStatus) error {
	m.byID[id].Status = status
	return nil
}

func (m *memUsers) SetTOTPSecret(_ context.Context, id int, secret string) error {
	m.byID[id].TOTPSecret = secret
	return nil
}

func (m *memUsers) SetTOTPEnabled(_ context.Context, id int, enabled bool) error {
	m.byID[id].TOTPEnabled = enabled
	return nil
}

func (m *memUsers) Count(context.Context) (int, error) { return len(m.byID), nil }

type memAttempts map[string]int64

func (a memAttempts) Failures(_ context.Context, key string) (int64, error) { return a[key], nil }

func (a memAttempts) Fail(_ context.Context, key string, _ time.Duration) error {
	a[key]++
	return nil
}

func (a memAttempts) Reset(_ context.Context, key string) { delete(a, key) }

func newAuthServices(t *testing.T) (*UserService, *TOTPService, *memUsers, memAttempts) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	jwtManager := auth.NewJWTManager(cfg)
	users := newMemUsers()
	attempts := memAttempts{}
	return NewUserService(users, jwtManager, attempts, discard),
		NewTOTPService(users, jwtManager, attempts, discard),
		users, attempts
}

func TestLogin(t *testing.T) {
	svc, _, _, attempts := newAuthServices(t)
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, models.CreateUserRequest{
		Nombre: "Caja", Email: "Caja@Salon.mx", Password: "cobrar-2026", Role: models.RoleCajero,
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, models.LoginRequest{Email: " caja@salon.mx ", Password: "cobrar-2026"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.False(t, resp.Requires2FA)

	claims, err := svc.JWTManager.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCajero, claims.Role)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "caja@salon.mx", Password: "incorrecta"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.EqualValues(t, 1, attempts["login:caja@salon.mx"])

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nadie@salon.mx", Password: "incorrecta"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginLockout(t *testing.T) {
	svc, _, _, _ := newAuthServices(t)
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, models.CreateUserRequest{
		Nombre: "Ana", Email: "ana@salon.mx", Password: "planear-2026", Role: models.RoleCoordinador,
	})
	require.NoError(t, err)

	for i := 0; i < maxFailedAttempts; i++ {
		_, err = svc.Login(ctx, models.LoginRequest{Email: "ana@salon.mx", Password: "mala-clave"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = svc.Login(ctx, models.LoginRequest{Email: "ana@salon.mx", Password: "planear-2026"})
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestInactiveUserCannotLogin(t *testing.T) {
	svc, _, users, _ := newAuthServices(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, models.CreateUserRequest{
		Nombre: "Ex", Email: "ex@salon.mx", Password: "adios-2026", Role: models.RoleCajero,
	})
	require.NoError(t, err)
	require.NoError(t, users.SetStatus(ctx, u.ID, models.StatusInactivo))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "ex@salon.mx", Password: "adios-2026"})
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestUserValidation(t *testing.T) {
	svc, _, _, _ := newAuthServices(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, models.CreateUserRequest{Nombre: "X", Email: "x@salon.mx", Password: "larga-clave", Role: "gerente"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.CreateUser(ctx, models.CreateUserRequest{Nombre: "X", Email: "sin-arroba", Password: "larga-clave", Role: models.RoleAdmin})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.CreateUser(ctx, models.CreateUserRequest{Nombre: "X", Email: "x@salon.mx", Password: "corta", Role: models.RoleAdmin})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = svc.SetStatus(ctx, 1, 1, models.StatusInactivo)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "nobody deactivates themselves")
}

func TestChangePasswordAndUpdate(t *testing.T) {
	svc, _, _, _ := newAuthServices(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, models.CreateUserRequest{
		Nombre: "Ana", Email: "ana@salon.mx", Password: "primera-clave", Role: models.RoleCoordinador,
	})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, models.ChangePasswordRequest{Actual: "equivocada", Nueva: "segunda-clave"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, models.ChangePasswordRequest{Actual: "primera-clave", Nueva: "segunda-clave"}))

	_, err = svc.UpdateUser(ctx, u.ID, models.UpdateUserRequest{Nombre: "Ana María", Email: "ana@salon.mx", Role: models.RoleAdmin})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, models.LoginRequest{Email: "ana@salon.mx", Password: "segunda-clave"})
	require.NoError(t, err, "an empty password on update keeps the current one")
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Equal(t, "Ana María", resp.User.Nombre)
}

func TestEnsureAdmin(t *testing.T) {
	svc, _, users, _ := newAuthServices(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@salon.mx", "arranque-2026"))
	require.NoError(t, svc.EnsureAdmin(ctx, "otro@salon.mx", "arranque-2026"))
	n, _ := users.Count(ctx)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.RoleAdmin, users.byID[1].Role)
}

func TestTwoFactorFlow(t *testing.T) {
	users, otp, repo, _ := newAuthServices(t)
	ctx := context.Background()
	u, err := users.CreateUser(ctx, models.CreateUserRequest{
		Nombre: "Admin", Email: "admin@salon.mx", Password: "segura-2026", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	err = otp.Enable(ctx, u.ID, "000000")
	assert.ErrorIs(t, err, ErrNoTOTPSecret)

	setup, err := otp.GenerateSetup(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))
	assert.Equal(t, "admin@salon.mx", setup.AccountName)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, otp.Enable(ctx, u.ID, code))
	assert.True(t, repo.byID[u.ID].TOTPEnabled)

	resp, err := users.Login(ctx, models.LoginRequest{Email: "admin@salon.mx", Password: "segura-2026"})
	require.NoError(t, err)
	assert.True(t, resp.Requires2FA)
	assert.Empty(t, resp.Token)

	_, err = otp.VerifyLogin(ctx, models.TOTPVerifyRequest{TempToken: resp.TempToken, Code: "123"})
	assert.ErrorIs(t, err, ErrInvalidTOTPCode)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	final, err := otp.VerifyLogin(ctx, models.TOTPVerifyRequest{TempToken: resp.TempToken, Code: code})
	require.NoError(t, err)
	assert.NotEmpty(t, final.Token)

	_, err = otp.VerifyLogin(ctx, models.TOTPVerifyRequest{TempToken: final.Token, Code: code})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "a session token is not a temp token")

	err = otp.Disable(ctx, u.ID, models.TOTPDisableRequest{Password: "incorrecta", Code: code})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.NoError(t, otp.Disable(ctx, u.ID, models.TOTPDisableRequest{Password: "segura-2026", Code: code}))

	status, err := otp.Status(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, status.Enabled)
}
