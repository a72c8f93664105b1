package services

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"time"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/auth"
	"eventos-backend/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	SetStatus(ctx context.Context, id int, status models.RecordStatus) error
	SetTOTPSecret(ctx context.Context, id int, secret string) error
	SetTOTPEnabled(ctx context.Context, id int, enabled bool) error
	Count(ctx context.Context) (int, error)
}

// AttemptCounter counts failures per key inside a window
type AttemptCounter interface {
	Failures(ctx context.Context, key string) (int64, error)
	Fail(ctx context.Context, key string, window time.Duration) error
	Reset(ctx context.Context, key string)
}

const (
	maxFailedAttempts = 5
	rateLimitWindow   = 15 * time.Minute
)

// Roles lists every staff role
var Roles = []string{models.RoleAdmin, models.RoleCoordinador, models.RoleCajero}

var (
	ErrInvalidCredentials = errors.New("email o contraseña inválidos")
	ErrTooManyAttempts    = errors.New("demasiados intentos fallidos, intente más tarde")
	ErrInactiveUser       = errors.New("usuario inactivo")
)

type UserService struct {
	Repo       UserRepository
	JWTManager *auth.JWTManager
	Attempts   AttemptCounter
	logger     *log.Logger
}

func NewUserService(repo UserRepository, jwtManager *auth.JWTManager, attempts AttemptCounter, logger *log.Logger) *UserService {
	return &UserService{
		Repo:       repo,
		JWTManager: jwtManager,
		Attempts:   attempts,
		logger:     loggerOrDefault(logger),
	}
}

// Login checks the password. Users with 2FA get a temp token for the second step.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperr.Validation("email y contraseña son requeridos")
	}
	if limited(ctx, s.Attempts, "login:"+email) {
		return nil, ErrTooManyAttempts
	}

	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.fail(ctx, email)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.fail(ctx, email)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrInactiveUser
	}
	if s.Attempts != nil {
		s.Attempts.Reset(ctx, "login:"+email)
	}

	if user.TOTPEnabled {
		temp, err := s.JWTManager.GenerateTempToken(user)
		if err != nil {
			return nil, apperr.Infrastructure(err)
		}
		return &models.AuthResponse{Requires2FA: true, TempToken: temp}, nil
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, apperr.Infrastructure(err)
	}
	s.logger.Printf("[Auth] Login %s (%s)", user.Email, user.Role)
	return &models.AuthResponse{Token: token, User: user}, nil
}

func (s *UserService) fail(ctx context.Context, email string) {
	if s.Attempts == nil {
		return
	}
	if err := s.Attempts.Fail(ctx, "login:"+email, rateLimitWindow); err != nil {
		s.logger.Printf("[Auth] No se registró el intento fallido: %v", err)
	}
}

func (s *UserService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := validateUser(req.Nombre, req.Email, req.Role); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.WrapValidation(err, err.Error())
	}
	u := &models.User{
		Nombre:       strings.TrimSpace(req.Nombre),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Telefono:     req.Telefono,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Printf("[Usuarios] Usuario %d creado: %s (%s)", u.ID, u.Email, u.Role)
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.Repo.Get(ctx, id)
}

// ListUsers returns all users
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Repo.List(ctx)
}

// UpdateUser updates an existing user; an empty password keeps the current one
func (s *UserService) UpdateUser(ctx context.Context, id int, req models.UpdateUserRequest) (*models.User, error) {
	if err := validateUser(req.Nombre, req.Email, req.Role); err != nil {
		return nil, err
	}
	u, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Nombre = strings.TrimSpace(req.Nombre)
	u.Email = strings.ToLower(strings.TrimSpace(req.Email))
	u.Telefono = req.Telefono
	u.Role = req.Role
	u.PasswordHash = ""
	if req.Password != "" {
		if u.PasswordHash, err = auth.HashPassword(req.Password); err != nil {
			return nil, apperr.WrapValidation(err, err.Error())
		}
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

// SetStatus activates or deactivates an account. Nobody deactivates themselves.
func (s *UserService) SetStatus(ctx context.Context, id, actingUserID int, status models.RecordStatus) error {
	if !status.IsValid() {
		return apperr.Validationf("status inválido: %q", status)
	}
	if status == models.StatusInactivo && id == actingUserID {
		return apperr.Validation("no puede desactivar su propia cuenta")
	}
	return s.Repo.SetStatus(ctx, id, status)
}

func (s *UserService) ChangePassword(ctx context.Context, userID int, req models.ChangePasswordRequest) error {
	u, err := s.Repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Actual) {
		return ErrInvalidCredentials
	}
	if u.PasswordHash, err = auth.HashPassword(req.Nueva); err != nil {
		return apperr.WrapValidation(err, err.Error())
	}
	return s.Repo.Update(ctx, u)
}

// EnsureAdmin creates the first admin when the users table is empty
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	n, err := s.Repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 || email == "" {
		return nil
	}
	_, err = s.CreateUser(ctx, models.CreateUserRequest{
		Nombre:   "Administrador",
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
	return err
}

func validateUser(nombre, email, role string) error {
	if strings.TrimSpace(nombre) == "" || strings.TrimSpace(email) == "" {
		return apperr.Validation("nombre y email son requeridos")
	}
	if !strings.Contains(email, "@") {
		return apperr.Validationf("email inválido: %s", email)
	}
	if !slices.Contains(Roles, role) {
		return apperr.Validationf("rol inválido: %q", role)
	}
	return nil
}

// limited reports whether key already used up its failed attempts. Without a
// counter, or when it is down, nobody is limited.
func limited(ctx context.Context, attempts AttemptCounter, key string) bool {
	if attempts == nil {
		return false
	}
	n, err := attempts.Failures(ctx, key)
	return err == nil && n >= maxFailedAttempts
}
