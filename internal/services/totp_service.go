package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"log"
	"strconv"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/auth"
	"eventos-backend/internal/models"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "Eventos"

var (
	ErrNoTOTPSecret    = errors.New("la configuración de 2FA no se ha iniciado")
	ErrInvalidTOTPCode = errors.New("código de verificación inválido")
	ErrTOTPNotEnabled  = errors.New("2FA no está activado")
)

// TOTPService is the optional second login factor for staff
type TOTPService struct {
	Users      UserRepository
	JWTManager *auth.JWTManager
	Attempts   AttemptCounter
	logger     *log.Logger
}

func NewTOTPService(users UserRepository, jwtManager *auth.JWTManager, attempts AttemptCounter, logger *log.Logger) *TOTPService {
	return &TOTPService{
		Users:      users,
		JWTManager: jwtManager,
		Attempts:   attempts,
		logger:     loggerOrDefault(logger),
	}
}

// GenerateSetup creates a new secret and its QR code. 2FA stays off until Enable.
func (s *TOTPService) GenerateSetup(ctx context.Context, userID int) (*models.TOTPSetupResponse, error) {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, apperr.Validation("2FA ya está activado")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, apperr.Infrastructure(err)
	}
	if err := s.Users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return nil, apperr.Infrastructure(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperr.Infrastructure(err)
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// Enable turns 2FA on once the user proves the authenticator works
func (s *TOTPService) Enable(ctx context.Context, userID int, code string) error {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return ErrNoTOTPSecret
	}
	if err := s.check(ctx, user, code); err != nil {
		return err
	}
	if err := s.Users.SetTOTPEnabled(ctx, userID, true); err != nil {
		return err
	}
	s.logger.Printf("[2FA] Activado para %s", user.Email)
	return nil
}

// VerifyLogin completes a login started with a temp token
func (s *TOTPService) VerifyLogin(ctx context.Context, req models.TOTPVerifyRequest) (*models.AuthResponse, error) {
	claims, err := s.JWTManager.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, ErrInactiveUser
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return nil, ErrTOTPNotEnabled
	}
	if err := s.check(ctx, user, req.Code); err != nil {
		return nil, err
	}
	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, apperr.Infrastructure(err)
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Disable needs the password and a current code
func (s *TOTPService) Disable(ctx context.Context, userID int, req models.TOTPDisableRequest) error {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return ErrTOTPNotEnabled
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return ErrInvalidCredentials
	}
	if err := s.check(ctx, user, req.Code); err != nil {
		return err
	}
	return s.Users.SetTOTPEnabled(ctx, userID, false)
}

func (s *TOTPService) Status(ctx context.Context, userID int) (*models.User2FAStatus, error) {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.User2FAStatus{Enabled: user.TOTPEnabled}, nil
}

// check validates code under the per-user failure limit
func (s *TOTPService) check(ctx context.Context, user *models.User, code string) error {
	key := "totp:" + strconv.Itoa(user.ID)
	if limited(ctx, s.Attempts, key) {
		return ErrTooManyAttempts
	}
	if !totp.Validate(code, user.TOTPSecret) {
		if s.Attempts != nil {
			if err := s.Attempts.Fail(ctx, key, rateLimitWindow); err != nil {
				s.logger.Printf("[2FA] No se registró el intento fallido: %v", err)
			}
		}
		return ErrInvalidTOTPCode
	}
	if s.Attempts != nil {
		s.Attempts.Reset(ctx, key)
	}
	return nil
}
