package auth

import (
	"errors"
	"time"

	"eventos-backend/internal/config"
	"eventos-backend/internal/models"
	"eventos-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

// tokenType2FA marks the short-lived token issued between password and TOTP checks
const tokenType2FA = "2fa_pending"

type Claims struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	cfg *config.Config
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{cfg: cfg}
}

// GenerateToken creates a session token for a staff user
func (j *JWTManager) GenerateToken(user *models.User) (string, error) {
	hours := j.cfg.JWT.ExpirationHours
	if hours <= 0 {
		hours = 24
	}
	return j.sign(&Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, time.Duration(hours)*time.Hour)
}

// ValidateToken verifies a session token. Temp 2FA tokens are rejected.
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != "" {
		return nil, errors.New("invalid token type")
	}
	return claims, nil
}

// GenerateTempToken creates a 5 minute token for the second login step
func (j *JWTManager) GenerateTempToken(user *models.User) (string, error) {
	return j.sign(&Claims{
		UserID: user.ID,
		Email:  user.Email,
		Type:   tokenType2FA,
	}, 5*time.Minute)
}

// ValidateTempToken verifies a temporary 2FA token and returns the claims
func (j *JWTManager) ValidateTempToken(tokenString string) (*Claims, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenType2FA {
		return nil, errors.New("invalid token type")
	}
	return claims, nil
}

func (j *JWTManager) sign(claims *Claims, ttl time.Duration) (string, error) {
	now := timeutil.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    j.cfg.JWT.Issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.JWT.Secret))
}

func (j *JWTManager) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(j.cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
