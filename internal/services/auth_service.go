package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/logger"
	"github.com/voicedesk/backoffice/internal/models"
)

const tokenTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminExists        = errors.New("admin with this email already exists")
	ErrInvalidRole        = errors.New("invalid role")
)

// Claims is the JWT payload issued to admins.
type Claims struct {
	AdminID uint   `json:"admin_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// standInAdmin holds a random bcrypt hash that unknown emails are checked
// against, so they cost the same as a wrong password.
var standInAdmin = sync.OnceValue(func() *models.Admin {
	a := &models.Admin{}
	if err := a.SetPassword(uuid.NewString()); err != nil {
		logger.Component("auth").WithError(err).Error("failed to hash stand-in password")
	}
	return a
})

type AuthService struct {
	db     *gorm.DB
	config config.Config
	abuse  *AbuseService
}

// NewAuthService returns an AuthService. Failed logins are reported to abuse
// when it is non-nil.
func NewAuthService(db *gorm.DB, cfg config.Config, abuse *AbuseService) *AuthService {
	return &AuthService{db: db, config: cfg, abuse: abuse}
}

// Login checks credentials and returns a signed token for the admin.
func (s *AuthService) Login(email, password, ip, userAgent string) (string, *models.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var admin models.Admin
	res := s.db.Where("email = ?", email).Limit(1).Find(&admin)
	if res.Error != nil {
		return "", nil, res.Error
	}
	if res.RowsAffected == 0 {
		standInAdmin().CheckPassword(password)
		s.recordFailure(email, ip, userAgent, "unknown email")
		return "", nil, ErrInvalidCredentials
	}

	if !admin.CheckPassword(password) {
		s.recordFailure(email, ip, userAgent, "wrong password")
		return "", nil, ErrInvalidCredentials
	}
	if !admin.Enabled {
		s.recordFailure(email, ip, userAgent, "account disabled")
		return "", nil, ErrAccountDisabled
	}

	now := time.Now().UTC()
	admin.LastLogin = &now
	if err := s.db.Model(&admin).Update("last_login", &now).Error; err != nil {
		return "", nil, err
	}

	token, err := s.GenerateToken(&admin)
	if err != nil {
		return "", nil, err
	}
	return token, &admin, nil
}

func (s *AuthService) recordFailure(email, ip, userAgent, reason string) {
	if s.abuse == nil {
		return
	}
	attempt := &models.FailedLoginAttempt{
		Email:     email,
		IPAddress: ip,
		IsAdmin:   true,
		Reason:    reason,
		UserAgent: userAgent,
	}
	if err := s.abuse.RecordFailedLogin(attempt); err != nil {
		logger.Component("auth").WithError(err).Warn("failed to record failed login")
	}
}

// GenerateToken issues a 24 hour HS256 token for admin.
func (s *AuthService) GenerateToken(admin *models.Admin) (string, error) {
	now := time.Now()
	claims := Claims{
		AdminID: admin.ID,
		Role:    admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "voicedesk",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// ValidateToken parses tokenString and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) GetAdminByID(id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// CreateAdmin adds an enabled admin account.
func (s *AuthService) CreateAdmin(email, password, name, role string) (*models.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	var count int64
	if err := s.db.Model(&models.Admin{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAdminExists
	}

	admin := &models.Admin{
		UUID:    uuid.NewString(),
		Email:   email,
		Name:    name,
		Role:    role,
		Enabled: true,
	}
	if err := admin.SetPassword(password); err != nil {
		return nil, err
	}
	if err := s.db.Create(admin).Error; err != nil {
		return nil, err
	}
	return admin, nil
}

// ListAdmins returns every admin account.
func (s *AuthService) ListAdmins() ([]models.Admin, error) {
	var admins []models.Admin
	if err := s.db.Order("id asc").Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(adminID uint, oldPassword, newPassword string) error {
	admin, err := s.GetAdminByID(adminID)
	if err != nil {
		return err
	}
	if !admin.CheckPassword(oldPassword) {
		return ErrInvalidCredentials
	}
	return s.setPassword(admin, newPassword)
}

// ResetPassword sets a new password without the current one. Used by the CLI.
func (s *AuthService) ResetPassword(email, newPassword string) error {
	var admin models.Admin
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminNotFound
		}
		return err
	}
	return s.setPassword(&admin, newPassword)
}

func (s *AuthService) setPassword(admin *models.Admin, password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	return s.db.Model(admin).Update("password_hash", admin.PasswordHash).Error
}
