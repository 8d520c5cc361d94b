package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aulaboard/backend/internal/board"
)

const idNumberLength = 10

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so login failures are indistinguishable.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	errMissingDatabase    = errors.New("users: database connection required")
)

// ValidationError carries a field-level reason for rejecting a
// registration.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("users: invalid %s: %s", e.Field, e.Reason)
}

// ServiceConfig describes the dependencies of the account service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service manages account registration and credential checks.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// RegisterInput is the account creation payload. IDNumber is the
// ten-digit institutional identifier and must be unique.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     board.Role
	IDNumber string
}

// Register creates an account after validating the payload.
func (s *Service) Register(ctx context.Context, input RegisterInput) (board.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return board.User{}, &ValidationError{Field: "username", Reason: "required"}
	}
	if len(input.Password) < 8 {
		return board.User{}, &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	if input.Role != board.RoleStudent && input.Role != board.RoleTeacher {
		return board.User{}, &ValidationError{Field: "role", Reason: "must be student or teacher"}
	}
	if err := validateIDNumber(input.IDNumber); err != nil {
		return board.User{}, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&board.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		return board.User{}, err
	}
	if existing > 0 {
		return board.User{}, &ValidationError{Field: "username", Reason: "already taken"}
	}
	if err := s.db.WithContext(ctx).Model(&board.User{}).Where("id_number = ?", input.IDNumber).Count(&existing).Error; err != nil {
		return board.User{}, err
	}
	if existing > 0 {
		return board.User{}, &ValidationError{Field: "id_number", Reason: "already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return board.User{}, err
	}

	user := board.User{
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		Role:         input.Role,
		IDNumber:     input.IDNumber,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return board.User{}, err
	}
	return user, nil
}

// Authenticate checks the username and password and returns the account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (board.User, error) {
	var user board.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return board.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return board.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return board.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Get loads one account by id.
func (s *Service) Get(ctx context.Context, userID uint) (board.User, error) {
	var user board.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return board.User{}, board.ErrNotFound
	}
	if err != nil {
		return board.User{}, err
	}
	return user, nil
}

func validateIDNumber(value string) error {
	if len(value) != idNumberLength {
		return &ValidationError{Field: "id_number", Reason: "must be exactly 10 digits"}
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return &ValidationError{Field: "id_number", Reason: "must contain only digits"}
		}
	}
	return nil
}
