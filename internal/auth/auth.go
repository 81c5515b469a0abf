package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/todmy/stoneweight/pkg/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrUsernameRequired   = errors.New("username is required")
	ErrSelfDelete         = errors.New("cannot delete the signed-in user")
)

// MinPasswordLength is the shortest password accepted for an account
const MinPasswordLength = 6

// User represents an operator account
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Public strips the credential fields
func (u *User) Public() models.User {
	return models.User{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

// Claims represents the JWT claims
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// UserUpdate carries the optional fields of an account change
type UserUpdate struct {
	Username *string
	Password *string
}

// Service defines the authentication service interface
type Service interface {
	Login(ctx context.Context, username, password string) (string, *User, error)
	ValidateToken(tokenString string) (*Claims, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, username, password string) (*User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, id, actorID string) error
	EnsureDefaultUser(ctx context.Context, username, password string) (bool, error)
}

// Config holds authentication configuration
type Config struct {
	SecretKey     string
	TokenDuration time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		SecretKey:     "change-me-in-production",
		TokenDuration: 12 * time.Hour,
	}
}

// JWTService implements the Service interface
type JWTService struct {
	config Config
	repo   UserRepository
}

// NewJWTService creates a new JWT-based authentication service
func NewJWTService(config Config, repo UserRepository) *JWTService {
	return &JWTService{
		config: config,
		repo:   repo,
	}
}

// Login authenticates a user and returns a signed token with the account
func (s *JWTService) Login(ctx context.Context, username, password string) (string, *User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !CheckPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.SecretKey), nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ListUsers returns every account
func (s *JWTService) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// CreateUser adds an account after checking the username is free
func (s *JWTService) CreateUser(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	existing, _ := s.repo.GetByUsername(ctx, username)
	if existing != nil {
		return nil, ErrUserExists
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username:     username,
		PasswordHash: hashed,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser renames an account and/or resets its password
func (s *JWTService) UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, ErrUsernameRequired
		}
		if username != user.Username {
			existing, _ := s.repo.GetByUsername(ctx, username)
			if existing != nil && existing.ID != user.ID {
				return nil, ErrUserExists
			}
			user.Username = username
		}
	}

	if update.Password != nil && *update.Password != "" {
		if len(*update.Password) < MinPasswordLength {
			return nil, ErrWeakPassword
		}
		hashed, err := HashPassword(*update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. actorID is the account performing the
// deletion, which may not remove itself.
func (s *JWTService) DeleteUser(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return ErrSelfDelete
	}
	return s.repo.Delete(ctx, id)
}

// EnsureDefaultUser creates the bootstrap account when the username is not
// taken. It reports whether an account was created.
func (s *JWTService) EnsureDefaultUser(ctx context.Context, username, password string) (bool, error) {
	existing, err := s.repo.GetByUsername(ctx, username)
	if err == nil && existing != nil {
		return false, nil
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	user := &User{Username: username, PasswordHash: hashed, CreatedAt: time.Now()}
	if err := s.repo.Create(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

func (s *JWTService) generateToken(user *User) (string, error) {
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.SecretKey))
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
