package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/lawnlink/lawncare-backend/internal/models"
	"github.com/lawnlink/lawncare-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{repo: repo, tokenManager: tokenManager}
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
	Parish      *string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// Register создаёт нового пользователя.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("auth service: некорректный email")
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("auth service: пароль должен быть не короче 8 символов")
	}

	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if role != models.RoleCustomer && role != models.RoleProvider {
		return nil, fmt.Errorf("auth service: недопустимая роль %q", role)
	}

	if in.Parish != nil {
		if err := validation.Parish(*in.Parish); err != nil {
			return nil, fmt.Errorf("auth service: %w", err)
		}
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(passHash),
		DisplayName:  in.DisplayName,
		Role:         role,
		Parish:       in.Parish,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}
	return &AuthResult{User: user, TokenPair: pair}, nil
}

// Login проверяет учётные данные и выпускает пару токенов.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("auth service: неверные учетные данные")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("auth service: неверные учетные данные")
	}

	pair, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}
	return &AuthResult{User: user, TokenPair: pair}, nil
}

// Refresh обменивает refresh токен на новую пару.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokenManager.ParseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("auth service: токен невалиден")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("auth service: токен невалиден")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}
	return &AuthResult{User: user, TokenPair: pair}, nil
}
