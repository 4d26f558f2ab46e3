package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

var (
	ErrEmailTaken           = errors.New("a user with this email already exists")
	ErrInvalidEmail         = errors.New("a valid email is required")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles authentication and onboarding.
type AuthService struct {
	userRepo repository.UserRepository
	resolver *access.Resolver
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, resolver *access.Resolver) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		resolver: resolver,
	}
}

// SignupInput represents the required information to create a new user.
// OrganizationName is kept as the legacy free-text tenant link.
type SignupInput struct {
	Email            string
	Password         string
	Name             string
	OrganizationName string
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < constants.MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", ErrFailedToHashPassword
	}
	return string(hashed), nil
}

// Signup creates a new user account. Organizations are set up afterwards
// through onboarding or an invitation.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:            email,
		Name:             strings.TrimSpace(input.Name),
		PasswordHash:     hashed,
		OrganizationName: strings.TrimSpace(input.OrganizationName),
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// OnboardingStatus describes what is left to set up for a user.
type OnboardingStatus struct {
	NeedsOrganizationSetup bool                 `json:"needs_organization_setup"`
	OnboardingComplete     bool                 `json:"onboarding_complete"`
	Organization           *models.Organization `json:"organization"`
}

// OnboardingStatus reports whether user still has to create or join an organization.
func (s *AuthService) OnboardingStatus(user *models.User) (*OnboardingStatus, error) {
	tenant, err := s.resolver.Resolve(user)
	if err != nil && !errors.Is(err, access.ErrNoOrganization) {
		return nil, err
	}

	return &OnboardingStatus{
		NeedsOrganizationSetup: tenant.Organization == nil,
		OnboardingComplete:     user.OnboardingCompleted,
		Organization:           tenant.Organization,
	}, nil
}

// CompleteOnboarding marks the user's onboarding done.
func (s *AuthService) CompleteOnboarding(user *models.User) (*OnboardingStatus, error) {
	if !user.OnboardingCompleted {
		user.OnboardingCompleted = true
		if err := s.userRepo.Update(user); err != nil {
			return nil, fmt.Errorf("failed to complete onboarding: %w", err)
		}
	}
	return s.OnboardingStatus(user)
}
