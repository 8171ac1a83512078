package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/constants"
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrInvalidWorkingHours  = errors.New("working hours must satisfy 0 <= start < end <= 24")
	ErrInvalidTimezone      = errors.New("unknown timezone")
	ErrInvalidFrequency     = errors.New("unknown reminder frequency")
)

// AuthService handles authentication and profile business logic.
type AuthService struct {
	userRepo repository.UserRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Username string
	Password string
}

// Signup creates a new user.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(input.Username)
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

// UpdateProfileInput carries the assignment-related profile fields; nil
// pointers leave the field unchanged.
type UpdateProfileInput struct {
	RemindersFrequency *models.ReminderFrequency
	OnHoliday          *bool
	WorkingHourStart   *int
	WorkingHourEnd     *int
	Timezone           *string
}

// UpdateProfile mutates reminder frequency, holiday flag, working hours and
// timezone on the user.
func (s *AuthService) UpdateProfile(userID uint64, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if input.RemindersFrequency != nil {
		if !validFrequency(*input.RemindersFrequency) {
			return nil, ErrInvalidFrequency
		}
		user.RemindersFrequency = *input.RemindersFrequency
	}
	if input.OnHoliday != nil {
		user.OnHoliday = *input.OnHoliday
	}
	if input.WorkingHourStart != nil {
		user.WorkingHourStart = *input.WorkingHourStart
	}
	if input.WorkingHourEnd != nil {
		user.WorkingHourEnd = *input.WorkingHourEnd
	}
	if user.WorkingHourStart < 0 || user.WorkingHourEnd > 24 || user.WorkingHourStart >= user.WorkingHourEnd {
		return nil, ErrInvalidWorkingHours
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			return nil, ErrInvalidTimezone
		}
		user.Timezone = *input.Timezone
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

func validFrequency(f models.ReminderFrequency) bool {
	switch f {
	case models.RemindNever, models.RemindDaily, models.RemindWeekly,
		models.RemindEveryTwoWeeks, models.RemindEveryFourWeeks,
		models.RemindOnEveryPost:
		return true
	}
	return false
}
