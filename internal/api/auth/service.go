package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"visualizar-api/internal/apperr"
	"visualizar-api/internal/domain/users"
	"visualizar-api/internal/infra/supabase"

	"github.com/sirupsen/logrus"
)

const (
	maxOtpAttempts  = 3
	lockoutDuration = 5 * time.Minute
)

// UserStore is the slice of account persistence the OTP flow needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	GetByDNI(ctx context.Context, dni string) (*users.User, error)
	GetBySupabaseID(ctx context.Context, supabaseID string) (*users.User, error)
	Create(ctx context.Context, u *users.User) error
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)
	Lock(ctx context.Context, id string, until time.Time) error
	ResetAttempts(ctx context.Context, id string) error
	SetSupabaseUserID(ctx context.Context, id, supabaseID string) error
	TeacherByUserID(ctx context.Context, userID string) (*users.Teacher, error)
	StudentByUserID(ctx context.Context, userID string) (*users.Student, error)
	CreateTeacher(ctx context.Context, t *users.Teacher) error
	CreateStudent(ctx context.Context, s *users.Student) error
}

// Provider is the identity-provider surface the flow delegates to.
type Provider interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*supabase.Session, error)
	GetUserFromToken(ctx context.Context, accessToken string) (*supabase.User, error)
	CreateUser(ctx context.Context, email string) (*supabase.User, error)
}

type Service struct {
	store    UserStore
	provider Provider
	log      *logrus.Logger

	now func() time.Time
}

func NewService(store UserStore, provider Provider, log *logrus.Logger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		log:      log,
		now:      time.Now,
	}
}

// resolveAccount finds the active account for email and applies the
// lockout policy: a live lock rejects the call before the provider is
// ever contacted, an elapsed lock is cleared in place.
func (s *Service) resolveAccount(ctx context.Context, email string) (*users.User, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("Failed to look up user", err)
	}
	if user == nil {
		return nil, apperr.Unauthorized("User not found. Please contact an administrator to create your account.")
	}

	if user.LockedUntil != nil {
		if s.now().Before(*user.LockedUntil) {
			return nil, apperr.UnauthorizedWith("Too many failed attempts. Please try again later.", map[string]any{
				"attempts": 0,
				"retryAt":  user.LockedUntil,
			})
		}
		if err := s.store.ResetAttempts(ctx, user.ID); err != nil {
			return nil, apperr.Internal("Failed to reset attempt counter", err)
		}
		user.FailedOtpAttempts = 0
		user.LockedUntil = nil
	}

	return user, nil
}

// SendOTP asks the provider to mail a one-time code to an existing
// account. The code itself never passes through this service.
func (s *Service) SendOTP(ctx context.Context, email string) (*SendOTPResponse, error) {
	email = strings.ToLower(email)

	if _, err := s.resolveAccount(ctx, email); err != nil {
		return nil, err
	}

	if err := s.provider.SendOTP(ctx, email); err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("Failed to send OTP: %s", err.Error()))
	}

	return &SendOTPResponse{
		Message: "OTP sent successfully",
		Email:   email,
	}, nil
}

// VerifyOTP exchanges the emailed code for provider tokens and a
// role-aware user summary, enforcing the 3-attempt / 5-minute lockout.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*AuthResponse, error) {
	email = strings.ToLower(email)

	user, err := s.resolveAccount(ctx, email)
	if err != nil {
		return nil, err
	}

	session, verifyErr := s.provider.VerifyOTP(ctx, email, code)
	if verifyErr != nil || session == nil || session.AccessToken == "" || session.User == nil || session.User.ID == "" {
		return nil, s.recordFailure(ctx, user)
	}

	if err := s.store.ResetAttempts(ctx, user.ID); err != nil {
		return nil, apperr.Internal("Failed to reset attempt counter", err)
	}

	// Last verified wins: relink even if a different provider id was
	// stored before.
	if user.SupabaseUserID == nil || *user.SupabaseUserID != session.User.ID {
		if err := s.store.SetSupabaseUserID(ctx, user.ID, session.User.ID); err != nil {
			return nil, apperr.Internal("Failed to link provider identity", err)
		}
	}

	summary := UserSummary{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		SupabaseUserID: session.User.ID,
	}

	switch user.Role {
	case users.RoleTeacher:
		teacher, err := s.store.TeacherByUserID(ctx, user.ID)
		if err != nil {
			return nil, apperr.Internal("Failed to look up teacher", err)
		}
		if teacher == nil {
			return nil, apperr.Unauthorized("Teacher not found")
		}
		summary.TeacherID = &teacher.ID

	case users.RoleStudent:
		student, err := s.store.StudentByUserID(ctx, user.ID)
		if err != nil {
			return nil, apperr.Internal("Failed to look up student", err)
		}
		if student == nil {
			return nil, apperr.Unauthorized("Student not found")
		}
		summary.StudentID = &student.ID
		if avatar, ok := session.User.UserMetadata["avatar_url"].(string); ok && avatar != "" {
			summary.Avatar = &avatar
		}
	}

	s.log.WithFields(logrus.Fields{"userId": user.ID, "role": user.Role}).Info("otp verified")

	return &AuthResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         summary,
		Attempts:     maxOtpAttempts,
		RetryAt:      nil,
	}, nil
}

// recordFailure counts one failed verification and locks the account on
// the third consecutive miss.
func (s *Service) recordFailure(ctx context.Context, user *users.User) error {
	count, err := s.store.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		return apperr.Internal("Failed to record attempt", err)
	}

	var retryAt *time.Time
	if count >= maxOtpAttempts {
		until := s.now().Add(lockoutDuration)
		if err := s.store.Lock(ctx, user.ID, until); err != nil {
			return apperr.Internal("Failed to lock account", err)
		}
		retryAt = &until
		s.log.WithFields(logrus.Fields{"userId": user.ID, "until": until}).Warn("account locked after repeated otp failures")
	}

	remaining := maxOtpAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return apperr.UnauthorizedWith("Invalid or expired OTP code", map[string]any{
		"attempts": remaining,
		"retryAt":  retryAt,
	})
}

// ValidateToken resolves a provider access token to the local account,
// cross-checking the email to defend against external-identity
// reassignment.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (*users.AuthenticatedUser, error) {
	providerUser, err := s.provider.GetUserFromToken(ctx, accessToken)
	if err != nil {
		return nil, apperr.Unauthorized(fmt.Sprintf("Token validation failed: %s", err.Error()))
	}
	if providerUser == nil || providerUser.Email == "" {
		return nil, apperr.Unauthorized("Invalid Supabase token")
	}

	local, err := s.store.GetBySupabaseID(ctx, providerUser.ID)
	if err != nil {
		return nil, apperr.Internal("Failed to look up user", err)
	}
	if local == nil {
		return nil, apperr.Unauthorized("User not found in local database")
	}

	if local.Email != providerUser.Email {
		return nil, apperr.Unauthorized("Email mismatch between Supabase and local database")
	}

	return &users.AuthenticatedUser{
		ID:             local.ID,
		Email:          local.Email,
		Name:           local.Name,
		Role:           local.Role,
		SupabaseUserID: providerUser.ID,
	}, nil
}

// CreateUser provisions an account: the provider user first (abort on
// failure), then the local row, then the role profile.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*CreatedUser, error) {
	email := strings.ToLower(input.Email)

	existing, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("Failed to look up user", err)
	}
	if existing != nil {
		return nil, apperr.BadRequest("User with this email already exists in the database")
	}

	existingDNI, err := s.store.GetByDNI(ctx, input.DNI)
	if err != nil {
		return nil, apperr.Internal("Failed to look up user", err)
	}
	if existingDNI != nil {
		return nil, apperr.BadRequest("User with this DNI already exists in the database")
	}

	providerUser, err := s.provider.CreateUser(ctx, email)
	if err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("Failed to create Supabase user: %s", err.Error()))
	}

	user := users.User{
		Email:          email,
		Name:           input.Name,
		DNI:            input.DNI,
		Role:           input.Role,
		SupabaseUserID: &providerUser.ID,
	}
	if err := s.store.Create(ctx, &user); err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("Failed to create database user: %s", err.Error()))
	}

	switch input.Role {
	case users.RoleTeacher:
		if err := s.store.CreateTeacher(ctx, &users.Teacher{UserID: user.ID}); err != nil {
			return nil, apperr.Internal("Failed to create teacher profile", err)
		}
	case users.RoleStudent:
		if err := s.store.CreateStudent(ctx, &users.Student{UserID: user.ID}); err != nil {
			return nil, apperr.Internal("Failed to create student profile", err)
		}
	}

	return &CreatedUser{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		DNI:            user.DNI,
		Role:           user.Role,
		SupabaseUserID: providerUser.ID,
	}, nil
}
