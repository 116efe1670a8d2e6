package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"visualizar-api/internal/apperr"
	"visualizar-api/internal/domain/users"
	"visualizar-api/internal/infra/supabase"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	getByEmailFn      func(ctx context.Context, email string) (*users.User, error)
	getByDNIFn        func(ctx context.Context, dni string) (*users.User, error)
	getBySupabaseIDFn func(ctx context.Context, supabaseID string) (*users.User, error)
	createFn          func(ctx context.Context, u *users.User) error
	incrementFn       func(ctx context.Context, id string) (int, error)
	lockFn            func(ctx context.Context, id string, until time.Time) error
	resetFn           func(ctx context.Context, id string) error
	setSupabaseIDFn   func(ctx context.Context, id, supabaseID string) error
	teacherFn         func(ctx context.Context, userID string) (*users.Teacher, error)
	studentFn         func(ctx context.Context, userID string) (*users.Student, error)
	createTeacherFn   func(ctx context.Context, t *users.Teacher) error
	createStudentFn   func(ctx context.Context, s *users.Student) error
}

var _ UserStore = (*mockStore)(nil)

func (m *mockStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	if m.getByEmailFn == nil {
		return nil, nil
	}
	return m.getByEmailFn(ctx, email)
}

func (m *mockStore) GetByDNI(ctx context.Context, dni string) (*users.User, error) {
	if m.getByDNIFn == nil {
		return nil, nil
	}
	return m.getByDNIFn(ctx, dni)
}

func (m *mockStore) GetBySupabaseID(ctx context.Context, supabaseID string) (*users.User, error) {
	if m.getBySupabaseIDFn == nil {
		return nil, nil
	}
	return m.getBySupabaseIDFn(ctx, supabaseID)
}

func (m *mockStore) Create(ctx context.Context, u *users.User) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, u)
}

func (m *mockStore) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	if m.incrementFn == nil {
		return 1, nil
	}
	return m.incrementFn(ctx, id)
}

func (m *mockStore) Lock(ctx context.Context, id string, until time.Time) error {
	if m.lockFn == nil {
		return nil
	}
	return m.lockFn(ctx, id, until)
}

func (m *mockStore) ResetAttempts(ctx context.Context, id string) error {
	if m.resetFn == nil {
		return nil
	}
	return m.resetFn(ctx, id)
}

func (m *mockStore) SetSupabaseUserID(ctx context.Context, id, supabaseID string) error {
	if m.setSupabaseIDFn == nil {
		return nil
	}
	return m.setSupabaseIDFn(ctx, id, supabaseID)
}

func (m *mockStore) TeacherByUserID(ctx context.Context, userID string) (*users.Teacher, error) {
	if m.teacherFn == nil {
		return nil, nil
	}
	return m.teacherFn(ctx, userID)
}

func (m *mockStore) StudentByUserID(ctx context.Context, userID string) (*users.Student, error) {
	if m.studentFn == nil {
		return nil, nil
	}
	return m.studentFn(ctx, userID)
}

func (m *mockStore) CreateTeacher(ctx context.Context, t *users.Teacher) error {
	if m.createTeacherFn == nil {
		return nil
	}
	return m.createTeacherFn(ctx, t)
}

func (m *mockStore) CreateStudent(ctx context.Context, s *users.Student) error {
	if m.createStudentFn == nil {
		return nil
	}
	return m.createStudentFn(ctx, s)
}

type mockProvider struct {
	sendFn        func(ctx context.Context, email string) error
	verifyFn      func(ctx context.Context, email, code string) (*supabase.Session, error)
	userFromToken func(ctx context.Context, accessToken string) (*supabase.User, error)
	createUserFn  func(ctx context.Context, email string) (*supabase.User, error)
}

var _ Provider = (*mockProvider)(nil)

func (m *mockProvider) SendOTP(ctx context.Context, email string) error {
	if m.sendFn == nil {
		return nil
	}
	return m.sendFn(ctx, email)
}

func (m *mockProvider) VerifyOTP(ctx context.Context, email, code string) (*supabase.Session, error) {
	if m.verifyFn == nil {
		return nil, errors.New("verify not stubbed")
	}
	return m.verifyFn(ctx, email, code)
}

func (m *mockProvider) GetUserFromToken(ctx context.Context, accessToken string) (*supabase.User, error) {
	if m.userFromToken == nil {
		return nil, errors.New("not stubbed")
	}
	return m.userFromToken(ctx, accessToken)
}

func (m *mockProvider) CreateUser(ctx context.Context, email string) (*supabase.User, error) {
	if m.createUserFn == nil {
		return nil, errors.New("not stubbed")
	}
	return m.createUserFn(ctx, email)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(store *mockStore, provider *mockProvider, now time.Time) *Service {
	s := NewService(store, provider, testLogger())
	s.now = func() time.Time { return now }
	return s
}

func teacherUser() *users.User {
	name := "Tina"
	return &users.User{
		ID:    "user-1",
		Email: "t@x.com",
		Name:  &name,
		DNI:   "12345678",
		Role:  users.RoleTeacher,
	}
}

func kindOf(t *testing.T, err error) *apperr.Error {
	t.Helper()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	return appErr
}

func TestSendOTPUnknownUser(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	svc := newTestService(store, &mockProvider{}, time.Now())

	_, err := svc.SendOTP(ctx, "nobody@x.com")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
	require.Contains(t, appErr.Message, "administrator")
}

func TestSendOTPLowercasesEmail(t *testing.T) {
	ctx := context.Background()
	var lookedUp, sentTo string
	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			lookedUp = email
			return teacherUser(), nil
		},
	}
	provider := &mockProvider{
		sendFn: func(ctx context.Context, email string) error {
			sentTo = email
			return nil
		},
	}
	svc := newTestService(store, provider, time.Now())

	resp, err := svc.SendOTP(ctx, "T@X.Com")
	require.NoError(t, err)
	require.Equal(t, "t@x.com", lookedUp)
	require.Equal(t, "t@x.com", sentTo)
	require.Equal(t, "t@x.com", resp.Email)
}

func TestSendOTPProviderFailureIsBadRequest(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			return teacherUser(), nil
		},
	}
	provider := &mockProvider{
		sendFn: func(ctx context.Context, email string) error {
			return errors.New("rate limited")
		},
	}
	svc := newTestService(store, provider, time.Now())

	_, err := svc.SendOTP(ctx, "t@x.com")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindBadRequest, appErr.Kind)
	require.Contains(t, appErr.Message, "rate limited")
}

func TestVerifyOTPFailureIncrementsWithoutLock(t *testing.T) {
	ctx := context.Background()
	lockCalled := false
	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			return teacherUser(), nil
		},
		incrementFn: func(ctx context.Context, id string) (int, error) {
			return 1, nil
		},
		lockFn: func(ctx context.Context, id string, until time.Time) error {
			lockCalled = true
			return nil
		},
	}
	provider := &mockProvider{
		verifyFn: func(ctx context.Context, email, code string) (*supabase.Session, error) {
			return nil, errors.New("otp_expired")
		},
	}
	svc := newTestService(store, provider, time.Now())

	_, err := svc.VerifyOTP(ctx, "t@x.com", "000000")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
	require.Equal(t, 2, appErr.Details["attempts"])
	require.Nil(t, appErr.Details["retryAt"])
	require.False(t, lockCalled)
}

func TestVerifyOTPThirdFailureLocksForFiveMinutes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var lockedUntil time.Time
	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			u := teacherUser()
			u.FailedOtpAttempts = 2
			return u, nil
		},
		incrementFn: func(ctx context.Context, id string) (int, error) {
			return 3, nil
		},
		lockFn: func(ctx context.Context, id string, until time.Time) error {
			lockedUntil = until
			return nil
		},
	}
	provider := &mockProvider{
		verifyFn: func(ctx context.Context, email, code string) (*supabase.Session, error) {
			return nil, errors.New("invalid otp")
		},
	}
	svc := newTestService(store, provider, now)

	_, err := svc.VerifyOTP(ctx, "t@x.com", "000000")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
	require.Equal(t, 0, appErr.Details["attempts"])
	require.Equal(t, now.Add(5*time.Minute), lockedUntil)

	retryAt, ok := appErr.Details["retryAt"].(*time.Time)
	require.True(t, ok)
	require.NotNil(t, retryAt)
	require.Equal(t, now.Add(5*time.Minute), *retryAt)
}

func TestVerifyOTPWhileLockedSkipsProvider(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	until := now.Add(2 * time.Minute)
	providerCalled := false

	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			u := teacherUser()
			u.FailedOtpAttempts = 3
			u.LockedUntil = &until
			return u, nil
		},
	}
	provider := &mockProvider{
		verifyFn: func(ctx context.Context, email, code string) (*supabase.Session, error) {
			providerCalled = true
			return nil, errors.New("should not be reached")
		},
	}
	svc := newTestService(store, provider, now)

	_, err := svc.VerifyOTP(ctx, "t@x.com", "123456")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
	require.Equal(t, 0, appErr.Details["attempts"])
	require.Equal(t, &until, appErr.Details["retryAt"])
	require.False(t, providerCalled)
}

func TestVerifyOTPExpiredLockResetsLazily(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	resetCalls := 0

	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			u := teacherUser()
			u.FailedOtpAttempts = 3
			u.LockedUntil = &past
			return u, nil
		},
		resetFn: func(ctx context.Context, id string) error {
			resetCalls++
			return nil
		},
		teacherFn: func(ctx context.Context, userID string) (*users.Teacher, error) {
			return &users.Teacher{ID: "teacher-1", UserID: userID}, nil
		},
	}
	provider := &mockProvider{
		verifyFn: func(ctx context.Context, email, code string) (*supabase.Session, error) {
			return &supabase.Session{
				AccessToken:  "at",
				RefreshToken: "rt",
				User:         &supabase.User{ID: "sb-1", Email: email},
			}, nil
		},
	}
	svc := newTestService(store, provider, now)

	resp, err := svc.VerifyOTP(ctx, "t@x.com", "123456")
	require.NoError(t, err)
	// once clearing the stale lock, once on success
	require.Equal(t, 2, resetCalls)
	require.Equal(t, 3, resp.Attempts)
	require.Nil(t, resp.RetryAt)
}

func TestVerifyOTPSuccessResetsAndLinksIdentity(t *testing.T) {
	ctx := context.Background()
	resetCalled := false
	linked := ""
	oldID := "sb-old"

	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			u := teacherUser()
			u.FailedOtpAttempts = 2
			u.SupabaseUserID = &oldID
			return u, nil
		},
		resetFn: func(ctx context.Context, id string) error {
			resetCalled = true
			return nil
		},
		setSupabaseIDFn: func(ctx context.Context, id, supabaseID string) error {
			linked = supabaseID
			return nil
		},
		teacherFn: func(ctx context.Context, userID string) (*users.Teacher, error) {
			return &users.Teacher{ID: "teacher-1", UserID: userID}, nil
		},
	}
	provider := &mockProvider{
		verifyFn: func(ctx context.Context, email, code string) (*supabase.Session, error) {
			return &supabase.Session{
				AccessToken:  "at",
				RefreshToken: "rt",
				User:         &supabase.User{ID: "sb-new", Email: email},
			}, nil
		},
	}
	svc := newTestService(store, provider, time.Now())

	resp, err := svc.VerifyOTP(ctx, "t@x.com", "123456")
	require.NoError(t, err)
	require.True(t, resetCalled)
	// last verified wins, even over a previously linked identity
	require.Equal(t, "sb-new", linked)
	require.Equal(t, "at", resp.AccessToken)
	require.Equal(t, "rt", resp.RefreshToken)
	require.NotNil(t, resp.User.TeacherID)
	require.Equal(t, "teacher-1", *resp.User.TeacherID)
	require.Equal(t, 3, resp.Attempts)
	require.Nil(t, resp.RetryAt)
}

func TestVerifyOTPMissingTeacherProfile(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			return teacherUser(), nil
		},
		teacherFn: func(ctx context.Context, userID string) (*users.Teacher, error) {
			return nil, nil
		},
	}
	provider := &mockProvider{
		verifyFn: func(ctx context.Context, email, code string) (*supabase.Session, error) {
			return &supabase.Session{
				AccessToken: "at",
				User:        &supabase.User{ID: "sb-1", Email: email},
			}, nil
		},
	}
	svc := newTestService(store, provider, time.Now())

	_, err := svc.VerifyOTP(ctx, "t@x.com", "123456")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
	require.Equal(t, "Teacher not found", appErr.Message)
}

func TestVerifyOTPStudentGetsAvatar(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			u := teacherUser()
			u.Role = users.RoleStudent
			return u, nil
		},
		studentFn: func(ctx context.Context, userID string) (*users.Student, error) {
			return &users.Student{ID: "student-1", UserID: userID}, nil
		},
	}
	provider := &mockProvider{
		verifyFn: func(ctx context.Context, email, code string) (*supabase.Session, error) {
			return &supabase.Session{
				AccessToken: "at",
				User: &supabase.User{
					ID:           "sb-1",
					Email:        email,
					UserMetadata: map[string]any{"avatar_url": "https://cdn/avatar.png"},
				},
			}, nil
		},
	}
	svc := newTestService(store, provider, time.Now())

	resp, err := svc.VerifyOTP(ctx, "t@x.com", "123456")
	require.NoError(t, err)
	require.NotNil(t, resp.User.StudentID)
	require.Equal(t, "student-1", *resp.User.StudentID)
	require.NotNil(t, resp.User.Avatar)
	require.Equal(t, "https://cdn/avatar.png", *resp.User.Avatar)
}

func TestVerifyOTPSessionWithoutUserCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	incremented := false
	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			return teacherUser(), nil
		},
		incrementFn: func(ctx context.Context, id string) (int, error) {
			incremented = true
			return 1, nil
		},
	}
	provider := &mockProvider{
		verifyFn: func(ctx context.Context, email, code string) (*supabase.Session, error) {
			return &supabase.Session{AccessToken: "at"}, nil
		},
	}
	svc := newTestService(store, provider, time.Now())

	_, err := svc.VerifyOTP(ctx, "t@x.com", "123456")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
	require.True(t, incremented)
}

func TestSendOTPWhileLockedCarriesRetryAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	until := now.Add(3 * time.Minute)
	providerCalled := false

	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			u := teacherUser()
			u.LockedUntil = &until
			return u, nil
		},
	}
	provider := &mockProvider{
		sendFn: func(ctx context.Context, email string) error {
			providerCalled = true
			return nil
		},
	}
	svc := newTestService(store, provider, now)

	_, err := svc.SendOTP(ctx, "t@x.com")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
	require.Equal(t, 0, appErr.Details["attempts"])
	require.Equal(t, &until, appErr.Details["retryAt"])
	require.False(t, providerCalled)
}

func TestValidateTokenEmailMismatch(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{
		getBySupabaseIDFn: func(ctx context.Context, supabaseID string) (*users.User, error) {
			u := teacherUser()
			u.Email = "someone-else@x.com"
			return u, nil
		},
	}
	provider := &mockProvider{
		userFromToken: func(ctx context.Context, accessToken string) (*supabase.User, error) {
			return &supabase.User{ID: "sb-1", Email: "t@x.com"}, nil
		},
	}
	svc := newTestService(store, provider, time.Now())

	_, err := svc.ValidateToken(ctx, "token")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
	require.Contains(t, appErr.Message, "mismatch")
}

func TestValidateTokenUnknownLocalUser(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	provider := &mockProvider{
		userFromToken: func(ctx context.Context, accessToken string) (*supabase.User, error) {
			return &supabase.User{ID: "sb-1", Email: "t@x.com"}, nil
		},
	}
	svc := newTestService(store, provider, time.Now())

	_, err := svc.ValidateToken(ctx, "token")
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{
		getByEmailFn: func(ctx context.Context, email string) (*users.User, error) {
			return teacherUser(), nil
		},
	}
	svc := newTestService(store, &mockProvider{}, time.Now())

	_, err := svc.CreateUser(ctx, CreateUserInput{Email: "t@x.com", DNI: "99", Role: users.RoleTeacher})
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindBadRequest, appErr.Kind)
	require.Contains(t, appErr.Message, "email already exists")
}

func TestCreateUserProviderFirst(t *testing.T) {
	ctx := context.Background()
	localCreated := false
	store := &mockStore{
		createFn: func(ctx context.Context, u *users.User) error {
			localCreated = true
			return nil
		},
	}
	provider := &mockProvider{
		createUserFn: func(ctx context.Context, email string) (*supabase.User, error) {
			return nil, errors.New("provider down")
		},
	}
	svc := newTestService(store, provider, time.Now())

	_, err := svc.CreateUser(ctx, CreateUserInput{Email: "new@x.com", DNI: "99", Role: users.RoleTeacher})
	appErr := kindOf(t, err)
	require.Equal(t, apperr.KindBadRequest, appErr.Kind)
	// local creation must not happen when the provider rejects
	require.False(t, localCreated)
}

func TestCreateUserTeacherGetsProfile(t *testing.T) {
	ctx := context.Background()
	var profileUserID string
	store := &mockStore{
		createFn: func(ctx context.Context, u *users.User) error {
			u.ID = "user-9"
			return nil
		},
		createTeacherFn: func(ctx context.Context, teacher *users.Teacher) error {
			profileUserID = teacher.UserID
			return nil
		},
	}
	provider := &mockProvider{
		createUserFn: func(ctx context.Context, email string) (*supabase.User, error) {
			return &supabase.User{ID: "sb-9", Email: email}, nil
		},
	}
	svc := newTestService(store, provider, time.Now())

	created, err := svc.CreateUser(ctx, CreateUserInput{Email: "New@X.com", DNI: "99", Role: users.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, "new@x.com", created.Email)
	require.Equal(t, "user-9", profileUserID)
	require.Equal(t, "sb-9", created.SupabaseUserID)
}
