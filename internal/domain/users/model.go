package users

import (
	"time"
)

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleTeacher     Role = "TEACHER"
	RoleStudent     Role = "STUDENT"
	RoleInstitution Role = "INSTITUTION"
)

// User is the local account record. Authentication itself lives in the
// identity provider; SupabaseUserID links the two. An account with a
// non-nil DeletedAt is invisible to every flow.
type User struct {
	ID    string  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email string  `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	Name  *string `json:"name"`
	DNI   string  `gorm:"column:dni;not null;uniqueIndex:idx_users_dni" json:"dni"`
	Role  Role    `gorm:"type:varchar(20);not null" json:"role"`

	SupabaseUserID *string `gorm:"type:uuid;uniqueIndex:idx_users_supabase_user_id" json:"supabaseUserId,omitempty"`

	// OTP lockout state, mutated only by the auth flow.
	FailedOtpAttempts int        `gorm:"not null;default:0" json:"-"`
	LockedUntil       *time.Time `json:"-"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

// Teacher extends a TEACHER account with course assignments.
type Teacher struct {
	ID     string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_teachers_user_id" json:"userId"`
	User   *User  `json:"user,omitempty"`

	Courses []TeacherCourse `gorm:"foreignKey:TeacherID" json:"courses,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

// Student extends a STUDENT account with course enrollments.
type Student struct {
	ID     string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_students_user_id" json:"userId"`
	User   *User  `json:"user,omitempty"`

	Courses []StudentCourse `gorm:"foreignKey:StudentID" json:"courses,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

type TeacherCourse struct {
	ID        string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TeacherID string `gorm:"type:uuid;not null;index" json:"teacherId"`
	CourseID  string `gorm:"type:uuid;not null;index" json:"courseId"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

type StudentCourse struct {
	ID        string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudentID string `gorm:"type:uuid;not null;index" json:"studentId"`
	CourseID  string `gorm:"type:uuid;not null;index" json:"courseId"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}
