// Package userstore is the gorm-backed persistence layer for accounts and
// their role profiles. Absent rows come back as (nil, nil); soft-deleted
// rows never come back at all.
package userstore

import (
	"context"
	"errors"
	"time"

	"visualizar-api/internal/domain/users"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Where("deleted_at IS NULL")
}

func (r *Repo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *Repo) GetByDNI(ctx context.Context, dni string) (*users.User, error) {
	return r.getOne(ctx, "dni = ?", dni)
}

func (r *Repo) GetBySupabaseID(ctx context.Context, supabaseID string) (*users.User, error) {
	return r.getOne(ctx, "supabase_user_id = ?", supabaseID)
}

func (r *Repo) getOne(ctx context.Context, query string, arg any) (*users.User, error) {
	var u users.User
	err := r.active(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) List(ctx context.Context) ([]users.User, error) {
	var out []users.User
	err := r.active(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

// Search matches email, DNI or name, case-insensitively.
func (r *Repo) Search(ctx context.Context, query string) ([]users.User, error) {
	var out []users.User
	pattern := "%" + query + "%"
	err := r.active(ctx).
		Where("email ILIKE ? OR dni ILIKE ? OR name ILIKE ?", pattern, pattern, pattern).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *Repo) Create(ctx context.Context, u *users.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) Update(ctx context.Context, u *users.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// SoftDelete marks the account and any role profile it owns.
func (r *Repo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&users.User{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Update("deleted_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&users.Teacher{}).
			Where("user_id = ? AND deleted_at IS NULL", id).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		return tx.Model(&users.Student{}).
			Where("user_id = ? AND deleted_at IS NULL", id).
			Update("deleted_at", now).Error
	})
}

// IncrementFailedAttempts bumps the counter atomically in SQL so two
// concurrent failures cannot collapse into one, and returns the new count.
func (r *Repo) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	err := r.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", id).
		UpdateColumn("failed_otp_attempts", gorm.Expr("failed_otp_attempts + 1")).Error
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", id).
		Pluck("failed_otp_attempts", &count).Error
	return count, err
}

func (r *Repo) Lock(ctx context.Context, id string, until time.Time) error {
	return r.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", id).
		Update("locked_until", until).Error
}

func (r *Repo) ResetAttempts(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_otp_attempts": 0,
			"locked_until":        nil,
		}).Error
}

func (r *Repo) SetSupabaseUserID(ctx context.Context, id, supabaseID string) error {
	return r.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", id).
		Update("supabase_user_id", supabaseID).Error
}

func (r *Repo) TeacherByUserID(ctx context.Context, userID string) (*users.Teacher, error) {
	var t users.Teacher
	err := r.active(ctx).Where("user_id = ?", userID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) StudentByUserID(ctx context.Context, userID string) (*users.Student, error) {
	var s users.Student
	err := r.active(ctx).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) CreateTeacher(ctx context.Context, t *users.Teacher) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repo) CreateStudent(ctx context.Context, s *users.Student) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) AdminEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).Model(&users.User{}).
		Where("role = ? AND deleted_at IS NULL", users.RoleAdmin).
		Pluck("email", &emails).Error
	return emails, err
}
