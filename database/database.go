package database

import (
	"log"

	"visualizar-api/internal/domain/books"
	"visualizar-api/internal/domain/catalog"
	"visualizar-api/internal/domain/courses"
	"visualizar-api/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB(dsn string) *gorm.DB {
	if dsn == "" {
		log.Fatal("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Required for gen_random_uuid() defaults.
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Fatal("Failed to enable pgcrypto extension:", err)
	}

	if err := db.AutoMigrate(
		// accounts
		&users.User{},
		&users.Teacher{},
		&users.Student{},
		&users.TeacherCourse{},
		&users.StudentCourse{},

		// reference entities
		&courses.Course{},
		&catalog.Author{},
		&catalog.Category{},
		&catalog.Institution{},

		// books
		&books.BookRequest{},
		&books.BookRequestCourse{},
		&books.BookRequestStatusAudit{},
		&books.Book{},
		&books.BookCourse{},
		&books.BookAuthor{},
		&books.BookCategory{},
		&books.BookAudit{},
	); err != nil {
		log.Fatal("AutoMigrate error:", err)
	}

	return db
}
