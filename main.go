package main

import (
	"time"

	"visualizar-api/config"
	"visualizar-api/database"
	authapi "visualizar-api/internal/api/auth"
	booksapi "visualizar-api/internal/api/books"
	catalogapi "visualizar-api/internal/api/catalog"
	coursesapi "visualizar-api/internal/api/courses"
	studentsapi "visualizar-api/internal/api/students"
	teachersapi "visualizar-api/internal/api/teachers"
	usersapi "visualizar-api/internal/api/users"
	routes "visualizar-api/internal/app/http"
	"visualizar-api/internal/app/http/middleware"
	"visualizar-api/internal/infra/email"
	"visualizar-api/internal/infra/supabase"
	"visualizar-api/internal/repository/bookstore"
	"visualizar-api/internal/repository/userstore"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	db := database.InitDB(cfg.DBURL)

	userRepo := userstore.New(db)
	bookRepo := bookstore.New(db)
	provider := supabase.New(cfg.Supabase)
	mailer := email.NewMailer(cfg.SMTP)

	authService := authapi.NewService(userRepo, provider, log)
	bookService := booksapi.NewService(bookRepo, mailer, log)

	handlers := routes.Handlers{
		Auth:         authapi.NewHandler(authService),
		Books:        booksapi.NewHandler(bookService),
		Users:        usersapi.NewHandler(userRepo),
		Courses:      coursesapi.NewHandler(db),
		Authors:      catalogapi.NewAuthorsHandler(db),
		Categories:   catalogapi.NewCategoriesHandler(db),
		Institutions: catalogapi.NewInstitutionsHandler(db),
		Students:     studentsapi.NewHandler(db),
		Teachers:     teachersapi.NewHandler(db),
	}

	r := gin.Default()
	r.Use(middleware.RequestID(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, cfg.Supabase.JWTSecret, userRepo, handlers)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
