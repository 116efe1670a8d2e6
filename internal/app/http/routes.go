// Package routes wires the HTTP surface: every route declares its role
// set here, and nowhere else.
package routes

import (
	authapi "visualizar-api/internal/api/auth"
	booksapi "visualizar-api/internal/api/books"
	catalogapi "visualizar-api/internal/api/catalog"
	coursesapi "visualizar-api/internal/api/courses"
	studentsapi "visualizar-api/internal/api/students"
	teachersapi "visualizar-api/internal/api/teachers"
	usersapi "visualizar-api/internal/api/users"
	"visualizar-api/internal/app/http/middleware"
	"visualizar-api/internal/domain/access"
	"visualizar-api/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// Handlers collects everything the route table mounts.
type Handlers struct {
	Auth         *authapi.Handler
	Books        *booksapi.Handler
	Users        *usersapi.Handler
	Courses      *coursesapi.Handler
	Authors      *catalogapi.AuthorsHandler
	Categories   *catalogapi.CategoriesHandler
	Institutions *catalogapi.InstitutionsHandler
	Students     *studentsapi.Handler
	Teachers     *teachersapi.Handler
}

func RegisterRoutes(r *gin.Engine, jwtSecret string, resolver middleware.UserResolver, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Public auth endpoints, with input sanitation.
	public := api.Group("/auth")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.POST("/send-otp", h.Auth.SendOTP)
	public.POST("/verify-otp", h.Auth.VerifyOTP)

	guard := middleware.Auth(jwtSecret, resolver)

	allRoles := access.Permit(users.RoleAdmin, users.RoleTeacher, users.RoleStudent)
	adminOnly := access.Permit(users.RoleAdmin)
	adminTeacher := access.Permit(users.RoleAdmin, users.RoleTeacher)
	teacherOnly := access.Permit(users.RoleTeacher)

	auth := api.Group("/auth")
	auth.Use(guard)
	auth.GET("/profile", h.Auth.Profile)
	auth.GET("/validate", h.Auth.Validate)
	auth.POST("/create-user", middleware.RequireRoles(adminOnly), h.Auth.CreateUser)

	books := api.Group("/books")
	books.Use(guard)
	books.GET("", middleware.RequireRoles(allRoles), h.Books.ListBooks)
	books.POST("", middleware.RequireRoles(adminTeacher), h.Books.CreateBook)
	books.GET("/requests", middleware.RequireRoles(teacherOnly), h.Books.ListMyRequests)
	books.GET("/requests/all", middleware.RequireRoles(adminOnly), h.Books.ListAllRequests)
	books.POST("/request", middleware.RequireRoles(teacherOnly), h.Books.CreateRequest)
	books.GET("/request/:id", middleware.RequireRoles(adminTeacher), h.Books.GetRequest)
	books.PATCH("/request/:id/status", middleware.RequireRoles(adminOnly), h.Books.UpdateRequestStatus)
	books.GET("/course/:courseId", middleware.RequireRoles(allRoles), h.Books.ListBooksByCourse)
	books.GET("/:id", middleware.RequireRoles(allRoles), h.Books.GetBook)
	books.PUT("/:id", middleware.RequireRoles(adminTeacher), h.Books.UpdateBook)
	books.DELETE("/:id", middleware.RequireRoles(adminTeacher), h.Books.DeleteBook)

	usersGroup := api.Group("/users")
	usersGroup.Use(guard)
	usersGroup.GET("", middleware.RequireRoles(adminOnly), h.Users.List)
	usersGroup.GET("/search", middleware.RequireRoles(adminTeacher), h.Users.Search)
	usersGroup.GET("/:id", middleware.RequireRoles(allRoles), h.Users.Get)
	usersGroup.POST("", middleware.RequireRoles(adminOnly), h.Users.Create)
	usersGroup.PUT("/:id", middleware.RequireRoles(adminOnly), h.Users.Update)
	usersGroup.DELETE("/:id", middleware.RequireRoles(adminOnly), h.Users.Delete)

	courses := api.Group("/courses")
	courses.Use(guard)
	courses.GET("", middleware.RequireRoles(adminTeacher), h.Courses.List)
	courses.GET("/:id", middleware.RequireRoles(allRoles), h.Courses.Get)
	courses.POST("", middleware.RequireRoles(adminOnly), h.Courses.Create)
	courses.PUT("/:id", middleware.RequireRoles(adminOnly), h.Courses.Update)
	courses.DELETE("/:id", middleware.RequireRoles(adminOnly), h.Courses.Delete)

	authors := api.Group("/authors")
	authors.Use(guard)
	authors.GET("", middleware.RequireRoles(allRoles), h.Authors.List)
	authors.GET("/:id", middleware.RequireRoles(allRoles), h.Authors.Get)
	authors.POST("", middleware.RequireRoles(adminTeacher), h.Authors.Create)
	authors.PUT("/:id", middleware.RequireRoles(adminTeacher), h.Authors.Update)
	authors.DELETE("/:id", middleware.RequireRoles(adminTeacher), h.Authors.Delete)

	categories := api.Group("/categories")
	categories.Use(guard)
	categories.GET("", middleware.RequireRoles(allRoles), h.Categories.List)
	categories.GET("/:id", middleware.RequireRoles(allRoles), h.Categories.Get)
	categories.POST("", middleware.RequireRoles(adminTeacher), h.Categories.Create)
	categories.PUT("/:id", middleware.RequireRoles(adminTeacher), h.Categories.Update)
	categories.DELETE("/:id", middleware.RequireRoles(adminTeacher), h.Categories.Delete)

	institutions := api.Group("/institutions")
	institutions.Use(guard)
	institutions.GET("", middleware.RequireRoles(access.Permit(users.RoleAdmin, users.RoleInstitution)), h.Institutions.List)
	institutions.GET("/:id", middleware.RequireRoles(access.Permit(users.RoleAdmin, users.RoleTeacher, users.RoleInstitution, users.RoleStudent)), h.Institutions.Get)
	institutions.POST("", middleware.RequireRoles(adminOnly), h.Institutions.Create)
	institutions.PUT("/:id", middleware.RequireRoles(access.Permit(users.RoleAdmin, users.RoleInstitution)), h.Institutions.Update)
	institutions.DELETE("/:id", middleware.RequireRoles(adminOnly), h.Institutions.Delete)

	students := api.Group("/students")
	students.Use(guard)
	students.GET("", middleware.RequireRoles(adminTeacher), h.Students.List)
	students.GET("/:id", middleware.RequireRoles(adminTeacher), h.Students.Get)
	students.POST("", middleware.RequireRoles(adminOnly), h.Students.Create)
	students.PUT("/:id", middleware.RequireRoles(access.Permit(users.RoleAdmin, users.RoleStudent)), h.Students.Update)
	students.DELETE("/:id", middleware.RequireRoles(adminOnly), h.Students.Delete)
	students.POST("/:id/courses", middleware.RequireRoles(adminTeacher), h.Students.AssignCourse)
	students.GET("/:id/courses", middleware.RequireRoles(allRoles), h.Students.Courses)
	students.DELETE("/:id/courses/:courseId", middleware.RequireRoles(adminTeacher), h.Students.UnassignCourse)

	teachers := api.Group("/teachers")
	teachers.Use(guard)
	teachers.GET("", middleware.RequireRoles(adminOnly), h.Teachers.List)
	teachers.GET("/:id", middleware.RequireRoles(adminTeacher), h.Teachers.Get)
	teachers.POST("", middleware.RequireRoles(adminOnly), h.Teachers.Create)
	teachers.PUT("/:id", middleware.RequireRoles(adminTeacher), h.Teachers.Update)
	teachers.DELETE("/:id", middleware.RequireRoles(adminOnly), h.Teachers.Delete)
	teachers.POST("/:id/courses", middleware.RequireRoles(adminOnly), h.Teachers.AssignCourse)
}
