package users

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"visualizar-api/internal/repository/userstore"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Discard,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return NewHandler(userstore.New(db)), mock
}

func performJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// Accounts are stored with lowercase emails so the OTP flow's lowercased
// lookup always finds them.
func TestCreateStoresLowercasedEmail(t *testing.T) {
	h, mock := newTestHandler(t)

	noRows := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"id"}) }
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(noRows())
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(noRows())
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/users", h.Create)

	w := performJSON(r, http.MethodPost, "/users",
		`{"email":"Mixed.Case@X.Com","dni":"12345678","role":"ADMIN"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"email":"mixed.case@x.com"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLowercasesEmail(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "dni", "role"}).
			AddRow("user-1", "old@x.com", "12345678", "ADMIN"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/users/:id", h.Update)

	w := performJSON(r, http.MethodPut, "/users/user-1", `{"email":"New.Addr@X.Com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"email":"new.addr@x.com"`)
	require.NoError(t, mock.ExpectationsWereMet())
}
