package rbac

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, p *Principal) (*mux.Router, sqlmock.Sqlmock) {
	svc, mock, _ := newMockService(t)

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p != nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	})
	NewHandlers(svc).RegisterRoutes(router)
	return router, mock
}

func TestHandlers_ListRoles(t *testing.T) {
	router, mock := newTestRouter(t, adminPrincipal())

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY r.id`)).
		WillReturnRows(sqlmock.NewRows(roleColumns).
			AddRow(1, "administrador", "Acceso total", "{asignar_roles}", 1))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/roles", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var roles []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roles))
	require.Len(t, roles, 1)
	assert.Equal(t, "administrador", roles[0]["nombre"])
	assert.Equal(t, []interface{}{"asignar_roles"}, roles[0]["permisos"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlers_ListRoles_Forbidden(t *testing.T) {
	router, _ := newTestRouter(t, authorPrincipal(3))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/roles", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlers_GetRole_NotFound(t *testing.T) {
	router, mock := newTestRouter(t, adminPrincipal())

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE r.id = $1`)).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows(roleColumns))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/roles/8", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlers_GetRole_BadID(t *testing.T) {
	router, _ := newTestRouter(t, adminPrincipal())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/roles/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_CreateRole_UnknownPermission(t *testing.T) {
	router, mock := newTestRouter(t, adminPrincipal())

	body, _ := json.Marshal(map[string]interface{}{
		"nombre":   "revisor",
		"permisos": []string{"volar"},
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/roles", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "volar")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlers_DeleteRole_InUse(t *testing.T) {
	router, mock := newTestRouter(t, adminPrincipal())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"nombre"}).AddRow("autor"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM usuarios`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/roles/3", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlers_NoPrincipalIsDenied(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/permissions", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
