package posts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postColumns = []string{
	"id", "titulo", "slug", "extracto", "contenido", "imagen_destacada",
	"usuario_id", "autor", "estado_id", "estado", "fecha_publicacion", "palabras_clave",
	"categoria_ids", "categorias", "created_at", "updated_at",
}

var statusIDs = map[string]int64{
	StatusDraft:     1,
	StatusInReview:  2,
	StatusPublished: 3,
	StatusRejected:  4,
	StatusArchived:  5,
}

func admin() *rbac.Principal {
	return rbac.NewPrincipal(1, 1, rbac.RoleAdministrator, rbac.AllPermissions())
}

func editor(id int64) *rbac.Principal {
	return rbac.NewPrincipal(id, 2, rbac.RoleEditor, rbac.BuiltInRoles()[1].Permissions)
}

func author(id int64) *rbac.Principal {
	return rbac.NewPrincipal(id, 3, rbac.RoleAuthor, rbac.BuiltInRoles()[2].Permissions)
}

func commenter(id int64) *rbac.Principal {
	return rbac.NewPrincipal(id, 4, rbac.RoleCommenter, []rbac.Permission{rbac.PermissionComment})
}

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock, *observability.Metrics) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewService(db, metrics), mock, metrics
}

// postRows returns a single post row; publishedAt is only set for publicado
func postRows(id, ownerID int64, status string) *sqlmock.Rows {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var published interface{}
	if status == StatusPublished {
		published = created.Add(time.Hour)
	}
	return sqlmock.NewRows(postColumns).AddRow(
		id, "Guía de Migración a Rust!", "guia-de-migracion-a-rust", "Resumen", "Contenido del post", nil,
		ownerID, "Ana Pérez", statusIDs[status], status, published, "{rust,go}",
		"{2}", "{Programación}", created, created,
	)
}

func expectGetPost(mock sqlmock.Sqlmock, id, ownerID int64, status string) {
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.id = $1 GROUP BY p.id`)).
		WithArgs(id).
		WillReturnRows(postRows(id, ownerID, status))
}

func expectStatusID(mock sqlmock.Sqlmock, status string) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM estados_publicacion WHERE nombre = $1`)).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(statusIDs[status]))
}

func expectLock(mock sqlmock.Sqlmock, id, ownerID int64, status string) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT usuario_id, estado_id, contenido FROM posts WHERE id = $1 FOR UPDATE`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"usuario_id", "estado_id", "contenido"}).
			AddRow(ownerID, statusIDs[status], "Contenido del post"))
}

func validInput() Input {
	return Input{
		Title:       "Guía de Migración a Rust!",
		Excerpt:     "Resumen",
		Content:     "Contenido del post",
		CategoryIDs: []int64{2, 2},
		Keywords:    []string{" Rust ", "go", "rust"},
	}
}

func TestService_Create(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	expectStatusID(mock, StatusDraft)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO posts (titulo, slug, extracto, contenido, imagen_destacada, usuario_id, estado_id, palabras_clave)`)).
		WithArgs("Guía de Migración a Rust!", "guia-de-migracion-a-rust", "Resumen", "Contenido del post",
			sqlmock.AnyArg(), 7, 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO posts_categorias (post_id, categoria_id) VALUES ($1, $2)`)).
		WithArgs(10, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectGetPost(mock, 10, 7, StatusDraft)

	post, err := svc.Create(context.Background(), author(7), validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(10), post.ID)
	assert.Equal(t, "guia-de-migracion-a-rust", post.Slug)
	assert.Equal(t, StatusDraft, post.Status)
	assert.Nil(t, post.PublishedAt)
	assert.Equal(t, []string{"rust", "go"}, post.Keywords)
	assert.Equal(t, []int64{2}, post.CategoryIDs)
	assert.Equal(t, 1, post.ReadingMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Create_RequiresCreatePermission(t *testing.T) {
	svc, mock, _ := newMockService(t)

	_, err := svc.Create(context.Background(), commenter(5), validInput())
	assert.True(t, apperr.IsPermissionDenied(err))

	_, err = svc.Create(context.Background(), nil, validInput())
	assert.True(t, apperr.IsPermissionDenied(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Create_ValidationTouchesNoRows(t *testing.T) {
	svc, mock, _ := newMockService(t)

	in := validInput()
	in.Content = "   "
	_, err := svc.Create(context.Background(), author(7), in)
	assert.True(t, apperr.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Create_DuplicateSlug(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	expectStatusID(mock, StatusDraft)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO posts`)).
		WillReturnError(&pq.Error{Code: "23505", Table: "posts", Constraint: "posts_slug_key"})
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), author(7), validInput())
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "slug", conflict.Field)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Create_UnknownCategoryRollsBack(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	expectStatusID(mock, StatusDraft)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO posts`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO posts_categorias`)).
		WithArgs(10, 2).
		WillReturnError(&pq.Error{Code: "23503", Table: "posts_categorias", Constraint: "posts_categorias_categoria_id_fkey"})
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), author(7), validInput())
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "categorias", verr.Field)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Update_OnlyOwnerOrEditAny(t *testing.T) {
	svc, mock, _ := newMockService(t)
	ctx := context.Background()

	// another author with the same role
	mock.ExpectBegin()
	expectLock(mock, 10, 7, StatusDraft)
	mock.ExpectRollback()

	_, err := svc.Update(ctx, author(8), 10, validInput())
	assert.True(t, apperr.IsPermissionDenied(err))

	// the owner
	mock.ExpectBegin()
	expectLock(mock, 10, 7, StatusDraft)
	mock.ExpectExec(regexp.QuoteMeta(`SET titulo = $1, slug = $2, extracto = $3, contenido = $4`)).
		WithArgs("Guía de Migración a Rust!", "guia-de-migracion-a-rust", "Resumen", "Contenido del post",
			sqlmock.AnyArg(), sqlmock.AnyArg(), 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts_categorias WHERE post_id = $1`)).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO posts_categorias`)).
		WithArgs(10, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectGetPost(mock, 10, 7, StatusDraft)

	post, err := svc.Update(ctx, author(7), 10, validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(7), post.AuthorID)

	// an editor may edit any post
	mock.ExpectBegin()
	expectLock(mock, 10, 7, StatusDraft)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts_categorias`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO posts_categorias`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectGetPost(mock, 10, 7, StatusDraft)

	_, err = svc.Update(ctx, editor(9), 10, validInput())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Update_NotFound(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(404).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), admin(), 404, validInput())
	assert.True(t, apperr.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ChangeStatus_EditorialTargetsRequireAdmin(t *testing.T) {
	for _, target := range []string{StatusPublished, StatusRejected} {
		t.Run(target, func(t *testing.T) {
			svc, mock, metrics := newMockService(t)

			_, err := svc.ChangeStatus(context.Background(), author(7), 10, StatusChange{Status: target})
			assert.True(t, apperr.IsPermissionDenied(err))

			_, err = svc.ChangeStatus(context.Background(), editor(9), 10, StatusChange{Status: target})
			assert.True(t, apperr.IsPermissionDenied(err))

			assert.Equal(t, float64(0), testutil.ToFloat64(metrics.PostStatusTransitionsTotal.WithLabelValues(target)))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestService_ChangeStatus_PublishThenArchive(t *testing.T) {
	svc, mock, metrics := newMockService(t)
	ctx := context.Background()

	mock.ExpectBegin()
	expectStatusID(mock, StatusPublished)
	expectLock(mock, 10, 7, StatusDraft)
	mock.ExpectExec(regexp.QuoteMeta(`SET estado_id = $1`)).
		WithArgs(3, true, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO revisiones_posts (post_id, contenido_anterior, estado_anterior, usuario_id, comentario)`)).
		WithArgs(10, "Contenido del post", 1, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	expectGetPost(mock, 10, 7, StatusPublished)

	comment := " listo para publicar "
	post, err := svc.ChangeStatus(ctx, admin(), 10, StatusChange{Status: StatusPublished, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, post.Status)
	assert.NotNil(t, post.PublishedAt)

	mock.ExpectBegin()
	expectStatusID(mock, StatusArchived)
	expectLock(mock, 10, 7, StatusPublished)
	mock.ExpectExec(regexp.QuoteMeta(`SET estado_id = $1`)).
		WithArgs(5, false, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO revisiones_posts`)).
		WithArgs(10, "Contenido del post", 3, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	expectGetPost(mock, 10, 7, StatusArchived)

	post, err = svc.ChangeStatus(ctx, admin(), 10, StatusChange{Status: StatusArchived})
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, post.Status)
	assert.Nil(t, post.PublishedAt)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PostStatusTransitionsTotal.WithLabelValues(StatusPublished)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PostStatusTransitionsTotal.WithLabelValues(StatusArchived)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ChangeStatus_SameStatusStillLogsRevision(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	expectStatusID(mock, StatusInReview)
	expectLock(mock, 10, 7, StatusInReview)
	mock.ExpectExec(regexp.QuoteMeta(`SET estado_id = $1`)).
		WithArgs(2, false, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO revisiones_posts`)).
		WithArgs(10, "Contenido del post", 2, 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	expectGetPost(mock, 10, 7, StatusInReview)

	_, err := svc.ChangeStatus(context.Background(), author(7), 10, StatusChange{Status: StatusInReview})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ChangeStatus_NonOwnerCannotSubmit(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	expectStatusID(mock, StatusInReview)
	expectLock(mock, 10, 7, StatusDraft)
	mock.ExpectRollback()

	_, err := svc.ChangeStatus(context.Background(), author(8), 10, StatusChange{Status: StatusInReview})
	assert.True(t, apperr.IsPermissionDenied(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ChangeStatus_UnknownStatus(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM estados_publicacion WHERE nombre = $1`)).
		WithArgs("borrado").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.ChangeStatus(context.Background(), admin(), 10, StatusChange{Status: "borrado"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "estado", verr.Field)

	_, err = svc.ChangeStatus(context.Background(), admin(), 10, StatusChange{Status: " "})
	assert.True(t, apperr.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ChangeStatus_RevisionFailureRollsBack(t *testing.T) {
	svc, mock, metrics := newMockService(t)

	mock.ExpectBegin()
	expectStatusID(mock, StatusPublished)
	expectLock(mock, 10, 7, StatusInReview)
	mock.ExpectExec(regexp.QuoteMeta(`SET estado_id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO revisiones_posts`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.ChangeStatus(context.Background(), admin(), 10, StatusChange{Status: StatusPublished})
	assert.True(t, apperr.IsStorage(err))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.PostStatusTransitionsTotal.WithLabelValues(StatusPublished)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Delete(t *testing.T) {
	tests := []struct {
		name      string
		principal *rbac.Principal
		allowed   bool
	}{
		{"owner", author(7), true},
		{"administrator", admin(), true},
		{"editor", editor(9), true},
		{"other author", author(8), false},
		{"commenter", commenter(5), false},
		{"holder of eliminar_post", rbac.NewPrincipal(6, 9, "moderador", []rbac.Permission{rbac.PermissionDeletePost}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, _ := newMockService(t)

			mock.ExpectBegin()
			expectLock(mock, 10, 7, StatusPublished)
			if tt.allowed {
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts WHERE id = $1`)).
					WithArgs(10).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			err := svc.Delete(context.Background(), tt.principal, 10)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperr.IsPermissionDenied(err))
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestService_Delete_NotFound(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs(404).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), admin(), 404)
	assert.True(t, apperr.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func expectCatalogs(mock sqlmock.Sqlmock) {
	statuses := sqlmock.NewRows([]string{"id", "nombre", "descripcion"})
	for _, st := range AllStatuses() {
		statuses.AddRow(statusIDs[st], st, "")
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, nombre, descripcion FROM estados_publicacion ORDER BY id`)).
		WillReturnRows(statuses)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, nombre, slug, COALESCE(color, '') FROM categorias ORDER BY nombre`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "slug", "color"}).
			AddRow(2, "Programación", "programacion", "#336699"))
}

func TestService_List_ForcesOwnPostsForUnprivileged(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.usuario_id = $1 GROUP BY p.id`)).
		WithArgs(7).
		WillReturnRows(postRows(10, 7, StatusDraft))
	expectCatalogs(mock)

	result, err := svc.List(context.Background(), author(7), Filter{OwnerID: 99})
	require.NoError(t, err)
	require.Len(t, result.Posts, 1)
	assert.Equal(t, int64(7), result.Posts[0].AuthorID)
	assert.Len(t, result.Statuses, 5)
	assert.Len(t, result.Categories, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_List_PrivilegedFilters(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE u.nombre ILIKE $1 AND e.nombre = $2 AND EXISTS`)).
		WithArgs("%ana%", StatusPublished, sqlmock.AnyArg()).
		WillReturnRows(postRows(10, 7, StatusPublished).AddRow(
			11, "Otro", "otro", "Resumen", "texto", "https://img.example.com/a.png",
			8, "Ana Gómez", 3, StatusPublished, time.Now(), "{}", "{}", "{}", time.Now(), time.Now(),
		))
	expectCatalogs(mock)

	result, err := svc.List(context.Background(), editor(9), Filter{
		AuthorName: " ana ",
		Status:     StatusPublished,
		Categories: []string{"Programación"},
	})
	require.NoError(t, err)
	require.Len(t, result.Posts, 2)
	require.NotNil(t, result.Posts[1].HeroImage)
	assert.Empty(t, result.Posts[1].Categories)
	assert.Equal(t, []string{}, result.Posts[1].Keywords)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_List_Rejects(t *testing.T) {
	svc, mock, _ := newMockService(t)

	_, err := svc.List(context.Background(), admin(), Filter{Status: "borrado"})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.List(context.Background(), nil, Filter{})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Get_Visibility(t *testing.T) {
	tests := []struct {
		name      string
		principal *rbac.Principal
		status    string
		visible   bool
	}{
		{"anonymous reads published", nil, StatusPublished, true},
		{"anonymous draft", nil, StatusDraft, false},
		{"owner reads own draft", author(7), StatusDraft, true},
		{"other author draft", author(8), StatusInReview, false},
		{"editor reads any draft", editor(9), StatusRejected, true},
		{"administrator reads archived", admin(), StatusArchived, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, _ := newMockService(t)
			expectGetPost(mock, 10, 7, tt.status)

			post, err := svc.Get(context.Background(), tt.principal, 10)
			if tt.visible {
				require.NoError(t, err)
				assert.Equal(t, tt.status, post.Status)
			} else {
				assert.True(t, apperr.IsNotFound(err))
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestService_GetBySlug(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.slug = $1 GROUP BY p.id`)).
		WithArgs("guia-de-migracion-a-rust").
		WillReturnRows(postRows(10, 7, StatusPublished))

	post, err := svc.GetBySlug(context.Background(), nil, "guia-de-migracion-a-rust")
	require.NoError(t, err)
	assert.Equal(t, []string{"Programación"}, post.Categories)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.slug = $1`)).
		WithArgs("no-existe").
		WillReturnError(sql.ErrNoRows)

	_, err = svc.GetBySlug(context.Background(), nil, "no-existe")
	assert.True(t, apperr.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ListPublished(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM posts p`)).
		WithArgs(StatusPublished).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY p.fecha_publicacion DESC, p.id DESC LIMIT $2 OFFSET $3`)).
		WithArgs(StatusPublished, 5, 10).
		WillReturnRows(postRows(10, 7, StatusPublished))

	result, err := svc.ListPublished(context.Background(), validation.Page{Page: 3, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, result.Posts, 1)
	assert.Equal(t, validation.Pagination{Total: 11, Page: 3, Limit: 5, TotalPages: 3}, result.Pagination)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ListRevisions(t *testing.T) {
	svc, mock, _ := newMockService(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT usuario_id FROM posts WHERE id = $1`)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"usuario_id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM revisiones_posts r`)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "contenido_anterior", "estado_anterior", "estado",
			"usuario_id", "usuario", "comentario", "created_at"}).
			AddRow(1, 10, "v1", 1, StatusDraft, 1, "Admin", "publicado tras revisión", now).
			AddRow(2, 10, "v1", 3, StatusPublished, 1, "Admin", nil, now))

	revisions, err := svc.ListRevisions(context.Background(), author(7), 10)
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	require.NotNil(t, revisions[0].Comment)
	assert.Equal(t, "publicado tras revisión", *revisions[0].Comment)
	assert.Nil(t, revisions[1].Comment)
	assert.Equal(t, StatusPublished, revisions[1].PreviousStatus)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT usuario_id FROM posts WHERE id = $1`)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"usuario_id"}).AddRow(7))

	_, err = svc.ListRevisions(context.Background(), author(8), 10)
	assert.True(t, apperr.IsPermissionDenied(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
