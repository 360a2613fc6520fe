package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/pluma/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create roles and permissions tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS roles (
					id SERIAL PRIMARY KEY,
					nombre VARCHAR(50) NOT NULL UNIQUE,
					descripcion TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS permisos (
					id SERIAL PRIMARY KEY,
					nombre VARCHAR(100) NOT NULL UNIQUE,
					descripcion TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS roles_permisos (
					rol_id INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					permiso_id INTEGER NOT NULL REFERENCES permisos(id) ON DELETE CASCADE,
					PRIMARY KEY (rol_id, permiso_id)
				);
			`,
		},
		{
			Version:     2,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS usuarios (
					id SERIAL PRIMARY KEY,
					external_id VARCHAR(255) NOT NULL UNIQUE,
					nombre VARCHAR(100) NOT NULL,
					email VARCHAR(255) NOT NULL UNIQUE,
					rol_id INTEGER NOT NULL REFERENCES roles(id),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_usuarios_rol_id ON usuarios(rol_id);
			`,
		},
		{
			Version:     3,
			Description: "Create publication states and categories",
			SQL: `
				CREATE TABLE IF NOT EXISTS estados_publicacion (
					id SERIAL PRIMARY KEY,
					nombre VARCHAR(50) NOT NULL UNIQUE,
					descripcion TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS categorias (
					id SERIAL PRIMARY KEY,
					nombre VARCHAR(100) NOT NULL UNIQUE,
					descripcion TEXT NOT NULL DEFAULT '',
					slug VARCHAR(120) NOT NULL UNIQUE,
					color VARCHAR(7),
					icono VARCHAR(100),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     4,
			Description: "Create posts and post categories",
			SQL: `
				CREATE TABLE IF NOT EXISTS posts (
					id SERIAL PRIMARY KEY,
					titulo VARCHAR(200) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE CHECK (slug <> ''),
					extracto TEXT NOT NULL,
					contenido TEXT NOT NULL,
					imagen_destacada TEXT,
					usuario_id INTEGER NOT NULL REFERENCES usuarios(id),
					estado_id INTEGER NOT NULL REFERENCES estados_publicacion(id),
					fecha_publicacion TIMESTAMPTZ,
					palabras_clave TEXT[] NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_posts_usuario_id ON posts(usuario_id);
				CREATE INDEX IF NOT EXISTS idx_posts_estado_id ON posts(estado_id);
				CREATE INDEX IF NOT EXISTS idx_posts_fecha_publicacion ON posts(fecha_publicacion DESC);

				CREATE TABLE IF NOT EXISTS posts_categorias (
					post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
					categoria_id INTEGER NOT NULL REFERENCES categorias(id) ON DELETE CASCADE,
					PRIMARY KEY (post_id, categoria_id)
				);
			`,
		},
		{
			Version:     5,
			Description: "Create comments and post revisions",
			SQL: `
				CREATE TABLE IF NOT EXISTS comentarios (
					id SERIAL PRIMARY KEY,
					contenido TEXT NOT NULL,
					post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
					usuario_id INTEGER NOT NULL REFERENCES usuarios(id),
					parent_id INTEGER REFERENCES comentarios(id) ON DELETE CASCADE,
					estado VARCHAR(20) NOT NULL DEFAULT 'pendiente'
						CHECK (estado IN ('pendiente', 'aprobado', 'rechazado')),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_comentarios_post_id ON comentarios(post_id);
				CREATE INDEX IF NOT EXISTS idx_comentarios_usuario_id ON comentarios(usuario_id);
				CREATE INDEX IF NOT EXISTS idx_comentarios_parent_id ON comentarios(parent_id);

				CREATE TABLE IF NOT EXISTS revisiones_posts (
					id SERIAL PRIMARY KEY,
					post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
					contenido_anterior TEXT NOT NULL,
					estado_anterior INTEGER NOT NULL REFERENCES estados_publicacion(id),
					usuario_id INTEGER NOT NULL REFERENCES usuarios(id),
					comentario TEXT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_revisiones_posts_post_id ON revisiones_posts(post_id);
			`,
		},
		{
			Version:     6,
			Description: "Seed publication states and permission catalog",
			SQL: `
				INSERT INTO estados_publicacion (nombre, descripcion) VALUES
					('borrador', 'Post en edición, no visible públicamente'),
					('en_revision', 'Post enviado a revisión editorial'),
					('publicado', 'Post visible públicamente'),
					('rechazado', 'Post rechazado en revisión'),
					('archivado', 'Post retirado de la portada')
				ON CONFLICT (nombre) DO NOTHING;

				INSERT INTO permisos (nombre, descripcion) VALUES
					('crear_post', 'Crear posts'),
					('editar_post_propio', 'Editar posts propios'),
					('editar_post_cualquiera', 'Editar cualquier post'),
					('publicar_post', 'Publicar o rechazar posts'),
					('eliminar_post', 'Eliminar cualquier post'),
					('asignar_roles', 'Administrar roles y usuarios'),
					('crear_categoria', 'Crear categorías'),
					('editar_categoria', 'Editar categorías'),
					('eliminar_categoria', 'Eliminar categorías'),
					('comentar', 'Comentar posts publicados')
				ON CONFLICT (nombre) DO NOTHING;
			`,
		},
		{
			Version:     7,
			Description: "Create audit log table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_logs (
					id BIGSERIAL PRIMARY KEY,
					timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					event_type VARCHAR(100) NOT NULL,
					status VARCHAR(20) NOT NULL,
					user_id INTEGER,
					resource_type VARCHAR(50),
					resource_id VARCHAR(255),
					request_id VARCHAR(64),
					message TEXT,
					metadata JSONB
				);

				CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
			`,
		},
	}
}

// RunMigrations applies every migration not yet recorded in schema_migrations.
// Each migration runs in its own transaction together with its bookkeeping row.
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return ClassifyError("create migrations table", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return ClassifyError("list applied migrations", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return ClassifyError("scan migration version", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ClassifyError("list applied migrations", err)
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		logger.WithField("version", migration.Version).Infof("Running migration: %s", migration.Description)

		err := WithTx(ctx, db, "migration", func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
				migration.Version, migration.Description,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
