package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

type migration struct {
	name  string
	query string
}

// Statements are idempotent so the runner can be executed on every deploy.
var migrations = []migration{
	{"albums", `
	CREATE TABLE IF NOT EXISTS albums (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS albums_owner_idx ON albums (owner_id);`},
	{"tags", `
	CREATE TABLE IF NOT EXISTS tags (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		UNIQUE (owner_id, name)
	);`},
	{"photos", `
	CREATE TABLE IF NOT EXISTS photos (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		album_id BIGINT NOT NULL REFERENCES albums (id) ON DELETE CASCADE,
		title TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL,
		thumbnail TEXT,
		uploaded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		taken_at TIMESTAMP WITH TIME ZONE,
		camera_make TEXT,
		camera_model TEXT,
		focal_length TEXT,
		exposure_time TEXT,
		f_number TEXT,
		iso INTEGER,
		gps_lat DOUBLE PRECISION,
		gps_lng DOUBLE PRECISION,
		width INTEGER,
		height INTEGER,
		clip_vector BYTEA,
		face_group_ids BIGINT[] NOT NULL DEFAULT '{}',
		ai_done BOOLEAN NOT NULL DEFAULT FALSE,
		face_done BOOLEAN NOT NULL DEFAULT FALSE,
		vector_done BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS photos_album_idx ON photos (album_id, uploaded_at DESC);
	CREATE INDEX IF NOT EXISTS photos_owner_idx ON photos (owner_id);`},
	{"photo_tags", `
	CREATE TABLE IF NOT EXISTS photo_tags (
		photo_id BIGINT NOT NULL REFERENCES photos (id) ON DELETE CASCADE,
		tag_id BIGINT NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
		PRIMARY KEY (photo_id, tag_id)
	);`},
	{"ai_labels", `
	CREATE TABLE IF NOT EXISTS ai_labels (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		lang TEXT NOT NULL DEFAULT 'zh',
		UNIQUE (name, lang)
	);
	CREATE TABLE IF NOT EXISTS photo_ai_labels (
		photo_id BIGINT NOT NULL REFERENCES photos (id) ON DELETE CASCADE,
		ai_label_id BIGINT NOT NULL REFERENCES ai_labels (id) ON DELETE CASCADE,
		PRIMARY KEY (photo_id, ai_label_id)
	);`},
	{"face_groups", `
	CREATE TABLE IF NOT EXISTS face_groups (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`},
	{"album_shares", `
	CREATE TABLE IF NOT EXISTS album_shares (
		id BIGSERIAL PRIMARY KEY,
		album_id BIGINT NOT NULL REFERENCES albums (id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`},
}

// RunMigrations creates the gallery tables if they don't exist.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.query); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", m.name, err)
		}
		slog.Debug("migration applied", "name", m.name)
	}
	slog.Info("migrations executed successfully", "count", len(migrations))
	return nil
}
