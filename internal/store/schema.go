package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema mirrors the production migrations: cascade deletes from
// people fan out to pictures, likes and dislikes, and the ordered-pair
// uniqueness on likes/dislikes is enforced here rather than in
// application code so concurrent duplicate inserts collapse into a
// constraint violation.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            SERIAL PRIMARY KEY,
    name          VARCHAR(255) NOT NULL,
    email         VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS people (
    id                            SERIAL PRIMARY KEY,
    user_id                       INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    name                          VARCHAR(255) NOT NULL,
    age                           SMALLINT NOT NULL,
    location                      VARCHAR(255) NOT NULL,
    popular_profile_email_sent    BOOLEAN NOT NULL DEFAULT FALSE,
    popular_profile_email_sent_at TIMESTAMPTZ,
    created_at                    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_people_created_at ON people (created_at);
CREATE INDEX IF NOT EXISTS idx_people_age ON people (age);

CREATE TABLE IF NOT EXISTS pictures (
    id         SERIAL PRIMARY KEY,
    person_id  INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    image_url  VARCHAR(500) NOT NULL,
    "order"    SMALLINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_pictures_person_order ON pictures (person_id, "order");

CREATE TABLE IF NOT EXISTS likes (
    id         SERIAL PRIMARY KEY,
    liker_id   INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    liked_id   INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT unique_like UNIQUE (liker_id, liked_id)
);
CREATE INDEX IF NOT EXISTS idx_likes_liked ON likes (liked_id);
CREATE INDEX IF NOT EXISTS idx_likes_liker_created ON likes (liker_id, created_at);

CREATE TABLE IF NOT EXISTS dislikes (
    id          SERIAL PRIMARY KEY,
    disliker_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    disliked_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT unique_dislike UNIQUE (disliker_id, disliked_id)
);
CREATE INDEX IF NOT EXISTS idx_dislikes_disliker_created ON dislikes (disliker_id, created_at);
`

// EnsureSchema creates any missing tables and indexes. Safe to run on
// every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
