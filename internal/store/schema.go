package store

import (
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema is the embedded-engine DDL. Every statement is idempotent so
// the schema can be applied to an image restored from a previous session.
//
// The counter and last-message triggers always recompute from the fact
// tables; they never do incremental arithmetic, so the denormalized values
// cannot drift from the rows they summarize.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT '',
		profile_setup BOOLEAN NOT NULL DEFAULT FALSE,
		password_setup BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		caption TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		pinned BOOLEAN NOT NULL DEFAULT FALSE,
		likes_count INTEGER NOT NULL DEFAULT 0,
		comments_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user ON posts (user_id)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, post_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_likes_post ON likes (post_id)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id)`,
	`CREATE TABLE IF NOT EXISTS follows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		follower_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		following_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (follower_id, following_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_follows_following ON follows (following_id)`,
	`CREATE TABLE IF NOT EXISTS saved_posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, post_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		participant1_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		participant2_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		last_message_id INTEGER,
		last_message_at DATETIME,
		last_message_content TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (participant1_id, participant2_id),
		CHECK (participant1_id < participant2_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (conversation_id, is_read)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		recipient_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		post_id INTEGER REFERENCES posts(id) ON DELETE CASCADE,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id)`,
	`CREATE TABLE IF NOT EXISTS otp_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		code TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_email ON otp_codes (email)`,

	`CREATE TRIGGER IF NOT EXISTS likes_count_after_insert AFTER INSERT ON likes
	BEGIN
		UPDATE posts SET likes_count = (SELECT COUNT(*) FROM likes WHERE post_id = NEW.post_id)
		WHERE id = NEW.post_id;
	END`,
	`CREATE TRIGGER IF NOT EXISTS likes_count_after_delete AFTER DELETE ON likes
	BEGIN
		UPDATE posts SET likes_count = (SELECT COUNT(*) FROM likes WHERE post_id = OLD.post_id)
		WHERE id = OLD.post_id;
	END`,
	`CREATE TRIGGER IF NOT EXISTS comments_count_after_insert AFTER INSERT ON comments
	BEGIN
		UPDATE posts SET comments_count = (SELECT COUNT(*) FROM comments WHERE post_id = NEW.post_id)
		WHERE id = NEW.post_id;
	END`,
	`CREATE TRIGGER IF NOT EXISTS comments_count_after_delete AFTER DELETE ON comments
	BEGIN
		UPDATE posts SET comments_count = (SELECT COUNT(*) FROM comments WHERE post_id = OLD.post_id)
		WHERE id = OLD.post_id;
	END`,
	`CREATE TRIGGER IF NOT EXISTS conversation_last_message AFTER INSERT ON messages
	BEGIN
		UPDATE conversations SET
			last_message_id = NEW.id,
			last_message_at = NEW.created_at,
			last_message_content = NEW.content,
			updated_at = NEW.created_at
		WHERE id = NEW.conversation_id;
	END`,
}

// postgresSchema mirrors sqliteSchema for the hosted variant.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT '',
		profile_setup BOOLEAN NOT NULL DEFAULT FALSE,
		password_setup BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		caption TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		pinned BOOLEAN NOT NULL DEFAULT FALSE,
		likes_count INTEGER NOT NULL DEFAULT 0,
		comments_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user ON posts (user_id)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, post_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_likes_post ON likes (post_id)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id)`,
	`CREATE TABLE IF NOT EXISTS follows (
		id BIGSERIAL PRIMARY KEY,
		follower_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		following_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (follower_id, following_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_follows_following ON follows (following_id)`,
	`CREATE TABLE IF NOT EXISTS saved_posts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, post_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id BIGSERIAL PRIMARY KEY,
		participant1_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		participant2_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		last_message_id BIGINT,
		last_message_at TIMESTAMPTZ,
		last_message_content TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (participant1_id, participant2_id),
		CHECK (participant1_id < participant2_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (conversation_id, is_read)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		recipient_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		post_id BIGINT REFERENCES posts(id) ON DELETE CASCADE,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id)`,
	`CREATE TABLE IF NOT EXISTS otp_codes (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL,
		code TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_email ON otp_codes (email)`,

	`CREATE OR REPLACE FUNCTION recount_post_likes() RETURNS trigger AS $$
	BEGIN
		UPDATE posts SET likes_count = (
			SELECT COUNT(*) FROM likes WHERE post_id = COALESCE(NEW.post_id, OLD.post_id)
		) WHERE id = COALESCE(NEW.post_id, OLD.post_id);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS likes_recount ON likes`,
	`CREATE TRIGGER likes_recount AFTER INSERT OR DELETE ON likes
	FOR EACH ROW EXECUTE FUNCTION recount_post_likes()`,
	`CREATE OR REPLACE FUNCTION recount_post_comments() RETURNS trigger AS $$
	BEGIN
		UPDATE posts SET comments_count = (
			SELECT COUNT(*) FROM comments WHERE post_id = COALESCE(NEW.post_id, OLD.post_id)
		) WHERE id = COALESCE(NEW.post_id, OLD.post_id);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS comments_recount ON comments`,
	`CREATE TRIGGER comments_recount AFTER INSERT OR DELETE ON comments
	FOR EACH ROW EXECUTE FUNCTION recount_post_comments()`,
	`CREATE OR REPLACE FUNCTION set_conversation_last_message() RETURNS trigger AS $$
	BEGIN
		UPDATE conversations SET
			last_message_id = NEW.id,
			last_message_at = NEW.created_at,
			last_message_content = NEW.content,
			updated_at = NEW.created_at
		WHERE id = NEW.conversation_id;
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS conversation_last_message ON messages`,
	`CREATE TRIGGER conversation_last_message AFTER INSERT ON messages
	FOR EACH ROW EXECUTE FUNCTION set_conversation_last_message()`,
}

// ApplySchema creates tables, indexes, and triggers. It is safe to run
// against an already-initialized store.
func ApplySchema(db *gorm.DB) error {
	statements := sqliteSchema
	if db.Dialector.Name() == "postgres" {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
