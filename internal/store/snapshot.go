package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"confide/internal/models"

	"gorm.io/gorm"
)

// Image is the serializable snapshot of the whole store: every row of every
// table, in insertion order. The denormalized aggregates are carried along
// for inspection but are never trusted on restore.
type Image struct {
	Users         []models.User
	Posts         []models.Post
	Likes         []models.Like
	Comments      []models.Comment
	Follows       []models.Follow
	SavedPosts    []models.SavedPost
	Conversations []models.Conversation
	Messages      []models.Message
	Notifications []models.Notification
	OneTimeCodes  []models.OneTimeCode
}

// Empty reports whether the image holds no rows at all.
func (img *Image) Empty() bool {
	return len(img.Users) == 0 &&
		len(img.Posts) == 0 &&
		len(img.Likes) == 0 &&
		len(img.Comments) == 0 &&
		len(img.Follows) == 0 &&
		len(img.SavedPosts) == 0 &&
		len(img.Conversations) == 0 &&
		len(img.Messages) == 0 &&
		len(img.Notifications) == 0 &&
		len(img.OneTimeCodes) == 0
}

// Export reads every table into an Image.
func Export(ctx context.Context, db *gorm.DB) (*Image, error) {
	img := &Image{}
	exports := []struct {
		name string
		dest interface{}
	}{
		{"users", &img.Users},
		{"posts", &img.Posts},
		{"likes", &img.Likes},
		{"comments", &img.Comments},
		{"follows", &img.Follows},
		{"saved_posts", &img.SavedPosts},
		{"conversations", &img.Conversations},
		{"messages", &img.Messages},
		{"notifications", &img.Notifications},
		{"otp_codes", &img.OneTimeCodes},
	}
	for _, e := range exports {
		if err := db.WithContext(ctx).Order("id ASC").Find(e.dest).Error; err != nil {
			return nil, fmt.Errorf("export %s: %w", e.name, err)
		}
	}
	return img, nil
}

// EncodeImage serializes an image to its binary form.
func EncodeImage(img *Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(img); err != nil {
		return nil, fmt.Errorf("encode store image: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage parses a binary store image. A decode failure means the stored
// bytes are corrupt; callers discard them and start fresh.
func DecodeImage(data []byte) (*Image, error) {
	var img Image
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&img); err != nil {
		return nil, fmt.Errorf("decode store image: %w", err)
	}
	return &img, nil
}

// Restore loads an image into an empty, schema-complete store. Rows are
// inserted in foreign-key order with their original IDs; fact-table inserts
// fire the counter triggers, and Reconcile runs afterwards so the aggregates
// always reflect the restored fact rows rather than whatever the image
// carried.
func Restore(ctx context.Context, db *gorm.DB, img *Image) error {
	tx := db.WithContext(ctx)

	restores := []struct {
		name string
		rows func() (interface{}, int)
	}{
		{"users", func() (interface{}, int) { return img.Users, len(img.Users) }},
		{"posts", func() (interface{}, int) { return img.Posts, len(img.Posts) }},
		{"likes", func() (interface{}, int) { return img.Likes, len(img.Likes) }},
		{"comments", func() (interface{}, int) { return img.Comments, len(img.Comments) }},
		{"follows", func() (interface{}, int) { return img.Follows, len(img.Follows) }},
		{"saved_posts", func() (interface{}, int) { return img.SavedPosts, len(img.SavedPosts) }},
		{"conversations", func() (interface{}, int) { return img.Conversations, len(img.Conversations) }},
		{"messages", func() (interface{}, int) { return img.Messages, len(img.Messages) }},
		{"notifications", func() (interface{}, int) { return img.Notifications, len(img.Notifications) }},
		{"otp_codes", func() (interface{}, int) { return img.OneTimeCodes, len(img.OneTimeCodes) }},
	}
	for _, r := range restores {
		rows, n := r.rows()
		if n == 0 {
			continue
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("restore %s: %w", r.name, err)
		}
	}

	if db.Dialector.Name() == "postgres" {
		if err := resetSequences(tx); err != nil {
			return err
		}
	}

	return Reconcile(ctx, db)
}

// Replace swaps the store's contents for the image's rows in one
// transaction. This is how a running context adopts an image another
// context persisted after it started; readers between transactions see
// either the old state or the new one, never a mix.
func Replace(ctx context.Context, db *gorm.DB, img *Image) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Child tables first so foreign keys stay satisfied throughout.
		tables := []string{
			"otp_codes", "notifications", "messages", "conversations",
			"saved_posts", "follows", "comments", "likes", "posts", "users",
		}
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return Restore(ctx, tx, img)
	})
}

// Reconcile recomputes every denormalized aggregate from its fact table.
func Reconcile(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)

	if err := tx.Exec(`
		UPDATE posts SET
			likes_count = (SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id),
			comments_count = (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)
	`).Error; err != nil {
		return fmt.Errorf("reconcile post counters: %w", err)
	}

	if err := tx.Exec(`
		UPDATE conversations SET
			last_message_id = (
				SELECT id FROM messages m
				WHERE m.conversation_id = conversations.id ORDER BY m.id DESC LIMIT 1
			),
			last_message_at = (
				SELECT created_at FROM messages m
				WHERE m.conversation_id = conversations.id ORDER BY m.id DESC LIMIT 1
			),
			last_message_content = COALESCE((
				SELECT content FROM messages m
				WHERE m.conversation_id = conversations.id ORDER BY m.id DESC LIMIT 1
			), '')
	`).Error; err != nil {
		return fmt.Errorf("reconcile conversation pointers: %w", err)
	}

	return nil
}

// resetSequences keeps Postgres ID sequences ahead of explicitly inserted IDs.
func resetSequences(tx *gorm.DB) error {
	tables := []string{
		"users", "posts", "likes", "comments", "follows",
		"saved_posts", "conversations", "messages", "notifications", "otp_codes",
	}
	for _, table := range tables {
		if err := tx.Exec(fmt.Sprintf(`
			SELECT setval(
				pg_get_serial_sequence('%s', 'id'),
				GREATEST((SELECT COALESCE(MAX(id), 1) FROM %s), 1),
				true
			)
		`, table, table)).Error; err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}
