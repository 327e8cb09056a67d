// Package seed provides database seeding utilities for development and demos.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand"
	"time"

	"confide/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed prompts.yaml
var promptsYAML []byte

// prompts holds curated text used alongside generated content so seeded
// data reads like a real feed instead of lorem ipsum.
type prompts struct {
	Captions []string `yaml:"captions"`
	Bios     []string `yaml:"bios"`
	Messages []string `yaml:"messages"`
}

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	NumMessages int
	Password    string
}

// DefaultOptions returns a small but lively data set.
func DefaultOptions() Options {
	return Options{NumUsers: 12, NumPosts: 40, NumMessages: 80, Password: "password123"}
}

// Run populates the store with users, posts, likes, comments, follows, and
// conversations. It writes through gorm directly; counters and last-message
// summaries come out right because the schema triggers maintain them.
func Run(ctx context.Context, db *gorm.DB, opts Options) error {
	var p prompts
	if err := yaml.Unmarshal(promptsYAML, &p); err != nil {
		return fmt.Errorf("parsing seed prompts: %w", err)
	}
	gofakeit.Seed(time.Now().UnixNano())

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	users := make([]models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user := models.User{
			Username:      fmt.Sprintf("%s%d", gofakeit.Username(), i),
			Email:         fmt.Sprintf("seed%d@%s", i, gofakeit.DomainName()),
			PasswordHash:  string(hash),
			FullName:      gofakeit.Name(),
			Bio:           pick(p.Bios),
			Avatar:        fmt.Sprintf("https://picsum.photos/seed/%s/200/200", gofakeit.UUID()),
			ProfileSetup:  true,
			PasswordSetup: true,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return fmt.Errorf("seeding user: %w", err)
		}
		users = append(users, user)
	}
	if len(users) < 2 {
		return nil
	}

	posts := make([]models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[rand.Intn(len(users))]
		post := models.Post{
			UserID:   author.ID,
			Caption:  pick(p.Captions),
			ImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
		}
		if err := db.WithContext(ctx).Create(&post).Error; err != nil {
			return fmt.Errorf("seeding post: %w", err)
		}
		posts = append(posts, post)
	}

	for _, post := range posts {
		for _, user := range users {
			if user.ID == post.UserID {
				continue
			}
			if rand.Intn(3) == 0 {
				db.WithContext(ctx).Create(&models.Like{UserID: user.ID, PostID: post.ID})
			}
			if rand.Intn(6) == 0 {
				db.WithContext(ctx).Create(&models.Comment{
					UserID:  user.ID,
					PostID:  post.ID,
					Content: gofakeit.Sentence(8),
				})
			}
		}
	}

	for _, a := range users {
		for _, b := range users {
			if a.ID != b.ID && rand.Intn(4) == 0 {
				db.WithContext(ctx).Create(&models.Follow{FollowerID: a.ID, FollowingID: b.ID})
			}
		}
	}

	// A handful of conversations with alternating traffic.
	for i := 0; i+1 < len(users) && i < 6; i += 2 {
		p1, p2 := users[i].ID, users[i+1].ID
		if p1 > p2 {
			p1, p2 = p2, p1
		}
		conv := models.Conversation{Participant1ID: p1, Participant2ID: p2}
		if err := db.WithContext(ctx).Create(&conv).Error; err != nil {
			return fmt.Errorf("seeding conversation: %w", err)
		}
		for j := 0; j < opts.NumMessages/6; j++ {
			sender := p1
			if j%2 == 1 {
				sender = p2
			}
			msg := models.Message{
				ConversationID: conv.ID,
				SenderID:       sender,
				Content:        pick(p.Messages),
				IsRead:         j%2 == 0,
			}
			if err := db.WithContext(ctx).Create(&msg).Error; err != nil {
				return fmt.Errorf("seeding message: %w", err)
			}
		}
	}

	return nil
}

func pick(list []string) string {
	if len(list) == 0 {
		return gofakeit.Sentence(6)
	}
	return list[rand.Intn(len(list))]
}
