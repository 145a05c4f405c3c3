// Package seed fills a development database with fake users, posts and
// engagement. Everything goes through the gateway so seeded data looks like
// data created by real clients.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"strings"

	"snapgram/internal/database"
	"snapgram/internal/gateway"
	"snapgram/internal/models"
	"snapgram/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

// Options sizes a seeding run.
type Options struct {
	Users int
	Posts int
	// Seed makes a run reproducible; 0 picks a random seed.
	Seed int64
}

// Result lists what a run created.
type Result struct {
	Users   []*models.User
	Posts   []*models.Post
	Saves   int
	Follows int
	Likes   int
}

// Seeder creates fake data through the gateway.
type Seeder struct {
	gw    *gateway.Gateway
	faker *gofakeit.Faker
	opts  Options
}

// NewSeeder returns a Seeder over gw.
func NewSeeder(gw *gateway.Gateway, opts Options) *Seeder {
	return &Seeder{gw: gw, faker: gofakeit.New(opts.Seed), opts: opts}
}

// Run creates users, their posts, then likes, saves and follows between them.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	for i := 0; i < s.opts.Users; i++ {
		u, err := s.createUser(ctx, i)
		if err != nil {
			return res, fmt.Errorf("failed to create user %d: %w", i, err)
		}
		res.Users = append(res.Users, u)
	}
	log.Printf("✓ %d users created", len(res.Users))
	if len(res.Users) == 0 {
		return res, nil
	}

	for i := 0; i < s.opts.Posts; i++ {
		creator := res.Users[i%len(res.Users)]
		p, err := s.createPost(ctx, creator)
		if err != nil {
			return res, fmt.Errorf("failed to create post %d: %w", i, err)
		}
		res.Posts = append(res.Posts, p)
	}
	log.Printf("✓ %d posts created", len(res.Posts))

	if err := s.engage(ctx, res); err != nil {
		return res, err
	}
	log.Printf("✓ %d likes, %d saves, %d follows", res.Likes, res.Saves, res.Follows)
	return res, nil
}

func (s *Seeder) createUser(ctx context.Context, i int) (*models.User, error) {
	first, last := s.faker.FirstName(), s.faker.LastName()
	username := strings.ToLower(fmt.Sprintf("%s%s%d", first, last, i))
	username = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, username)

	return s.gw.CreateUserAccount(ctx, gateway.NewUser{
		Name:     first + " " + last,
		Username: username,
		Email:    username + "@snapgram.dev",
		Password: DefaultPassword,
	})
}

func (s *Seeder) createPost(ctx context.Context, creator *models.User) (*models.Post, error) {
	img, err := s.image()
	if err != nil {
		return nil, err
	}
	tags := []string{s.faker.HipsterWord(), s.faker.HipsterWord()}
	return s.gw.CreatePost(ctx, gateway.NewPost{
		CreatorID: creator.ID,
		Caption:   s.faker.Sentence(8),
		Location:  s.faker.City() + ", " + s.faker.Country(),
		Tags:      strings.Join(tags, ", "),
		File:      img,
	})
}

// image renders a solid-colour PNG so every post has a real stored file.
func (s *Seeder) image() (storage.Upload, error) {
	c := color.RGBA{
		R: uint8(s.faker.Number(0, 255)),
		G: uint8(s.faker.Number(0, 255)),
		B: uint8(s.faker.Number(0, 255)),
		A: 255,
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return storage.Upload{}, err
	}
	return storage.Upload{
		Name:        s.faker.Word() + ".png",
		ContentType: "image/png",
		Size:        int64(buf.Len()),
		Body:        &buf,
	}, nil
}

func (s *Seeder) engage(ctx context.Context, res *Result) error {
	n := len(res.Users)
	for i, p := range res.Posts {
		var likes []string
		for j, u := range res.Users {
			if (i+j)%3 == 0 {
				likes = append(likes, u.ID)
			}
		}
		if len(likes) > 0 {
			if _, err := s.gw.LikePost(ctx, p.ID, likes); err != nil {
				return fmt.Errorf("failed to like post: %w", err)
			}
			res.Likes += len(likes)
		}

		saver := res.Users[(i+1)%n]
		if saver.ID != p.CreatorID {
			if _, err := s.gw.SavePost(ctx, saver.ID, p.ID); err != nil {
				return fmt.Errorf("failed to save post: %w", err)
			}
			res.Saves++
		}
	}

	for i, u := range res.Users {
		if n < 2 {
			break
		}
		followed := res.Users[(i+1)%n]
		if _, err := s.gw.FollowUser(ctx, u.ID, followed.ID); err != nil {
			return fmt.Errorf("failed to follow user: %w", err)
		}
		res.Follows++
	}
	return nil
}

// Clear deletes every row of every collection. Stored files are left alone.
func Clear(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	tx := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range database.PersistentModels() {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", m, err)
		}
	}
	return nil
}
