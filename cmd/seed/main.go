// Command seed fills the database with fake users, posts and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"snapgram/internal/bootstrap"
	"snapgram/internal/config"
	"snapgram/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	seedValue := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close() }()

	if *shouldClean {
		if err := seed.Clear(rt.DB); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	s := seed.NewSeeder(rt.Gateway, seed.Options{Users: *numUsers, Posts: *numPosts, Seed: *seedValue})
	if _, err := s.Run(ctx); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
