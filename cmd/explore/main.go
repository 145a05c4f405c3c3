// Command explore is a terminal explore page. Each input line is search text;
// "/more" loads the next page, "/filter <all|recent|popular|tag:x>" changes
// the filter, and an empty line clears the search.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"snapgram/internal/bootstrap"
	"snapgram/internal/config"
	"snapgram/internal/explore"
	"snapgram/internal/models"
)

func main() {
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

	e := explore.New(ctx, explore.Config{
		Client:   rt.Queries,
		Feed:     rt.Gateway.GetInfinitePosts,
		Search:   rt.Gateway.SearchPosts,
		PageSize: rt.Gateway.PageSize(),
		Debounce: cfg.SearchDebounce(),
	})
	defer e.Close()

	if err := e.Load(ctx); err != nil {
		log.Printf("load failed: %v", err)
	}
	render(settled(e))

	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := in.Text()
		switch {
		case line == "/more":
			if err := e.OnVisible(ctx, true); err != nil {
				log.Printf("next page failed: %v", err)
			}
		case strings.HasPrefix(line, "/filter "):
			e.SetFilter(explore.ParseFilter(strings.TrimPrefix(line, "/filter ")))
		default:
			e.SetSearch(line)
			time.Sleep(cfg.SearchDebounce() + 50*time.Millisecond)
			e.Wait()
		}
		render(settled(e))
	}
}

// settled waits out a refetch the view itself started.
func settled(e *explore.Explore) explore.View {
	v := e.View()
	if v.Mode == explore.ModeLoading || v.Mode == explore.ModeSearching {
		e.Wait()
		v = e.View()
	}
	return v
}

func render(v explore.View) {
	fmt.Printf("-- %s (filter %s) --\n", v.Mode, v.Filter)
	if v.Message != "" {
		fmt.Println(v.Message)
	}
	for _, p := range v.Posts {
		fmt.Println(line(p))
	}
	if v.ShowLoadMore {
		fmt.Println("... /more for the next page")
	}
}

func line(p models.Post) string {
	creator := p.CreatorID
	if p.Creator != nil {
		creator = "@" + p.Creator.Username
	}
	return fmt.Sprintf("%s  %-14s %s  [%s] ♥%d", p.CreatedAt.Format("2006-01-02"), creator, p.Caption, strings.Join(p.Tags, ","), len(p.Likes))
}
