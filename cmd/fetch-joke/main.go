package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"joke-plugin/internal/app"
	"joke-plugin/internal/config"
	"joke-plugin/internal/design"
	"joke-plugin/internal/jokeapi"
	"joke-plugin/internal/models"
	"joke-plugin/pkg/logger"
)

func main() {
	modeFlag := flag.String("mode", "add", "selection mode: add or replace")
	count := flag.Int("n", 1, "number of jokes to fetch")
	seed := flag.Int("seed", 3, "text elements to create and select before replace runs")
	flag.Parse()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.App.LogLevel, os.Stderr, "text")

	mode, err := models.ParseSelectionMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	doc := design.NewDocument(1)
	if mode == models.ModeReplace {
		ids := make([]int64, 0, *seed)
		for i := 1; i <= *seed; i++ {
			if err := doc.InsertText(ctx, models.TextElement{Text: fmt.Sprintf("placeholder %d", i)}); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ids = append(ids, int64(i))
		}
		if err := doc.Select(ids...); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	ctrl := app.NewController(jokeapi.NewFromConfig(cfg.JokeAPI))
	sess := app.NewSession(doc.ID(), cfg.History.Capacity)
	if err := sess.SetMode(mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("=== Fetching %d joke(s) in %s mode ===\n\n", *count, mode)

	for i := 0; i < *count; i++ {
		out, err := ctrl.Run(ctx, sess, doc)
		if err != nil {
			logger.Error("Run failed", logger.Err(err))
			continue
		}
		switch {
		case out.Skipped:
			fmt.Println("skipped: nothing selected")
		case out.Fallback:
			fmt.Printf("%d: %s (fallback)\n", i+1, out.Joke)
		default:
			fmt.Printf("%d: %s\n", i+1, out.Joke)
		}
	}

	fmt.Println()
	fmt.Println("Design:")
	for _, el := range doc.Elements() {
		mark := " "
		if el.Selected {
			mark = "x"
		}
		fmt.Printf("  [%s] #%d %s\n", mark, el.ID, el.Text)
	}

	fmt.Println()
	fmt.Println("History (newest first):")
	for i, j := range sess.Jokes() {
		fmt.Printf("  %d. %s\n", i+1, app.Truncate(j.Content, app.HistoryPreviewLength))
	}
}
