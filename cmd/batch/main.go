// Command batch runs the call pipeline over every audio file in a directory
// and prints one JSON summary covering each file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"call-intelligence/internal/app"
	"call-intelligence/internal/config"
	"call-intelligence/internal/pipeline"
	"call-intelligence/internal/transcription"
	"call-intelligence/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

type summary struct {
	WorkspaceID string               `json:"workspace_id"`
	Directory   string               `json:"directory"`
	Total       int                  `json:"total"`
	Completed   int                  `json:"completed"`
	Failed      int                  `json:"failed"`
	Files       []pipeline.BatchItem `json:"files"`
}

func main() {
	dir := flag.String("dir", "", "directory containing audio files")
	workspaceID := flag.String("workspace", "", "workspace the calls belong to")
	language := flag.String("language", "", "language hint passed to transcription")
	parallel := flag.Int("parallel", 0, "files processed concurrently (default PIPELINE_BATCH_PARALLELISM)")
	flag.Parse()

	if *dir == "" || *workspaceID == "" {
		fmt.Fprintln(os.Stderr, "usage: batch -dir <path> -workspace <id> [-language en] [-parallel 4]")
		os.Exit(2)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if *parallel > 0 {
		cfg.Pipeline.BatchParallelism = *parallel
	}

	// Logs go to stderr so stdout carries only the summary.
	log := logger.NewTo(cfg.App.Env, os.Stderr)
	slog.SetDefault(log)

	files, err := audioFiles(*dir)
	if err != nil {
		log.Error("scan directory failed", "dir", *dir, "err", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		log.Warn("no audio files found", "dir", *dir)
	}

	a, err := app.Build(rootCtx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	inputs := make([]pipeline.AudioInput, len(files))
	for i, f := range files {
		inputs[i] = pipeline.AudioInput{
			WorkspaceID: *workspaceID,
			AudioPath:   f,
			Filename:    filepath.Base(f),
			Language:    *language,
		}
	}

	ctx := logger.With(rootCtx, log.With("workspace_id", *workspaceID))
	items := a.Pipeline.ProcessBatch(ctx, inputs)

	out := summary{WorkspaceID: *workspaceID, Directory: *dir, Total: len(items), Files: items}
	for _, it := range items {
		if it.Status == pipeline.BatchFailed {
			out.Failed++
		} else {
			out.Completed++
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Error("write summary failed", "err", err)
		os.Exit(1)
	}
	if out.Failed > 0 {
		a.Close()
		os.Exit(3)
	}
}

// audioFiles lists supported audio files directly under dir, sorted by name.
func audioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !transcription.IsAudioFile(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
