// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/corpus"
	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/extract"
	"github.com/poiesic/corpus/ingest"
	"github.com/urfave/cli/v2"
)

func main() {
	aiFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "ai-backend",
			Usage: "AI backend (openai, googleai)",
			Value: ai.BackendOpenAI,
		},
		&cli.StringFlag{
			Name:  "ai-host",
			Usage: "AI service host URL (openai backend)",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:    "ai-api-key",
			Usage:   "AI service API key",
			EnvVars: []string{"CORPUS_AI_API_KEY"},
			Value:   "none",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
		&cli.StringFlag{
			Name:  "generation-model",
			Usage: "Generation model name",
		},
	}

	dbFlag := &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}

	app := &cli.App{
		Name:  "corpus",
		Usage: "Ephemeral document store with semantic retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Submit a document for ingestion",
				ArgsUsage: "FILE",
				Action:    ingestCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:     "tenant",
						Aliases:  []string{"t"},
						Usage:    "Tenant id",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"c"},
						Usage:    "Collection name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "media-type",
						Usage: "Document media type (inferred from extension when omitted)",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Block until the job reaches a terminal state",
					},
				}, aiFlags...),
			},
			{
				Name:      "job",
				Usage:     "Show the status of an ingestion job",
				ArgsUsage: "JOB_ID",
				Action:    jobCommand,
				Flags:     append([]cli.Flag{dbFlag}, aiFlags...),
			},
			{
				Name:      "query",
				Usage:     "Ask a question against a collection",
				ArgsUsage: "QUESTION",
				Action:    queryCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:     "tenant",
						Aliases:  []string{"t"},
						Usage:    "Tenant id",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"c"},
						Usage:    "Collection name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of passages to retrieve",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "show-passages",
						Usage: "Print the retrieved passages after the answer",
					},
				}, aiFlags...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openStore(c *cli.Context) (*corpus.Store, error) {
	opts := []ai.ConfigOption{
		ai.WithBackend(c.String("ai-backend")),
		ai.WithHost(c.String("ai-host")),
		ai.WithAPIKey(c.String("ai-api-key")),
	}
	if model := c.String("embedding-model"); model != "" {
		opts = append(opts, ai.WithEmbeddingModel(model))
	}
	if model := c.String("generation-model"); model != "" {
		opts = append(opts, ai.WithGenerationModel(model))
	}

	aiConfig := ai.NewConfig(opts...)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	store, err := corpus.NewStore(c.String("db"), corpus.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	mediaType := c.String("media-type")
	if mediaType == "" {
		mediaType = mediaTypeFromExtension(path)
	}
	if !extract.Supported(mediaType) {
		return fmt.Errorf("unsupported media type %q for %s", mediaType, path)
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	jobID, err := store.SubmitIngestion(ctx, ingest.SubmitRequest{
		Tenant:     c.String("tenant"),
		Collection: c.String("collection"),
		DocumentID: filepath.Base(path),
		MediaType:  mediaType,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	fmt.Printf("job %s submitted\n", jobID)

	if !c.Bool("wait") {
		return nil
	}

	for {
		time.Sleep(500 * time.Millisecond)

		job, err := store.GetJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to read job: %w", err)
		}

		fmt.Printf("  %s %d%%\n", job.Status, job.Progress)
		if !job.Status.Terminal() {
			continue
		}

		if job.Error != nil {
			return fmt.Errorf("job failed: %s: %s", job.Error.Kind, job.Error.Message)
		}
		fmt.Printf("pages=%d chunks=%d embeddings=%d\n",
			job.Result.PagesProcessed, job.Result.ChunksCreated, job.Result.EmbeddingsGenerated)
		return nil
	}
}

func jobCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one job id argument")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	job, err := store.GetJob(context.Background(), c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read job: %w", err)
	}

	fmt.Printf("id:         %s\n", job.Id)
	fmt.Printf("status:     %s (%d%%)\n", job.Status, job.Progress)
	fmt.Printf("tenant:     %s\n", job.Tenant)
	fmt.Printf("collection: %s\n", job.Collection)
	fmt.Printf("created:    %s\n", job.CreatedAt.Format(time.RFC3339))
	if !job.CompletedAt.IsZero() {
		fmt.Printf("completed:  %s\n", job.CompletedAt.Format(time.RFC3339))
	}
	if job.Error != nil {
		fmt.Printf("error:      %s: %s\n", job.Error.Kind, job.Error.Message)
	}
	if job.Status == core.JobCompleted {
		fmt.Printf("result:     pages=%d chunks=%d embeddings=%d\n",
			job.Result.PagesProcessed, job.Result.ChunksCreated, job.Result.EmbeddingsGenerated)
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one question argument")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := store.Query(context.Background(),
		c.String("tenant"), c.String("collection"), c.Args().First(), c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(result.Text)

	if c.Bool("show-passages") {
		fmt.Println()
		for i, passage := range result.Passages {
			fmt.Printf("[%d] score=%.3f doc=%s ordinal=%d\n", i+1,
				passage.Score, passage.Chunk.DocumentID, passage.Chunk.Ordinal)
		}
	}

	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func mediaTypeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return extract.MediaTypeMarkdown
	case ".pdf":
		return extract.MediaTypePDF
	default:
		return extract.MediaTypeText
	}
}
