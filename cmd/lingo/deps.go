package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ersonp/lingo-core/internal/domain/services"
	"github.com/ersonp/lingo-core/internal/infrastructure/config"
	embedder "github.com/ersonp/lingo-core/internal/infrastructure/embedder/openai"
	llm "github.com/ersonp/lingo-core/internal/infrastructure/llm/openai"
	"github.com/ersonp/lingo-core/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/lingo-core/internal/infrastructure/vectordb/qdrant"
)

// Deps holds the storage-backed dependencies every command needs. Provider
// clients (translator, embedder, memory) are built separately by
// withTranslationDeps because they require API keys.
type Deps struct {
	Config   *config.Config
	Projects *config.ProjectsConfig
	Project  *config.ProjectEntry

	Repo         *sqlite.Repository
	Coordinator  *sqlite.Coordinator
	Lock         *sqlite.VersionLock
	Reservations *sqlite.ReservationManager
	Conflicts    *services.ConflictService
}

// translationDeps adds provider-backed services for commands that translate.
type translationDeps struct {
	Deps
	Batch  *services.BatchService
	Memory *services.MemoryService
	closer func()
}

// withDeps loads config, opens the project database, wires the concurrency
// components, then calls fn. Cleanup is handled automatically.
func withDeps(fn func(ctx context.Context, d *Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	projects, err := config.LoadProjects(cwd)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}

	if globalProject == "" {
		return errors.New("project is required (use --project flag)")
	}

	project, err := projects.Get(globalProject)
	if err != nil {
		return err
	}

	sqlitePath := config.SQLitePathForProject(cwd, globalProject)
	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: sqlitePath})
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer repo.Close()

	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	co := sqlite.NewCoordinator(repo.DB())
	lock := sqlite.NewVersionLock(repo.DB(), co)
	reservations := sqlite.NewReservationManager(repo.DB(), co)
	conflictRepo := sqlite.NewConflictRepository(repo.DB(), co)
	conflicts := services.NewConflictService(conflictRepo, repo, lock, cfg.Resolver.AutoMergeThreshold)

	deps := &Deps{
		Config:       cfg,
		Projects:     projects,
		Project:      project,
		Repo:         repo,
		Coordinator:  co,
		Lock:         lock,
		Reservations: reservations,
		Conflicts:    conflicts,
	}

	return fn(ctx, deps)
}

// withTranslationDeps builds the provider-backed batch pipeline on top of
// withDeps. The translation memory is optional: when the Qdrant collection
// cannot be reached, batches run without memory lookups.
func withTranslationDeps(fn func(ctx context.Context, d *translationDeps) error) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		translator, err := llm.NewClient(d.Config.LLM)
		if err != nil {
			return fmt.Errorf("creating translator: %w", err)
		}

		var memory *services.MemoryService
		closer := func() {}

		emb, err := embedder.NewEmbedder(d.Config.Embedder)
		if err == nil {
			qdrantCfg := d.Config.Qdrant
			qdrantCfg.Collection = d.Project.Collection
			tm, err := qdrant.NewRepository(qdrantCfg)
			if err == nil {
				if err := tm.EnsureCollection(ctx, embedder.VectorSize); err == nil {
					memory = services.NewMemoryService(emb, tm, d.Config.Batch.MemoryMinScore)
					closer = func() { _ = tm.Close() }
				} else {
					_ = tm.Close()
				}
			}
		}
		defer closer()

		ttl := time.Duration(d.Config.Batch.ReservationTTLMinutes) * time.Minute
		batch := services.NewBatchService(
			d.Repo,
			d.Reservations,
			d.Lock,
			translator,
			memory,
			d.Conflicts,
			d.Config.Batch.Concurrency,
			ttl,
		)

		td := &translationDeps{
			Deps:   *d,
			Batch:  batch,
			Memory: memory,
		}
		return fn(ctx, td)
	})
}
