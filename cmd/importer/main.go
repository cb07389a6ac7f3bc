package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"netflixo/internal/adapters/observability"
	redisad "netflixo/internal/adapters/redis"
	"netflixo/internal/adapters/seed"
	"netflixo/internal/app"
	"netflixo/internal/domain"
	"netflixo/internal/shared"
	mysqlrepo "netflixo/internal/storage/mysql"
)

// system identity used for the bulk import
var importer = domain.Identity{UserID: "system:importer", Name: "importer", Admin: true}

func main() {
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src domain.SeedSource
	switch {
	case cfg.SeedFile != "":
		src = seed.FileSource{Path: cfg.SeedFile}
		log.Info().Str("file", cfg.SeedFile).Msg("importer starting")
	case cfg.SeedURL != "":
		cl, err := seed.NewClient(cfg.SeedURL, cfg.SeedRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize seed client")
		}
		src = cl
		log.Info().Str("url", cfg.SeedURL).Int("rps", cfg.SeedRPS).Msg("importer starting")
	default:
		log.Fatal().Msg("set SEED_FILE or SEED_URL")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}

	raw, err := src.FetchMovies(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch seed catalog failed")
	}
	movies, err := app.MapSeedMovies(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("seed catalog is malformed")
	}

	out, err := app.NewImportService(mysqlrepo.New(db), cache).ImportMovies(ctx, importer, movies)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
	log.Info().Int("movies", len(out)).Msg("import completed")
}
