package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Likith-04/Tibl.ai/internal/dto"
	"github.com/Likith-04/Tibl.ai/internal/models"
	"github.com/Likith-04/Tibl.ai/internal/repository"
	"github.com/Likith-04/Tibl.ai/internal/service"
	"github.com/Likith-04/Tibl.ai/pkg/config"
	"github.com/Likith-04/Tibl.ai/pkg/database"
	"github.com/Likith-04/Tibl.ai/pkg/logger"
	"github.com/Likith-04/Tibl.ai/pkg/storage"
)

type options struct {
	subjects   string
	teachers   string
	out        string
	seed       int64
	importDB   bool
	issueToken string
	role       string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var opts options
	flag.StringVar(&opts.subjects, "subjects", cfg.Catalog.SubjectsPath, "Subjects CSV file")
	flag.StringVar(&opts.teachers, "teachers", cfg.Catalog.TeachersPath, "Teachers CSV file (optional)")
	flag.StringVar(&opts.out, "out", cfg.Artifacts.Dir, "Output directory for generated files")
	flag.Int64Var(&opts.seed, "seed", cfg.Scheduler.Seed, "Random seed for theory placement")
	flag.BoolVar(&opts.importDB, "import-db", false, "Replace the Postgres catalog with the CSV files and exit")
	flag.StringVar(&opts.issueToken, "issue-token", "", "Print a signed API token for this user id and exit")
	flag.StringVar(&opts.role, "role", string(models.RoleAdmin), "Role embedded in the issued token")
	flag.Parse()

	logr, err := logger.Build(cfg.Env, config.LogConfig{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	switch {
	case opts.issueToken != "":
		err = issueToken(os.Stdout, cfg, opts)
	case opts.importDB:
		err = importCatalog(ctx, cfg, opts, logr)
	default:
		err = generate(ctx, os.Stdout, cfg, opts, logr)
	}
	if err != nil {
		logr.Fatal("timetable-gen failed", zap.Error(err))
	}
}

func issueToken(w io.Writer, cfg *config.Config, opts options) error {
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration)
	token, expiresAt, err := tokens.Issue(opts.issueToken, models.UserRole(opts.role), "", "")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
	return err
}

func importCatalog(ctx context.Context, cfg *config.Config, opts options, logr *zap.Logger) error {
	if !cfg.Database.Enabled {
		return errors.New("-import-db requires DB_ENABLED=true")
	}
	catalog, err := repository.NewCSVCatalogSource(opts.subjects, opts.teachers).Load(ctx)
	if err != nil {
		return err
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck
	if err := database.RunMigrations(db.DB, logr); err != nil {
		return err
	}
	if err := repository.NewCatalogRepository(db).Replace(ctx, catalog); err != nil {
		return err
	}
	logr.Info("catalog imported", zap.Int("subjects", len(catalog.Subjects)), zap.Int("teachers", len(catalog.Teachers)))
	return nil
}

func generate(ctx context.Context, w io.Writer, cfg *config.Config, opts options, logr *zap.Logger) error {
	files, err := storage.NewLocalStorage(opts.out)
	if err != nil {
		return err
	}
	artifacts := service.NewArtifactService(files, storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Artifacts.LinkTTL), nil, logr, service.ArtifactConfig{})

	timetables := service.NewTimetableService(
		repository.NewCSVCatalogSource(opts.subjects, opts.teachers),
		nil, nil, nil, nil,
		validator.New(),
		logr,
		service.TimetableServiceConfig{Settings: service.SettingsFromConfig(cfg.Scheduler), APIPrefix: cfg.APIPrefix},
	)

	seed := opts.seed
	resp, err := timetables.Generate(ctx, dto.GenerateTimetableRequest{Seed: &seed})
	if err != nil {
		return err
	}
	tt, err := timetables.Get(ctx, resp.ID)
	if err != nil {
		return err
	}
	names, err := artifacts.Write(tt)
	if err != nil {
		return err
	}
	return printReport(w, tt, names, opts.out)
}

func printReport(w io.Writer, tt *models.Timetable, names []string, dir string) error {
	s := tt.Stats
	lines := []string{
		fmt.Sprintf("run %s (seed %d)", tt.ID, tt.Seed),
		fmt.Sprintf("sections: %d", s.Sections),
		fmt.Sprintf("theory/project sessions placed: %d/%d", s.SessionsPlaced, s.SessionsRequired),
		fmt.Sprintf("lab sessions: %d (direct %d, relocated %d, forced %d, anomalies %d, dropped %d)",
			s.LabSessions, s.LabDirect, s.LabRelocated, s.LabForced, s.LabAnomalies, s.DroppedLabSessions),
		fmt.Sprintf("lab rooms shared across sections: %d", s.RoomClashes),
	}
	for _, d := range tt.Deficits {
		lines = append(lines, fmt.Sprintf("  short: %s %s placed %d of %d", d.Section, d.SubjectCode, d.Placed, d.Required))
	}
	lines = append(lines, fmt.Sprintf("files written to %s:", dir))
	for _, name := range names {
		lines = append(lines, "  "+name)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
