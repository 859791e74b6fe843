package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Catalog sources.
const (
	CatalogSourceCSV      = "csv"
	CatalogSourcePostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Catalog   CatalogConfig
	Artifacts ArtifactsConfig
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BranchSections is one "BRANCH:A|B" entry of SCHEDULER_BRANCH_SECTIONS.
type BranchSections struct {
	Branch  string
	Letters []string
}

// SchedulerConfig shapes the weekly grid and the placement heuristics.
type SchedulerConfig struct {
	Days             []string
	TimeSlots        []string
	BlockedSlots     []int
	LabStarts        []int
	BranchSections   []BranchSections
	LabRooms         map[string][]string
	PreferredLabDays []string
	Seed             int64
	RunTTL           time.Duration
}

// CatalogConfig selects where subjects and teachers are read from.
type CatalogConfig struct {
	Source       string
	SubjectsPath string
	TeachersPath string
}

// ArtifactsConfig controls generated timetable files.
type ArtifactsConfig struct {
	Dir               string
	WorkerConcurrency int
	WorkerRetries     int
	Retention         time.Duration
	LinkTTL           time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("DB_ENABLED"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		CacheTTL: parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), time.Hour),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	blocked, err := parseInts(v.GetString("SCHEDULER_BLOCKED_SLOTS"))
	if err != nil {
		return nil, fmt.Errorf("SCHEDULER_BLOCKED_SLOTS: %w", err)
	}
	labStarts, err := parseInts(v.GetString("SCHEDULER_LAB_STARTS"))
	if err != nil {
		return nil, fmt.Errorf("SCHEDULER_LAB_STARTS: %w", err)
	}
	sections, err := parseBranchSections(v.GetString("SCHEDULER_BRANCH_SECTIONS"))
	if err != nil {
		return nil, fmt.Errorf("SCHEDULER_BRANCH_SECTIONS: %w", err)
	}
	rooms, err := parseLabRooms(v.GetString("SCHEDULER_LAB_ROOMS"))
	if err != nil {
		return nil, fmt.Errorf("SCHEDULER_LAB_ROOMS: %w", err)
	}
	cfg.Scheduler = SchedulerConfig{
		Days:             splitAndTrim(v.GetString("SCHEDULER_DAYS")),
		TimeSlots:        splitAndTrim(v.GetString("SCHEDULER_TIME_SLOTS")),
		BlockedSlots:     blocked,
		LabStarts:        labStarts,
		BranchSections:   sections,
		LabRooms:         rooms,
		PreferredLabDays: splitAndTrim(v.GetString("SCHEDULER_PREFERRED_LAB_DAYS")),
		Seed:             v.GetInt64("SCHEDULER_SEED"),
		RunTTL:           parseDuration(v.GetString("SCHEDULER_RUN_TTL"), 24*time.Hour),
	}

	cfg.Catalog = CatalogConfig{
		Source:       strings.ToLower(v.GetString("CATALOG_SOURCE")),
		SubjectsPath: v.GetString("CATALOG_SUBJECTS_PATH"),
		TeachersPath: v.GetString("CATALOG_TEACHERS_PATH"),
	}
	if cfg.Catalog.Source != CatalogSourceCSV && cfg.Catalog.Source != CatalogSourcePostgres {
		return nil, fmt.Errorf("CATALOG_SOURCE: unsupported value %q", cfg.Catalog.Source)
	}

	cfg.Artifacts = ArtifactsConfig{
		Dir:               v.GetString("ARTIFACTS_DIR"),
		WorkerConcurrency: v.GetInt("ARTIFACT_WORKERS"),
		WorkerRetries:     v.GetInt("ARTIFACT_RETRIES"),
		Retention:         parseDuration(v.GetString("ARTIFACT_RETENTION"), 7*24*time.Hour),
		LinkTTL:           parseDuration(v.GetString("ARTIFACT_LINK_TTL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tibl")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TIMETABLE_CACHE_TTL", "1h")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_DAYS", "MON,TUE,WED,THU,FRI")
	v.SetDefault("SCHEDULER_TIME_SLOTS", "09:00-10:00,10:00-11:00,11:00-11:20,11:20-12:20,12:20-13:20,13:20-14:00 (Lunch),14:00-15:00,15:00-16:00,16:00-17:00")
	v.SetDefault("SCHEDULER_BLOCKED_SLOTS", "2,5")
	v.SetDefault("SCHEDULER_LAB_STARTS", "0,3,6,7")
	v.SetDefault("SCHEDULER_BRANCH_SECTIONS", "CSE:A|B|C,ISE:D|E,ECE:F")
	v.SetDefault("SCHEDULER_LAB_ROOMS", "CSE:CSE_Lab1|CSE_Lab2,ISE:ISE_Lab1|ISE_Lab2,ECE:ECE_Lab1|ECE_Lab2")
	v.SetDefault("SCHEDULER_PREFERRED_LAB_DAYS", "TUE,THU")
	v.SetDefault("SCHEDULER_SEED", 42)
	v.SetDefault("SCHEDULER_RUN_TTL", "24h")

	v.SetDefault("CATALOG_SOURCE", CatalogSourceCSV)
	v.SetDefault("CATALOG_SUBJECTS_PATH", "./data/subjects.csv")
	v.SetDefault("CATALOG_TEACHERS_PATH", "./data/teachers.csv")

	v.SetDefault("ARTIFACTS_DIR", "./generated")
	v.SetDefault("ARTIFACT_WORKERS", 1)
	v.SetDefault("ARTIFACT_RETRIES", 3)
	v.SetDefault("ARTIFACT_RETENTION", "168h")
	v.SetDefault("ARTIFACT_LINK_TTL", "1h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	return splitOn(raw, ",")
}

func splitOn(raw, sep string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func parseInts(raw string) ([]int, error) {
	parts := splitAndTrim(raw)
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", part)
		}
		result = append(result, n)
	}
	return result, nil
}

// parseBranchSections reads "CSE:A|B|C,ISE:D|E".
func parseBranchSections(raw string) ([]BranchSections, error) {
	var result []BranchSections
	for _, entry := range splitAndTrim(raw) {
		branch, letters, ok := strings.Cut(entry, ":")
		branch = strings.TrimSpace(branch)
		if !ok || branch == "" {
			return nil, fmt.Errorf("entry %q must look like BRANCH:A|B", entry)
		}
		list := splitOn(letters, "|")
		if len(list) == 0 {
			return nil, fmt.Errorf("branch %s has no sections", branch)
		}
		result = append(result, BranchSections{Branch: strings.ToUpper(branch), Letters: list})
	}
	return result, nil
}

// parseLabRooms reads "CSE:CSE_Lab1|CSE_Lab2,ISE:ISE_Lab1".
func parseLabRooms(raw string) (map[string][]string, error) {
	result := make(map[string][]string)
	for _, entry := range splitAndTrim(raw) {
		branch, rooms, ok := strings.Cut(entry, ":")
		branch = strings.TrimSpace(branch)
		if !ok || branch == "" {
			return nil, fmt.Errorf("entry %q must look like BRANCH:ROOM|ROOM", entry)
		}
		result[strings.ToUpper(branch)] = splitOn(rooms, "|")
	}
	return result, nil
}
