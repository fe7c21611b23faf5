package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sjsage522/listingscout/helpers"
	"sjsage522/listingscout/internal/crawler"
	"sjsage522/listingscout/internal/fetch"
	"sjsage522/listingscout/internal/listing"
	apperrors "sjsage522/listingscout/pkg/errors"
)

// State backends
const (
	StateBackendFile  = "file"
	StateBackendRedis = "redis"
)

// Config represents the application configuration
type Config struct {
	Environment string
	OutputDir   string

	// Dedup state
	StateBackend     string
	StatePath        string
	RedisStatePrefix string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration, empty keeps the cooldown flags in process
	MemcacheAddr string

	// Fetch policy
	DelayMin       time.Duration
	DelayMax       time.Duration
	RateLimits     string
	UserAgent      string
	AcceptLanguage string
	BlockTime      time.Duration

	// Crawl
	MaxPages        int
	EnabledSources  []string
	EnableWellfound bool
	JobType         string
	RoleCategory    string
	Keywords        []string

	// URLs for the built-in sources
	SalemURL       string
	YCURL          string
	StartupJobsURL string
	WellfoundURL   string

	// Scheduling and metrics
	ScheduleSpec string
	MetricsAddr  string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	maxPages, _ := strconv.Atoi(getEnv("MAX_PAGES", "20"))
	delayMin, _ := strconv.ParseFloat(getEnv("SCRAPE_DELAY_MIN_SECONDS", "2"), 64)
	delayMax, _ := strconv.ParseFloat(getEnv("SCRAPE_DELAY_MAX_SECONDS", "6"), 64)
	blockTime, _ := strconv.Atoi(getEnv("BLOCK_TIME_SECONDS", "300"))
	enableWellfound, _ := strconv.ParseBool(getEnv("ENABLE_WELLFOUND", "false"))

	outputDir := getEnv("OUTPUT_DIR", "out")

	return &Config{
		Environment:          getEnv("LISTINGSCOUT_ENVIRONMENT", "development"),
		OutputDir:            outputDir,
		StateBackend:         strings.ToLower(getEnv("STATE_BACKEND", StateBackendFile)),
		StatePath:            getEnv("STATE_PATH", filepath.Join(outputDir, "state.json")),
		RedisStatePrefix:     getEnv("REDIS_STATE_PREFIX", "listingscout:state"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", ""),
		RedisStreamMaxLength: streamMaxLength,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		DelayMin:             seconds(delayMin),
		DelayMax:             seconds(delayMax),
		RateLimits:           getEnv("RATE_LIMITS", ""),
		UserAgent:            getEnv("USER_AGENT", helpers.DefaultUserAgent),
		AcceptLanguage:       getEnv("ACCEPT_LANGUAGE", helpers.DefaultAcceptLanguage),
		BlockTime:            time.Duration(blockTime) * time.Second,
		MaxPages:             maxPages,
		EnabledSources:       helpers.SplitList(getEnv("ENABLED_SOURCES", "salem,yc,startup_jobs")),
		EnableWellfound:      enableWellfound,
		JobType:              getEnv("JOB_TYPE", ""),
		RoleCategory:         getEnv("ROLE_CATEGORY", ""),
		Keywords:             helpers.SplitList(getEnv("KEYWORDS", "")),
		SalemURL:             getEnv("SALEM_URL", crawler.SalemURL),
		YCURL:                getEnv("YC_URL", crawler.YCURL),
		StartupJobsURL:       getEnv("STARTUP_JOBS_URL", crawler.StartupJobsURL),
		WellfoundURL:         getEnv("WELLFOUND_URL", crawler.WellfoundURL),
		ScheduleSpec:         getEnv("SCHEDULE_SPEC", "@every 48h"),
		MetricsAddr:          getEnv("METRICS_ADDR", ""),
	}
}

// Validate checks the settings that do not depend on the crawl config
func (c *Config) Validate() error {
	switch c.StateBackend {
	case StateBackendFile:
		if c.StatePath == "" {
			return apperrors.NewConfiguration("STATE_PATH is required for the file state backend", nil)
		}
	case StateBackendRedis:
		if c.RedisAddr == "" {
			return apperrors.NewConfiguration("REDIS_ADDR is required for the redis state backend", nil)
		}
	default:
		return apperrors.NewConfiguration(fmt.Sprintf("unknown STATE_BACKEND %q", c.StateBackend), nil)
	}
	if !listing.ValidJobType(c.JobType) {
		return apperrors.NewConfiguration(fmt.Sprintf("unsupported JOB_TYPE %q, want one of %s",
			c.JobType, strings.Join(listing.JobTypes(), ", ")), nil)
	}
	if !listing.ValidRoleCategory(c.RoleCategory) {
		return apperrors.NewConfiguration(fmt.Sprintf("unsupported ROLE_CATEGORY %q, want one of %s",
			c.RoleCategory, strings.Join(listing.RoleCategories(), ", ")), nil)
	}
	if c.ScheduleSpec == "" {
		return apperrors.NewConfiguration("SCHEDULE_SPEC must not be empty", nil)
	}
	_, err := c.CrawlConfig()
	return err
}

// UseRedis reports whether any component needs a Redis connection
func (c *Config) UseRedis() bool {
	return c.StateBackend == StateBackendRedis || c.RedisStream != ""
}

// Filter returns the job listing filter
func (c *Config) Filter() listing.Filter {
	return listing.Filter{
		Keywords:     c.Keywords,
		JobType:      strings.ToLower(c.JobType),
		RoleCategory: strings.ToLower(c.RoleCategory),
	}
}

// JournalPath is the error journal inside the output directory
func (c *Config) JournalPath() string {
	return filepath.Join(c.OutputDir, "errors.log")
}

// CrawlConfig builds the immutable crawl configuration. Wellfound is added
// when ENABLE_WELLFOUND is set, even if ENABLED_SOURCES leaves it out. When
// the startup_jobs URL is the default one and a filter is set, the filter's
// search phrases replace its query.
func (c *Config) CrawlConfig() (crawler.CrawlConfig, error) {
	delays, err := fetch.ParseDomainDelays(c.RateLimits)
	if err != nil {
		return crawler.CrawlConfig{}, apperrors.NewConfiguration("invalid RATE_LIMITS", err)
	}

	policy := fetch.DefaultPolicy()
	policy.MinDelay = c.DelayMin
	policy.MaxDelay = c.DelayMax
	policy.DomainDelays = delays
	policy.UserAgent = c.UserAgent
	policy.AcceptLanguage = c.AcceptLanguage
	policy.BlockTime = c.BlockTime

	urls := map[listing.Source]string{
		listing.SourceSalem:       c.SalemURL,
		listing.SourceYC:          c.YCURL,
		listing.SourceStartupJobs: c.startupJobsURL(),
		listing.SourceWellfound:   c.WellfoundURL,
	}
	names := append([]string(nil), c.EnabledSources...)
	if c.EnableWellfound && !containsFold(names, string(listing.SourceWellfound)) {
		names = append(names, string(listing.SourceWellfound))
	}
	sources := make([]crawler.SourceConfig, 0, len(names))
	for _, name := range names {
		source := listing.Source(strings.ToLower(name))
		sources = append(sources, crawler.SourceConfig{Source: source, URL: urls[source]})
	}

	cfg := crawler.CrawlConfig{MaxPages: c.MaxPages, Sources: sources, Fetch: policy}
	if err := cfg.Validate(); err != nil {
		return crawler.CrawlConfig{}, err
	}
	return cfg, nil
}

func (c *Config) startupJobsURL() string {
	if c.StartupJobsURL != crawler.StartupJobsURL || !c.Filter().Active() {
		return c.StartupJobsURL
	}
	return crawler.SearchURL(c.StartupJobsURL, c.Filter().SearchQuery())
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
