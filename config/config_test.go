package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/listingscout/internal/crawler"
	"sjsage522/listingscout/internal/listing"
	apperrors "sjsage522/listingscout/pkg/errors"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "out", config.OutputDir)
	assert.Equal(t, StateBackendFile, config.StateBackend)
	assert.Equal(t, "out/state.json", config.StatePath)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Empty(t, config.MemcacheAddr)
	assert.Equal(t, 2*time.Second, config.DelayMin)
	assert.Equal(t, 6*time.Second, config.DelayMax)
	assert.Equal(t, 20, config.MaxPages)
	assert.Equal(t, []string{"salem", "yc", "startup_jobs"}, config.EnabledSources)
	assert.Equal(t, "@every 48h", config.ScheduleSpec)
	assert.False(t, config.UseRedis())
	require.NoError(t, config.Validate())

	// Test with environment variables
	t.Setenv("OUTPUT_DIR", "/tmp/scout")
	t.Setenv("STATE_BACKEND", "Redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SCRAPE_DELAY_MIN_SECONDS", "0.5")
	t.Setenv("SCRAPE_DELAY_MAX_SECONDS", "1.5")
	t.Setenv("RATE_LIMITS", "www.workatastartup.com=8")
	t.Setenv("MAX_PAGES", "3")
	t.Setenv("ENABLED_SOURCES", "yc")
	t.Setenv("ENABLE_WELLFOUND", "true")
	t.Setenv("KEYWORDS", "python, go")
	t.Setenv("YC_URL", "https://example.com/yc")

	config = LoadConfig()
	assert.Equal(t, "/tmp/scout/state.json", config.StatePath)
	assert.Equal(t, StateBackendRedis, config.StateBackend)
	assert.Equal(t, 2, config.RedisDB)
	assert.Equal(t, 500*time.Millisecond, config.DelayMin)
	assert.Equal(t, []string{"python", "go"}, config.Keywords)
	assert.True(t, config.UseRedis())
	require.NoError(t, config.Validate())

	cc, err := config.CrawlConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cc.MaxPages)
	assert.Equal(t, []crawler.SourceConfig{
		{Source: listing.SourceYC, URL: "https://example.com/yc"},
		{Source: listing.SourceWellfound, URL: crawler.WellfoundURL},
	}, cc.Sources)
	assert.Equal(t, 8*time.Second, cc.Fetch.DomainDelays["workatastartup.com"])
	assert.Equal(t, 1500*time.Millisecond, cc.Fetch.MaxDelay)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := map[string]func(c *Config){
		"backend":     func(c *Config) { c.StateBackend = "sqlite" },
		"job type":    func(c *Config) { c.JobType = "seasonal" },
		"role":        func(c *Config) { c.RoleCategory = "sales" },
		"source":      func(c *Config) { c.EnabledSources = []string{"craigslist"} },
		"max pages":   func(c *Config) { c.MaxPages = 0 },
		"delays":      func(c *Config) { c.DelayMin = 10 * time.Second },
		"rate limits": func(c *Config) { c.RateLimits = "yc.com" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := LoadConfig()
			mutate(c)
			err := c.Validate()
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration), "got %v", err)
		})
	}
}

func TestFilter(t *testing.T) {
	c := LoadConfig()
	c.JobType = "Internship"
	c.Keywords = []string{"go"}
	f := c.Filter()
	assert.Equal(t, listing.JobTypeInternship, f.JobType)
	assert.True(t, f.Active())
}

func TestRoleAndJobTypeSettings(t *testing.T) {
	t.Setenv("JOB_TYPE", "fulltime")
	t.Setenv("ROLE_CATEGORY", "Backend")

	c := LoadConfig()
	require.NoError(t, c.Validate())
	f := c.Filter()
	assert.Equal(t, listing.JobTypeFullTime, f.JobType)
	assert.Equal(t, listing.RoleBackend, f.RoleCategory)

	cc, err := c.CrawlConfig()
	require.NoError(t, err)
	var startupJobs string
	for _, sc := range cc.Sources {
		if sc.Source == listing.SourceStartupJobs {
			startupJobs = sc.URL
		}
	}
	assert.Equal(t, "https://startup.jobs/?q=full+time+backend+engineer", startupJobs)
}

func TestCustomStartupJobsURLKeepsItsQuery(t *testing.T) {
	t.Setenv("ROLE_CATEGORY", "data")
	t.Setenv("STARTUP_JOBS_URL", "https://startup.jobs/?q=golang")

	cc, err := LoadConfig().CrawlConfig()
	require.NoError(t, err)
	assert.Contains(t, cc.Sources, crawler.SourceConfig{Source: listing.SourceStartupJobs, URL: "https://startup.jobs/?q=golang"})
}
