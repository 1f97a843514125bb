package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.85, cfg.Pipeline.SimilarityThreshold)
	assert.Equal(t, 4, cfg.Pipeline.BatchCount)
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}

func TestLoadMergesYAMLAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
database:
  table: news
scheduler:
  cronExpression: "30 5 * * *"
  timezone: Asia/Dhaka
pipeline:
  similarityThreshold: 0.9
  batchCount: 6
  enrichDelay: 2s
  sourcePriority: [prothomalo, dailystar]
sources:
  - name: prothomalo
    scanner: rss
    url: https://www.prothomalo.com/feed/
    fields:
      title: headline
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv(databaseDSNEnv, "postgres://env/db")
	t.Setenv(embeddingDimEnv, "768")
	t.Setenv(artifactDirEnv, dir)
	t.Setenv(logLevelEnv, "debug")

	cfg := Load(path)

	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
	assert.Equal(t, "news", cfg.Database.Table)
	assert.Equal(t, "30 5 * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, "Asia/Dhaka", cfg.Scheduler.Location().String())
	assert.Equal(t, 0.9, cfg.Pipeline.SimilarityThreshold)
	assert.Equal(t, 6, cfg.Pipeline.BatchCount)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.EnrichDelay)
	assert.Equal(t, 768, cfg.Pipeline.EmbeddingDimension)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, []string{"prothomalo", "dailystar"}, cfg.Pipeline.SourcePriority)
	assert.Equal(t, dir, cfg.Artifacts.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.Len(t, cfg.Sources, 1)
	src, ok := cfg.Source("prothomalo")
	require.True(t, ok)
	assert.Equal(t, "headline", src.Fields["title"])
	_, ok = cfg.Source("dailystar")
	assert.False(t, ok)
}

func TestLoadFallsBackOnUnreadableFile(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, defaultConfig().Pipeline.BatchCount, cfg.Pipeline.BatchCount)
	assert.NotEmpty(t, cfg.Sources)
}

func TestUnknownTimezoneFallsBackToUTC(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	cfg.bindTimezone()
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"threshold zero":    func(c *Config) { c.Pipeline.SimilarityThreshold = 0 },
		"threshold above 1": func(c *Config) { c.Pipeline.SimilarityThreshold = 1.1 },
		"no batches":        func(c *Config) { c.Pipeline.BatchCount = 0 },
		"no dimension":      func(c *Config) { c.Pipeline.EmbeddingDimension = 0 },
		"no workers":        func(c *Config) { c.Pipeline.Workers = 0 },
		"no artifact dir":   func(c *Config) { c.Artifacts.Dir = "" },
		"unnamed source":    func(c *Config) { c.Sources = append(c.Sources, SourceConfig{}) },
		"duplicate source":  func(c *Config) { c.Sources = append(c.Sources, c.Sources[0]) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := defaultConfig()
	cfg.Pipeline.SimilarityThreshold = 1
	assert.NoError(t, cfg.Validate())
}
