package shared

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PAGE_SIZE", "")
	t.Setenv("STORAGE", "")
	t.Setenv("CACHE_TTL_SECONDS", "")
	t.Setenv("RANDOM_SAMPLE_SIZE", "")

	c := Load()
	if c.PageSize != 2 {
		t.Fatalf("PageSize = %d, want 2", c.PageSize)
	}
	if c.RandomSampleSize != 8 {
		t.Fatalf("RandomSampleSize = %d, want 8", c.RandomSampleSize)
	}
	if c.Storage != "mysql" {
		t.Fatalf("Storage = %s, want mysql", c.Storage)
	}
	if c.CacheTTL != 300*time.Second {
		t.Fatalf("CacheTTL = %s", c.CacheTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PAGE_SIZE", "10")
	t.Setenv("STORAGE", "memory")
	t.Setenv("REVIEW_MAX_ATTEMPTS", "7")
	t.Setenv("JWT_SECRET", "s3cret")

	c := Load()
	if c.PageSize != 10 || c.Storage != "memory" || c.ReviewMaxAttempts != 7 || c.JWTSecret != "s3cret" {
		t.Fatalf("unexpected config: %+v", c)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PAGE_SIZE", "-3")
	t.Setenv("REVIEW_MAX_ATTEMPTS", "abc")

	c := Load()
	if c.PageSize != 2 {
		t.Fatalf("PageSize = %d, want fallback 2", c.PageSize)
	}
	if c.ReviewMaxAttempts != 4 {
		t.Fatalf("ReviewMaxAttempts = %d, want default 4", c.ReviewMaxAttempts)
	}
}
