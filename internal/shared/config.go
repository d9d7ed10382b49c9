package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	HTTPTimeout time.Duration

	MySQLDSN  string
	RedisAddr string
	RedisDB   int
	RedisPass string

	InboundDomain string
	AliasPrefix   string
	PaidTiers     []string
	PlanCacheTTL  time.Duration

	LLMBaseURL        string
	LLMKey            string
	LLMModel          string
	LLMRPS            int
	LLMMaxConcurrency int
	LLMTimeout        time.Duration

	ProcessTimeout   time.Duration
	WriteTimeout     time.Duration
	BodyExcerptMax   int
	RawCaptureMax    int
	DedupContentHash bool

	MailgunSigningKey string
	MailgunTolerance  time.Duration
}

func Load() Config {
	secs := func(k string, def int) time.Duration { return time.Duration(atoi(k, def)) * time.Second }
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		HTTPTimeout: secs("HTTP_TIMEOUT_SECONDS", 30),

		MySQLDSN:  env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC&clientFoundRows=true"),
		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),

		InboundDomain: strings.ToLower(env("INBOUND_DOMAIN", "reviews.example")),
		AliasPrefix:   env("ALIAS_PREFIX", "avis-"),
		PaidTiers:     list(env("PAID_TIERS", "starter,pro,business")),
		PlanCacheTTL:  secs("PLAN_CACHE_TTL_SECONDS", 300),

		LLMBaseURL:        env("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMKey:            env("LLM_API_KEY", ""),
		LLMModel:          env("LLM_MODEL", "gpt-4o-mini"),
		LLMRPS:            atoi("LLM_RPS", 5),
		LLMMaxConcurrency: atoi("LLM_MAX_CONCURRENCY", 4),
		LLMTimeout:        secs("LLM_TIMEOUT_SECONDS", 8),

		ProcessTimeout:   secs("PROCESS_TIMEOUT_SECONDS", 15),
		WriteTimeout:     secs("WRITE_TIMEOUT_SECONDS", 5),
		BodyExcerptMax:   atoi("BODY_EXCERPT_MAX", 4000),
		RawCaptureMax:    atoi("RAW_CAPTURE_MAX", 4000),
		DedupContentHash: boolean("DEDUP_CONTENT_HASH", false),

		MailgunSigningKey: env("MAILGUN_SIGNING_KEY", ""),
		MailgunTolerance:  secs("MAILGUN_TOLERANCE_SECONDS", 900),
	}
	if c.LLMKey == "" {
		log.Warn().Msg("LLM_API_KEY is empty; language model fallback disabled")
	}
	if c.MailgunSigningKey == "" {
		log.Warn().Msg("MAILGUN_SIGNING_KEY is empty; mailgun webhooks are not verified")
	}
	if budget := c.ProcessTimeout + c.WriteTimeout; c.HTTPTimeout <= budget {
		log.Warn().Dur("http_timeout", c.HTTPTimeout).Dur("raised_to", budget+time.Second).
			Msg("HTTP_TIMEOUT_SECONDS below processing budget")
		c.HTTPTimeout = budget + time.Second
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}

func boolean(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func list(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
