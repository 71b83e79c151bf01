package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every environment-provided value the bot needs. Business
// constants the core receives as parameters (daily amount, cooldowns, bet
// bounds) live here rather than in the services.
type Config struct {
	BotToken string
	GuildID  string
	Addr     string

	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	DailyReward  int64
	DailyXP      int64
	WorkMin      int64
	WorkMax      int64
	RobChance    float64
	RobFine      int64
	VoteReward   int64
	PackPrice    int64
	MinBet       int64
	MaxBet       int64
	XPPerWager   int64
	StartBalance int64

	Cooldowns map[string]time.Duration

	TopGGToken string
	TopGGBotID string
	AdminToken string

	PresetsPath    string
	WorkerInterval time.Duration
	LogLevel       string
}

// Cooldown action names
const (
	ActionDaily = "daily"
	ActionWork  = "work"
	ActionRob   = "rob"
	ActionVote  = "vote"
)

// LoadDotEnv loads a .env file when one is present. A missing file is not an
// error; the process environment is used as-is.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the configuration from the environment
func Load() (Config, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("ECONBOT_ADDR", ":8080")
	}

	cfg := Config{
		BotToken:       strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		GuildID:        strings.TrimSpace(os.Getenv("GUILD_ID")),
		Addr:           addr,
		DatabaseDriver: strings.ToLower(envDefault("DATABASE_DRIVER", "postgres")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:     envDefault("SQLITE_PATH", "data/econbot.db"),

		DailyReward:  envInt64Default("DAILY_REWARD", 500),
		DailyXP:      envInt64Default("DAILY_XP", 250),
		WorkMin:      envInt64Default("WORK_MIN", 65),
		WorkMax:      envInt64Default("WORK_MAX", 650),
		RobChance:    envFloatDefault("ROB_CHANCE", 0.4),
		RobFine:      envInt64Default("ROB_FINE", 250),
		VoteReward:   envInt64Default("VOTE_REWARD", 1000),
		PackPrice:    envInt64Default("PACK_PRICE", 750),
		MinBet:       envInt64Default("MIN_BET", 10),
		MaxBet:       envInt64Default("MAX_BET", 250000),
		XPPerWager:   envInt64Default("XP_PER_WAGER", 10),
		StartBalance: envInt64Default("START_BALANCE", 0),

		Cooldowns: map[string]time.Duration{
			ActionDaily: envDurationDefault("COOLDOWN_DAILY", 24*time.Hour),
			ActionWork:  envDurationDefault("COOLDOWN_WORK", time.Hour),
			ActionRob:   envDurationDefault("COOLDOWN_ROB", 2*time.Hour),
			ActionVote:  envDurationDefault("COOLDOWN_VOTE", 12*time.Hour),
		},

		TopGGToken: strings.TrimSpace(os.Getenv("TOPGG_TOKEN")),
		TopGGBotID: strings.TrimSpace(os.Getenv("TOPGG_BOT_ID")),
		AdminToken: strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),

		PresetsPath:    strings.TrimSpace(os.Getenv("PRESETS_PATH")),
		WorkerInterval: envDurationDefault("WORKER_INTERVAL", time.Minute),
		LogLevel:       strings.ToLower(envDefault("LOG_LEVEL", "info")),
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.MinBet <= 0 || c.MaxBet < c.MinBet {
		return fmt.Errorf("invalid bet bounds: min %d max %d", c.MinBet, c.MaxBet)
	}
	if c.WorkMin < 0 || c.WorkMax < c.WorkMin {
		return fmt.Errorf("invalid work range: %d..%d", c.WorkMin, c.WorkMax)
	}
	if c.RobChance < 0 || c.RobChance > 1 {
		return fmt.Errorf("ROB_CHANCE must be within [0,1]")
	}
	return nil
}

// CooldownFor returns the configured cooldown for action, or fallback
func (c Config) CooldownFor(action string, fallback time.Duration) time.Duration {
	if d, ok := c.Cooldowns[action]; ok && d > 0 {
		return d
	}
	return fallback
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
