package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
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
	Calendar  CalendarConfig
	Timing    TimingConfig
	Sweeper   SweeperConfig
	Incentive IncentiveConfig
	Notify    NotifyConfig
	Desks     DeskConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
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

// CalendarConfig controls business-day arithmetic.
type CalendarConfig struct {
	WeekendDays     []string
	HolidayCacheTTL time.Duration
}

// TimingConfig tunes the timer refresh job.
type TimingConfig struct {
	RefreshInterval time.Duration
}

// SweeperConfig tunes the red-list sweep job.
type SweeperConfig struct {
	Enabled       bool
	Interval      time.Duration
	LeaseDuration time.Duration
}

// IncentiveConfig carries fallback thresholds for both ledgers; the settings
// table overrides these at runtime.
type IncentiveConfig struct {
	BasePoints         int
	RedListPenalty     int
	MonthlyBonus       int
	LowPointsThreshold int
	RedFlagWarnCount   int
	RedFlagSevereCount int
	OptimumHours       int
	CoinOptimalReward  int
	CoinExcessReward   int
}

// NotifyConfig tunes the in-process notification dispatcher.
type NotifyConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// DeskConfig governs desk auto-creation in the assignment path.
type DeskConfig struct {
	MaxFilesPerDay    int
	AutoCreateAbove   int
	AutoCreateEnabled bool
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
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

	cfg.Calendar = CalendarConfig{
		WeekendDays:     splitAndTrim(v.GetString("CALENDAR_WEEKEND_DAYS")),
		HolidayCacheTTL: parseDuration(v.GetString("CALENDAR_HOLIDAY_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Timing = TimingConfig{
		RefreshInterval: parseDuration(v.GetString("TIMER_REFRESH_INTERVAL"), time.Hour),
	}

	cfg.Sweeper = SweeperConfig{
		Enabled:       v.GetBool("ENABLE_REDLIST_SWEEP"),
		Interval:      parseDuration(v.GetString("REDLIST_SWEEP_INTERVAL"), time.Hour),
		LeaseDuration: parseDuration(v.GetString("REDLIST_SWEEP_LEASE"), 10*time.Minute),
	}

	cfg.Incentive = IncentiveConfig{
		BasePoints:         v.GetInt("INCENTIVE_BASE_POINTS"),
		RedListPenalty:     v.GetInt("INCENTIVE_REDLIST_PENALTY"),
		MonthlyBonus:       v.GetInt("INCENTIVE_MONTHLY_BONUS"),
		LowPointsThreshold: v.GetInt("INCENTIVE_LOW_POINTS_THRESHOLD"),
		RedFlagWarnCount:   v.GetInt("INCENTIVE_REDFLAG_WARN_COUNT"),
		RedFlagSevereCount: v.GetInt("INCENTIVE_REDFLAG_SEVERE_COUNT"),
		OptimumHours:       v.GetInt("INCENTIVE_OPTIMUM_HOURS"),
		CoinOptimalReward:  v.GetInt("INCENTIVE_COIN_OPTIMAL_REWARD"),
		CoinExcessReward:   v.GetInt("INCENTIVE_COIN_EXCESS_REWARD"),
	}

	cfg.Notify = NotifyConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		BufferSize: v.GetInt("NOTIFY_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFY_MAX_RETRIES"),
	}

	cfg.Desks = DeskConfig{
		MaxFilesPerDay:    v.GetInt("DESK_MAX_FILES_PER_DAY"),
		AutoCreateAbove:   v.GetInt("DESK_AUTO_CREATE_ABOVE"),
		AutoCreateEnabled: v.GetBool("DESK_AUTO_CREATE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "filetrack")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CALENDAR_WEEKEND_DAYS", "Saturday,Sunday")
	v.SetDefault("CALENDAR_HOLIDAY_CACHE_TTL", "15m")

	v.SetDefault("TIMER_REFRESH_INTERVAL", "1h")

	v.SetDefault("ENABLE_REDLIST_SWEEP", true)
	v.SetDefault("REDLIST_SWEEP_INTERVAL", "1h")
	v.SetDefault("REDLIST_SWEEP_LEASE", "10m")

	v.SetDefault("INCENTIVE_BASE_POINTS", 1000)
	v.SetDefault("INCENTIVE_REDLIST_PENALTY", 50)
	v.SetDefault("INCENTIVE_MONTHLY_BONUS", 100)
	v.SetDefault("INCENTIVE_LOW_POINTS_THRESHOLD", 500)
	v.SetDefault("INCENTIVE_REDFLAG_WARN_COUNT", 3)
	v.SetDefault("INCENTIVE_REDFLAG_SEVERE_COUNT", 5)
	v.SetDefault("INCENTIVE_OPTIMUM_HOURS", 4)
	v.SetDefault("INCENTIVE_COIN_OPTIMAL_REWARD", 10)
	v.SetDefault("INCENTIVE_COIN_EXCESS_REWARD", 15)

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFY_MAX_RETRIES", 1)

	v.SetDefault("DESK_MAX_FILES_PER_DAY", 25)
	v.SetDefault("DESK_AUTO_CREATE_ABOVE", 100)
	v.SetDefault("DESK_AUTO_CREATE", false)
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
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
