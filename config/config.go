package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Dispatch engine tuning.
	DefaultSearchRadiusKm   float64 `mapstructure:"DEFAULT_SEARCH_RADIUS_KM"`
	MaxSearchRadiusKm       float64 `mapstructure:"MAX_SEARCH_RADIUS_KM"`
	MaxProvidersPerDispatch int     `mapstructure:"MAX_PROVIDERS_PER_DISPATCH"`
	ResponseWindowMin       int     `mapstructure:"RESPONSE_WINDOW_MIN"`
	MaxDispatchRetries      int     `mapstructure:"MAX_DISPATCH_RETRIES"`
	RetryRadiusFactor       float64 `mapstructure:"RETRY_RADIUS_FACTOR"`
	AvgSpeedKmh             float64 `mapstructure:"AVG_SPEED_KMH"`
	DeclineGraceSec         int     `mapstructure:"DECLINE_GRACE_SEC"`
	ScheduledLeadTimeMin    int     `mapstructure:"SCHEDULED_LEAD_TIME_MIN"`

	// Firebase push notifications.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "fixly")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("DEFAULT_SEARCH_RADIUS_KM", 10.0)
	viper.SetDefault("MAX_SEARCH_RADIUS_KM", 100.0)
	viper.SetDefault("MAX_PROVIDERS_PER_DISPATCH", 10)
	viper.SetDefault("RESPONSE_WINDOW_MIN", 5)
	viper.SetDefault("MAX_DISPATCH_RETRIES", 3)
	viper.SetDefault("RETRY_RADIUS_FACTOR", 1.25)
	viper.SetDefault("AVG_SPEED_KMH", 25.0)
	viper.SetDefault("DECLINE_GRACE_SEC", 30)
	viper.SetDefault("SCHEDULED_LEAD_TIME_MIN", 60)
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
