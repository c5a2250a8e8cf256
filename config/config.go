package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env    string
	Port   string
	CartID string

	// Remote ledger (MongoDB)
	MongoURI     string
	MongoDB      string
	MongoTimeout time.Duration

	// Local durable store
	OfflineDBPath string

	// Optional catalog cache
	RedisURL string

	// Optional checkout event stream
	KafkaBrokers string
	KafkaTopic   string

	// Connectivity probe / replay trigger
	ProbeInterval time.Duration

	// Weight monitor
	SensorMode         string // "simulated" unless a hardware reader is wired in
	SamplePeriod       time.Duration
	WindowSize         int
	RawSamples         int
	StabilityThreshold float64 // grams
	ItemThreshold      float64 // grams
	SettleDelay        time.Duration
	MismatchTolerance  float64 // grams
}

func Load() Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	return Config{
		Env:    getEnv("ENV", "development"),
		Port:   getEnv("PORT", "8087"),
		CartID: getEnv("CART_ID", "cart-001"),

		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "smartcart"),
		MongoTimeout: getDuration("MONGO_TIMEOUT", 5*time.Second),

		OfflineDBPath: getEnv("OFFLINE_DB_PATH", "smartcart.db"),

		RedisURL: os.Getenv("REDIS_URL"),

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "checkout.completed"),

		ProbeInterval: getDuration("PROBE_INTERVAL", 30*time.Second),

		SensorMode:         getEnv("SENSOR_MODE", "simulated"),
		SamplePeriod:       getDuration("SAMPLE_PERIOD", 200*time.Millisecond),
		WindowSize:         getInt("WINDOW_SIZE", 5),
		RawSamples:         getInt("RAW_SAMPLES", 10),
		StabilityThreshold: getFloat("STABILITY_THRESHOLD_G", 2.0),
		ItemThreshold:      getFloat("ITEM_THRESHOLD_G", 50.0),
		SettleDelay:        getDuration("SETTLE_DELAY", 10*time.Second),
		MismatchTolerance:  getFloat("MISMATCH_TOLERANCE_G", 100.0),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
