package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	HospitalAPIURL       string  `env:"HOSPITAL_API_URL,required=true"`
	APITimeoutSeconds    int     `env:"API_TIMEOUT_SECONDS,default=30"`
	MaxHospitalsPerBatch int     `env:"MAX_HOSPITALS_PER_BATCH,default=20"`
	MaxFileSizeMB        int     `env:"MAX_FILE_SIZE_MB,default=5"`
	MaxRetries           int     `env:"MAX_RETRIES,default=3"`
	RetryDelaySeconds    float64 `env:"RETRY_DELAY_SECONDS,default=1.0"`
	BatchMaxAgeHours     int     `env:"BATCH_MAX_AGE_HOURS,default=24"`
	SweepIntervalMinutes int     `env:"SWEEP_INTERVAL_MINUTES,default=60"`
	DirectoryRatePerSec  int     `env:"DIRECTORY_RATE_LIMIT_PER_SEC,default=10"`
	APIPort              int     `env:"API_PORT,default=8080"`
	LogLevel             string  `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
