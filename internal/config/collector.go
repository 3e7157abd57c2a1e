package config

// CollectorConfig holds configuration for the event collector service.
type CollectorConfig struct {
	BindAddr       string
	FallbackAddrs  []string
	AutoFallback   bool
	DataDir        string
	StoreQueueSize int
	MaxFileSizeMB  int
	Debug          bool
	LogFile        string
}

// LoadCollector reads collector configuration from environment variables
// and an optional .env file.
func LoadCollector() *CollectorConfig {
	loadDotenv()

	return &CollectorConfig{
		BindAddr:       getEnvOrDefault("DOMPULSE_COLLECTOR_BIND", "127.0.0.1:8090"),
		FallbackAddrs:  getEnvListOrDefault("DOMPULSE_COLLECTOR_FALLBACKS", []string{"127.0.0.1:8091", "127.0.0.1:8092"}),
		AutoFallback:   getEnvBoolOrDefault("DOMPULSE_COLLECTOR_AUTO_FALLBACK", true),
		DataDir:        getEnvOrDefault("DOMPULSE_DATA_DIR", "./data"),
		StoreQueueSize: getEnvIntOrDefault("DOMPULSE_STORE_QUEUE_SIZE", 1024),
		MaxFileSizeMB:  getEnvIntOrDefault("DOMPULSE_MAX_FILE_SIZE_MB", 100),
		Debug:          getEnvBoolOrDefault("DOMPULSE_DEBUG", false),
		LogFile:        getEnvOrDefault("DOMPULSE_COLLECTOR_LOG_FILE", "logs/collector.log"),
	}
}
