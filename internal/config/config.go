package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port       string
	DBDSN      string
	PreviewDir string
	LogFile    string

	// Media host credentials. Both are required for any upload to work.
	MediaCloudName    string
	MediaUploadPreset string
	MediaUploadURL    string

	// Payment verification mode: "simulated" is the only built-in mode.
	PaymentMode  string
	PaymentDelay time.Duration
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "foodshare.db"
	} // sqlite file in project root
	previews := os.Getenv("PREVIEW_DIR")
	if previews == "" {
		previews = os.TempDir()
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./foodshare.log" // default log sink in project root
	}

	uploadURL := os.Getenv("MEDIA_UPLOAD_URL")
	if uploadURL == "" {
		uploadURL = "https://api.cloudinary.com/v1_1"
	}

	mode := os.Getenv("PAYMENT_MODE")
	if mode == "" {
		mode = "simulated"
	}
	delay := 3 * time.Second
	if s := os.Getenv("PAYMENT_DELAY_MS"); s != "" {
		if ms, err := strconv.Atoi(s); err == nil && ms > 0 {
			delay = time.Duration(ms) * time.Millisecond
		}
	}

	cfg := Config{
		Port:              port,
		DBDSN:             dsn,
		PreviewDir:        previews,
		LogFile:           logFile,
		MediaCloudName:    os.Getenv("MEDIA_CLOUD_NAME"),
		MediaUploadPreset: os.Getenv("MEDIA_UPLOAD_PRESET"),
		MediaUploadURL:    uploadURL,
		PaymentMode:       mode,
		PaymentDelay:      delay,
	}
	log.Printf("[config] PORT=%s DB_DSN=%s PAYMENT_MODE=%s MEDIA_CLOUD_NAME=%s", cfg.Port, cfg.DBDSN, cfg.PaymentMode, cfg.MediaCloudName)
	return cfg
}
