package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	applog "stockroom/internal/log"
)

type Config struct {
	Port         string `envconfig:"PORT" default:"8080"`
	ProductsFile string `envconfig:"PRODUCTS_FILE" default:"./data/products.json"`
	// image references are "images/<file>", relative to the products file
	ImagesDir    string `envconfig:"IMAGES_DIR" default:"./data/images"`
	DBDSN        string `envconfig:"DB_DSN" default:"stockroom.db"`
	TemplatesDir string `envconfig:"TEMPLATES_DIR" default:"./web/templates"`
	StaticDir    string `envconfig:"STATIC_DIR" default:"./web/static"`
	LogFile      string `envconfig:"LOG_FILE" default:"./stockroom.log"`
	MaxUploadMB  int    `envconfig:"MAX_UPLOAD_MB" default:"5"`
}

func Load() (Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 5
	}
	applog.Info(nil, "config.loaded", map[string]any{
		"port":          cfg.Port,
		"products_file": cfg.ProductsFile,
		"images_dir":    cfg.ImagesDir,
		"db_dsn":        cfg.DBDSN,
		"log_file":      cfg.LogFile,
		"max_upload_mb": cfg.MaxUploadMB,
	})
	return cfg, nil
}
