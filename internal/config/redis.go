package config

import "time"

type Redis struct {
	Addr     string `env:"REDIS_ADDR,required"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	ProductTTL time.Duration `env:"REDIS_PRODUCT_TTL" envDefault:"10m"`
}
