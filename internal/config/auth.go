package config

import "time"

type Auth struct {
	JWTSecret      string        `env:"AUTH_JWT_SECRET,required"`
	Issuer         string        `env:"AUTH_ISSUER" envDefault:"catalog-admin"`
	AccessTokenTTL time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"24h"`
	ResetTokenTTL  time.Duration `env:"AUTH_RESET_TOKEN_TTL" envDefault:"1h"`
}
