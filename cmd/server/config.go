package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host        string `env:"HOST,default=0.0.0.0"`
	Port        int    `env:"PORT,default=8080"`
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`

	JWTSecret string        `env:"JWT_SECRET,required=true"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=24h"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	ChannelCapacity int    `env:"CHANNEL_CAPACITY,default=100"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=1m"`
	GCInterval      time.Duration `env:"GC_INTERVAL,default=10m"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=5s"`

	LogLevel string `env:"LOG_LEVEL,default=INFO"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
