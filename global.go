package kbc

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	Logger zerolog.Logger
	// Redis stays nil unless REDIS_HOST is set.
	Redis *redis.Client
)
