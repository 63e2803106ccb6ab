package config

import "time"

// Realtime transport modes.
const (
	ModeMemory = "memory"
	ModeRedis  = "redis"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
	Redis    RedisConfig    `yaml:"redis"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"true"`
}

// AuthConfig holds access token settings.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"       env-required:"true"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"roomcast"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"15m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// RedisConfig holds the Redis connection used by the bus and session store.
type RedisConfig struct {
	Addr        string        `yaml:"addr"         env:"REDIS_ADDR"         env-default:"localhost:6379"`
	Password    string        `yaml:"password"     env:"REDIS_PASSWORD"`
	DB          int           `yaml:"db"           env:"REDIS_DB"           env-default:"0"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
}

// RealtimeConfig holds subscription, bus and gateway settings.
type RealtimeConfig struct {
	Mode                string        `yaml:"mode"                  env:"REALTIME_MODE"                  env-default:"memory"`
	Channel             string        `yaml:"channel"               env:"REALTIME_CHANNEL"               env-default:"ROOMCAST_SOCKET_MANAGER"`
	NodeID              string        `yaml:"node_id"               env:"REALTIME_NODE_ID"`
	Workers             int           `yaml:"workers"               env:"REALTIME_WORKERS"               env-default:"4"`
	QueueSize           int           `yaml:"queue_size"            env:"REALTIME_QUEUE_SIZE"            env-default:"1024"`
	DispatchConcurrency int           `yaml:"dispatch_concurrency"  env:"REALTIME_DISPATCH_CONCURRENCY"  env-default:"16"`
	BackoffInitial      time.Duration `yaml:"backoff_initial"       env:"REALTIME_BACKOFF_INITIAL"       env-default:"1s"`
	BackoffMax          time.Duration `yaml:"backoff_max"           env:"REALTIME_BACKOFF_MAX"           env-default:"60s"`
	SessionTTL          time.Duration `yaml:"session_ttl"           env:"REALTIME_SESSION_TTL"           env-default:"24h"`
	SendBuffer          int           `yaml:"send_buffer"           env:"REALTIME_SEND_BUFFER"           env-default:"256"`
	ConnectsPerMinute   int           `yaml:"connects_per_minute"   env:"REALTIME_CONNECTS_PER_MINUTE"   env-default:"60"`
}

// IsRedis reports whether subscriptions are replicated over Redis.
func (c RealtimeConfig) IsRedis() bool {
	return c.Mode == ModeRedis
}
