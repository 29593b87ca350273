package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/storefront/internal/flagx"
	"github.com/dmitrijs2005/storefront/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Durations accept "30s" style
// strings or integer nanoseconds. Pointer fields distinguish "absent" from
// a zero value so a partial file only overrides what it names.
type JsonConfig struct {
	EndpointAddrHTTP    *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC    *string         `json:"endpoint_addr_grpc"`
	Environment         *string         `json:"environment"`
	StoreBackend        *string         `json:"store_backend"`
	DatabaseDSN         *string         `json:"database_dsn"`
	RedisAddr           *string         `json:"redis_addr"`
	RedisPassword       *string         `json:"redis_password"`
	RedisDB             *int            `json:"redis_db"`
	CounterPrefix       *string         `json:"counter_prefix"`
	StoreTimeout        *timex.Duration `json:"store_timeout"`
	SecretKey           *string         `json:"secret_key"`
	SessionTTL          *timex.Duration `json:"session_ttl"`
	BcryptCost          *int            `json:"bcrypt_cost"`
	KafkaBrokers        *string         `json:"kafka_brokers"`
	KafkaTopic          *string         `json:"kafka_topic"`
	HealthProbeInterval *timex.Duration `json:"health_probe_interval"`
	ShutdownTimeout     *timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays values from the file named by -c/-config in args.
// A missing flag is a no-op; an unreadable or malformed file panics, the same
// way bad flags do.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.Environment, c.Environment)
	setString(&config.StoreBackend, c.StoreBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.CounterPrefix, c.CounterPrefix)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.KafkaBrokers, c.KafkaBrokers)
	setString(&config.KafkaTopic, c.KafkaTopic)

	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	if c.StoreTimeout != nil {
		config.StoreTimeout = c.StoreTimeout.Duration
	}
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.HealthProbeInterval != nil {
		config.HealthProbeInterval = c.HealthProbeInterval.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
