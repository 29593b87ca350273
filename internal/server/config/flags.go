package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/storefront/internal/flagx"
)

// parseFlags overlays selected fields from command-line flags.
//
//	-a string    HTTP bind address (e.g. ":3000")
//	-g string    gRPC bind address
//	-b string    store backend: memory, redis or postgres
//	-d string    PostgreSQL DSN
//	-r string    redis address
//	-s string    token signing secret
//	-t duration  session TTL (e.g. "15m")
//	-k string    kafka brokers, comma separated
//
// Only the flags above are taken from args so -c/-config can share os.Args.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-b", "-d", "-r", "-s", "-t", "-k"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "store backend (memory|redis|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token secret key")
	fs.DurationVar(&config.SessionTTL, "t", config.SessionTTL, "session TTL")
	fs.StringVar(&config.KafkaBrokers, "k", config.KafkaBrokers, "kafka brokers")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
