package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer

	Database      Database      `envPrefix:"DB_"`
	Stripe        Stripe        `envPrefix:"STRIPE_"`
	Admin         Admin         `envPrefix:"ADMIN_"`
	Donation      Donation      `envPrefix:"DONATION_"`
	Reconcile     Reconcile     `envPrefix:"RECONCILE_"`
	Observability Observability `envPrefix:"OBSERVABILITY_"`
}

type Stripe struct {
	SecretKey      string `env:"SECRET_KEY"`
	WebhookSecret  string `env:"WEBHOOK_SECRET"`
	PublishableKey string `env:"PUBLISHABLE_KEY"`
}

type Database struct {
	// Driver is "sqlite" or "mysql". DSN is a file path for sqlite,
	// a go-sql-driver DSN for mysql.
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"donations.db"`
}

type Admin struct {
	// SessionSecret is shared with the session provider that mints
	// operator tokens.
	SessionSecret string `env:"SESSION_SECRET"`
}

type Donation struct {
	// MaxAmount is the upper bound accepted per donation, in whole
	// currency units.
	MaxAmount int64 `env:"MAX_AMOUNT" envDefault:"100000"`
}

type Reconcile struct {
	// Schedule is a cron expression; empty disables the worker.
	Schedule   string        `env:"SCHEDULE" envDefault:"@every 1h"`
	StaleAfter time.Duration `env:"STALE_AFTER" envDefault:"2h"`
}

type Observability struct {
	Addr string `env:"ADDR" envDefault:"127.0.0.1:9090"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
