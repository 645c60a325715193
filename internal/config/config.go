package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"backoffice.db"`

	Gateway     Gateway     `envPrefix:"GATEWAY_"`
	Idempotency Idempotency `envPrefix:"IDEMPOTENCY_"`
	Fraud       Fraud       `envPrefix:"FRAUD_"`
}

type Gateway struct {
	// WebhookSecret is the shared secret the gateway signs notification
	// bodies with (HMAC-SHA256, hex).
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	// WebhookRateLimit is requests per second allowed on the webhook route.
	WebhookRateLimit float64 `env:"WEBHOOK_RATE_LIMIT" envDefault:"20"`
}

type Idempotency struct {
	// TTLMinutes bounds how long a processed delivery suppresses replays.
	TTLMinutes int `env:"TTL_MINUTES" envDefault:"360"`
}

type Fraud struct {
	// QueryTimeoutMS bounds the historical queries behind a risk analysis;
	// on timeout the analysis degrades to medium risk / manual review.
	QueryTimeoutMS int `env:"QUERY_TIMEOUT_MS" envDefault:"2000"`
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
