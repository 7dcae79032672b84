package config

type Config struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Docs struct {
		BaseURL       string `mapstructure:"base_url"`
		Token         string `mapstructure:"token"`
		HydrateOnJoin bool   `mapstructure:"hydrate_on_join"`
	} `mapstructure:"docs"`
	Sync struct {
		// WriteTimeoutMs bounds a single reconciliation write so a slow
		// backend cannot stall a document's serialization forever.
		WriteTimeoutMs int `mapstructure:"write_timeout_ms"`
	} `mapstructure:"sync"`
	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`
}
