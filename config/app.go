package config

type App struct {
	Port        string `envconfig:"APP_PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" default:"local_dev_secret"`
	Env         string `envconfig:"APP_ENV" default:"dev"`

	// Base URL used to build payment success/cancel redirect links.
	BaseURL string `envconfig:"BASE_URL" default:"http://127.0.0.1:8080"`

	StripeSecretKey  string `envconfig:"STRIPE_SECRET_KEY"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
}
