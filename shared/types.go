package shared

type ServerConfig struct {
	Sqlite   SqliteConfig   `mapstructure:"sqlite"`
	SafeNest SafeNestConfig `mapstructure:"safenest" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Google   GoogleConfig   `mapstructure:"google"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Geofence GeofenceConfig `mapstructure:"geofence"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase"`
}

type DatabaseConfig struct {
	// Type is one of sqlite, mysql or postgres. Defaults to sqlite.
	Type string `mapstructure:"type" validate:"omitempty,oneof=sqlite mysql postgres"`
	DSN  string `mapstructure:"dsn"`
}

type SafeNestConfig struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem" validate:"required"`
	Cron          CronConfig     `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
	Workers       WorkersConfig  `mapstructure:"workers"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type CronConfig struct {
	TimeZone         string `mapstructure:"timeZone" validate:"required"`
	InsightsSchedule string `mapstructure:"insightsSchedule"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`

	// RequestTimeout bounds every api request, in seconds
	RequestTimeout int `mapstructure:"requestTimeout" validate:"omitempty,min=1"`
}

type WorkersConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"omitempty,min=1,max=64"`
}

type StorageConfig struct {
	Bucket                    string `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync bool   `mapstructure:"enableSqliteBackupAndSync"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}

type GeofenceConfig struct {
	// TriggerMode is either "edge" (alert when a member crosses out of a zone)
	// or "level" (alert on every reading outside a zone).
	TriggerMode string `mapstructure:"triggerMode" validate:"omitempty,oneof=edge level"`
}
