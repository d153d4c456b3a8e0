package constants

import "time"

const (
	AppName            = "tminus"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/tminus/tminus.db"
	Version            = "v0.3.0"

	// ConnectionEnvVar holds a PostgreSQL connection string when set.
	ConnectionEnvVar = "TMINUS_DB_CONNECTION"

	// TargetFormat is the wire format of the shared target field (YYYY-MM-DD HH:MM, 24-hour).
	TargetFormat = "2006-01-02 15:04"

	// DateFormat is the date half of TargetFormat (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the time half of TargetFormat (HH:MM)
	TimeFormat = "15:04"

	// Shared store fields
	FieldSelectedDate = "selectedDate"
	FieldNotifyUpdate = "notify_update"

	// Postgres channel used to announce field changes
	NotifyChannel = "tminus_fields"

	// Session cadence
	TickInterval = time.Second

	// Store watchers
	DefaultPollInterval      = 500 * time.Millisecond
	ListenerMinReconnect     = 2 * time.Second
	ListenerMaxReconnect     = time.Minute
	ListenerPingInterval     = 90 * time.Second
	DefaultStoreQueryTimeout = 5 * time.Second

	// Notify constants
	NotifyTimeout          = 5 * time.Second
	NotifierLockfileName   = "tminus-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.tminus"
	TrayExecutablePrefix   = "tminus-tray"
	TraySecretHeader       = "X-Tminus-Secret"
	DefaultKafkaTopic      = "tminus.target-changed"
)
