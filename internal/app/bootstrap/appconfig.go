// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds the club-specific configuration. Server settings (env,
// log level, port, HTTP timeouts, body limit) live in WAFFLE's CoreConfig.
//
// Values are layered by LoadAppConfig: struct defaults, then an optional YAML
// file, then VLSICLUB_* environment variables. Nested keys use "__" in env
// names, so VLSICLUB_CMS__PROJECT_ID sets cms.project_id.
type AppConfig struct {
	BaseURL  string `koanf:"base_url"` // public site URL, used in emailed links and OAuth callbacks
	SiteName string `koanf:"site_name"`

	HTTP     HTTPConfig     `koanf:"http"`
	Mongo    MongoConfig    `koanf:"mongo"`
	CMS      CMSConfig      `koanf:"cms"`
	Session  SessionConfig  `koanf:"session"`
	Auth     AuthConfig     `koanf:"auth"`
	Google   GoogleConfig   `koanf:"google"`
	Mail     MailConfig     `koanf:"mail"`
	Profiles ProfilesConfig `koanf:"profiles"`
	Timeouts TimeoutsConfig `koanf:"timeouts"`
	Workers  WorkersConfig  `koanf:"workers"`
}

type HTTPConfig struct {
	RequestTimeout time.Duration `koanf:"request_timeout"` // chi middleware.Timeout
	RateLimit      int           `koanf:"rate_limit"`      // API requests per window per IP; 0 disables
	RateWindow     time.Duration `koanf:"rate_window"`
}

type MongoConfig struct {
	URI         string `koanf:"uri"`
	Database    string `koanf:"database"`
	MaxPoolSize uint64 `koanf:"max_pool_size"`
	MinPoolSize uint64 `koanf:"min_pool_size"`
}

// CMSConfig points at the Sanity project. ProjectID, Dataset and Token are required.
type CMSConfig struct {
	ProjectID  string `koanf:"project_id"`
	Dataset    string `koanf:"dataset"`
	Token      string `koanf:"token"`
	APIVersion string `koanf:"api_version"` // blank uses cms.DefaultAPIVersion
	UseCDN     bool   `koanf:"use_cdn"`
	BaseURL    string `koanf:"base_url"` // override for proxies and local fakes
}

type SessionConfig struct {
	Key    string        `koanf:"key"` // cookie signing key, at least 32 bytes
	Name   string        `koanf:"name"`
	Domain string        `koanf:"domain"`
	MaxAge time.Duration `koanf:"max_age"`
}

type AuthConfig struct {
	Domain          string        `koanf:"domain"` // institutional email domain
	RequireVerified bool          `koanf:"require_verified"`
	SessionTTL      time.Duration `koanf:"session_ttl"`
	VerifyTTL       time.Duration `koanf:"verify_ttl"`
	ResetTTL        time.Duration `koanf:"reset_ttl"`
	LoginIPLimit    int           `koanf:"login_ip_limit"`
	LoginEmailLimit int           `koanf:"login_email_limit"`
	LoginWindow     time.Duration `koanf:"login_window"`
}

type GoogleConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

// MailConfig selects the outbound mail backend: "sendgrid", "smtp", or "" for none.
type MailConfig struct {
	Backend     string `koanf:"backend"`
	From        string `koanf:"from"`
	FromName    string `koanf:"from_name"`
	SendGridKey string `koanf:"sendgrid_key"`
	SMTPHost    string `koanf:"smtp_host"`
	SMTPPort    int    `koanf:"smtp_port"`
	SMTPUser    string `koanf:"smtp_user"`
	SMTPPass    string `koanf:"smtp_pass"`
}

// ProfilesConfig picks where profiles live: "mongo" (default) or "firestore".
type ProfilesConfig struct {
	Backend             string `koanf:"backend"`
	FirestoreProject    string `koanf:"firestore_project"`
	FirestoreCollection string `koanf:"firestore_collection"`
}

type TimeoutsConfig struct {
	Ping   time.Duration `koanf:"ping"`
	Short  time.Duration `koanf:"short"`
	Medium time.Duration `koanf:"medium"`
	Query  time.Duration `koanf:"query"`
}

type WorkersConfig struct {
	SessionExpiryInterval time.Duration `koanf:"session_expiry_interval"`
}

// defaultConfig is the bottom configuration layer.
func defaultConfig() AppConfig {
	return AppConfig{
		BaseURL:  "http://localhost:8080",
		SiteName: "VLSI Club",
		HTTP: HTTPConfig{
			RequestTimeout: 40 * time.Second,
			RateLimit:      300,
			RateWindow:     time.Minute,
		},
		Mongo: MongoConfig{
			URI:         "mongodb://localhost:27017",
			Database:    "vlsiclub",
			MaxPoolSize: 100,
			MinPoolSize: 5,
		},
		CMS: CMSConfig{
			Dataset: "production",
		},
		Session: SessionConfig{
			Name:   "vlsiclub-session",
			MaxAge: 14 * 24 * time.Hour,
		},
		Auth: AuthConfig{
			Domain:          "iiitdwd.ac.in",
			RequireVerified: false,
			SessionTTL:      14 * 24 * time.Hour,
			VerifyTTL:       24 * time.Hour,
			ResetTTL:        time.Hour,
			LoginIPLimit:    20,
			LoginEmailLimit: 5,
			LoginWindow:     15 * time.Minute,
		},
		Mail: MailConfig{
			FromName: "VLSI Club",
			SMTPPort: 587,
		},
		Profiles: ProfilesConfig{
			Backend:             "mongo",
			FirestoreCollection: "users",
		},
		Timeouts: TimeoutsConfig{
			Query: 20 * time.Second,
		},
		Workers: WorkersConfig{
			SessionExpiryInterval: time.Minute,
		},
	}
}
