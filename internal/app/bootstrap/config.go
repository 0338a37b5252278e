// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/crushnote/internal/app/system/auth"
	"github.com/dalemusser/crushnote/internal/app/system/limits"
	"github.com/dalemusser/crushnote/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minProdSecretLength is the shortest token secret accepted in prod.
const minProdSecretLength = 32

// appConfigKeys defines crushnote's configuration keys. They are loaded via
// WAFFLE's config system from config files (mongo_uri), environment
// variables (CRUSHNOTE_MONGO_URI) and flags (--mongo_uri).
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "crushnote", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},

	{Name: "token_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Secret the token signing and cookie keys are derived from"},
	{Name: "token_ttl", Default: "720h", Desc: "Session token lifetime"},
	{Name: "token_issuer", Default: "crushnote", Desc: "Token issuer claim"},

	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID (ID-token audience)"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret (redirect flow)"},

	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public URL of this API"},
	{Name: "web_url", Default: "http://localhost:5173", Desc: "Web client URL (CORS origin, post-login redirect)"},

	{Name: "time_zone", Default: "UTC", Desc: "IANA zone for crush windows and letter delivery"},
	{Name: "request_rate", Default: 10, Desc: "Per-IP requests per second"},
	{Name: "request_burst", Default: 20, Desc: "Per-IP burst size"},

	{Name: "name_length_limit", Default: 20, Desc: "Max length of names and aliases"},
	{Name: "description_length_limit", Default: 300, Desc: "Max length of group descriptions"},
	{Name: "message_length_limit", Default: 25000, Desc: "Max length of crush messages"},
	{Name: "letter_length_limit", Default: 25000, Desc: "Max length of letters and replies"},
	{Name: "max_groups_per_user", Default: 10, Desc: "Max groups one user may create"},
	{Name: "max_total_members", Default: 250, Desc: "Max members plus invitations per group"},
	{Name: "letters_per_day", Default: 2, Desc: "Letters one user may send per UTC day"},
	{Name: "crush_submission_last_day", Default: 14, Desc: "Last day of the month crushes can be changed"},

	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for lists and multi-step operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for connecting and schema setup"},
}

// LoadConfig loads WAFFLE core config and crushnote's app config.
// Precedence: flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CRUSHNOTE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		TokenSecret: appValues.String("token_secret"),
		TokenTTL:    appValues.Duration("token_ttl", auth.DefaultTokenTTL),
		TokenIssuer: appValues.String("token_issuer"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		BaseURL: appValues.String("base_url"),
		WebURL:  appValues.String("web_url"),

		TimeZone:     appValues.String("time_zone"),
		RequestRate:  appValues.Int("request_rate"),
		RequestBurst: appValues.Int("request_burst"),

		Limits: limits.Limits{
			NameLength:        appValues.Int("name_length_limit"),
			DescriptionLength: appValues.Int("description_length_limit"),
			MessageLength:     appValues.Int("message_length_limit"),
			LetterLength:      appValues.Int("letter_length_limit"),
			MaxGroupsPerUser:  appValues.Int("max_groups_per_user"),
			MaxTotalMembers:   appValues.Int("max_total_members"),
			LettersPerDay:     appValues.Int("letters_per_day"),
		},
		SubmissionLastDay: appValues.Int("crush_submission_last_day"),

		Timeouts: timeouts.Config{
			Ping:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
			Short:  appValues.Duration("timeout_short", timeouts.DefaultShort),
			Medium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
			Long:   appValues.Duration("timeout_long", timeouts.DefaultLong),
		},
	}

	// ConnectDB runs before Startup and already reads these.
	timeouts.Configure(appCfg.Timeouts)

	// An unknown zone is reported by ValidateConfig; keep UTC until then.
	appCfg.Location = time.UTC
	if loc, err := time.LoadLocation(appCfg.TimeZone); err == nil {
		appCfg.Location = loc
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configuration the service cannot run with.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := validateAppConfig(coreCfg.Env, appCfg); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	if appCfg.GoogleClientID == "" {
		logger.Warn("google_client_id is empty; Google login is disabled")
	}
	return nil
}

func validateAppConfig(env string, appCfg AppConfig) error {
	var errs []error

	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		errs = append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
	}
	if appCfg.TokenSecret == "" {
		errs = append(errs, errors.New("token_secret is required"))
	} else if env == "prod" && len(appCfg.TokenSecret) < minProdSecretLength {
		errs = append(errs, fmt.Errorf("token_secret must be at least %d characters in prod", minProdSecretLength))
	}
	if appCfg.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if _, err := time.LoadLocation(appCfg.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("unknown time_zone %q: %w", appCfg.TimeZone, err))
	}
	if appCfg.RequestRate <= 0 || appCfg.RequestBurst <= 0 {
		errs = append(errs, errors.New("request_rate and request_burst must be positive"))
	}
	if d := appCfg.SubmissionLastDay; d < 1 || d > 27 {
		errs = append(errs, fmt.Errorf("crush_submission_last_day must be between 1 and 27, got %d", d))
	}
	if err := appCfg.Limits.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
