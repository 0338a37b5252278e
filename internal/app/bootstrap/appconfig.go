// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/crushnote/internal/app/system/calendar"
	"github.com/dalemusser/crushnote/internal/app/system/limits"
	"github.com/dalemusser/crushnote/internal/app/system/timeouts"
)

// AppConfig holds crushnote's configuration. WAFFLE's CoreConfig covers the
// framework side (ports, TLS, log level); everything the service itself
// needs lives here and is passed explicitly to the stores, engines and
// handlers built from it.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session tokens
	TokenSecret string
	TokenTTL    time.Duration
	TokenIssuer string

	// Google identity
	GoogleClientID     string
	GoogleClientSecret string

	BaseURL string // this API's public URL, used for the OAuth callback
	WebURL  string // the web client; CORS origin and post-login redirect

	// TimeZone drives the crush windows and letter delivery boundaries.
	TimeZone string
	Location *time.Location

	// Per-IP request limiter for the API.
	RequestRate  int
	RequestBurst int

	// Business limits.
	Limits            limits.Limits
	SubmissionLastDay int

	// Store-call deadlines; zero fields keep the package defaults.
	Timeouts timeouts.Config
}

// Calendar returns the calendar the engines share.
func (c AppConfig) Calendar() calendar.Calendar {
	return calendar.New(c.Location, c.SubmissionLastDay)
}
