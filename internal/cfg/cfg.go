// Package cfg holds the application-specific configuration for the
// beacon server: listener ports, store selection, ingest queue, alert
// gateways, and the responder contact directory.
package cfg

import (
	"errors"
	"flag"
	"fmt"

	"github.com/linnemanlabs/beacon/internal/pipeline"
)

// Config adds beacon-specific configuration fields to the common
// cfg.Registerable and cfg.Validatable interfaces.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisQueue    string

	SMSGatewayURL   string
	EmailGatewayURL string
	SenderEmail     string

	LocalPolicePhone string
	LocalPoliceEmail string
	FederalPhone     string
	FederalEmail     string
	NGOPhone         string
	NGOEmail         string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "Redis address for the ingest queue (empty = queue ingestion disabled)")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "Redis password for the ingest queue")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "Redis database number for the ingest queue")
	fs.StringVar(&c.RedisQueue, "redis-queue", "beacon:submissions", "Redis list key holding submission events")
	fs.StringVar(&c.SMSGatewayURL, "sms-gateway-url", "", "HTTP gateway URL for SMS alerts (empty = sms disabled)")
	fs.StringVar(&c.EmailGatewayURL, "email-gateway-url", "", "HTTP gateway URL for email alerts (empty = email disabled)")
	fs.StringVar(&c.SenderEmail, "sender-email", "", "From address for email alerts")
	fs.StringVar(&c.LocalPolicePhone, "local-police-phone", "", "SMS number for the local police contact")
	fs.StringVar(&c.LocalPoliceEmail, "local-police-email", "", "email address for the local police contact")
	fs.StringVar(&c.FederalPhone, "federal-phone", "", "SMS number for the federal authority contact")
	fs.StringVar(&c.FederalEmail, "federal-email", "", "email address for the federal authority contact")
	fs.StringVar(&c.NGOPhone, "ngo-phone", "", "SMS number for the partner NGO contact")
	fs.StringVar(&c.NGOEmail, "ngo-email", "", "email address for the partner NGO contact")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// A configured SMS gateway needs at least the primary responder number
	if c.SMSGatewayURL != "" && c.LocalPolicePhone == "" {
		errs = append(errs, errors.New("LOCAL_POLICE_PHONE is required when SMS_GATEWAY_URL is set"))
	}

	// A configured email gateway needs a sender and the primary responder address
	if c.EmailGatewayURL != "" {
		if c.SenderEmail == "" {
			errs = append(errs, errors.New("SENDER_EMAIL is required when EMAIL_GATEWAY_URL is set"))
		}
		if c.LocalPoliceEmail == "" {
			errs = append(errs, errors.New("LOCAL_POLICE_EMAIL is required when EMAIL_GATEWAY_URL is set"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Directory builds the responder contact directory from the configured
// addresses, omitting roles with no contact details at all.
func (c *Config) Directory() pipeline.Directory {
	dir := pipeline.Directory{}
	add := func(role pipeline.Role, phone, email string) {
		if phone != "" || email != "" {
			dir[role] = pipeline.Contact{Phone: phone, Email: email}
		}
	}
	add(pipeline.RoleLocalPolice, c.LocalPolicePhone, c.LocalPoliceEmail)
	add(pipeline.RoleFederalAuthority, c.FederalPhone, c.FederalEmail)
	add(pipeline.RolePartnerNGO, c.NGOPhone, c.NGOEmail)
	return dir
}
