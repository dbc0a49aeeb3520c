package app

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/api/rest/middleware"
	"github.com/vmware-archive/salt-ci/server/api/rest/routes"
	"github.com/vmware-archive/salt-ci/server/api/rest/server"
	"github.com/vmware-archive/salt-ci/server/services/hook"
	"github.com/vmware-archive/salt-ci/server/services/scm/github"
	"github.com/vmware-archive/salt-ci/server/services/sync"
	"github.com/vmware-archive/salt-ci/server/store"
)

const (
	ConfigFileName = "salt-ci-web"
	EnvPrefix      = "SALTCI"

	DefaultServeHost             = "localhost"
	DefaultServePort             = 5123
	DefaultInboundHooksRateLimit = 10.0
	DefaultInboundHooksBurst     = 20

	sessionKeyLength = 32
)

const (
	flagServeHost                  = "serve_host"
	flagServePort                  = "serve_port"
	flagDatabaseDriver             = "database_driver"
	flagDatabaseConnectionString   = "database_connection_string"
	flagDatabaseMaxIdleConnections = "database_max_idle_connections"
	flagDatabaseMaxOpenConnections = "database_max_open_connections"
	flagDatabaseAutoMigrate        = "database_auto_migrate"
	flagSessionAuthenticationKey   = "session_authentication_key"
	flagSessionEncryptionKey       = "session_encryption_key"
	flagSessionLifetimeSeconds     = "session_lifetime_seconds"
	flagSessionInsecureCookies     = "dev_session_insecure_cookies"
	flagSessionSameSiteNoneMode    = "dev_session_use_same_site_none_mode"
	flagSignInSuccessRedirectURL   = "sign_in_success_redirect_url"
	flagSignInErrorRedirectURL     = "sign_in_error_redirect_url"
	flagCORSAllowedOrigins         = "cors_allowed_origins"
	flagGitHubClientID             = "github_client_id"
	flagGitHubClientSecret         = "github_client_secret"
	flagGitHubRedirectURL          = "github_redirect_url"
	flagGitHubAPIBaseURL           = "github_api_base_url"
	flagGitHubPayloadIPs           = "github_payload_ips"
	flagHooksCallbackBaseURL       = "hooks_callback_base_url"
	flagProviderCallTimeout        = "provider_call_timeout"
	flagProviderMaxRetries         = "provider_max_retries"
	flagSyncLeaseDuration          = "sync_lease_duration"
	flagInboundHooksRateLimit      = "inbound_hooks_rate_limit"
	flagInboundHooksBurst          = "inbound_hooks_burst"
	flagLogLevels                  = "log_levels"
)

// LogSafeFlags is a list of flags by name whose values are safe to log.
var LogSafeFlags = []string{
	flagServeHost,
	flagServePort,
	flagDatabaseDriver,
	flagDatabaseAutoMigrate,
	flagSessionLifetimeSeconds,
	flagSessionInsecureCookies,
	flagSignInSuccessRedirectURL,
	flagSignInErrorRedirectURL,
	flagCORSAllowedOrigins,
	flagGitHubClientID,
	flagGitHubRedirectURL,
	flagGitHubAPIBaseURL,
	flagGitHubPayloadIPs,
	flagHooksCallbackBaseURL,
	flagProviderCallTimeout,
	flagProviderMaxRetries,
	flagSyncLeaseDuration,
	flagInboundHooksRateLimit,
	flagInboundHooksBurst,
	flagLogLevels,
}

type ServerConfig struct {
	AppAPIConfig         server.AppAPIServerConfig
	AppAPIRouterConfig   server.AppAPIRouterConfig
	AuthenticationConfig server.AuthenticationConfig
	DatabaseConfig       store.DatabaseConfig
	GitHubAppConfig      github.AppConfig
	SyncConfig           sync.SyncConfig
	HookConfig           hook.HookConfig
	LogLevels            logger.LogLevelConfig
}

// Validate returns a ConfigurationError listing every missing or invalid setting, or nil.
func (c *ServerConfig) Validate() error {
	var result *multierror.Error
	switch c.DatabaseConfig.Driver {
	case store.Sqlite, store.Postgres:
	default:
		result = multierror.Append(result, fmt.Errorf("%s must be %q or %q", flagDatabaseDriver, store.Sqlite, store.Postgres))
	}
	if c.DatabaseConfig.ConnectionString == "" {
		result = multierror.Append(result, fmt.Errorf("%s must be set", flagDatabaseConnectionString))
	}
	if len(c.AuthenticationConfig.SessionAuthenticationKey) != sessionKeyLength {
		result = multierror.Append(result, fmt.Errorf("%s must be 256 Bit (32 Bytes)", flagSessionAuthenticationKey))
	}
	if n := len(c.AuthenticationConfig.SessionEncryptionKey); n != 0 && n != sessionKeyLength {
		result = multierror.Append(result, fmt.Errorf("%s must be 256 Bit (32 Bytes) when set", flagSessionEncryptionKey))
	}
	if c.GitHubAppConfig.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s must be set", flagGitHubClientID))
	}
	if c.GitHubAppConfig.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("%s must be set", flagGitHubClientSecret))
	}
	if err := validateBaseURL(c.HookConfig.CallbackBaseURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s %w", flagHooksCallbackBaseURL, err))
	}
	if _, err := logger.NewLogRegistry(c.LogLevels); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s is invalid: %w", flagLogLevels, err))
	}
	if err := result.ErrorOrNil(); err != nil {
		return gerror.NewErrConfiguration("Invalid server configuration").Wrap(err)
	}
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("must be set")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}
	if parsed.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// RegisterFlags defines every server setting on flags, with its default.
func RegisterFlags(flags *pflag.FlagSet) {
	// HTTP
	flags.String(flagServeHost, DefaultServeHost, "The interface to bind the API server to.")
	flags.Int(flagServePort, DefaultServePort, "The port to bind the API server to.")
	flags.StringSlice(flagCORSAllowedOrigins, nil, "Browser origins allowed to make credentialed API calls. Empty disables CORS.")

	// Sessions
	flags.String(flagSessionAuthenticationKey, "", "The 256 Bit key used to authenticate the validity of session cookies.")
	flags.String(flagSessionEncryptionKey, "", "The 256 Bit key used to encrypt session cookies. Optional.")
	flags.Int(flagSessionLifetimeSeconds, server.DefaultSessionLifetimeSeconds, "How long a session cookie remains valid, in seconds.")
	flags.Bool(flagSessionInsecureCookies, false, "True to issue session cookies without the Secure attribute. This option should not be used in production.")
	flags.Bool(flagSessionSameSiteNoneMode, false, "True to set SameSite=none mode when issuing session cookies. This option should not be used in production.")
	flags.String(flagSignInSuccessRedirectURL, "/", "Where to send the browser after a successful sign-in.")
	flags.String(flagSignInErrorRedirectURL, "/", "Where to send the browser after a failed sign-in.")

	// GitHub
	flags.String(flagGitHubClientID, "", "The GitHub OAuth app client ID.")
	flags.String(flagGitHubClientSecret, "", "The GitHub OAuth app client secret.")
	flags.String(flagGitHubRedirectURL, "", "The URL GitHub redirects to after sign-in. Defaults to the callback route under hooks_callback_base_url.")
	flags.String(flagGitHubAPIBaseURL, "", "The root URL of a GitHub Enterprise server e.g. https://github.example.com. Empty for github.com.")
	flags.StringSlice(flagGitHubPayloadIPs, nil, "The IP addresses and CIDR ranges inbound hooks are accepted from. Empty accepts any source.")

	// Provider and hooks
	flags.String(flagHooksCallbackBaseURL, "", "The externally reachable base URL of this server, used in hook callback URLs.")
	flags.Duration(flagProviderCallTimeout, github.DefaultCallTimeout, fmt.Sprintf("The timeout for each call to the provider, clamped to [%s, %s].", github.MinCallTimeout, github.MaxCallTimeout))
	flags.Int(flagProviderMaxRetries, github.DefaultMaxRetries, "The number of times a provider call failing with a connection error or 5xx is retried.")
	flags.Duration(flagSyncLeaseDuration, sync.DefaultLeaseDuration, "How long a sync may hold an account's sync lease.")
	flags.Float64(flagInboundHooksRateLimit, DefaultInboundHooksRateLimit, "The inbound hook requests per second accepted from each source. 0 disables the limit.")
	flags.Int(flagInboundHooksBurst, DefaultInboundHooksBurst, "The inbound hook burst accepted from each source.")

	// Database
	flags.String(flagDatabaseDriver, string(store.Sqlite), "The Database Driver to use (i.e sqlite3|postgres)")
	flags.String(flagDatabaseConnectionString, defaultSQLiteConnectionString, "The connection string for the database")
	flags.Int(flagDatabaseMaxIdleConnections, store.DefaultDatabaseMaxIdleConnections, "The maximum number of idle database connections to use")
	flags.Int(flagDatabaseMaxOpenConnections, store.DefaultDatabaseMaxOpenConnections, "The maximum number of open database connections to use")
	flags.Bool(flagDatabaseAutoMigrate, false, "True to migrate the database schema up at startup, instead of refusing to start when it is out of date.")

	// Misc
	flags.String(flagLogLevels, "", fmt.Sprintf("A comma separated list of name=level pairs where name is the name of the logger and level is one of: %s", logger.ListLogLevels()))
}

// NewViper returns a viper instance reading SALTCI_ prefixed environment variables, with flags bound
// as the lowest priority source after the config file.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}
	return v, nil
}

// ReadConfigFile loads path into v, or searches the default locations when path is empty.
// A missing file in a default location is not an error.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigDir)
		v.AddConfigPath(".")
	}
	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return fmt.Errorf("error loading config file (%s): %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// ConfigFromViper builds and validates the server configuration from v.
func ConfigFromViper(v *viper.Viper) (*ServerConfig, error) {
	trustedSources, err := middleware.ParseTrustedSources(v.GetStringSlice(flagGitHubPayloadIPs))
	if err != nil {
		return nil, gerror.NewErrConfiguration(fmt.Sprintf("%s is invalid", flagGitHubPayloadIPs)).Wrap(err)
	}

	callbackBaseURL := strings.TrimSuffix(v.GetString(flagHooksCallbackBaseURL), "/")
	redirectURL := v.GetString(flagGitHubRedirectURL)
	if redirectURL == "" && callbackBaseURL != "" {
		redirectURL = callbackBaseURL + routes.GitHubAuthenticationCallbackPath
	}

	config := &ServerConfig{
		AppAPIConfig: server.AppAPIServerConfig{
			HTTPServerConfig: server.HTTPServerConfig{
				Address: net.JoinHostPort(v.GetString(flagServeHost), strconv.Itoa(v.GetInt(flagServePort))),
			},
		},
		AppAPIRouterConfig: server.AppAPIRouterConfig{
			CORSAllowedOrigins: v.GetStringSlice(flagCORSAllowedOrigins),
			TrustedHookSources: trustedSources,
			HookRateLimiter:    middleware.NewSourceRateLimiter(v.GetFloat64(flagInboundHooksRateLimit), v.GetInt(flagInboundHooksBurst)),
		},
		AuthenticationConfig: server.AuthenticationConfig{
			SessionAuthenticationKey: []byte(v.GetString(flagSessionAuthenticationKey)),
			SessionEncryptionKey:     []byte(v.GetString(flagSessionEncryptionKey)),
			SessionLifetimeSeconds:   v.GetInt(flagSessionLifetimeSeconds),
			InsecureCookies:          v.GetBool(flagSessionInsecureCookies),
			UseSameSiteNoneMode:      server.UseSameSiteNoneMode(v.GetBool(flagSessionSameSiteNoneMode)),
			SuccessRedirectURL:       v.GetString(flagSignInSuccessRedirectURL),
			ErrorRedirectURL:         v.GetString(flagSignInErrorRedirectURL),
		},
		DatabaseConfig: store.DatabaseConfig{
			Driver:             store.DBDriver(v.GetString(flagDatabaseDriver)),
			ConnectionString:   store.DatabaseConnectionString(v.GetString(flagDatabaseConnectionString)),
			MaxIdleConnections: v.GetInt(flagDatabaseMaxIdleConnections),
			MaxOpenConnections: v.GetInt(flagDatabaseMaxOpenConnections),
			AutoMigrate:        v.GetBool(flagDatabaseAutoMigrate),
		},
		GitHubAppConfig: github.AppConfig{
			ClientID:     v.GetString(flagGitHubClientID),
			ClientSecret: v.GetString(flagGitHubClientSecret),
			RedirectURL:  redirectURL,
			APIBaseURL:   v.GetString(flagGitHubAPIBaseURL),
			CallTimeout:  github.ClampCallTimeout(v.GetDuration(flagProviderCallTimeout)),
			MaxRetries:   v.GetInt(flagProviderMaxRetries),
		},
		SyncConfig: sync.SyncConfig{
			LeaseDuration: durationOrDefault(v.GetDuration(flagSyncLeaseDuration), sync.DefaultLeaseDuration),
		},
		HookConfig: hook.HookConfig{
			CallbackBaseURL: callbackBaseURL,
		},
		LogLevels: logger.LogLevelConfig(v.GetString(flagLogLevels)),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func durationOrDefault(d time.Duration, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
