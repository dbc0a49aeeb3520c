package server_test

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vmware-archive/salt-ci/server/api/rest/middleware"
	"github.com/vmware-archive/salt-ci/server/api/rest/server"
	"github.com/vmware-archive/salt-ci/server/app"
	"github.com/vmware-archive/salt-ci/server/services/hook"
	"github.com/vmware-archive/salt-ci/server/services/scm/github"
	"github.com/vmware-archive/salt-ci/server/services/sync"
)

// TestCallbackBaseURL is the base of every hook callback URL registered by a test server.
const TestCallbackBaseURL = "https://ci.example.com"

// TestStartTime is the time the mock clock of every test server starts at.
var TestStartTime = time.Date(2022, time.March, 1, 9, 0, 0, 0, time.UTC)

func TestConfig(t *testing.T) *app.ServerConfig {
	test256bitKey := []byte("abcdefghijklmnopqrstuvwxyz123456")

	return &app.ServerConfig{
		AppAPIConfig: server.AppAPIServerConfig{
			HTTPServerConfig: server.HTTPServerConfig{
				Address: "", // Test is expected to use httptest server which picks its own address
			},
		},
		AppAPIRouterConfig: server.AppAPIRouterConfig{
			TrustedHookSources: &middleware.TrustedSources{}, // accept hooks from the test client
			HookRateLimiter:    middleware.NewSourceRateLimiter(0, 1),
		},
		AuthenticationConfig: server.AuthenticationConfig{
			SessionAuthenticationKey: test256bitKey,
			SessionEncryptionKey:     test256bitKey,
			SessionLifetimeSeconds:   server.DefaultSessionLifetimeSeconds,
			InsecureCookies:          true, // the test server does not serve TLS
			SuccessRedirectURL:       "/",
			ErrorRedirectURL:         "/error",
		},
		GitHubAppConfig: github.AppConfig{
			CallTimeout: github.DefaultCallTimeout,
			MaxRetries:  github.DefaultMaxRetries,
		},
		SyncConfig: sync.SyncConfig{
			LeaseDuration: sync.DefaultLeaseDuration,
		},
		HookConfig: hook.HookConfig{
			CallbackBaseURL: TestCallbackBaseURL,
		},
		LogLevels: "",
	}
}

// MakeMockClock returns a mock clock set to TestStartTime.
func MakeMockClock() *clock.Mock {
	mock := clock.NewMock()
	mock.Set(TestStartTime)
	return mock
}
