package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vmware-archive/salt-ci/common/logger"
	saltmiddleware "github.com/vmware-archive/salt-ci/server/api/rest/middleware"
)

const requestTimeout = 60 * time.Second

type AppAPIServerConfig struct {
	HTTPServerConfig
}

type AppAPIServer struct {
	APIServer
}

func NewAppAPIServer(router *AppAPIRouter, config AppAPIServerConfig, httpServerFactory HTTPServerFactory, logFactory logger.LogFactory) (*AppAPIServer, error) {
	httpServer, err := httpServerFactory(router, config.HTTPServerConfig, logFactory("AppAPIServer"))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP server: %w", err)
	}
	return &AppAPIServer{
		APIServer: httpServer,
	}, nil
}

type AppAPIRouterConfig struct {
	// CORSAllowedOrigins lists the browser origins allowed to make credentialed API calls.
	CORSAllowedOrigins []string
	// TrustedHookSources lists the addresses inbound hooks are accepted from. Empty accepts any source.
	TrustedHookSources *saltmiddleware.TrustedSources
	// HookRateLimiter limits the rate of inbound hooks per source.
	HookRateLimiter *saltmiddleware.SourceRateLimiter
}

type AppAPIRouter struct {
	chi.Router
}

func NewAppAPIRouter(
	config AppAPIRouterConfig,
	root *RootAPI,
	authentication *AuthenticationAPI,
	account *AccountAPI,
	sync *SyncAPI,
	repo *RepoAPI,
	inboundHook *InboundHookAPI,
	logFactory logger.LogFactory) *AppAPIRouter {

	logger := logFactory("AppAPIRouter")
	requestLogger := middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(saltmiddleware.Metrics)
	r.Use(middleware.Timeout(requestTimeout))

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if len(config.CORSAllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   config.CORSAllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
				ExposedHeaders:   []string{"Location"},
				AllowCredentials: true,
				MaxAge:           300, // Maximum value not ignored by any of major browsers
			}))
		}

		r.Route("/v1", func(r chi.Router) {
			// Public routes that can be accessed without auth
			r.Group(func(r chi.Router) {
				r.Get("/", root.GetRootDocument)
				r.Get("/authentication/github", authentication.AuthenticateGitHub)
				r.Get("/authentication/github/callback", authentication.AuthenticateGitHubCallback)
			})

			// Public routes for the provider to deliver hooks to. The address of each hook is
			// validated against the account graph before its payload is accepted.
			r.Route("/hooks", func(r chi.Router) {
				r.Use(saltmiddleware.MakeTrustedSourceFilter(logger, config.TrustedHookSources, inboundHook.ErrorNotLogged))
				r.Use(saltmiddleware.MakeRateLimiter(logger, config.HookRateLimiter, inboundHook.ErrorNotLogged))
				r.Post("/push/{token}", inboundHook.HandleToken)
				r.Post("/{kind}/{login}/{repo}", inboundHook.Handle)
				r.Post("/{kind}/{login}/{org}/{repo}", inboundHook.Handle)
			})

			// Routes for API clients to interact with are authenticated using sessions
			r.Group(func(r chi.Router) {
				r.Use(authentication.SessionAuthenticator)
				r.Use(saltmiddleware.MakeMustAuthenticate(logger, root.Error))

				r.Post("/authentication/signout", authentication.SignOut)
				r.Route("/account", func(r chi.Router) {
					r.Get("/", account.Get)
					r.Patch("/", account.Patch)
					r.Post("/hooks-token", account.RegenerateHooksToken)
				})
				r.Post("/sync", sync.Sync)
				r.Route("/repos", func(r chi.Router) {
					r.Get("/", repo.List)
					r.Post("/hooks", repo.UpdateHooks)
					r.Get("/{repo_id}", repo.Get)
				})
			})
		})
	})
	return &AppAPIRouter{Router: r}
}
