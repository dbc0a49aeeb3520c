package servertest

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/api/rest/server"
)

// HTTPTestServerFactory builds servers on random local ports, ignoring the configured address.
func HTTPTestServerFactory() server.HTTPServerFactory {
	return func(handler http.Handler, config server.HTTPServerConfig, log logger.Log) (server.APIServer, error) {
		return &HTTPTestServer{server: httptest.NewUnstartedServer(handler), log: log}, nil
	}
}

// HTTPTestServer serves the API from an httptest server so tests can run in parallel.
type HTTPTestServer struct {
	server *httptest.Server
	log    logger.Log
}

func (s *HTTPTestServer) Start() {
	s.server.Start()
	s.log.Infof("Test API server listening on %s", s.server.URL)
}

// Stop blocks until requests in flight complete. ctx is not consulted.
func (s *HTTPTestServer) Stop(ctx context.Context) error {
	s.server.Close()
	return nil
}

func (s *HTTPTestServer) GetServerURL() string {
	return s.server.URL
}
