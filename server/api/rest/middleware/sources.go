package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
)

// TrustedSources is a set of addresses and networks inbound hooks may be delivered from.
// An empty set trusts every source.
type TrustedSources struct {
	networks []*net.IPNet
}

// ParseTrustedSources parses a list of IP addresses and CIDR networks.
func ParseTrustedSources(entries []string) (*TrustedSources, error) {
	sources := &TrustedSources{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, errors.Errorf("error invalid trusted source address: %q", entry)
			}
			bits := 8 * net.IPv4len
			if ip.To4() == nil {
				bits = 8 * net.IPv6len
			}
			sources.networks = append(sources.networks, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, errors.Wrapf(err, "error invalid trusted source network: %q", entry)
		}
		sources.networks = append(sources.networks, network)
	}
	return sources, nil
}

// Contains returns true if ip is trusted.
func (s *TrustedSources) Contains(ip net.IP) bool {
	if s == nil || len(s.networks) == 0 {
		return true
	}
	if ip == nil {
		return false
	}
	for _, network := range s.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SourceIP returns the address of the client that made the request.
func SourceIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// MakeTrustedSourceFilter makes a middleware that rejects requests from untrusted sources with the
// same not found error returned for any other invalid inbound hook.
func MakeTrustedSourceFilter(log logger.Log, sources *TrustedSources, writeError ErrorWriter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ip := SourceIP(r)
			if !sources.Contains(ip) {
				log.Warnf("Rejecting inbound hook from untrusted source %s", r.RemoteAddr)
				writeError(w, r, gerror.NewErrNotFound("Not Found"))
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
