package server

import (
	"crypto/tls"
	"net/http"
	"net/http/httputil"

	"go.uber.org/zap"
)

// setupProxy configures the reverse proxy for documents missing locally
func (s *DocumentServer) setupProxy() {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.config.InsecureProxy {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	s.reverseProxy = &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = s.config.ProxyURL.Scheme
			req.URL.Host = s.config.ProxyURL.Host
			req.Host = s.config.ProxyURL.Host

			if s.config.ProxyURL.RawQuery != "" {
				if req.URL.RawQuery == "" {
					req.URL.RawQuery = s.config.ProxyURL.RawQuery
				} else {
					req.URL.RawQuery = s.config.ProxyURL.RawQuery + "&" + req.URL.RawQuery
				}
			}
		},
		Transport:    transport,
		ErrorHandler: s.proxyError,
	}

	s.logger.Info("Proxy mode enabled, documents not found locally are forwarded",
		zap.String("upstream", s.config.ProxyURL.String()))
	if s.config.InsecureProxy {
		s.logger.Warn("SSL certificate verification disabled for proxy requests")
	}
}

// proxyRequest forwards the request to the upstream document store
func (s *DocumentServer) proxyRequest(w http.ResponseWriter, r *http.Request) {
	s.reverseProxy.ServeHTTP(w, r)
}

func (s *DocumentServer) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("Proxy request failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusBadGateway, "error proxying request: "+err.Error(), "")
}
