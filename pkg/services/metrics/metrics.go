/*
Package metrics provides HTTP services exposing Prometheus metrics and pprof
profiles of a running wallet session.
*/
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/cryptogogue/volwal/pkg/config"
	"go.uber.org/zap"
)

// Service serves metrics on every configured address.
type Service struct {
	http        []*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string
	addrs       []string
}

// NewService configures a service, nothing is started until Start.
func NewService(name string, handler http.Handler, cfg config.BasicService, log *zap.Logger) *Service {
	srvs := make([]*http.Server, len(cfg.Addresses))
	for i, addr := range cfg.Addresses {
		srvs[i] = &http.Server{
			Addr:    addr,
			Handler: handler,
		}
	}
	return &Service{
		http:        srvs,
		config:      cfg,
		log:         log.With(zap.String("service", name)),
		serviceType: name,
	}
}

// Name returns the service name.
func (ms *Service) Name() string {
	return ms.serviceType
}

// Start binds all configured addresses and serves them in background.
// Addresses bound before a failure are released.
func (ms *Service) Start() error {
	if !ms.config.Enabled {
		ms.log.Info("service hasn't started since it's disabled")
		return nil
	}
	lns := make([]net.Listener, 0, len(ms.http))
	for _, srv := range ms.http {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range lns {
				_ = l.Close()
			}
			return err
		}
		lns = append(lns, ln)
	}
	ms.addrs = make([]string, len(lns))
	for i, srv := range ms.http {
		ms.addrs[i] = lns[i].Addr().String()
		ms.log.Info("service is running", zap.String("endpoint", ms.addrs[i]))
		go func(srv *http.Server, ln net.Listener) {
			err := srv.Serve(ln)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				ms.log.Error("failed to serve", zap.String("endpoint", srv.Addr), zap.Error(err))
			}
		}(srv, lns[i])
	}
	return nil
}

// Addresses returns the addresses bound by Start.
func (ms *Service) Addresses() []string {
	return ms.addrs
}

// ShutDown stops the service.
func (ms *Service) ShutDown() {
	if !ms.config.Enabled || ms.addrs == nil {
		return
	}
	for _, srv := range ms.http {
		ms.log.Info("shutting down service", zap.String("endpoint", srv.Addr))
		err := srv.Shutdown(context.Background())
		if err != nil {
			ms.log.Error("can't shut service down", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
	ms.addrs = nil
}
