package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dshills/overlay/internal/lifecycle"
	"github.com/dshills/overlay/internal/plugin"
)

// PluginStatus is one row of the /plugins listing.
type PluginStatus struct {
	Name        string `json:"name"`
	Module      string `json:"module,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Active      bool   `json:"active"`
	Built       bool   `json:"built"`
	IsDuplicate bool   `json:"is_duplicate,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Status describes every live descriptor.
func Status(descs []plugin.Descriptor) []PluginStatus {
	out := make([]PluginStatus, 0, len(descs))
	for _, d := range descs {
		switch d := d.(type) {
		case *plugin.Normal:
			out = append(out, PluginStatus{
				Name:        d.SaveName(),
				Module:      d.ModuleName(),
				Kind:        d.Kind().String(),
				Active:      d.Active(),
				Built:       d.Built(),
				IsDuplicate: d.IsDuplicate(),
			})
		case *plugin.Bad:
			out = append(out, PluginStatus{
				Name:  d.DisplayName(),
				Error: d.DescribeError(),
			})
		}
	}
	return out
}

// statusServer exposes metrics and the plugin listing over HTTP.
type statusServer struct {
	app *Application
	srv *http.Server
}

func newStatusServer(app *Application, addr string) *statusServer {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &statusServer{app: app}
	router.GET("/healthz", s.health)
	router.GET("/plugins", s.plugins)
	router.GET("/metrics", gin.WrapH(app.metrics.Handler()))

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *statusServer) start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	log := s.app.log.WithComponent("status")
	log.Info("status server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("status server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *statusServer) stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *statusServer) health(c *gin.Context) {
	select {
	case <-s.app.Ready():
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
	}
}

func (s *statusServer) plugins(c *gin.Context) {
	var rows []PluginStatus
	err := s.app.Do(c.Request.Context(), func(o *lifecycle.Orchestrator) error {
		rows = Status(o.Descriptors())
		return nil
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}
