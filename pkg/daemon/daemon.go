package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/config"
	"github.com/charlie0129/leptong2/pkg/events"
	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// server owns the calculator shared by all requests. mu guards the calculator
// pointer, which is replaced on reload, and serializes mutations with the
// config file they are persisted to.
type server struct {
	mu   sync.RWMutex
	load func() (config.Config, error)
	conf config.Config
	calc *g2.Calculator

	hub     *events.EventHub
	metrics *metrics
	log     logrus.FieldLogger
}

// newServer loads the config with load, which reload calls again on SIGHUP.
func newServer(load func() (config.Config, error), log logrus.FieldLogger) (*server, error) {
	conf, err := load()
	if err != nil {
		return nil, err
	}
	calc, err := build(conf, log)
	if err != nil {
		return nil, err
	}
	return &server{
		load:    load,
		conf:    conf,
		calc:    calc,
		hub:     events.NewEventHub(log),
		metrics: newMetrics(),
		log:     log,
	}, nil
}

// build creates a calculator from conf and refuses configs whose canonical
// predictions are not finite.
func build(conf config.Config, log logrus.FieldLogger) (*g2.Calculator, error) {
	calc, err := config.NewCalculator(conf, g2.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := checkFinite(calc); err != nil {
		return nil, err
	}
	return calc, nil
}

func checkFinite(calc *g2.Calculator) error {
	for _, s := range lepton.All {
		for _, v := range []calibration.Variant{calibration.VariantV36, calibration.VariantV361} {
			if _, err := calc.Predict(s, v, nil); errors.Is(err, g2.ErrNonFinite) {
				return err
			}
		}
	}
	return nil
}

func (s *server) calculator() *g2.Calculator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calc
}

// update runs fn with exclusive access to the calculator and the config, then
// saves the config.
func (s *server) update(fn func(calc *g2.Calculator, conf config.Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.calc, s.conf); err != nil {
		return err
	}
	if err := s.conf.Save(); err != nil {
		s.log.Errorf("saveConfig failed: %v", err)
		return err
	}
	return nil
}

// reload re-reads the config and replaces the calculator with one built from
// it. On failure both the config and the calculator are left as they were.
func (s *server) reload() error {
	conf, err := s.load()
	if err != nil {
		return err
	}
	calc, err := build(conf, s.log)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conf, s.calc = conf, calc
	s.mu.Unlock()

	s.hub.Publish(events.ConfigChanged, events.ConfigChangedEvent{Reason: "reload", Ts: time.Now().Unix()})
	return nil
}

func (s *server) logrusFields() logrus.Fields {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conf.LogrusFields()
}

func (s *server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(s.log))
	router.GET("/config", s.getConfig)
	router.GET("/mode", s.getMode)
	router.PUT("/mode", s.setMode)
	router.GET("/phases", s.getPhases)
	router.PUT("/phases", s.setPhases)
	router.PUT("/offset/:species", s.setOffset)
	router.GET("/moment/:species", s.getMoment)
	router.GET("/report/:species", s.getReport)
	router.POST("/scan", s.scan)
	router.GET("/status", s.getStatus)
	router.GET("/events", s.streamEvents)
	router.GET("/metrics", gin.WrapH(s.metrics.handler()))
	router.GET("/version", getVersion)

	return router
}

// Run serves the calculator on addr, a unix socket path or tcp://host:port,
// until SIGINT or SIGTERM. SIGHUP reloads the config.
func Run(configPath string, addr string, allowNonRoot bool) error {
	load := func() (config.Config, error) {
		conf, err := config.NewFile(configPath)
		if err != nil {
			return nil, err
		}
		return conf, nil
	}

	s, err := newServer(load, logrus.StandardLogger())
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(s.logrusFields()).Infof("config loaded")

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := s.reload()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(s.logrusFields()).Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	l, err := listen(addr, allowNonRoot)
	if err != nil {
		logrus.Fatal(err)
	}

	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("exiting")
	return nil
}
