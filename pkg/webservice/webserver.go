// Package webservice exposes the validation pipeline to the host
// certificate authority over a small REST boundary.
package webservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/virot/tamemycerts/pkg/config"
	"github.com/virot/tamemycerts/pkg/logging"
	"github.com/virot/tamemycerts/pkg/validator"
	"github.com/virot/tamemycerts/pkg/webservice/response"
)

const (
	HTTP_SERVER_READ_TIMEOUT  = 5 * time.Second
	HTTP_SERVER_WRITE_TIMEOUT = 30 * time.Second
	HTTP_SERVER_IDLE_TIMEOUT  = 120 * time.Second
)

var ErrBindPort = errors.New("webserver: unable to bind to web service port")

// Config is the web service configuration block.
type Config struct {
	Port int `yaml:"port" json:"port" mapstructure:"port"`
}

// WebServer serves the validation REST API. Policy documents are loaded
// once at startup and shared read-only across requests.
type WebServer struct {
	logger     *logging.Logger
	config     Config
	baseURI    string
	router     *mux.Router
	httpServer *http.Server
	pipeline   *validator.Pipeline
	documents  map[string]*config.PolicyDocument
	closeChan  chan bool
}

func NewWebServer(
	logger *logging.Logger,
	cfg Config,
	pipeline *validator.Pipeline,
	documents map[string]*config.PolicyDocument) *WebServer {

	server := &WebServer{
		logger:    logger,
		config:    cfg,
		baseURI:   "/api/v1",
		router:    mux.NewRouter().StrictSlash(true),
		pipeline:  pipeline,
		documents: documents,
		closeChan: make(chan bool, 1)}

	server.httpServer = &http.Server{
		ReadTimeout:  HTTP_SERVER_READ_TIMEOUT,
		WriteTimeout: HTTP_SERVER_WRITE_TIMEOUT,
		IdleTimeout:  HTTP_SERVER_IDLE_TIMEOUT,
		Handler:      server.router}

	server.buildRoutes()

	return server
}

func (server *WebServer) Run() error {

	sWebPort := fmt.Sprintf(":%d", server.config.Port)
	server.logger.Infof("webserver: starting web services on port %s", sWebPort)

	ipv4Listener, err := net.Listen("tcp4", sWebPort)
	if err != nil {
		server.logger.Error(ErrBindPort)
		return err
	}

	go func() {
		if err := server.httpServer.Serve(ipv4Listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			server.logger.Errorf("webserver: unable to start web services: %s", err.Error())
		}
	}()

	<-server.closeChan
	return nil
}

func (server *WebServer) Shutdown() {
	server.logger.Info("webserver: shutting down")
	server.closeChan <- true
	close(server.closeChan)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	server.httpServer.Shutdown(ctx)
	cancel()
}

// Router exposes the route table for tests.
func (server *WebServer) Router() *mux.Router {
	return server.router
}

// buildRoutes registers the route table exactly once, from the
// constructor.
func (server *WebServer) buildRoutes() {
	httpWriter := response.NewResponseWriter(server.logger)

	server.router.HandleFunc(
		fmt.Sprintf("%s/validate", server.baseURI),
		server.validateHandler(httpWriter)).Methods(http.MethodPost)

	server.router.HandleFunc(
		fmt.Sprintf("%s/status", server.baseURI),
		server.statusHandler(httpWriter)).Methods(http.MethodGet)

	server.router.Handle(
		fmt.Sprintf("%s/metrics", server.baseURI),
		promhttp.Handler()).Methods(http.MethodGet)
}

func (server *WebServer) statusHandler(httpWriter response.HttpWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates := make([]string, 0, len(server.documents))
		for name := range server.documents {
			templates = append(templates, name)
		}
		httpWriter.Success200(w, r, map[string]interface{}{
			"templates": templates,
		})
	}
}
