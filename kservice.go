package kservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vingarcia/kservice/kdb"
)

// App is the registry of services of an application, it exposes
// them in process, via the REST endpoints added with AddHTTPRest()
// and via websocket on Config.WebsocketPath.
type App struct {
	db     kdb.Provider
	config Config

	mux      *http.ServeMux
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	services map[string]*Service
	server   *http.Server
	listener net.Listener

	hub *hub
}

// Config describes the optional arguments accepted by New()
type Config struct {
	// Logger is called once for every service call, defaults to no logging
	Logger LoggerFn

	// WebsocketPath defaults to "/ws"
	WebsocketPath string

	// ReadHeaderTimeout defaults to 10s
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is the time App.Close() waits for
	// the pending requests to finish, defaults to 5s
	ShutdownTimeout time.Duration

	// RequestTimeout limits the duration of each call received
	// via REST or websocket, defaults to 30s
	RequestTimeout time.Duration

	// CheckOrigin is used on the websocket handshake,
	// if nil every origin is accepted
	CheckOrigin func(r *http.Request) bool

	// BaseContext, if set, derives the context of every call
	// received via REST or websocket, e.g. for injecting loggers
	BaseContext func(ctx context.Context) context.Context
}

// SetDefaultValues sets the default config values if unset.
func (c *Config) SetDefaultValues() {
	if c.WebsocketPath == "" {
		c.WebsocketPath = "/ws"
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(r *http.Request) bool { return true }
	}
}

// New instantiates a new App, db is used by the services
// created with App.CreateDatabaseService() and might be nil
// if the application has no database services.
func New(db kdb.Provider, config Config) *App {
	config.SetDefaultValues()

	app := &App{
		db:       db,
		config:   config,
		mux:      http.NewServeMux(),
		services: map[string]*Service{},
		upgrader: websocket.Upgrader{
			CheckOrigin: config.CheckOrigin,
		},
	}
	app.hub = newHub(app)

	app.mux.HandleFunc("GET "+config.WebsocketPath, app.serveWebsocket)

	return app
}

// CreateDatabaseService creates a service named after a model of
// the database with the methods: create, findMany, findFirst,
// findUnique, update, updateMany, delete, deleteMany and count.
//
// If a service with the same name already exists it is replaced.
func (a *App) CreateDatabaseService(modelName string) *Service {
	idColumn := "id"
	if a.db != nil {
		if model, err := a.db.Model(modelName); err == nil {
			if m, ok := model.(kdb.Model); ok {
				idColumn = m.Schema().IDColumn()
			}
		}
	}

	return a.addService(&Service{
		app:      a,
		name:     modelName,
		idColumn: idColumn,
		methods:  databaseMethods(a.getDB, modelName),
	})
}

// CreateService creates a service with custom methods,
// if a service with the same name already exists it is replaced.
func (a *App) CreateService(name string, methods Methods) *Service {
	copied := Methods{}
	for methodName, fn := range methods {
		copied[methodName] = fn
	}

	return a.addService(&Service{
		app:      a,
		name:     name,
		idColumn: "id",
		methods:  copied,
	})
}

func (a *App) addService(s *Service) *Service {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.services[s.name] = s
	return s
}

// Service returns the service registered with the informed name.
//
// It never returns nil: calling the methods of a service
// that doesn't exist fails with CodeMissingService.
func (a *App) Service(name string) *Service {
	if s, found := a.lookupService(name); found {
		return s
	}
	return &Service{app: a, name: name}
}

// HasService reports whether a service with the informed name exists
func (a *App) HasService(name string) bool {
	_, found := a.lookupService(name)
	return found
}

// Services returns the names of the registered services in alphabetical order
func (a *App) Services() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.services))
	for name := range a.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *App) lookupService(name string) (*Service, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, found := a.services[name]
	return s, found
}

func (a *App) getDB() (kdb.Provider, error) {
	if a.db == nil {
		return nil, fmt.Errorf("kservice: the app was created without a database")
	}
	return a.db, nil
}

// Handle registers an extra handler on the HTTP server of the app,
// the pattern follows the syntax of http.ServeMux.
func (a *App) Handle(pattern string, handler http.Handler) {
	a.mux.Handle(pattern, handler)
}

// Handler returns the http.Handler serving the REST
// endpoints and the websocket endpoint of the app.
func (a *App) Handler() http.Handler {
	return a.mux
}

// Listen starts the HTTP server on the informed port
// and returns as soon as the port is bound, the port 0
// picks a random free port, check it with App.Addr().
func (a *App) Listen(port int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return fmt.Errorf("kservice: the app is already listening on %s", a.listener.Addr())
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("kservice: unable to listen on port %d: %w", port, err)
	}

	server := &http.Server{
		Handler:           a.mux,
		ReadHeaderTimeout: a.config.ReadHeaderTimeout,
	}

	a.server = server
	a.listener = listener

	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log(context.Background(), LogValues{
				Transport: TransportREST,
				Err:       fmt.Errorf("kservice: http server stopped unexpectedly: %w", err),
			})
		}
	}()

	return nil
}

// Addr returns the address the app is listening on,
// or an empty string if App.Listen() was not called.
func (a *App) Addr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Close disconnects all the websocket clients and stops
// the HTTP server releasing its port, after that App.Listen()
// can be called again.
//
// New websocket connections are refused until the server has
// stopped so handshakes racing with Close are not left open.
func (a *App) Close() error {
	a.hub.closeAll()
	defer a.hub.reopen()

	a.mu.Lock()
	server := a.server
	a.server = nil
	a.listener = nil
	a.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("kservice: error closing the http server: %w", err)
	}
	return nil
}

func (a *App) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.BaseContext != nil {
		ctx = a.config.BaseContext(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
