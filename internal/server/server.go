package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-viewer/internal/api"
	"github.com/joeblew999/plat-viewer/internal/asset"
	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/config"
	"github.com/joeblew999/plat-viewer/internal/db"
	"github.com/joeblew999/plat-viewer/internal/engine"
	"github.com/joeblew999/plat-viewer/internal/factory"
	"github.com/joeblew999/plat-viewer/internal/permalink"
	"github.com/joeblew999/plat-viewer/internal/quake"
	"github.com/joeblew999/plat-viewer/internal/scene"
	"github.com/joeblew999/plat-viewer/internal/service"
)

// Config holds the server configuration.
type Config struct {
	Host     string
	Port     string
	Settings *config.Config // nil selects config.DefaultConfig
	Logger   *slog.Logger
}

// Server is the viewer HTTP server.
type Server struct {
	config   Config
	settings *config.Config
	logger   *slog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	scene    *scene.Memory
	engine   *engine.Engine
	services *api.Services
	quakes   quake.EventSource
}

// New assembles the viewer from its settings: the catalog, the asset and
// imagery resolvers, the optional seismic event source and the layer engine.
// The initial permalink is applied but no layer is activated until Start.
func New(cfg Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.DefaultConfig()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg, err := catalog.Load(settings.Catalog)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-viewer API", "1.0.0")
	humaConfig.Info.Description = "Layer state and permalink API of the 3D map viewer."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:   cfg,
		settings: settings,
		logger:   logger,
		mux:      mux,
		humaAPI:  humaAPI,
		scene:    scene.NewMemory(),
	}

	if settings.Quakes.CSV != "" {
		conn, err := db.Get(db.Config{DataDir: settings.DataDir, DBName: "viewer"})
		if err != nil {
			logger.Warn("seismic events disabled", "error", err)
		} else {
			s.quakes = &quake.DuckDBSource{DB: conn, Path: settings.Quakes.CSV}
		}
	}

	dir := asset.NewDir(settings.DataDir)
	resolver := asset.Chain{
		dir,
		asset.NewCached(asset.NewHTTP(settings.Assets.Endpoint, settings.Assets.Token),
			settings.Assets.CacheSize, settings.Assets.CacheTTL),
	}

	s.engine = engine.New(engine.Config{
		Registry: reg,
		Activator: &factory.Dispatcher{
			Scene:   s.scene,
			Assets:  resolver,
			Imagery: asset.NewWMTS(settings.Imagery.Template),
			Quakes:  s.quakes,
			Logger:  logger,
		},
		Scene:  s.scene,
		Store:  permalink.ParseQuery(settings.Permalink),
		Bus:    service.NewEventBus(),
		Logger: logger,
	})
	s.engine.Init(context.Background())

	s.services = &api.Services{Engine: s.engine, Assets: dir}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the OpenAPI description of the API.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Engine returns the layer engine.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// Start activates every visible layer. Activation failures are logged;
// the failed layers can be activated again later.
func (s *Server) Start(ctx context.Context) error {
	err := s.engine.ActivateVisible(ctx)
	if err != nil {
		s.logger.Warn("some layers failed to activate", "error", err)
	}
	return err
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.quakes == nil {
		return nil
	}
	return db.Close()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.settings.DataDir, s.settings.Catalog, s.quakes != nil).RegisterRoutes(s.humaAPI)
	api.NewQuakeHandler(s.quakes).RegisterRoutes(s.humaAPI)

	// Local assets, fetched directly by the 3D client
	s.mux.Handle("/assets/", http.StripPrefix("/assets/", s.handleAssets(s.services.Assets.Root())))

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service":   "plat-viewer",
		"status":    "running",
		"permalink": s.engine.Permalink(),
		"renders":   s.scene.RenderRequests(),
	})
}

func (s *Server) handleAssets(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(dir)).ServeHTTP(w, r)
	})
}
