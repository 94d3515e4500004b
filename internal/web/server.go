// Package web serves the dashboard, configuration and log pages and streams
// dashboard updates to the browser.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/config"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/controller"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/view"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Backend is what the configuration and log pages need from the API client.
type Backend interface {
	controller.ConfigBackend
	controller.LogsBackend
}

type Server struct {
	config    *config.Config
	dashboard *controller.Dashboard
	backend   Backend
	hub       *Hub
	logger    *logrus.Logger
	location  *time.Location
	pages     map[string]*template.Template
	router    *mux.Router
	server    *http.Server
}

type pageData struct {
	Title          string
	Active         string
	Regions        map[string]template.HTML
	RefreshSeconds int
	ShowDaily      bool
	RedirectMeta   string
}

func NewServer(cfg *config.Config, dashboard *controller.Dashboard, backend Backend, logger *logrus.Logger) (*Server, error) {
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    cfg,
		dashboard: dashboard,
		backend:   backend,
		hub:       NewHub(dashboard.Document(), logger),
		logger:    logger,
		location:  location,
		pages:     pages,
	}
	s.router = s.routes()

	return s, nil
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"dashboard", "config", "logs"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s page: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	static, _ := fs.Sub(staticFS, "static")
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static)))).Methods("GET")

	router.HandleFunc("/", s.handleDashboard).Methods("GET")
	router.HandleFunc("/refresh", s.handleRefresh).Methods("POST")
	router.HandleFunc("/ws", s.hub.ServeWS).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.Server.CORSOrigins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Content-Type"},
	})
	router.Handle("/api/view", c.Handler(http.HandlerFunc(s.handleViewSnapshot))).Methods("GET", "OPTIONS")

	router.HandleFunc("/config", s.handleConfigPage).Methods("GET")
	router.HandleFunc("/config", s.handleConfigSubmit).Methods("POST")
	router.HandleFunc("/logs", s.handleLogsPage).Methods("GET")
	router.HandleFunc("/logs/clear", s.handleLogsClear).Methods("POST")

	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.hub.Start()
	s.logger.Infof("Starting dashboard web server on %s", s.config.Addr())

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down web server...")
		s.Stop()
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func (s *Server) Stop() {
	if s.server != nil {
		s.logger.Info("Stopping web server")
		s.server.Close()
	}
	s.hub.Stop()
}

func (s *Server) render(w http.ResponseWriter, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Errorf("Failed to render %s page: %v", page, err)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, "dashboard", pageData{
		Title:          "HAminiEMS Dashboard",
		Active:         "dashboard",
		Regions:        s.dashboard.Document().Snapshot(),
		RefreshSeconds: s.config.Dashboard.RefreshInterval,
		ShowDaily:      s.config.Dashboard.ShowDaily,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	done := s.dashboard.TriggerRefresh()

	timer := time.NewTimer(s.config.RequestTimeout())
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.logger.Warn("Manual refresh still running, redirecting anyway")
	case <-r.Context().Done():
		return
	}

	http.Redirect(w, r, controller.HomePath, http.StatusSeeOther)
}

type viewSnapshot struct {
	Regions     map[string]template.HTML    `json:"regions"`
	States      map[string]controller.State `json:"states"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

func (s *Server) handleViewSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(viewSnapshot{
		Regions:     s.dashboard.Document().Snapshot(),
		States:      s.dashboard.States(),
		GeneratedAt: time.Now(),
	})
}

func (s *Server) newConfigPage(doc *view.Document) *controller.ConfigPage {
	return controller.NewConfigPage(s.backend, doc, controller.ConfigOptions{
		RedirectDelay:  s.config.RedirectDelay(),
		BannerDuration: s.config.BannerDuration(),
	}, s.logger)
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.config.RequestTimeout())
}

func (s *Server) handleConfigPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	doc := view.NewDocument()
	page := s.newConfigPage(doc)
	defer page.Dispose()

	page.Init(ctx)

	s.render(w, "config", pageData{
		Title:   "Konfiguration",
		Active:  "config",
		Regions: doc.Snapshot(),
	})
}

func (s *Server) handleConfigSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	doc := view.NewDocument()
	page := s.newConfigPage(doc)
	defer page.Dispose()

	if r.PostForm.Get("action") == "cancel" {
		http.Redirect(w, r, page.Cancel(), http.StatusSeeOther)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := page.Init(ctx); err != nil {
		s.logger.Warnf("Saving configuration without fresh bundle: %v", err)
	}

	data := pageData{Title: "Konfiguration", Active: "config"}

	result, err := page.Submit(ctx, r.PostForm)
	if err == nil && result.Saved {
		data.RedirectMeta = fmt.Sprintf("%g;url=%s", result.RedirectAfter.Seconds(), result.RedirectTo)
	}

	data.Regions = doc.Snapshot()
	s.render(w, "config", data)
}

func (s *Server) handleLogsPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	doc := view.NewDocument()
	page := controller.NewLogsPage(s.backend, doc, s.location, s.logger)
	page.Load(ctx)

	s.render(w, "logs", pageData{
		Title:   "Logs",
		Active:  "logs",
		Regions: doc.Snapshot(),
	})
}

func (s *Server) handleLogsClear(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	doc := view.NewDocument()
	page := controller.NewLogsPage(s.backend, doc, s.location, s.logger)

	if err := page.Clear(ctx, r.PostForm.Get("confirm") == "yes"); err != nil {
		if !errors.Is(err, controller.ErrNotConfirmed) {
			s.logger.Warnf("Clearing logs failed: %v", err)
		}
		page.Load(ctx)
	}

	s.render(w, "logs", pageData{
		Title:   "Logs",
		Active:  "logs",
		Regions: doc.Snapshot(),
	})
}
