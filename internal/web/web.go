// Package web serves the UI shell: the layout and home page, the offline
// fallback, the profile redirect, the web app manifest and icons.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/civicmatch/civic-match/internal/api"
	authmw "github.com/civicmatch/civic-match/internal/auth/middleware"
	"github.com/civicmatch/civic-match/internal/auth/providers"
	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/logger"
	"go.uber.org/zap"
)

//go:embed templates/*.html assets/*
var content embed.FS

const (
	themeColor      = "#1d3557"
	backgroundColor = "#f1faee"
	iconSize        = 512
)

var pages = []string{"home", "offline", "notfound"}

// Shell renders the UI shell pages.
type Shell struct {
	appName   string
	provider  providers.Provider
	templates map[string]*template.Template
	icon      []byte
	favicon   []byte
	manifest  []byte
}

type pageData struct {
	AppName    string
	Title      string
	ThemeColor string
	Path       string
}

// NewShell parses the embedded templates and renders the static assets.
func NewShell(server *config.ServerConfig, provider providers.Provider) (*Shell, error) {
	s := &Shell{
		appName:   server.Name,
		provider:  provider,
		templates: make(map[string]*template.Template, len(pages)),
	}
	if s.appName == "" {
		s.appName = "Civic Match"
	}

	funcs := template.FuncMap{"logo": logoWidget}
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(content,
			"templates/layout.html",
			"templates/widgets.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		s.templates[page] = tmpl
	}

	var err error
	if s.icon, err = api.RenderLogo("dark", iconSize); err != nil {
		return nil, fmt.Errorf("failed to render icon: %w", err)
	}
	if s.favicon, err = content.ReadFile("assets/favicon.ico"); err != nil {
		return nil, fmt.Errorf("failed to read favicon: %w", err)
	}
	if s.manifest, err = json.Marshal(s.webManifest()); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return s, nil
}

// logoWidget inlines the logo SVG into a page.
func logoWidget(variant string, size int) (template.HTML, error) {
	svg, err := api.RenderLogo(variant, size)
	if err != nil {
		return "", err
	}
	return template.HTML(svg), nil
}

type manifestIcon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes"`
	Type    string `json:"type"`
	Purpose string `json:"purpose,omitempty"`
}

type webManifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	StartURL        string         `json:"start_url"`
	Scope           string         `json:"scope"`
	Display         string         `json:"display"`
	ThemeColor      string         `json:"theme_color"`
	BackgroundColor string         `json:"background_color"`
	Icons           []manifestIcon `json:"icons"`
}

func (s *Shell) webManifest() webManifest {
	return webManifest{
		Name:            s.appName,
		ShortName:       s.appName,
		StartURL:        "/",
		Scope:           "/",
		Display:         "standalone",
		ThemeColor:      themeColor,
		BackgroundColor: backgroundColor,
		Icons: []manifestIcon{
			{Src: "/icon.svg", Sizes: "any", Type: "image/svg+xml", Purpose: "any maskable"},
			{Src: "/favicon.ico", Sizes: "16x16", Type: "image/x-icon"},
		},
	}
}

// Handler returns the UI shell routes.
func (s *Shell) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.page("home", "", http.StatusOK))
	mux.HandleFunc("GET /offline", s.page("offline", "Offline", http.StatusOK))
	mux.Handle("GET /profile", authmw.OptionalAuthenticate(s.provider)(http.HandlerFunc(s.profile)))
	mux.HandleFunc("GET /manifest.webmanifest", s.asset("application/manifest+json", "no-cache", s.manifest))
	mux.HandleFunc("GET /icon.svg", s.asset("image/svg+xml", "public, max-age=86400", s.icon))
	mux.HandleFunc("GET /favicon.ico", s.asset("image/x-icon", "public, max-age=86400", s.favicon))
	mux.HandleFunc("/", s.page("notfound", "Not found", http.StatusNotFound))
	return mux
}

func (s *Shell) page(name, title string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageData{
			AppName:    s.appName,
			Title:      title,
			ThemeColor: themeColor,
			Path:       r.URL.Path,
		}
		var buf bytes.Buffer
		if err := s.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
			logger.FromContext(r.Context()).Error("Failed to render page", zap.String("page", name), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write(buf.Bytes())
	}
}

func (s *Shell) asset(contentType, cacheControl string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", cacheControl)
		_, _ = w.Write(body)
	}
}

// profile sends signed-in users to their founder page and everyone else to
// the login page.
func (s *Shell) profile(w http.ResponseWriter, r *http.Request) {
	target := "/login?next=/profile"

	if info := authmw.FromContext(r.Context()); info != nil && info.UserID != "" {
		target = "/founders/" + url.PathEscape(info.UserID)
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}
