package api

import (
	"bytes"
	"fmt"
	"net/http"
	"text/template"

	"github.com/civicmatch/civic-match/internal/apperr"
	"github.com/gin-gonic/gin"
)

const (
	defaultLogoSize = 64
	minLogoSize     = 16
	maxLogoSize     = 512
)

type logoPalette struct {
	Background string
	Foreground string
	Accent     string
}

var logoPalettes = map[string]logoPalette{
	"light": {Background: "#ffffff", Foreground: "#1d3557", Accent: "#e63946"},
	"dark":  {Background: "#1d3557", Foreground: "#f1faee", Accent: "#e63946"},
}

var logoTemplate = template.Must(template.New("logo").Parse(
	`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Size}}" height="{{.Size}}" viewBox="0 0 64 64" role="img" aria-label="Civic Match">` +
		`<rect width="64" height="64" rx="14" fill="{{.Background}}"/>` +
		`<circle cx="24" cy="28" r="10" fill="none" stroke="{{.Foreground}}" stroke-width="5"/>` +
		`<circle cx="40" cy="28" r="10" fill="none" stroke="{{.Accent}}" stroke-width="5"/>` +
		`<path d="M16 48h32" stroke="{{.Foreground}}" stroke-width="5" stroke-linecap="round"/>` +
		`</svg>`))

// RenderLogo returns the logo as SVG.
func RenderLogo(variant string, size int) ([]byte, error) {
	palette, ok := logoPalettes[variant]
	if !ok {
		return nil, apperr.NewValidation("variant", "must be light or dark")
	}
	if size < minLogoSize || size > maxLogoSize {
		return nil, apperr.NewValidation("size", fmt.Sprintf("must be an integer between %d and %d", minLogoSize, maxLogoSize))
	}

	var buf bytes.Buffer
	data := map[string]interface{}{
		"Background": palette.Background,
		"Foreground": palette.Foreground,
		"Accent":     palette.Accent,
		"Size":       size,
	}
	if err := logoTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GetLogo handles GET /api/logo
func (h *Handler) GetLogo(c *gin.Context) {
	variant := c.DefaultQuery("variant", "light")
	size, err := parseIntRange(c, "size", defaultLogoSize, minLogoSize, maxLogoSize)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	svg, err := RenderLogo(variant, size)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/svg+xml", svg)
}
