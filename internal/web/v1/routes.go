package v1

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadTemplates parses the embedded page templates
func LoadTemplates() (*template.Template, error) {
	tmpl, err := template.New("pages").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// RegisterRoutes wires the HTML pages and the JSON API. mountLimit guards
// every route that starts an upstream fetch; GET routes never start one.
func RegisterRoutes(r *gin.Engine, h *ViewHandler, mountLimit gin.HandlerFunc) {
	r.GET("/", h.LandingPage)
	r.POST("/views", mountLimit, h.MountPage)
	r.GET("/views/:id", h.ShowPage)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/views", mountLimit, h.MountView)
		apiV1.GET("/views/:id", h.GetView)
		apiV1.DELETE("/views/:id", h.DeleteView)
	}
}
