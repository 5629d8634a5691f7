package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/IshaanNene/compscout/internal/ai"
	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/dashboard"
	"github.com/IshaanNene/compscout/internal/discovery"
	"github.com/IshaanNene/compscout/internal/storage"
	"github.com/IshaanNene/compscout/internal/types"
)

type scrapeRequest struct {
	ID          string `json:"id" binding:"required"`
	Domain      string `json:"domain"`
	GeoLocation string `json:"geo_location"`
}

type discoverRequest struct {
	Domain      string `json:"domain"`
	GeoLocation string `json:"geo_location"`
	Pages       int    `json:"pages" binding:"gte=0"`
	Limit       int    `json:"limit" binding:"gte=0"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "compscout",
		"version": config.Version,
		"store":   s.svc.Store().Name(),
	})
}

func (s *Server) handleDashboard(c *gin.Context) {
	products, err := s.svc.Products(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	page := dashboard.Paginate(len(products), queryInt(c, "page", 1), s.perPage())

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.renderer.RenderList(c.Writer, dashboard.ListView{
		Products: dashboard.Window(products, page),
		Page:     page,
	}); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) handleProductPage(c *gin.Context) {
	ctx := c.Request.Context()
	product, err := s.svc.Product(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	competitors, err := s.svc.CachedCompetitors(ctx, product.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.renderer.RenderProduct(c.Writer, dashboard.ProductView{
		Product:     product,
		Competitors: competitors,
		Summary:     dashboard.Summarize(competitors),
		AIEnabled:   s.analyzer != nil,
	}); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.svc.Products(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	page := dashboard.Paginate(len(products), queryInt(c, "page", 1), queryInt(c, "per_page", s.perPage()))
	items := dashboard.Window(products, page)
	if items == nil {
		items = []*types.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": items, "page": page})
}

func (s *Server) handleScrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	product, err := s.svc.ScrapeProduct(c.Request.Context(), req.ID, req.Domain, req.GeoLocation)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) handleGetProduct(c *gin.Context) {
	product, err := s.svc.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if err := s.svc.DeleteProduct(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) handleClearAll(c *gin.Context) {
	if err := s.svc.ClearAll(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) handleListCompetitors(c *gin.Context) {
	ctx := c.Request.Context()
	product, err := s.svc.Product(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	competitors, err := s.svc.CachedCompetitors(ctx, product.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":     product,
		"competitors": competitors,
		"summary":     dashboard.Summarize(competitors),
	})
}

func (s *Server) handleDiscover(c *gin.Context) {
	var req discoverRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
	}

	result, err := s.svc.DiscoverCompetitors(c.Request.Context(), discovery.DiscoverRequest{
		ParentID:    c.Param("id"),
		Domain:      req.Domain,
		GeoLocation: req.GeoLocation,
		Pages:       req.Pages,
		Limit:       req.Limit,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result":  result,
		"summary": dashboard.Summarize(result.Competitors),
	})
}

func (s *Server) handleClearCompetitors(c *gin.Context) {
	n, err := s.svc.ClearCompetitors(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) handleExport(c *gin.Context) {
	id := c.Param("id")
	format := strings.ToLower(c.DefaultQuery("format", storage.FormatCSV))

	competitors, err := s.svc.CachedCompetitors(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := storage.Export(&buf, format, competitors); err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="competitors_%s.%s"`, id, format))
	c.Data(http.StatusOK, storage.ContentType(format), buf.Bytes())
}

func (s *Server) handleAnalyze(c *gin.Context) {
	if s.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis is not configured"})
		return
	}
	analysis, err := s.analyzer.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis, "text": analysis.Render()})
}

// respondError maps domain errors onto HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var rlErr *ai.RateLimitError
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrTransport):
		return http.StatusBadGateway
	case errors.As(err, &rlErr):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) perPage() int {
	if s.cfg.Server.PerPage > 0 {
		return s.cfg.Server.PerPage
	}
	return dashboard.DefaultPerPage
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
