package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/birads-report-server/internal/casebase"
	"github.com/birads-report-server/internal/domain"
	"github.com/birads-report-server/internal/evaluation"
	"github.com/birads-report-server/internal/middleware"
	"github.com/birads-report-server/internal/service"
)

type analyzeRequest struct {
	ReportText string `json:"report_text" binding:"required"`
}

type similarRequest struct {
	ReportText string `json:"report_text" binding:"required"`
	TopN       int    `json:"top_n"`
}

type evaluateRequest struct {
	Reports []evaluation.LabeledReport `json:"reports" binding:"required"`
}

// respondError writes the uniform error payload.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error":      message,
		"code":       code,
		"request_id": c.GetString(middleware.RequestIDKey),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	components := gin.H{}
	healthy := true

	ctx, cancel := contextWithDeadline(c, 2*time.Second)
	defer cancel()

	if _, err := s.deps.CaseStore.Count(ctx); err != nil {
		components["case_base"] = "unavailable: " + err.Error()
		healthy = false
	} else {
		components["case_base"] = "ok"
	}

	switch {
	case s.deps.ArchiveHealth == nil:
		components["archive"] = "disabled"
	default:
		if err := s.deps.ArchiveHealth.Health(ctx); err != nil {
			components["archive"] = "unavailable: " + err.Error()
			healthy = false
		} else {
			components["archive"] = "ok"
		}
	}

	components["encoder"] = s.deps.EncoderName

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":     state,
		"components": components,
		"timestamp":  time.Now().UTC(),
	})
}

func (s *Server) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "report_text is required")
		return
	}

	key := reportHash(req.ReportText)
	if cached, ok := s.resultCache.Get(key); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	result, err := s.deps.Analyzer.Process(req.ReportText)
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, err.Error())
		return
	}

	s.resultCache.Add(key, result)
	s.archiveResult(c, key, result)

	c.JSON(http.StatusOK, result)
}

// archiveResult records a completed analysis. Archive failures are logged,
// never surfaced to the caller.
func (s *Server) archiveResult(c *gin.Context, hash string, result *domain.AnalysisResult) {
	if s.deps.Archive == nil {
		return
	}

	entities, err := json.Marshal(result.Entities)
	if err != nil {
		s.deps.Logger.WithError(err).Warn("Failed to encode entities for archive")
		return
	}
	recommendations, err := json.Marshal(result.Recommendations)
	if err != nil {
		s.deps.Logger.WithError(err).Warn("Failed to encode recommendations for archive")
		return
	}

	record := &domain.AnalysisRecord{
		ReportHash:           hash,
		BiradsClassification: result.Entities.BiradsClassification,
		FindingsCount:        len(result.Entities.Findings),
		Entities:             entities,
		Recommendations:      recommendations,
		Source:               domain.SourceAPI,
	}

	if err := s.deps.Archive.Create(c.Request.Context(), record); err != nil {
		s.deps.Logger.WithError(err).Warn("Failed to archive analysis")
	}
}

func (s *Server) handleListGuidelines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"guidelines": s.deps.Knowledge.All()})
}

func (s *Server) handleGetGuideline(c *gin.Context) {
	code := domain.ClassificationCode(c.Param("code"))
	guideline, ok := s.deps.Knowledge.Lookup(code)
	if !ok {
		respondError(c, http.StatusNotFound, domain.ErrNotFound, "unknown classification code")
		return
	}
	c.JSON(http.StatusOK, guideline)
}

func (s *Server) handleSimilar(c *gin.Context) {
	var req similarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "report_text is required")
		return
	}
	if s.deps.Matcher == nil {
		respondError(c, http.StatusServiceUnavailable, domain.ErrInternalServer, "similarity search is not configured")
		return
	}

	result, err := s.deps.Analyzer.Process(req.ReportText)
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, err.Error())
		return
	}

	matches, err := s.deps.Matcher.FindSimilar(c.Request.Context(), result.Entities, req.TopN)
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, err.Error())
		return
	}
	if matches == nil {
		matches = []service.SimilarCase{}
	}

	c.JSON(http.StatusOK, gin.H{
		"entities": result.Entities,
		"matches":  matches,
	})
}

func (s *Server) handleListCases(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	cases, err := s.deps.CaseStore.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	if cases == nil {
		cases = []*casebase.CaseRecord{}
	}

	count, err := s.deps.CaseStore.Count(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cases": cases,
		"total": count,
	})
}

func (s *Server) handleSaveCase(c *gin.Context) {
	var record casebase.CaseRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid case payload")
		return
	}
	if record.ID == "" {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, "case id is required")
		return
	}

	if err := s.deps.CaseStore.Save(c.Request.Context(), &record); err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (s *Server) handleGetCase(c *gin.Context) {
	record, err := s.deps.CaseStore.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	if record == nil {
		respondError(c, http.StatusNotFound, domain.ErrNotFound, "case not found")
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleDeleteCase(c *gin.Context) {
	if err := s.deps.CaseStore.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportCases(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="cases.json"`)
	if err := s.deps.CaseStore.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.deps.Logger.WithError(err).Error("Case export failed")
	}
}

func (s *Server) handleImportCases(c *gin.Context) {
	imported, skipped, err := s.deps.CaseStore.ImportJSON(c.Request.Context(), c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
	})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "reports list is required")
		return
	}

	report, err := evaluation.EvaluateSystem(s.deps.Analyzer, req.Reports)
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	if s.deps.Archive == nil {
		respondError(c, http.StatusServiceUnavailable, domain.ErrInternalServer, "analysis archive is disabled")
		return
	}

	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	records, err := s.deps.Archive.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	if records == nil {
		records = []*domain.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	if s.deps.Archive == nil {
		respondError(c, http.StatusServiceUnavailable, domain.ErrInternalServer, "analysis archive is disabled")
		return
	}

	record, err := s.deps.Archive.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			respondError(c, http.StatusNotFound, domain.ErrNotFound, notFound.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleStats(c *gin.Context) {
	stats := gin.H{
		"analyzer": s.deps.Analyzer.Stats(),
		"result_cache": gin.H{
			"entries": s.resultCache.Len(),
		},
	}
	if s.deps.Matcher != nil {
		stats["matcher"] = s.deps.Matcher.Stats()
	}
	c.JSON(http.StatusOK, stats)
}

func reportHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func contextWithDeadline(c *gin.Context, d time.Duration) (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}
