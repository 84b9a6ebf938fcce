package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"groundmatch/server/config"
	"groundmatch/server/internal/apperrors"
	"groundmatch/server/internal/database"
	"groundmatch/server/internal/lifecycle"
	"groundmatch/server/internal/matching"
	"groundmatch/server/internal/models"
	"groundmatch/server/internal/staging"
)

// Enqueuer schedules a background regeneration for a company.
type Enqueuer interface {
	Enqueue(companyID uint) error
}

type Handler struct {
	db       *database.Database
	manager  *lifecycle.Manager
	sessions staging.Store
	regen    Enqueuer
	logger   *logrus.Logger
}

type ScoreRequest struct {
	Plot        matching.PlotInput `json:"plot"`
	Preferences models.Preferences `json:"preferences"`
}

type ScoreResponse struct {
	models.Scores
	Aggregate float64 `json:"aggregate_score"`
}

type GenerateRequest struct {
	SessionID string `json:"session_id"`
}

type ApproveRequest struct {
	MatchIDs  []uint        `json:"match_ids"`
	SessionID string        `json:"session_id"`
	Pairs     []models.Pair `json:"pairs"`
}

type CandidateResponse struct {
	ClientID  uint          `json:"client_id"`
	GroundID  uint          `json:"ground_id"`
	MatchID   uint          `json:"match_id,omitempty"`
	Scores    models.Scores `json:"scores"`
	Aggregate float64       `json:"aggregate_score"`
}

type MatchResponse struct {
	models.Match
	Aggregate float64 `json:"aggregate_score"`
}

// NewHandler wires the HTTP handlers. regen may be nil when background
// regeneration is off.
func NewHandler(db *database.Database, manager *lifecycle.Manager, sessions staging.Store, regen Enqueuer, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:       db,
		manager:  manager,
		sessions: sessions,
		regen:    regen,
		logger:   logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.db.GetDB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "persistence": h.manager.Persistence()})
}

func (h *Handler) ScorePlot(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	plot, err := matching.ParsePlot(req.Plot)
	if err != nil {
		h.respondError(c, err, "Failed to score plot")
		return
	}
	if err := matching.ValidatePreferences(req.Preferences); err != nil {
		h.respondError(c, err, "Failed to score plot")
		return
	}

	scores := matching.Score(plot, req.Preferences)
	c.JSON(http.StatusOK, ScoreResponse{Scores: scores, Aggregate: scores.Aggregate()})
}

func (h *Handler) CreateGround(c *gin.Context) {
	var input matching.PlotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ground, err := matching.ParsePlot(input)
	if err != nil {
		h.respondError(c, err, "Failed to create ground")
		return
	}
	if err := h.db.CreateGround(c.Request.Context(), &ground); err != nil {
		h.respondError(c, err, "Failed to create ground")
		return
	}

	h.enqueueAll(c)
	c.JSON(http.StatusCreated, ground)
}

func (h *Handler) SetPreferences(c *gin.Context) {
	clientID, ok := parseID(c)
	if !ok {
		return
	}

	var prefs models.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := matching.ValidatePreferences(prefs); err != nil {
		h.respondError(c, err, "Failed to save preferences")
		return
	}

	client, err := h.db.GetClient(c.Request.Context(), clientID)
	if err != nil {
		h.respondError(c, err, "Failed to save preferences")
		return
	}
	if client == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}
	if client.CompanyID != companyID(c) {
		h.logger.WithFields(logrus.Fields{
			"company_id": companyID(c),
			"client_id":  clientID,
		}).Warn("Access denied")
		h.respondError(c, apperrors.ErrAccessDenied, "Failed to save preferences")
		return
	}

	prefs.ID = 0
	prefs.ClientID = clientID
	if code, ok := normalizedType(prefs.SubdivisionType); ok {
		prefs.SubdivisionType = &code
	}
	if err := h.db.SetPreferences(c.Request.Context(), &prefs); err != nil {
		h.respondError(c, err, "Failed to save preferences")
		return
	}

	h.enqueue(companyID(c))
	c.JSON(http.StatusOK, prefs)
}

func (h *Handler) ListMatches(c *gin.Context) {
	status := models.MatchStatus(c.Query("status"))
	switch status {
	case "", models.MatchStatusPending, models.MatchStatusApproved:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending or approved"})
		return
	}

	matches, err := h.db.ListMatches(c.Request.Context(), companyID(c), status)
	if err != nil {
		h.respondError(c, err, "Failed to get matches")
		return
	}

	resp := make([]MatchResponse, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, MatchResponse{Match: m, Aggregate: m.Scores.Aggregate()})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GenerateMatches(c *gin.Context) {
	var req GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	ctx := c.Request.Context()
	company := companyID(c)

	var session *staging.Session
	if h.manager.Persistence() == config.PersistenceStaged {
		if req.SessionID != "" {
			loaded, err := h.sessions.Load(ctx, req.SessionID)
			if err != nil {
				h.respondError(c, err, "Failed to generate matches")
				return
			}
			session = loaded
		} else {
			session = staging.NewSession(company)
		}
	}

	candidates, err := h.manager.Generate(ctx, company, session)
	if err != nil {
		h.respondError(c, err, "Failed to generate matches")
		return
	}

	resp := gin.H{
		"persistence": h.manager.Persistence(),
		"candidates":  candidateResponses(candidates),
	}
	if session != nil {
		resp["session_id"] = session.ID
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ApproveMatches(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	company := companyID(c)

	var (
		approved int
		err      error
	)
	switch {
	case req.SessionID != "":
		var session *staging.Session
		session, err = h.sessions.Load(ctx, req.SessionID)
		if err == nil {
			approved, err = h.manager.ApproveStaged(ctx, company, session, req.Pairs)
		}
	case len(req.MatchIDs) > 0:
		approved, err = h.manager.Approve(ctx, company, req.MatchIDs)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide match_ids or session_id"})
		return
	}
	if err != nil {
		h.respondError(c, err, "Failed to approve matches")
		return
	}

	c.JSON(http.StatusOK, gin.H{"approved": approved})
}

func (h *Handler) DeleteMatch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.manager.Delete(c.Request.Context(), companyID(c), id); err != nil {
		h.respondError(c, err, "Failed to delete match")
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError maps domain errors to status codes; anything unexpected is
// logged and reported as a 500 with the given message.
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, apperrors.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrSessionClosed), errors.Is(err, apperrors.ErrSessionRequired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("company_id", companyID(c)).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func (h *Handler) enqueue(company uint) {
	if h.regen == nil || h.manager.Persistence() != config.PersistenceImmediate {
		return
	}
	if err := h.regen.Enqueue(company); err != nil {
		h.logger.WithError(err).WithField("company_id", company).Warn("Failed to queue regeneration")
	}
}

func (h *Handler) enqueueAll(c *gin.Context) {
	if h.regen == nil || h.manager.Persistence() != config.PersistenceImmediate {
		return
	}
	ids, err := h.db.CompanyIDs(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Failed to list companies for regeneration")
		return
	}
	for _, id := range ids {
		h.enqueue(id)
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

func normalizedType(t *models.SubdivisionType) (models.SubdivisionType, bool) {
	if t == nil {
		return "", false
	}
	return matching.NormalizeSubdivision(string(*t))
}

func candidateResponses(candidates []models.Candidate) []CandidateResponse {
	resp := make([]CandidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		resp = append(resp, CandidateResponse{
			ClientID:  cand.ClientID,
			GroundID:  cand.GroundID,
			MatchID:   cand.MatchID,
			Scores:    cand.Scores,
			Aggregate: cand.Scores.Aggregate(),
		})
	}
	return resp
}
