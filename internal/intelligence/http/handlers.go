// Package http exposes the suggestion engine over REST.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chroniclekeep/chronicle-backend/internal/auth"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/query"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/repository"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/service"
)

// CampaignGuard answers ownership checks; users.Repo is the real implementation.
type CampaignGuard interface {
	OwnsCampaign(ctx context.Context, userID, campaignID string) (bool, error)
}

type Handler struct {
	repo       service.SuggestionStore
	lifecycle  *service.LifecycleService
	batch      *service.BatchService
	cooldowns  *service.CooldownService
	generation *service.GenerationService
	users      CampaignGuard
}

func NewHandler(repo service.SuggestionStore, lifecycle *service.LifecycleService, batch *service.BatchService,
	cooldowns *service.CooldownService, generation *service.GenerationService, userRepo CampaignGuard) *Handler {
	return &Handler{
		repo:       repo,
		lifecycle:  lifecycle,
		batch:      batch,
		cooldowns:  cooldowns,
		generation: generation,
		users:      userRepo,
	}
}

// ListSuggestions handles GET /campaigns/:id/suggestions.
func (h *Handler) ListSuggestions(c *gin.Context) {
	campaignID := c.Param("id")
	if !h.requireCampaign(c, campaignID) {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Group != "" && !query.ValidGroupMode(query.GroupMode(q.Group)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group mode"})
		return
	}

	suggestions, err := h.repo.ListByCampaign(c.Request.Context(), campaignID, repository.ListFilter{
		Status:      domain.Status(q.Status),
		CharacterID: q.CharacterID,
		SessionID:   q.SessionID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load suggestions"})
		return
	}

	f, err := q.filter()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time filter: " + err.Error()})
		return
	}
	suggestions = f.Apply(suggestions)

	counts, err := h.repo.CountsByStatus(c.Request.Context(), campaignID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count suggestions"})
		return
	}

	resp := listResponse{Counts: counts}
	mode := query.GroupMode(q.Group)
	if mode != "" && mode != query.GroupFlat {
		resp.Groups = query.GroupBy(mode, suggestions)
	} else {
		resp.Suggestions = suggestions
	}
	c.JSON(http.StatusOK, resp)
}

// ResolveSuggestion handles PATCH /suggestions/:id.
func (h *Handler) ResolveSuggestion(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action := domain.ResolveAction(req.Action)
	if action != domain.ActionApprove && action != domain.ActionReject {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be approve or reject"})
		return
	}

	id := c.Param("id")
	if !h.requireSuggestion(c, id) {
		return
	}

	res, err := h.lifecycle.Resolve(c.Request.Context(), id, action, req.FinalValue, req.RejectReason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"action":      res.Action,
		"message":     res.Message,
		"final_value": res.FinalValue,
	})
}

// UndoSuggestion handles POST /suggestions/:id/undo.
func (h *Handler) UndoSuggestion(c *gin.Context) {
	id := c.Param("id")
	if !h.requireSuggestion(c, id) {
		return
	}

	err := h.lifecycle.Undo(c.Request.Context(), id)
	var incomplete *domain.ReversalIncompleteError
	if errors.As(err, &incomplete) {
		// status is back to pending; report success with a cleanup warning
		c.JSON(http.StatusOK, gin.H{"success": true, "warning": incomplete.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "suggestion undone"})
}

// BatchResolve handles POST /suggestions/batch.
func (h *Handler) BatchResolve(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.SuggestionIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "suggestion_ids is empty"})
		return
	}
	action := domain.ResolveAction(req.Action)
	if action != domain.ActionApprove && action != domain.ActionReject {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be approve or reject"})
		return
	}

	res, err := h.batch.ApplyToSelection(c.Request.Context(), req.SuggestionIDs, action, req.RejectReason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteSuggestion handles DELETE /suggestions/:id.
func (h *Handler) DeleteSuggestion(c *gin.Context) {
	id := c.Param("id")
	if !h.requireSuggestion(c, id) {
		return
	}
	if err := h.lifecycle.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetCooldown handles GET /campaigns/:id/cooldown.
func (h *Handler) GetCooldown(c *gin.Context) {
	campaignID := c.Param("id")
	if !h.requireCampaign(c, campaignID) {
		return
	}

	kind := domain.CooldownCampaign
	entityID := campaignID
	if characterID := c.Query("character_id"); characterID != "" {
		kind = domain.CooldownCharacter
		entityID = characterID
	}

	status, err := h.cooldowns.Check(c.Request.Context(), auth.UserDBID(c), kind, entityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check cooldown"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Analyze handles POST /campaigns/:id/analyze.
func (h *Handler) Analyze(c *gin.Context) {
	campaignID := c.Param("id")
	if !h.requireCampaign(c, campaignID) {
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.generation.RequestGeneration(c.Request.Context(), auth.UserDBID(c), campaignID, req.CharacterID, req.FullAudit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// requireCampaign enforces campaign ownership. Not-owned and not-found are
// both reported as 404 so campaign ids cannot be probed.
func (h *Handler) requireCampaign(c *gin.Context, campaignID string) bool {
	owns, err := h.users.OwnsCampaign(c.Request.Context(), auth.UserDBID(c), campaignID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify campaign"})
		c.Abort()
		return false
	}
	if !owns {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		c.Abort()
		return false
	}
	return true
}

// requireSuggestion loads the suggestion and enforces ownership of its campaign.
func (h *Handler) requireSuggestion(c *gin.Context, id string) bool {
	sg, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		c.Abort()
		return false
	}
	return h.requireCampaign(c, sg.CampaignID)
}

// writeError maps domain errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	var (
		commitErr   *domain.CommitError
		cooldownErr *domain.CooldownError
	)
	switch {
	case errors.Is(err, domain.ErrSuggestionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUndoWindowExpired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "undo window expired",
			"message": "suggestions can only be undone within 24 hours of being created",
		})
	case errors.Is(err, domain.ErrInvalidRejectReason):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnknownSuggestionType):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &cooldownErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "generation on cooldown",
			"available_at": cooldownErr.AvailableAt,
			"remaining":    cooldownErr.Remaining.String(),
		})
	case errors.As(err, &commitErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": commitErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
