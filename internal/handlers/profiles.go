package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paragoniusz-backend/internal/models"
)

// ProfileStore reads and updates user profiles.
type ProfileStore interface {
	GetProfile(userID uuid.UUID) (*models.Profile, error)
	UpdateConsent(userID uuid.UUID, consent bool) (*models.Profile, error)
}

type ProfileHandler struct {
	store ProfileStore
}

func NewProfileHandler(store ProfileStore) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// Me godoc
// @Summary     Get the authenticated user's profile
// @Tags        profiles
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.ProfileResponse
// @Failure     401 {object} receipt.ErrorBody
// @Router      /profiles/me [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	profile, err := h.store.GetProfile(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse(profile))
}

// UpdateConsent godoc
// @Summary     Set AI processing consent
// @Description Records whether the user allows their receipt photos to be
// @Description sent to the AI extraction service. Consent is asked once and
// @Description persisted.
// @Tags        profiles
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.ConsentRequest true "Consent flag"
// @Success     200 {object} models.ProfileResponse
// @Failure     400 {object} receipt.ErrorBody
// @Router      /profiles/me/consent [patch]
func (h *ProfileHandler) UpdateConsent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "ai_consent is required")
		return
	}

	profile, err := h.store.UpdateConsent(userID, *req.AIConsent)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse(profile))
}

func profileResponse(profile *models.Profile) models.ProfileResponse {
	response := models.ProfileResponse{
		ID:        profile.ID.String(),
		AIConsent: profile.AIConsent,
	}
	if profile.ConsentedAt.Valid {
		consentedAt := profile.ConsentedAt.Time.UTC().Truncate(time.Second)
		response.ConsentedAt = &consentedAt
	}
	return response
}
