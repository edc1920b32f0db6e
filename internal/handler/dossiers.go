package handler

import (
	"net/http"

	"medpos/internal/dto"
	"medpos/internal/service"

	"github.com/gin-gonic/gin"
)

type DossiersHandler struct {
	svc service.CNAMDossierService
	errorResponder
}

func NewDossiersHandler(svc service.CNAMDossierService, debug bool) *DossiersHandler {
	return &DossiersHandler{svc: svc, errorResponder: errorResponder{debug: debug}}
}

// GetDossier godoc
// @Summary      Détail d'un dossier CNAM
// @Tags         cnam
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "UUID du dossier"
// @Success      200  {object} dto.DossierResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/dossiers/{id} [get]
func (h *DossiersHandler) GetDossier(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStatus godoc
// @Summary      Faire avancer un dossier CNAM
// @Description  EN_ATTENTE_APPROBATION → APPROUVE → EN_COURS → TERMINE, ou REFUSE. Chaque changement est historisé.
// @Tags         cnam
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                       true "UUID du dossier"
// @Param        body body     dto.DossierTransitionRequest true "Nouveau statut"
// @Success      200  {object} dto.DossierResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/dossiers/{id}/status [patch]
func (h *DossiersHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.DossierTransitionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Transition(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
