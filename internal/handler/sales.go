package handler

import (
	"net/http"

	"medpos/internal/dto"
	"medpos/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct {
	svc service.SaleService
	errorResponder
}

// NewSalesHandler wires the sale endpoints. debug exposes error causes in responses.
func NewSalesHandler(svc service.SaleService, debug bool) *SalesHandler {
	return &SalesHandler{svc: svc, errorResponder: errorResponder{debug: debug}}
}

// CreateSale godoc
// @Summary      Enregistrer une vente
// @Description  Crée la vente, son paiement, ses dossiers CNAM et les mouvements de stock dans une seule transaction.
// @Tags         ventes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateSaleRequest true "Vente"
// @Success      201  {object} dto.SaleResponse
// @Failure      400  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Failure      503  {object} apierror.APIError
// @Router       /v1/sales [post]
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.svc.CreateSale(c.Request.Context(), actorID(c), req)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetSale godoc
// @Summary      Détail d'une vente
// @Tags         ventes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "UUID de la vente"
// @Success      200  {object} dto.SaleResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sales/{id} [get]
func (h *SalesHandler) GetSale(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetSale(c.Request.Context(), id)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
