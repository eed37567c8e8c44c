package handler

import (
	"net/http"

	"fastclick/internal/dto"
	"fastclick/internal/service"

	"github.com/gin-gonic/gin"
)

type GamesHandler struct{ svc service.CatalogService }

func NewGamesHandler(svc service.CatalogService) *GamesHandler { return &GamesHandler{svc: svc} }

// List godoc
// @Summary List catalog entries
// @Tags games
// @Produce json
// @Success 200 {array} dto.GameResponse
// @Security BearerAuth
// @Router /v1/games [get]
func (h *GamesHandler) List(c *gin.Context) {
	resp, err := h.svc.ListGames(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary A catalog entry with its available listings, cheapest first
// @Tags games
// @Produce json
// @Param name path string true "Game name"
// @Success 200 {object} dto.GameDetailResponse
// @Failure 404 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/games/{name} [get]
func (h *GamesHandler) Get(c *gin.Context) {
	resp, err := h.svc.FindGame(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Add a catalog entry
// @Tags games
// @Accept json
// @Produce json
// @Param body body dto.CreateGameRequest true "Game"
// @Success 201 {object} dto.GameResponse
// @Failure 409 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/games [post]
func (h *GamesHandler) Create(c *gin.Context) {
	var req dto.CreateGameRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateGame(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
