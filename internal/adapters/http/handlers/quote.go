package handlers

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotenest/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotenest/internal/app"
	"github.com/jsamuelsen/quotenest/internal/domain"
)

// QuoteHandler handles the /api/quotes endpoints.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	return &QuoteHandler{
		service: service,
	}
}

// List handles GET /api/quotes.
//
// @Summary List quotes, newest first
// @Tags quotes
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} dto.QuotePageResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	h.query(c, domain.AllQuotes())
}

// Favorites handles GET /api/quotes/favorites.
//
// @Summary List favorite quotes, newest first
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.QuotePageResponse
// @Router /api/quotes/favorites [get]
func (h *QuoteHandler) Favorites(c *gin.Context) {
	h.query(c, domain.FavoritesOnly())
}

// ByTag handles GET /api/quotes/tags/:tag.
//
// @Summary List quotes carrying a tag (case-insensitive)
// @Tags quotes
// @Produce json
// @Param tag path string true "Tag"
// @Success 200 {object} dto.QuotePageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/quotes/tags/{tag} [get]
func (h *QuoteHandler) ByTag(c *gin.Context) {
	h.query(c, domain.ByTag(c.Param("tag")))
}

// Search handles GET /api/quotes/search.
//
// @Summary Search text, author, source and tags
// @Tags quotes
// @Produce json
// @Param q query string true "Search term"
// @Success 200 {object} dto.QuotePageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/quotes/search [get]
func (h *QuoteHandler) Search(c *gin.Context) {
	var q dto.SearchQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		dto.HandleValidationErrors(c, err)
		return
	}

	page, err := h.service.Query(c.Request.Context(), domain.Search(q.Q), q.PageRequest())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuotePageResponse(page))
}

func (h *QuoteHandler) query(c *gin.Context, filter domain.Filter) {
	var q dto.PageQuery
	_ = c.ShouldBindQuery(&q) // string fields cannot fail to bind

	page, err := h.service.Query(c.Request.Context(), filter, q.PageRequest())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuotePageResponse(page))
}

// Get handles GET /api/quotes/:id.
//
// @Summary Get a quote by ID
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/quotes/{id} [get]
func (h *QuoteHandler) Get(c *gin.Context) {
	quote, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// Create handles POST /api/quotes.
//
// @Summary Create a quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param body body dto.CreateQuoteRequest true "Quote"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/quotes [post]
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if err := dto.BindJSON(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	quote, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Location", path.Join(c.FullPath(), quote.ID))
	c.JSON(http.StatusCreated, dto.NewQuoteResponse(quote))
}

// Update handles PUT /api/quotes/:id. Only the fields present in the body
// change.
//
// @Summary Update a quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param body body dto.UpdateQuoteRequest true "Fields to change"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/quotes/{id} [put]
func (h *QuoteHandler) Update(c *gin.Context) {
	var req dto.UpdateQuoteRequest
	if err := dto.BindJSON(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	quote, err := h.service.Update(c.Request.Context(), c.Param("id"), req.ToPatch())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// ToggleFavorite handles PATCH /api/quotes/:id/favorite.
//
// @Summary Flip the favorite flag
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/quotes/{id}/favorite [patch]
func (h *QuoteHandler) ToggleFavorite(c *gin.Context) {
	quote, err := h.service.ToggleFavorite(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// Delete handles DELETE /api/quotes/:id.
//
// @Summary Delete a quote
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} dto.DeleteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/quotes/{id} [delete]
func (h *QuoteHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DeleteResponse{Message: dto.MessageQuoteDeleted, ID: id})
}

// RegisterQuoteRoutes registers the quote routes under rg/quotes.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")

	quotes.GET("", h.List)
	quotes.GET("/", h.List)
	quotes.GET("/favorites", h.Favorites)
	quotes.GET("/search", h.Search)
	quotes.GET("/tags/:tag", h.ByTag)
	quotes.GET("/:id", h.Get)
	quotes.POST("", h.Create)
	quotes.POST("/", h.Create)
	quotes.PUT("/:id", h.Update)
	quotes.PATCH("/:id/favorite", h.ToggleFavorite)
	quotes.DELETE("/:id", h.Delete)
}
