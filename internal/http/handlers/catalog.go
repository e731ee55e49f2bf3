package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	catalogrepo "github.com/yungbote/estrella-backend/internal/data/repos/catalog"
	"github.com/yungbote/estrella-backend/internal/http/response"
	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
	"github.com/yungbote/estrella-backend/internal/services"
)

type CatalogHandler struct {
	catalog services.CatalogService
}

func NewCatalogHandler(catalog services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", name, pkgerrors.ErrInvalidArgument)
	}
	return id, nil
}

// ListRestaurants filters by ?category= and ?q=. ?refresh=true reloads the
// cache first, which is how a client retries after a load failure.
func (h *CatalogHandler) ListRestaurants(c *gin.Context) {
	ctx := c.Request.Context()
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		if err := h.catalog.Refresh(ctx); err != nil {
			respondErr(c, err)
			return
		}
	}
	items, err := h.catalog.List(ctx, catalogrepo.Filter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"restaurants": items})
}

func (h *CatalogHandler) GetRestaurant(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondErr(c, err)
		return
	}
	r, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"restaurant": r})
}

func (h *CatalogHandler) GetMenuItem(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondErr(c, err)
		return
	}
	itemID, err := idParam(c, "itemId")
	if err != nil {
		respondErr(c, err)
		return
	}
	item, err := h.catalog.GetItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item, "ingredients": item.IngredientList()})
}

func (h *CatalogHandler) adminResult(c *gin.Context, status int, res services.AdminResult, err error) {
	if err != nil {
		respondErrWith(c, err, gin.H{"notification": res.Notification})
		return
	}
	c.JSON(status, res)
}

func (h *CatalogHandler) CreateRestaurant(c *gin.Context) {
	var draft services.RestaurantDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.catalog.Create(c.Request.Context(), draft)
	h.adminResult(c, http.StatusCreated, res, err)
}

func (h *CatalogHandler) UpdateRestaurant(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondErr(c, err)
		return
	}
	var patch services.RestaurantPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.catalog.Update(c.Request.Context(), id, patch)
	h.adminResult(c, http.StatusOK, res, err)
}

func (h *CatalogHandler) DeleteRestaurant(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondErr(c, err)
		return
	}
	res, err := h.catalog.Delete(c.Request.Context(), id)
	h.adminResult(c, http.StatusOK, res, err)
}
