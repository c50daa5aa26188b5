package controllers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sairanjith101/acme-importer/apperrors"
	"github.com/sairanjith101/acme-importer/events"
	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/repository"
	"github.com/sairanjith101/acme-importer/services"
)

// ProductController is the catalog CRUD surface. Mutations dispatch the
// matching domain event after the write commits.
type ProductController struct {
	products   repository.ProductRepository
	dispatcher *services.Dispatcher
	validator  *RequestValidator
}

func NewProductController(products repository.ProductRepository, dispatcher *services.Dispatcher, validator *RequestValidator) *ProductController {
	return &ProductController{
		products:   products,
		dispatcher: dispatcher,
		validator:  validator,
	}
}

type productRequest struct {
	SKU         string   `json:"sku" validate:"required"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Active      *bool    `json:"active"`
}

// GetProducts retrieves paginated products with optional search over
// sku/name/description.
func (h *ProductController) GetProducts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("perPage", "10"))
	if err != nil || perPage <= 0 {
		perPage = 10
	}
	if perPage > MaxPageSize {
		perPage = MaxPageSize
	}
	search := strings.TrimSpace(c.Query("search"))

	products, total, err := h.products.Find(c.Request.Context(), search, perPage, (page-1)*perPage)
	if err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to fetch products", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"meta": gin.H{
			"page":       page,
			"perPage":    perPage,
			"total":      total,
			"totalPages": int(math.Ceil(float64(total) / float64(perPage))),
		},
	})
}

func (h *ProductController) GetProductByID(c *gin.Context) {
	p, ok := h.find(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductController) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := models.Product{
		SKU:         strings.TrimSpace(req.SKU),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Active:      true,
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if p.SKU == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sku must not be blank"})
		return
	}

	if err := h.products.Create(c.Request.Context(), &p); err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to create product", err))
		return
	}

	h.dispatch(c, events.NewProductCreated(events.ProductPayload{
		ID: p.ID, SKU: p.SKU, Name: p.Name, Price: p.Price,
	}))
	c.JSON(http.StatusCreated, p)
}

func (h *ProductController) UpdateProduct(c *gin.Context) {
	p, ok := h.find(c)
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SKU != "" {
		p.SKU = strings.TrimSpace(req.SKU)
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Price != nil {
		p.Price = req.Price
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := h.products.Update(c.Request.Context(), p); err != nil {
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to update product", err))
		return
	}

	h.dispatch(c, events.NewProductUpdated(events.ProductPayload{
		ID: p.ID, SKU: p.SKU, Name: p.Name, Price: p.Price,
	}))
	c.JSON(http.StatusOK, p)
}

func (h *ProductController) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	p, err := h.products.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to delete product", err))
		return
	}

	h.dispatch(c, events.NewProductDeleted(events.ProductDeletedPayload{ID: p.ID, SKU: p.SKU}))
	c.JSON(http.StatusOK, gin.H{"deleted": p.ID})
}

func (h *ProductController) find(c *gin.Context) (*models.Product, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return nil, false
	}
	p, err := h.products.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return nil, false
		}
		c.Error(apperrors.New(http.StatusInternalServerError, "Failed to load product", err))
		return nil, false
	}
	return p, true
}

// dispatch schedules deliveries for a catalog mutation. Failures are logged
// only; delivery problems never fail the mutation that triggered them.
func (h *ProductController) dispatch(c *gin.Context, evt events.Event) {
	if err := h.dispatcher.Dispatch(c.Request.Context(), evt); err != nil {
		zap.L().Error("Failed to dispatch event",
			zap.String("event", string(evt.Type)),
			zap.Error(err),
		)
	}
}
