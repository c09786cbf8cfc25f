package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/Mohaabaprint/Teetot-Print/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Consumers define this interface
type ProductStore interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type DesignStore interface {
	ListDesignAssets(ctx context.Context, f repository.DesignFilter) ([]*domain.DesignAsset, error)
	GetDesignAsset(ctx context.Context, id string) (*domain.DesignAsset, error)
	CreateDesignAsset(ctx context.Context, a *domain.DesignAsset) error
	UpdateDesignAsset(ctx context.Context, a *domain.DesignAsset) error
	DeleteDesignAsset(ctx context.Context, id string) error
}

type ProductHandler struct {
	products ProductStore
	images   ImageLibrary
	log      *zap.Logger
	timeout  time.Duration
	maxBody  int64
}

func NewProductHandler(products ProductStore, images ImageLibrary, log *zap.Logger, timeout time.Duration, maxUpload int64) *ProductHandler {
	return &ProductHandler{products: products, images: images, log: log, timeout: timeout, maxBody: maxUpload}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

// List returns the catalog, optionally filtered by ?category= and ?featured=true.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.GetAllProducts(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	category := domain.Category(r.URL.Query().Get("category"))
	featuredOnly := r.URL.Query().Get("featured") == "true"
	out := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if featuredOnly && !p.Featured {
			continue
		}
		out = append(out, p)
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: out})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := &domain.Product{}
	if !h.bindProduct(w, r, p) {
		return
	}
	if !h.attachImage(ctx, w, r, p) {
		return
	}

	if err := h.products.CreateProduct(ctx, p); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.log.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	respondJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	previousImage := p.ImageRef
	if !h.bindProduct(w, r, p) {
		return
	}
	if !h.attachImage(ctx, w, r, p) {
		return
	}

	if err := h.products.UpdateProduct(ctx, p); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if p.ImageRef != previousImage {
		h.images.Release(ctx, previousImage)
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if err := h.products.DeleteProduct(ctx, p.ID); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.images.Release(ctx, p.ImageRef)
	h.log.Info("product deleted", zap.String("product_id", p.ID))
	w.WriteHeader(http.StatusNoContent)
}

// bindProduct reads the multipart form fields into p. Fields that are absent
// keep their current value.
func (h *ProductHandler) bindProduct(w http.ResponseWriter, r *http.Request, p *domain.Product) bool {
	if err := parseForm(w, r, h.maxBody); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}

	if v, ok := formValue(r, "name"); ok {
		p.Name = v
	}
	if v, ok := formValue(r, "description"); ok {
		p.Description = v
	}
	if v, ok := formValue(r, "image_ref"); ok {
		p.ImageRef = v
	}
	if v, ok := formValue(r, "price"); ok {
		price, err := decimal.NewFromString(v)
		if err != nil || price.IsNegative() {
			respondError(w, http.StatusBadRequest, "invalid_price", "price must be a non-negative number")
			return false
		}
		p.Price = price
	}
	if v, ok := formValue(r, "category"); ok {
		p.Category = domain.Category(v)
	}
	if v, ok := formValue(r, "stock"); ok {
		stock, err := strconv.Atoi(v)
		if err != nil || stock < 0 {
			respondError(w, http.StatusBadRequest, "invalid_stock", "stock must be a non-negative integer")
			return false
		}
		p.Stock = stock
	}
	if v, ok := formValue(r, "featured"); ok {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_featured", "featured must be true or false")
			return false
		}
		p.Featured = featured
	}

	if strings.TrimSpace(p.Name) == "" {
		respondError(w, http.StatusBadRequest, "invalid_name", "name is required")
		return false
	}
	if !p.Category.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_category", "category must be one of Apparel, Accessories, Business, Gifts")
		return false
	}
	return true
}

// attachImage normalizes an uploaded "image" file and points ImageRef at it.
func (h *ProductHandler) attachImage(ctx context.Context, w http.ResponseWriter, r *http.Request, p *domain.Product) bool {
	data, mimeType, ok, err := formFile(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	if !ok {
		return true
	}

	img, err := h.images.Ingest(ctx, adminSlot(r, "product-image"), data, mimeType, true)
	if err != nil {
		handleError(w, r, h.log, err)
		return false
	}
	p.ImageRef = imageURL(img)
	return true
}

type DesignHandler struct {
	designs DesignStore
	images  ImageLibrary
	log     *zap.Logger
	timeout time.Duration
	maxBody int64
}

func NewDesignHandler(designs DesignStore, images ImageLibrary, log *zap.Logger, timeout time.Duration, maxUpload int64) *DesignHandler {
	return &DesignHandler{designs: designs, images: images, log: log, timeout: timeout, maxBody: maxUpload}
}

type DesignsResponse struct {
	Designs []*domain.DesignAsset `json:"designs"`
}

// List supports ?category= and a case-insensitive title search with ?q=.
func (h *DesignHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter := repository.DesignFilter{
		Category: domain.DesignCategory(r.URL.Query().Get("category")),
		Query:    r.URL.Query().Get("q"),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_category", "unknown design category")
		return
	}

	designs, err := h.designs.ListDesignAssets(ctx, filter)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if designs == nil {
		designs = []*domain.DesignAsset{}
	}
	respondJSON(w, http.StatusOK, &DesignsResponse{Designs: designs})
}

func (h *DesignHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	a, err := h.designs.GetDesignAsset(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *DesignHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	a, err := h.designs.GetDesignAsset(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	imageID, err := uuid.Parse(a.ThumbnailID)
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "design has no thumbnail")
		return
	}

	img, err := h.images.Get(ctx, imageID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondPNG(w, img.Data)
}

func (h *DesignHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	a := &domain.DesignAsset{}
	if !h.bindDesign(w, r, a) {
		return
	}
	if !h.attachThumbnail(ctx, w, r, a) {
		return
	}
	if a.ThumbnailID == "" {
		respondError(w, http.StatusBadRequest, "missing_thumbnail", "thumbnail file is required")
		return
	}

	if err := h.designs.CreateDesignAsset(ctx, a); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.log.Info("design asset created", zap.String("design_id", a.ID), zap.String("title", a.Title))
	respondJSON(w, http.StatusCreated, a)
}

func (h *DesignHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	a, err := h.designs.GetDesignAsset(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	previousThumbnail := a.ThumbnailID
	if !h.bindDesign(w, r, a) {
		return
	}
	if !h.attachThumbnail(ctx, w, r, a) {
		return
	}

	if err := h.designs.UpdateDesignAsset(ctx, a); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if a.ThumbnailID != previousThumbnail {
		h.images.Release(ctx, previousThumbnail)
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *DesignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	a, err := h.designs.GetDesignAsset(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if err := h.designs.DeleteDesignAsset(ctx, a.ID); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.images.Release(ctx, a.ThumbnailID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *DesignHandler) bindDesign(w http.ResponseWriter, r *http.Request, a *domain.DesignAsset) bool {
	if err := parseForm(w, r, h.maxBody); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}

	if v, ok := formValue(r, "title"); ok {
		a.Title = v
	}
	if v, ok := formValue(r, "description"); ok {
		a.Description = v
	}
	if v, ok := formValue(r, "category"); ok {
		a.Category = domain.DesignCategory(v)
	}
	if v, ok := formValue(r, "price"); ok {
		price, err := decimal.NewFromString(v)
		if err != nil || price.IsNegative() {
			respondError(w, http.StatusBadRequest, "invalid_price", "price must be a non-negative number")
			return false
		}
		a.Price = price
	}

	if strings.TrimSpace(a.Title) == "" {
		respondError(w, http.StatusBadRequest, "invalid_title", "title is required")
		return false
	}
	if !a.Category.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_category", "unknown design category")
		return false
	}
	return true
}

func (h *DesignHandler) attachThumbnail(ctx context.Context, w http.ResponseWriter, r *http.Request, a *domain.DesignAsset) bool {
	data, mimeType, ok, err := formFile(r, "thumbnail")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	if !ok {
		return true
	}

	img, err := h.images.Ingest(ctx, adminSlot(r, "design-thumbnail"), data, mimeType, true)
	if err != nil {
		handleError(w, r, h.log, err)
		return false
	}
	a.ThumbnailID = img.ID.String()
	return true
}

func adminSlot(r *http.Request, field string) string {
	return "admin:" + getAdminToken(r.Context()) + ":" + field
}
