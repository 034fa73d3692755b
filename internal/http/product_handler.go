package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vuxmai/catalog-admin/internal/model"
	"github.com/vuxmai/catalog-admin/internal/service"
	"github.com/vuxmai/catalog-admin/pkg/ptr"
)

// maxUploadSize caps the multipart form, images included.
const maxUploadSize = 32 << 20 // 32 MB

type productHandler struct {
	svc *Service

	productSvc service.ProductService
}

func newProductHandler(svc *Service, productSvc service.ProductService) *productHandler {
	return &productHandler{
		svc:        svc,
		productSvc: productSvc,
	}
}

type productResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	LongDescription *string   `json:"long_description,omitempty"`
	Slug            string    `json:"slug"`
	Image1          *string   `json:"image1,omitempty"`
	Image2          *string   `json:"image2,omitempty"`
	Image3          *string   `json:"image3,omitempty"`
	Image4          *string   `json:"image4,omitempty"`
	Image5          *string   `json:"image5,omitempty"`
	Status          bool      `json:"status"`
	Stock           int       `json:"stock"`
	Price           string    `json:"price"`
	Weight          string    `json:"weight"`
	CategoryID      uuid.UUID `json:"category_id"`
	ColorID         uuid.UUID `json:"color_id"`
	Size            *string   `json:"size,omitempty"`
	SeoKeywords     *string   `json:"seo_keywords,omitempty"`
	ProductGroupID  *int64    `json:"product_group_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		LongDescription: p.LongDescription,
		Slug:            p.Slug,
		Image1:          p.Image1,
		Image2:          p.Image2,
		Image3:          p.Image3,
		Image4:          p.Image4,
		Image5:          p.Image5,
		Status:          p.Status,
		Stock:           p.Stock,
		Price:           p.Price.String(),
		Weight:          p.Weight.String(),
		CategoryID:      p.CategoryID,
		ColorID:         p.ColorID,
		Size:            p.Size,
		SeoKeywords:     p.SeoKeywords,
		ProductGroupID:  p.ProductGroupID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toProductResponses(products []model.Product) []productResponse {
	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(p))
	}
	return items
}

func (h *productHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.productSvc.ListAll(r.Context())
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "products retrieved", toProductResponses(products))
}

func (h *productHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	product, err := h.productSvc.GetByID(r.Context(), id)
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "product retrieved", toProductResponse(product))
}

func (h *productHandler) getBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.productSvc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "product retrieved", toProductResponse(product))
}

func (h *productHandler) listByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		h.svc.respondError(w, r, invalidField("groupID", err))
		return
	}

	products, err := h.productSvc.ListByGroup(r.Context(), groupID)
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "products retrieved", toProductResponses(products))
}

func (h *productHandler) create(w http.ResponseWriter, r *http.Request) {
	fields, images, err := h.parseProductForm(r)
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	product, err := h.productSvc.Create(r.Context(), service.CreateProductParams{
		ProductFields: fields,
		Images:        images,
	})
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusCreated, "product created", toProductResponse(product))
}

func (h *productHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	fields, images, err := h.parseProductForm(r)
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	product, err := h.productSvc.Update(r.Context(), id, service.UpdateProductParams{
		ProductFields: fields,
		Images:        images,
	})
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "product updated", toProductResponse(product))
}

func (h *productHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	if err := h.productSvc.Delete(r.Context(), id); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusNoContent, "", nil)
}

type updatePriceRequest struct {
	Price string `json:"price" validate:"required"`
}

func (h *productHandler) updatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	var req updatePriceRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		h.svc.respondError(w, r, invalidField("price", err))
		return
	}

	product, err := h.productSvc.UpdatePrice(r.Context(), id, price)
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "product price updated", toProductResponse(product))
}

type updateStockRequest struct {
	Stock int `json:"stock" validate:"gte=0"`
}

func (h *productHandler) updateStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	var req updateStockRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	product, err := h.productSvc.UpdateStock(r.Context(), id, req.Stock)
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "product stock updated", toProductResponse(product))
}

type updateGroupRequest struct {
	ProductGroupID *int64 `json:"product_group_id"`
}

func (h *productHandler) updateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	var req updateGroupRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	product, err := h.productSvc.UpdateGroup(r.Context(), id, req.ProductGroupID)
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "product group updated", toProductResponse(product))
}

type updateStatusRequest struct {
	Status bool `json:"status"`
}

func (h *productHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	product, err := h.productSvc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "product status updated", toProductResponse(product))
}

// productForm mirrors the multipart fields of create and update requests.
type productForm struct {
	Name        string `validate:"required,max=255"`
	Description string `validate:"required"`
	Stock       int    `validate:"gte=0"`
}

// parseProductForm reads the multipart body into the scalar fields and the
// uploaded image slots. Images are keyed image1..image5; absent slots are
// simply not uploaded.
func (h *productHandler) parseProductForm(r *http.Request) (service.ProductFields, []service.ImageUpload, error) {
	var fields service.ProductFields

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return fields, nil, invalidField("body", err)
	}

	fields.Name = r.FormValue("name")
	fields.Description = r.FormValue("description")
	fields.LongDescription = optionalFormValue(r, "long_description")
	fields.Size = optionalFormValue(r, "size")
	fields.SeoKeywords = optionalFormValue(r, "seo_keywords")

	status, err := strconv.ParseBool(r.FormValue("status"))
	if err != nil {
		return fields, nil, invalidField("status", err)
	}
	fields.Status = status

	stock, err := strconv.Atoi(r.FormValue("stock"))
	if err != nil {
		return fields, nil, invalidField("stock", err)
	}
	fields.Stock = stock

	if fields.Price, err = decimal.NewFromString(r.FormValue("price")); err != nil || fields.Price.IsNegative() {
		return fields, nil, invalidField("price", err)
	}

	if fields.Weight, err = decimal.NewFromString(r.FormValue("weight")); err != nil || fields.Weight.IsNegative() {
		return fields, nil, invalidField("weight", err)
	}

	if fields.CategoryID, err = uuid.Parse(r.FormValue("category_id")); err != nil {
		return fields, nil, invalidField("category_id", err)
	}

	if fields.ColorID, err = uuid.Parse(r.FormValue("color_id")); err != nil {
		return fields, nil, invalidField("color_id", err)
	}

	if raw := r.FormValue("product_group_id"); raw != "" {
		groupID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fields, nil, invalidField("product_group_id", err)
		}
		fields.ProductGroupID = ptr.New(groupID)
	}

	if err := h.svc.validator.Validate(productForm{
		Name:        fields.Name,
		Description: fields.Description,
		Stock:       fields.Stock,
	}); err != nil {
		return fields, nil, err
	}

	images, err := formImages(r)
	if err != nil {
		return fields, nil, err
	}

	return fields, images, nil
}

func formImages(r *http.Request) ([]service.ImageUpload, error) {
	var images []service.ImageUpload

	for slot := 1; slot <= model.ImageSlots; slot++ {
		field := fmt.Sprintf("image%d", slot)

		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, invalidField(field, err)
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, invalidField(field, err)
		}

		images = append(images, service.ImageUpload{
			Slot:     slot,
			Filename: header.Filename,
			Data:     data,
		})
	}

	return images, nil
}

func optionalFormValue(r *http.Request, field string) *string {
	if v := r.FormValue(field); v != "" {
		return ptr.New(v)
	}
	return nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, invalidField(param, err)
	}
	return id, nil
}
