package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	productsvc "github.com/crumbandco/bakeshop-backend/internal/products"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
)

type stubProductService struct {
	products   []productsvc.ProductDTO
	lastCreate productsvc.CreateProductInput
	lastUpdate productsvc.UpdateProductInput
	deleted    []uuid.UUID
	err        error
}

func (s *stubProductService) List(ctx context.Context) ([]productsvc.ProductDTO, error) {
	return s.products, s.err
}

func (s *stubProductService) GetBySlug(ctx context.Context, slug string) (*productsvc.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.products {
		if s.products[i].Slug == slug {
			return &s.products[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubProductService) InStock(ctx context.Context, productID uuid.UUID) (bool, error) {
	return true, s.err
}

func (s *stubProductService) Create(ctx context.Context, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	s.lastCreate = input
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.ProductDTO{ID: uuid.New(), Slug: input.Slug, Name: input.Name}, nil
}

func (s *stubProductService) Update(ctx context.Context, productID uuid.UUID, input productsvc.UpdateProductInput) (*productsvc.ProductDTO, error) {
	s.lastUpdate = input
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.ProductDTO{ID: productID}, nil
}

func (s *stubProductService) Delete(ctx context.Context, productID uuid.UUID) error {
	s.deleted = append(s.deleted, productID)
	return s.err
}

func (s *stubProductService) AddPrice(ctx context.Context, productID uuid.UUID, input productsvc.PriceInput) (*productsvc.PriceDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.PriceDTO{ID: uuid.New(), UnitAmount: input.UnitAmount}, nil
}

func (s *stubProductService) UpdatePrice(ctx context.Context, priceID uuid.UUID, input productsvc.UpdatePriceInput) (*productsvc.PriceDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.PriceDTO{ID: priceID}, nil
}

func newProductRouter(svc productsvc.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/products", ListProducts(svc, nil))
	r.Get("/products/{slug}", GetProductBySlug(svc, nil))
	r.Post("/admin/products", AdminCreateProduct(svc, nil))
	r.Patch("/admin/products/{productID}", AdminUpdateProduct(svc, nil))
	r.Delete("/admin/products/{productID}", AdminDeleteProduct(svc, nil))
	r.Post("/admin/products/{productID}/prices", AdminAddPrice(svc, nil))
	r.Patch("/admin/prices/{priceID}", AdminUpdatePrice(svc, nil))
	return r
}

func TestListProducts(t *testing.T) {
	svc := &stubProductService{products: []productsvc.ProductDTO{
		{ID: uuid.New(), Slug: "sourdough-loaf", Name: "Sourdough Loaf"},
	}}
	router := newProductRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var payload struct {
		Data struct {
			Products []productsvc.ProductDTO `json:"products"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data.Products) != 1 || payload.Data.Products[0].Slug != "sourdough-loaf" {
		t.Fatalf("unexpected products: %+v", payload.Data.Products)
	}
}

func TestGetProductBySlugNotFound(t *testing.T) {
	router := newProductRouter(&stubProductService{})

	req := httptest.NewRequest(http.MethodGet, "/products/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestAdminCreateProduct(t *testing.T) {
	svc := &stubProductService{}
	router := newProductRouter(svc)

	body := `{"slug":"bakewell-tart","name":"Bakewell Tart","stock_qty":6,"prices":[{"type":"one_time","unit_amount":350,"currency":"GBP"}]}`
	req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", rec.Code, rec.Body.String())
	}
	if svc.lastCreate.Slug != "bakewell-tart" || !svc.lastCreate.IsActive {
		t.Fatalf("unexpected create input: %+v", svc.lastCreate)
	}
	if len(svc.lastCreate.Prices) != 1 || svc.lastCreate.Prices[0].UnitAmount != 350 {
		t.Fatalf("unexpected prices: %+v", svc.lastCreate.Prices)
	}
}

func TestAdminUpdateProductRejectsBadID(t *testing.T) {
	router := newProductRouter(&stubProductService{})

	req := httptest.NewRequest(http.MethodPatch, "/admin/products/not-a-uuid", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminDeleteProduct(t *testing.T) {
	svc := &stubProductService{}
	router := newProductRouter(svc)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/admin/products/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != id {
		t.Fatalf("unexpected delete calls: %v", svc.deleted)
	}
}
