package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crumbandco/bakeshop-backend/api/controllers"
	cartcontrollers "github.com/crumbandco/bakeshop-backend/api/controllers/cart"
	"github.com/crumbandco/bakeshop-backend/api/middleware"
	authsvc "github.com/crumbandco/bakeshop-backend/internal/auth"
	cartsvc "github.com/crumbandco/bakeshop-backend/internal/cart"
	checkoutsvc "github.com/crumbandco/bakeshop-backend/internal/checkout"
	productsvc "github.com/crumbandco/bakeshop-backend/internal/products"
	"github.com/crumbandco/bakeshop-backend/pkg/auth/session"
	"github.com/crumbandco/bakeshop-backend/pkg/config"
	"github.com/crumbandco/bakeshop-backend/pkg/db"
	"github.com/crumbandco/bakeshop-backend/pkg/enums"
	"github.com/crumbandco/bakeshop-backend/pkg/logger"
	"github.com/crumbandco/bakeshop-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps bundles everything the router mounts.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Sessions sessionManager
	Registry *prometheus.Registry

	Auth     authsvc.Service
	Products productsvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var redisPinger redis.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.Products, logg))
		r.Get("/{slug}", controllers.GetProductBySlug(deps.Products, logg))
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(middleware.CartID(logg))
		r.Get("/", cartcontrollers.Fetch(deps.Cart, logg))
		r.Post("/items", cartcontrollers.AddItem(deps.Cart, deps.Products, logg))
		r.Put("/items/{productID}", cartcontrollers.SetQuantity(deps.Cart, logg))
		r.Delete("/items/{productID}", cartcontrollers.RemoveItem(deps.Cart, logg))
	})

	r.Route("/payment", func(r chi.Router) {
		r.Use(middleware.CartID(logg))
		r.Post("/check-products", controllers.CheckProducts(deps.Checkout, logg))
		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Post("/confirm", controllers.Confirm(deps.Checkout, logg))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Post("/products", controllers.AdminCreateProduct(deps.Products, logg))
		r.Patch("/products/{productID}", controllers.AdminUpdateProduct(deps.Products, logg))
		r.Delete("/products/{productID}", controllers.AdminDeleteProduct(deps.Products, logg))
		r.Post("/products/{productID}/prices", controllers.AdminAddPrice(deps.Products, logg))
		r.Patch("/prices/{priceID}", controllers.AdminUpdatePrice(deps.Products, logg))
	})

	return r
}
