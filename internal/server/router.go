package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tradeflow/internal/auth"
	cartcontroller "tradeflow/internal/cart/controller"
	ordercontroller "tradeflow/internal/order/controller"
	paymentcontroller "tradeflow/internal/payment/controller"
	productcontroller "tradeflow/internal/product/controller"
	"tradeflow/internal/server/respond"
)

type Controllers struct {
	Product *productcontroller.ProductController
	Order   *ordercontroller.OrderController
	Cart    *cartcontroller.CartController
	Payment *paymentcontroller.PaymentController
}

func NewRouter(ctrls Controllers, authn *auth.Authenticator, requestTimeout time.Duration, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, AccessLog(logger), middleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(authn.Middleware)

		r.Route("/product", func(r chi.Router) {
			p := ctrls.Product
			r.With(authn.Require(auth.CapCatalogRead)).Get("/", p.List)
			r.With(authn.Require(auth.CapCatalogRead)).Get("/distributor-products", p.ListMine)
			r.With(authn.Require(auth.CapCatalogRead)).Get("/{id}", p.Get)
			r.With(authn.Require(auth.CapCatalogWrite)).Post("/", p.Create)
			r.With(authn.Require(auth.CapCatalogWrite)).Put("/{id}", p.Update)
			r.With(authn.Require(auth.CapCatalogWrite)).Delete("/{id}", p.Delete)
			r.With(authn.Require(auth.CapStockWrite)).Patch("/updateStock/{id}", p.UpdateStock)
			r.With(authn.Require(auth.CapCatalogWrite)).Post("/add-discount/{id}", p.AddDiscount)
			r.With(authn.Require(auth.CapCatalogWrite)).Put("/remove-discount/{id}", p.RemoveDiscount)
		})

		r.Route("/order", func(r chi.Router) {
			o := ctrls.Order
			r.With(authn.Require(auth.CapOrderCreate)).Post("/", o.Create)
			r.With(authn.Require(auth.CapOrderRead)).Get("/mine", o.ListMine)
			r.With(authn.Require(auth.CapOrderRead)).Get("/{id}", o.Get)
			r.With(authn.Require(auth.CapOrderManage)).Patch("/{id}/status", o.UpdateStatus)
		})

		r.Route("/cart", func(r chi.Router) {
			c := ctrls.Cart
			r.Use(authn.Require(auth.CapCartWrite))
			r.Get("/items", c.Get)
			r.Delete("/items", c.Clear)
			r.Put("/items/{productId}", c.SetItem)
			r.Delete("/items/{productId}", c.RemoveItem)
			r.Post("/checkout", c.Checkout)
		})

		r.Route("/payment", func(r chi.Router) {
			p := ctrls.Payment
			r.With(authn.Require(auth.CapPaymentWrite)).Post("/", p.Initiate)
			r.With(authn.Require(auth.CapPaymentSettle)).Patch("/{providerRef}", p.RecordOutcome)
			r.With(authn.Require(auth.CapPaymentRead)).Get("/distributor", p.ListForDistributor)
		})
	})

	return r
}
