package api

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/serenity-wellness/serenity-server/cmd/config"
	"github.com/serenity-wellness/serenity-server/cmd/utils"
	"github.com/serenity-wellness/serenity-server/service/admin"
	"github.com/serenity-wellness/serenity-server/service/booking"
	"github.com/serenity-wellness/serenity-server/service/catalog"
	"github.com/serenity-wellness/serenity-server/service/discount"
	"github.com/serenity-wellness/serenity-server/service/payment"
	"github.com/serenity-wellness/serenity-server/service/slots"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
	cfg     *config.Config
}

func NewApiServer(address string, db *gorm.DB, cfg *config.Config) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		cfg:     cfg,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api").Subrouter()

	serviceHandler := catalog.NewServiceHandler(s.db)
	serviceHandler.RegisterRoutes(subrouter)

	slotHandler := slots.NewSlotHandler(s.db)
	slotHandler.RegisterRoutes(subrouter)

	discountHandler := discount.NewDiscountHandler(s.db)
	discountHandler.RegisterRoutes(subrouter)

	bookingHandler := booking.NewBookingHandler(s.db, s.cfg)
	bookingHandler.RegisterRoutes(subrouter)

	stripeClient := payment.NewStripeClient(s.cfg.StripeSecretKey)
	paymentHandler := payment.NewPaymentHandler(s.db, stripeClient, s.cfg)
	paymentHandler.RegisterRoutes(subrouter)

	adminHandler := admin.NewHandler(s.db, s.cfg)
	adminHandler.RegisterAuthRoutes(subrouter)

	adminRouter := subrouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(utils.AuthMiddleware(s.cfg.JWTSecret))
	serviceHandler.RegisterAdminRoutes(adminRouter)
	slotHandler.RegisterAdminRoutes(adminRouter)
	discountHandler.RegisterAdminRoutes(adminRouter)
	bookingHandler.RegisterAdminRoutes(adminRouter)
	adminHandler.RegisterAdminRoutes(adminRouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, cors(router)))
}
