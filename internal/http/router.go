package http

import (
	"net/http"

	"eventos-backend/internal/handlers"
	"eventos-backend/internal/middleware"
	"eventos-backend/internal/models"
	"eventos-backend/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth     *handlers.AuthHandler
	Users    *handlers.UserHandler
	Events   *handlers.EventHandler
	Payments *handlers.PaymentHandler
	Catalog  *handlers.CatalogHandler
	Plans    *handlers.PlanHandler
	Clients  *handlers.ClientHandler
	Reports  *handlers.ReportHandler
	WhatsApp *handlers.WhatsAppHandler
	Health   *handlers.HealthHandler
	// Board serves the live event board websocket
	Board http.HandlerFunc
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware, m ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(m...)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health and metrics (no auth)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	r.HandleFunc("/auth/2fa/verificar", h.Auth.Verify2FA).Methods("POST")

	if h.Board != nil {
		r.Handle("/ws/tablero", authMiddleware.Authenticate(h.Board)).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	admin := middleware.AllowRoles(models.RoleAdmin)
	planner := middleware.AllowRoles(models.RoleAdmin, models.RoleCoordinador)
	cashier := middleware.AllowRoles(models.RoleAdmin, models.RoleCajero)
	only := func(role func(http.Handler) http.Handler, fn http.HandlerFunc) http.Handler {
		return role(fn)
	}

	// Current user
	api.HandleFunc("/me", h.Auth.Me).Methods("GET")
	api.HandleFunc("/me/password", h.Auth.ChangePassword).Methods("PUT")
	api.HandleFunc("/me/2fa", h.Auth.Status2FA).Methods("GET")
	api.HandleFunc("/me/2fa/setup", h.Auth.Setup2FA).Methods("POST")
	api.HandleFunc("/me/2fa/activar", h.Auth.Enable2FA).Methods("POST")
	api.HandleFunc("/me/2fa/desactivar", h.Auth.Disable2FA).Methods("POST")

	// Events
	api.Handle("/eventos", only(planner, h.Events.Create)).Methods("POST")
	api.HandleFunc("/eventos", h.Events.List).Methods("GET")
	api.HandleFunc("/eventos/{id:[0-9]+}", h.Events.Get).Methods("GET")
	api.Handle("/eventos/{id:[0-9]+}", only(admin, h.Events.Delete)).Methods("DELETE")
	api.Handle("/eventos/{id:[0-9]+}/estado", only(planner, h.Events.ChangeState)).Methods("PUT")
	api.Handle("/eventos/{id:[0-9]+}/calificacion", only(planner, h.Events.Rate)).Methods("PUT")
	api.Handle("/eventos/{id:[0-9]+}/recalcular", only(planner, h.Events.RecalculateTotal)).Methods("POST")
	api.Handle("/eventos/{id:[0-9]+}/productos", only(planner, h.Events.AttachProduct)).Methods("POST")
	api.Handle("/eventos/{id:[0-9]+}/productos/{producto_id:[0-9]+}", only(planner, h.Events.DetachProduct)).Methods("DELETE")

	// Checklist
	api.HandleFunc("/eventos/{id:[0-9]+}/servicios", h.Events.GetChecklist).Methods("GET")
	api.Handle("/eventos/{id:[0-9]+}/servicios", only(planner, h.Events.AddChecklistItem)).Methods("POST")
	api.Handle("/eventos/{id:[0-9]+}/servicios/regenerar", only(planner, h.Events.RegenerateChecklist)).Methods("POST")
	api.Handle("/eventos/{id:[0-9]+}/servicios/{item_id:[0-9]+}", only(planner, h.Events.UpdateChecklistItem)).Methods("PUT")
	api.Handle("/eventos/{id:[0-9]+}/servicios/{item_id:[0-9]+}", only(planner, h.Events.DeleteChecklistItem)).Methods("DELETE")

	// Payments
	api.Handle("/eventos/{id:[0-9]+}/pagos", only(cashier, h.Payments.Register)).Methods("POST")
	api.HandleFunc("/eventos/{id:[0-9]+}/pagos", h.Payments.List).Methods("GET")
	api.HandleFunc("/pagos/{id:[0-9]+}", h.Payments.Get).Methods("GET")
	api.Handle("/pagos/{id:[0-9]+}", only(admin, h.Payments.Delete)).Methods("DELETE")
	api.HandleFunc("/pagos-en-linea/estado", h.Payments.OnlineStatus).Methods("GET")
	api.Handle("/eventos/{id:[0-9]+}/pago-en-linea", only(cashier, h.Payments.CreateOnlineOrder)).Methods("POST")
	api.Handle("/pagos-en-linea/verificar", only(cashier, h.Payments.VerifyOnline)).Methods("POST")

	// Documents
	api.HandleFunc("/eventos/{id:[0-9]+}/cotizacion.pdf", h.Reports.QuotePDF).Methods("GET")
	api.HandleFunc("/pagos/{id:[0-9]+}/recibo.pdf", h.Reports.ReceiptPDF).Methods("GET")
	api.Handle("/reportes/eventos.csv", only(admin, h.Reports.EventsCSV)).Methods("GET")

	// Catalog
	api.HandleFunc("/categorias", h.Catalog.ListCategories).Methods("GET")
	api.HandleFunc("/categorias/{id:[0-9]+}", h.Catalog.GetCategory).Methods("GET")
	api.Handle("/categorias", only(admin, h.Catalog.CreateCategory)).Methods("POST")
	api.Handle("/categorias/{id:[0-9]+}", only(admin, h.Catalog.UpdateCategory)).Methods("PUT")
	api.Handle("/categorias/{id:[0-9]+}/estado", only(admin, h.Catalog.SetCategoryStatus)).Methods("PATCH")

	api.HandleFunc("/productos", h.Catalog.ListProducts).Methods("GET")
	api.HandleFunc("/productos/{id:[0-9]+}", h.Catalog.GetProduct).Methods("GET")
	api.Handle("/productos", only(admin, h.Catalog.CreateProduct)).Methods("POST")
	api.Handle("/productos/{id:[0-9]+}", only(admin, h.Catalog.UpdateProduct)).Methods("PUT")
	api.Handle("/productos/{id:[0-9]+}/estado", only(admin, h.Catalog.SetProductStatus)).Methods("PATCH")
	api.Handle("/productos/{id:[0-9]+}/stock", only(admin, h.Events.AdjustStock)).Methods("PUT")
	api.HandleFunc("/productos/{id:[0-9]+}/movimientos", h.Catalog.ListMovements).Methods("GET")

	// Plans
	api.HandleFunc("/planes", h.Plans.List).Methods("GET")
	api.HandleFunc("/planes/{id:[0-9]+}", h.Plans.Get).Methods("GET")
	api.HandleFunc("/planes/{id:[0-9]+}/disponibilidad", h.Events.PlanAvailability).Methods("GET")
	api.Handle("/planes", only(admin, h.Plans.Create)).Methods("POST")
	api.Handle("/planes/{id:[0-9]+}", only(admin, h.Plans.Update)).Methods("PUT")
	api.Handle("/planes/{id:[0-9]+}/estado", only(admin, h.Plans.SetStatus)).Methods("PATCH")

	// Clients and salons
	api.HandleFunc("/clientes", h.Clients.List).Methods("GET")
	api.HandleFunc("/clientes/{id:[0-9]+}", h.Clients.Get).Methods("GET")
	api.Handle("/clientes", only(planner, h.Clients.Create)).Methods("POST")
	api.Handle("/clientes/{id:[0-9]+}", only(planner, h.Clients.Update)).Methods("PUT")
	api.Handle("/clientes/{id:[0-9]+}/estado", only(admin, h.Clients.SetStatus)).Methods("PATCH")

	api.HandleFunc("/salones", h.Clients.ListSalons).Methods("GET")
	api.HandleFunc("/salones/{id:[0-9]+}", h.Clients.GetSalon).Methods("GET")
	api.Handle("/salones", only(admin, h.Clients.CreateSalon)).Methods("POST")
	api.Handle("/salones/{id:[0-9]+}", only(admin, h.Clients.UpdateSalon)).Methods("PUT")
	api.Handle("/salones/{id:[0-9]+}/estado", only(admin, h.Clients.SetSalonStatus)).Methods("PATCH")

	// Users (admin)
	api.Handle("/usuarios", only(admin, h.Users.List)).Methods("GET")
	api.Handle("/usuarios", only(admin, h.Users.Create)).Methods("POST")
	api.Handle("/usuarios/{id:[0-9]+}", only(admin, h.Users.Get)).Methods("GET")
	api.Handle("/usuarios/{id:[0-9]+}", only(admin, h.Users.Update)).Methods("PUT")
	api.Handle("/usuarios/{id:[0-9]+}/estado", only(admin, h.Users.SetStatus)).Methods("PATCH")

	// WhatsApp messages (admin)
	if h.WhatsApp != nil {
		api.Handle("/whatsapp/mensajes", only(admin, h.WhatsApp.List)).Methods("GET")
		api.Handle("/whatsapp/mensajes/{id:[0-9]+}/reintentar", only(admin, h.WhatsApp.Retry)).Methods("POST")
	}

	return r
}
