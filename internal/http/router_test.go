package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/auth"
	"eventos-backend/internal/config"
	"eventos-backend/internal/handlers"
	"eventos-backend/internal/health"
	"eventos-backend/internal/middleware"
	"eventos-backend/internal/models"
	"eventos-backend/internal/services"
	"eventos-backend/internal/store/memstore"
	"eventos-backend/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staff map[int]*models.User

func (s staff) Get(_ context.Context, id int) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, apperr.NotFound("usuario", id)
	}
	return u, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *memstore.Store
	jwt    *auth.JWTManager
	users  staff
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	cfg := &config.Config{}
	cfg.JWT.Secret = "router-test"
	jwtManager := auth.NewJWTManager(cfg)

	st := memstore.New()
	events := services.NewEventService(st, services.NewStockLedger(logger), services.NewPlanComposer(), services.NewPaymentLedger(), nil, logger)
	payments := services.NewPaymentService(events, nil, logger)

	users := staff{
		1: {ID: 1, Email: "admin@salon.mx", Role: models.RoleAdmin, Status: models.StatusActivo},
		2: {ID: 2, Email: "coord@salon.mx", Role: models.RoleCoordinador, Status: models.StatusActivo},
		3: {ID: 3, Email: "caja@salon.mx", Role: models.RoleCajero, Status: models.StatusActivo},
		4: {ID: 4, Email: "baja@salon.mx", Role: models.RoleAdmin, Status: models.StatusInactivo},
	}

	router := NewRouter(Handlers{
		Events:   handlers.NewEventHandler(events, logger),
		Payments: handlers.NewPaymentHandler(payments, nil, logger),
		Health:   handlers.NewHealthHandler(health.NewHealthChecker(okPinger{}, nil)),
	}, middleware.NewAuthMiddleware(jwtManager, users))

	return &testServer{t: t, router: router, store: st, jwt: jwtManager, users: users}
}

func (s *testServer) do(method, path string, userID int, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := s.jwt.GenerateToken(s.users[userID])
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createEvent(planID *int) models.EventDetail {
	s.t.Helper()
	clientID := s.store.AddClient(models.Client{Nombre: "Marta", Telefono: "5511112222"})
	rec := s.do("POST", "/api/eventos", 2, models.CreateEventRequest{
		ClienteID: clientID, PlanID: planID, Nombre: "Bautizo", FechaEvento: "2026-11-20",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var d models.EventDetail
	require.NoError(s.t, json.NewDecoder(rec.Body).Decode(&d))
	return d
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

const (
	adminID = 1
	coordID = 2
	cajaID  = 3
	bajaID  = 4
)

func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("GET", "/api/eventos", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do("GET", "/api/eventos", bajaID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do("GET", "/api/eventos", cajaID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	d := s.createEvent(nil)

	rec := s.do("POST", "/api/eventos", cajaID, models.CreateEventRequest{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do("POST", fmt.Sprintf("/api/eventos/%d/pagos", d.ID), coordID, models.CreatePaymentRequest{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do("DELETE", fmt.Sprintf("/api/eventos/%d", d.ID), coordID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do("DELETE", fmt.Sprintf("/api/eventos/%d", d.ID), adminID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEventFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	sillas := s.store.AddProduct(models.Product{Nombre: "Silla", Precio: decimal.NewFromInt(15), Stock: 6, ControlaStock: true})
	planID := s.store.AddPlan(models.Plan{Nombre: "Bautizo", PrecioBase: decimal.NewFromInt(2000)},
		[]models.PlanProductInput{{ProductoID: sillas, Cantidad: 8}}, []string{"Pastel", "Música"})
	d := s.createEvent(&planID)
	assert.Equal(t, models.EstadoCotizacion, d.Estado)
	assert.Len(t, d.Servicios.Items, 2)

	rec := s.do("PUT", fmt.Sprintf("/api/eventos/%d/estado", d.ID), coordID, models.ChangeStateRequest{Estado: models.EstadoCompletado})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperr.KindValidation, errorBody(t, rec).Kind)

	rec = s.do("PUT", fmt.Sprintf("/api/eventos/%d/estado", d.ID), coordID, models.ChangeStateRequest{Estado: models.EstadoConfirmado})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := errorBody(t, rec)
	require.Len(t, body.Detalles, 1)
	assert.Equal(t, sillas, body.Detalles[0].ProductoID)
	assert.Equal(t, 8, body.Detalles[0].Requerido)
	assert.Equal(t, 6, body.Detalles[0].Disponible)

	rec = s.do("PUT", fmt.Sprintf("/api/productos/%d/stock", sillas), adminID, models.StockAdjustRequest{Delta: 4, Motivo: "compra"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do("POST", fmt.Sprintf("/api/eventos/%d/pagos", d.ID), cajaID, models.CreatePaymentRequest{
		Monto: decimal.NewFromInt(500), Metodo: models.MetodoTransferencia,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result models.PaymentResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.True(t, result.AutoAvanzado)
	assert.Equal(t, models.EstadoEnProceso, result.Event.Estado)
	require.NotNil(t, result.Pago.UsuarioID)
	assert.Equal(t, cajaID, *result.Pago.UsuarioID)

	p, ok := s.store.Product(sillas)
	require.True(t, ok)
	assert.Equal(t, 2, p.Stock)

	rec = s.do("DELETE", fmt.Sprintf("/api/eventos/%d", d.ID), adminID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, errorBody(t, rec).Count)

	rec = s.do("GET", fmt.Sprintf("/api/eventos/%d/pagos", d.ID), cajaID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pagos []models.Payment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pagos))
	assert.Len(t, pagos, 1)
}

func TestChecklistOverHTTP(t *testing.T) {
	s := newTestServer(t)
	planID := s.store.AddPlan(models.Plan{Nombre: "Boda", PrecioBase: decimal.NewFromInt(100)}, nil, []string{"Flores", "Banquete"})
	d := s.createEvent(&planID)

	done := true
	rec := s.do("PUT", fmt.Sprintf("/api/eventos/%d/servicios/%d", d.ID, d.Servicios.Items[0].ID), coordID,
		models.UpdateChecklistItemRequest{Completado: &done})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cl models.Checklist
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cl))
	assert.Equal(t, 50.0, cl.Progreso)

	rec = s.do("DELETE", fmt.Sprintf("/api/eventos/%d/servicios/%d", d.ID, d.Servicios.Items[0].ID), coordID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestNotFoundAndBadInput(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("GET", "/api/eventos/404", cajaID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperr.KindNotFound, errorBody(t, rec).Kind)

	rec = s.do("GET", "/api/nada", cajaID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest("POST", "/api/eventos", bytes.NewBufferString("{no es json"))
	token, err := s.jwt.GenerateToken(s.users[coordID])
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	out := httptest.NewRecorder()
	s.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)

	rec = s.do("GET", "/api/eventos?desde=mañana", cajaID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("GET", "/health", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
