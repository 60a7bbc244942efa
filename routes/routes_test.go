package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"freshdock/config"
	"freshdock/controllers"
	"freshdock/database/dbtest"
	"freshdock/events"
	"freshdock/middleware"
	"freshdock/models"
	"freshdock/notify"
	"freshdock/services"
	"freshdock/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testToken = "metro-intake-token"

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type server struct {
	app *fiber.App
	db  *gorm.DB
}

func newServer(t *testing.T) *server {
	t.Helper()
	config.MAIN_ROUTES = "/api/v1"
	config.PUBLIC_ROUTES = "/public/api/v1"
	config.UploadRoute = "/uploads"
	config.UploadDir = t.TempDir()

	db := dbtest.New(t)
	log := zap.NewNop()

	hash, err := services.HashPassword("password123")
	require.NoError(t, err)
	receiver := &models.Business{Name: "Metro Fresh Markets", Type: models.BusinessReceiver, IntakeToken: testToken}
	supplier := &models.Business{Name: "Sunny Ridge Farms", Type: models.BusinessSupplier}
	require.NoError(t, db.Create(receiver).Error)
	require.NoError(t, db.Create(supplier).Error)
	require.NoError(t, db.Create(&models.User{Email: "staff@metro.test", Password: hash, Role: models.RoleStaff, BusinessID: receiver.ID}).Error)
	require.NoError(t, db.Create(&models.User{Email: "grower@sunny.test", Password: hash, Role: models.RoleSupplier, BusinessID: supplier.ID}).Error)
	require.NoError(t, db.Create(&models.Connection{SupplierBusinessID: supplier.ID, ReceiverBusinessID: receiver.ID, Status: models.ConnectionApproved}).Error)

	hub := events.NewHub(0, nil, log)
	store, err := storage.NewLocal(config.UploadDir, "/uploads")
	require.NoError(t, err)
	policy, err := middleware.NewPolicy()
	require.NoError(t, err)
	mail := notify.NewNotifier(notify.NewLogMailer(log), 1, 16, log)

	receivers := services.NewReceiverCache(db, time.Minute)
	auth := services.NewAuthService(db, "routes-test", time.Hour)
	dispatches := services.NewDispatchService(db, hub, log)
	advice := services.NewAdviceService(db, hub, "https://freshdock.test", log)
	export := services.NewExportService(dispatches, db)
	intake := services.NewIntakeService(dispatches, receivers, mail, "https://freshdock.test", log)
	links := services.NewIntakeLinkService(db, "https://freshdock.test")

	app := fiber.New()
	Setup(app, Deps{
		Parser:    auth,
		Policy:    policy,
		Auth:      controllers.NewAuthController(auth),
		Dispatch:  controllers.NewDispatchController(dispatches, advice, export, store),
		Stream:    controllers.NewStreamController(dispatches, hub),
		Business:  controllers.NewBusinessController(services.NewBusinessService(db, receivers), services.NewConnectionService(db), services.NewProvisioningService(db, mail, "https://freshdock.test/login", log)),
		Templates: controllers.NewTemplateController(services.NewTemplateService(db)),
		Intake:    controllers.NewIntakeController(intake, links, dispatches),
	})
	return &server{app: app, db: db}
}

func (s *server) do(t *testing.T, method, path, bearer string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func (s *server) login(t *testing.T, email string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, status)
	var tok services.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	return tok.AccessToken
}

func intakeBody(token string) map[string]any {
	return map[string]any{
		"token":       token,
		"grower_name": "Sunny Ridge",
		"items":       []map[string]any{{"product": "Bananas", "quantity": 60}},
	}
}

func TestPublicIntake(t *testing.T) {
	s := newServer(t)

	status, env := s.do(t, http.MethodPost, "/public/api/v1/intake", "", intakeBody(testToken))
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)
	var receipt services.IntakeReceipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.True(t, strings.HasPrefix(receipt.DisplayID, "FD"))

	status, env = s.do(t, http.MethodPost, "/public/api/v1/intake", "", intakeBody("unknown"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)

	bad := intakeBody(testToken)
	bad["items"] = []map[string]any{}
	status, env = s.do(t, http.MethodPost, "/public/api/v1/intake", "", bad)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "items")

	status, env = s.do(t, http.MethodGet, "/public/api/v1/intake/"+testToken+"/history?grower=Sunny%20Ridge", "", nil)
	require.Equal(t, http.StatusOK, status)
	var history []services.DispatchView
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, receipt.DisplayID, history[0].DisplayID)

	var d models.Dispatch
	require.NoError(t, s.db.First(&d, "display_id = ?", receipt.DisplayID).Error)
	status, _ = s.do(t, http.MethodGet, "/public/api/v1/status/"+d.PublicCode, "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDispatchLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	staff := s.login(t, "staff@metro.test")
	grower := s.login(t, "grower@sunny.test")

	var receiver models.Business
	require.NoError(t, s.db.First(&receiver, "name = ?", "Metro Fresh Markets").Error)

	status, env := s.do(t, http.MethodPost, "/api/v1/dispatches", grower, map[string]any{
		"receiver_business_id": receiver.ID,
		"items":                []map[string]any{{"product": "Lemons", "quantity": 5}},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var created services.DispatchView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	base := "/api/v1/dispatches/" + created.ID.String()

	status, _ = s.do(t, http.MethodPost, base+"/arrive", staff, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, env = s.do(t, http.MethodPost, base+"/pickup", grower, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "con_note_number")

	status, _ = s.do(t, http.MethodPost, base+"/pickup", grower, map[string]string{"con_note_number": "CN-77"})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, base+"/receive", grower, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, base+"/arrive", staff, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.do(t, http.MethodPost, base+"/receive", staff, nil)
	require.Equal(t, http.StatusOK, status)
	var received services.DispatchView
	require.NoError(t, json.Unmarshal(env.Data, &received))
	assert.Equal(t, models.StatusReceived, received.Status)

	status, env = s.do(t, http.MethodGet, base+"/events", staff, nil)
	require.Equal(t, http.StatusOK, status)
	var timeline []models.DispatchEvent
	require.NoError(t, json.Unmarshal(env.Data, &timeline))
	assert.Len(t, timeline, 5)

	status, _ = s.do(t, http.MethodGet, "/api/v1/dispatches/abc", staff, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = s.do(t, http.MethodGet, "/api/v1/dispatches/123", staff, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestIntakeDispatchDrivenByReceivingStaff(t *testing.T) {
	s := newServer(t)
	staff := s.login(t, "staff@metro.test")

	status, env := s.do(t, http.MethodPost, "/public/api/v1/intake", "", intakeBody(testToken))
	require.Equal(t, http.StatusCreated, status)
	var receipt services.IntakeReceipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	var d models.Dispatch
	require.NoError(t, s.db.First(&d, "display_id = ?", receipt.DisplayID).Error)
	base := "/api/v1/dispatches/" + d.ID.String()

	status, env = s.do(t, http.MethodPut, base+"/eta", staff, map[string]string{"expected_arrival": "2026-10-21", "arrival_window": "06:00-08:00"})
	require.Equal(t, http.StatusOK, status, env.Message)
	var view services.DispatchView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.ExpectedArrival)
	assert.True(t, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC).Equal(*view.ExpectedArrival))

	status, env = s.do(t, http.MethodPut, base+"/con-note", staff, map[string]string{"con_note_number": "CN-1"})
	require.Equal(t, http.StatusOK, status, env.Message)
	status, env = s.do(t, http.MethodPost, base+"/pickup", staff, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	status, _ = s.do(t, http.MethodPost, base+"/arrive", staff, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.do(t, http.MethodPost, base+"/receive", staff, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, models.StatusReceived, view.Status)
	assert.Equal(t, "CN-1", view.ConNoteNumber)
}

func TestLinkedDispatchPickupStaysWithGrower(t *testing.T) {
	s := newServer(t)
	staff := s.login(t, "staff@metro.test")
	grower := s.login(t, "grower@sunny.test")

	var receiver models.Business
	require.NoError(t, s.db.First(&receiver, "name = ?", "Metro Fresh Markets").Error)
	status, env := s.do(t, http.MethodPost, "/api/v1/dispatches", grower, map[string]any{
		"receiver_business_id": receiver.ID,
		"items":                []map[string]any{{"product": "Lemons", "quantity": 5}},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var created services.DispatchView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	base := "/api/v1/dispatches/" + created.ID.String()

	status, _ = s.do(t, http.MethodPost, base+"/pickup", staff, map[string]string{"con_note_number": "CN-5"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(t, http.MethodPut, base+"/eta", grower, map[string]string{"expected_arrival": "21/10/2026"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "expected_arrival")

	status, env = s.do(t, http.MethodPut, base+"/eta", grower, map[string]string{"expected_arrival": "2026-10-21"})
	require.Equal(t, http.StatusOK, status, env.Message)
}

func TestBlankProductRejected(t *testing.T) {
	s := newServer(t)

	body := intakeBody(testToken)
	body["items"] = []map[string]any{{"product": "   ", "quantity": 3}}
	status, env := s.do(t, http.MethodPost, "/public/api/v1/intake", "", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "items[0].product")

	var count int64
	require.NoError(t, s.db.Model(&models.Dispatch{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAdviceDownload(t *testing.T) {
	s := newServer(t)
	staff := s.login(t, "staff@metro.test")

	status, env := s.do(t, http.MethodPost, "/public/api/v1/intake", "", intakeBody(testToken))
	require.Equal(t, http.StatusCreated, status)
	var receipt services.IntakeReceipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	var d models.Dispatch
	require.NoError(t, s.db.First(&d, "display_id = ?", receipt.DisplayID).Error)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dispatches/"+d.ID.String()+"/advice", nil)
	req.Header.Set("Authorization", "Bearer "+staff)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), receipt.DeliveryAdviceNumber+".pdf")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestShortLinkRedirect(t *testing.T) {
	s := newServer(t)
	staff := s.login(t, "staff@metro.test")

	status, env := s.do(t, http.MethodPost, "/api/v1/intake-links", staff, map[string]string{"grower_name": "Sunny Ridge"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var link models.SupplierIntakeLink
	require.NoError(t, json.Unmarshal(env.Data, &link))

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/l/"+link.ShortCode, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "https://freshdock.test/intake/"+testToken))

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/l/nothing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthMeHidesTokenFromSuppliers(t *testing.T) {
	s := newServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := s.do(t, http.MethodGet, "/api/v1/auth/me", s.login(t, "grower@sunny.test"), nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		Business models.Business `json:"business"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Empty(t, me.Business.IntakeToken)

	status, env = s.do(t, http.MethodGet, "/api/v1/auth/me", s.login(t, "staff@metro.test"), nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, testToken, me.Business.IntakeToken)
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	status, env := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}
