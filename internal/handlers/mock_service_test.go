package handlers

import (
	"context"
	"net/http"
	"sync"

	"controlling_shade/internal/config"
	"controlling_shade/internal/models"
	"controlling_shade/internal/notify"
	"controlling_shade/internal/registry"
	"controlling_shade/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockShade records the commands it receives. err is returned by every call.
type mockShade struct {
	mu       sync.Mutex
	err      error
	calls    []string
	position float64
}

func (m *mockShade) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	return m.err
}

func (m *mockShade) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1]
}

func (m *mockShade) Homing(context.Context) error      { return m.record("homing") }
func (m *mockShade) Open(context.Context) error        { return m.record("open") }
func (m *mockShade) Close(context.Context) error       { return m.record("close") }
func (m *mockShade) Stop(context.Context) error        { return m.record("stop") }
func (m *mockShade) ApplyOffset(context.Context) error { return m.record("apply_offset") }
func (m *mockShade) Restart(context.Context) error     { return m.record("restart") }
func (m *mockShade) MoveTo(_ context.Context, pct float64) error {
	m.mu.Lock()
	m.position = pct
	m.mu.Unlock()
	return m.record("move")
}

// mockMonitoring serves a fixed state and hands out subscriptions on bus.
type mockMonitoring struct {
	state models.ShadeState
	err   error
	bus   *notify.Bus
}

func (m *mockMonitoring) GetState(context.Context) (models.ShadeState, error) {
	return m.state, m.err
}

func (m *mockMonitoring) Subscribe(name string, fn func(notify.Notification)) *notify.Subscription {
	if m.bus == nil {
		return nil
	}
	return m.bus.Subscribe(name, fn)
}

type mockEventLog struct {
	resp       []models.ShadeEvent
	err        error
	lastFilter models.LogFilter
}

func (m *mockEventLog) List(_ context.Context, f models.LogFilter) ([]models.ShadeEvent, error) {
	m.lastFilter = f
	return m.resp, m.err
}

type mockProperties struct {
	mu        sync.Mutex
	settings  config.Settings
	err       error
	lastName  string
	lastValue string
}

func (m *mockProperties) Settings(context.Context) (config.Settings, error) {
	return m.settings, m.err
}

func (m *mockProperties) Properties(context.Context) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return registry.Values(m.settings), nil
}

func (m *mockProperties) SetProperty(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastName, m.lastValue = name, value
	return m.err
}

func (m *mockProperties) Fields() []registry.Field { return registry.All() }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, true)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
