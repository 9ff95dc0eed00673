package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"controlling_shade/internal/config"
	"controlling_shade/internal/models"
	"controlling_shade/internal/motion"
	"controlling_shade/internal/service"
)

func TestPropertyHandlers_Read(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Stepper.CloseSpeed = 650
	s := &service.Service{
		Authorization: &mockAuth{parseID: 1},
		Properties:    &mockProperties{settings: settings},
	}

	w := send(t, s, http.MethodGet, "/api/v1/config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("config status=%d", w.Code)
	}
	var got config.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Stepper.CloseSpeed != 650 {
		t.Fatalf("close_speed=%d", got.Stepper.CloseSpeed)
	}

	w = send(t, s, http.MethodGet, "/api/v1/properties", "")
	if w.Code != http.StatusOK {
		t.Fatalf("properties status=%d", w.Code)
	}
	var out struct {
		Values map[string]any `json:"values"`
		Fields []struct {
			Name  string `json:"name"`
			Kind  string `json:"kind"`
			Group string `json:"group"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Values["close_speed"] != float64(650) {
		t.Fatalf("close_speed=%v", out.Values["close_speed"])
	}
	if len(out.Fields) == 0 || out.Fields[0].Kind == "" || out.Fields[0].Group == "" {
		t.Fatalf("fields=%+v", out.Fields)
	}
}

func TestPropertyHandlers_Set(t *testing.T) {
	props := &mockProperties{}
	s := &service.Service{
		Authorization: &mockAuth{parseID: 1},
		Properties:    props,
		Monitoring:    &mockMonitoring{state: models.ShadeState{State: "StandBy"}},
	}

	w := send(t, s, http.MethodPut, "/api/v1/properties/close_speed", `{"value":"650"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if props.lastName != "close_speed" || props.lastValue != "650" {
		t.Fatalf("forwarded %q=%q", props.lastName, props.lastValue)
	}

	if w = send(t, s, http.MethodPut, "/api/v1/properties/close_speed", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing value: status=%d", w.Code)
	}

	props.err = motion.ErrNotStandBy
	if w = send(t, s, http.MethodPut, "/api/v1/properties/open_position", `{"value":"8000"}`); w.Code != http.StatusConflict {
		t.Fatalf("locked calibration: status=%d, want 409", w.Code)
	}
}
