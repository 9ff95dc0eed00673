package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"controlling_shade/internal/config"
	"controlling_shade/internal/models"
	"controlling_shade/internal/repository"
	"controlling_shade/internal/repository/db"
)

func TestSQLite_EndToEnd(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "shade.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer conn.Close()
	repos := repository.NewRepository(conn)
	c := context.Background()

	if _, ok, err := repos.ConfigRepo.Load(c); err != nil || ok {
		t.Fatalf("fresh db: ok=%v err=%v", ok, err)
	}
	s := config.DefaultSettings()
	s.NightMode.Enabled = true
	s.Calibration.Offset = 75
	for i := 0; i < 2; i++ {
		if err := repos.ConfigRepo.Save(c, s); err != nil {
			t.Fatalf("Save #%d: %v", i, err)
		}
	}
	got, ok, err := repos.ConfigRepo.Load(c)
	if err != nil || !ok || got != s {
		t.Fatalf("Load: ok=%v err=%v got=%+v", ok, err, got)
	}

	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	for i, typ := range []string{"HOMING_STARTED", "HOMING_SUCCEEDED", "MOVE_STARTED"} {
		e := models.ShadeEvent{OccurredAt: base.Add(time.Duration(i) * time.Minute), Type: typ, Description: typ}
		if err := repos.EventRepo.Append(c, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	all, err := repos.EventRepo.List(c, models.LogFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("List all: %d events, err=%v", len(all), err)
	}
	homing, err := repos.EventRepo.List(c, models.LogFilter{Type: "homing_succeeded"})
	if err != nil || len(homing) != 1 {
		t.Fatalf("List by type: %+v err=%v", homing, err)
	}
	late, err := repos.EventRepo.List(c, models.LogFilter{From: base.Add(90 * time.Second)})
	if err != nil || len(late) != 1 || late[0].Type != "MOVE_STARTED" {
		t.Fatalf("List from: %+v err=%v", late, err)
	}

	id, err := repos.Auth.Create(c, "operator", "hash")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	u, err := repos.Auth.GetByUsername(c, "operator")
	if err != nil || u == nil || u.ID != id {
		t.Fatalf("GetByUsername: %+v err=%v", u, err)
	}
}
