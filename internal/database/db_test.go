package database

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"testing/fstest"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_quotes.up.sql":      {Data: []byte("SELECT 2")},
		"001_init.up.sql":        {Data: []byte("SELECT 1")},
		"001_init.down.sql":      {Data: []byte("SELECT 0")},
		"003_snapshots.up.sql":   {Data: []byte("SELECT 3")},
		"README.md":              {Data: []byte("docs")},
		"nested/004_skip.up.sql": {Data: []byte("SELECT 4")},
	}

	got, err := PendingMigrations(fsys, map[string]bool{"002_quotes.up.sql": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"001_init.up.sql", "003_snapshots.up.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pending = %v, want %v", got, want)
	}
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(_ context.Context) error { return m.err }

func TestHealthy(t *testing.T) {
	if err := Healthy(context.Background(), mockPinger{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Healthy(context.Background(), mockPinger{err: errors.New("down")}); err == nil {
		t.Error("expected error for failing ping")
	}
	if err := Healthy(context.Background(), nil); err == nil {
		t.Error("expected error for nil pinger")
	}
}
