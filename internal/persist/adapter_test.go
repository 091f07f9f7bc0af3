package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jpalmerr/daystatus/internal/substrate"
)

const (
	primary = "status_v2"
	legacy  = "status_v1"
)

func newAdapter(tab substrate.Substrate) *Adapter {
	return &Adapter{
		Substrate:  tab,
		PrimaryKey: primary,
		LegacyKey:  legacy,
		Version:    2,
		Now:        func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func TestAdapter_LoadEmpty(t *testing.T) {
	a := newAdapter(substrate.NewMemory(0).Tab())

	entries, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if entries != nil {
		t.Errorf("Load() = %v, want nil", entries)
	}
}

func TestAdapter_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	tab := substrate.NewMemory(0).Tab()
	a := newAdapter(tab)

	in := map[string]json.RawMessage{
		"2024-01-01": json.RawMessage(`{"date":"2024-01-01"}`),
		"2024-01-02": json.RawMessage(`{"date":"2024-01-02"}`),
	}
	if err := a.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, ok, _ := tab.Get(ctx, primary)
	if !ok {
		t.Fatal("primary key not written")
	}
	meta, ok, err := DecodeMetadata(raw)
	if err != nil || !ok {
		t.Fatalf("DecodeMetadata() = %v %v", ok, err)
	}
	if meta.Count != 2 || meta.Version != 2 {
		t.Errorf("metadata = %+v, want count 2 version 2", meta)
	}
	if !meta.LastModified.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("LastModified = %v", meta.LastModified)
	}

	out, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Load() = %d entries, want 2", len(out))
	}
	if _, ok := out[MetadataKey]; ok {
		t.Error("Load() kept the metadata entry")
	}
	if string(out["2024-01-01"]) != `{"date":"2024-01-01"}` {
		t.Errorf("entry = %s", out["2024-01-01"])
	}
}

func TestAdapter_LegacyFallback(t *testing.T) {
	ctx := context.Background()
	tab := substrate.NewMemory(0).Tab()
	a := newAdapter(tab)

	_ = tab.Set(ctx, legacy, `{"2023-12-31":{"status":"cancelled"}}`)

	out, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := out["2023-12-31"]; !ok {
		t.Fatalf("Load() = %v, want legacy entry", out)
	}

	// saving never touches the legacy key
	if err := a.Save(ctx, out); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	raw, _, _ := tab.Get(ctx, legacy)
	if raw != `{"2023-12-31":{"status":"cancelled"}}` {
		t.Errorf("legacy key rewritten: %s", raw)
	}
}

func TestAdapter_PrimaryWinsOverLegacy(t *testing.T) {
	ctx := context.Background()
	tab := substrate.NewMemory(0).Tab()
	a := newAdapter(tab)

	_ = tab.Set(ctx, legacy, `{"2023-12-31":{}}`)
	_ = tab.Set(ctx, primary, `{"2024-01-01":{}}`)

	out, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := out["2024-01-01"]; !ok || len(out) != 1 {
		t.Errorf("Load() = %v, want only primary entry", out)
	}
}

func TestAdapter_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	tab := substrate.NewMemory(0).Tab()
	a := newAdapter(tab)

	_ = tab.Set(ctx, primary, `{not json`)

	_, err := a.Load(ctx)
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Load() error = %v, want *Error", err)
	}
	if perr.Op != "load" || perr.Key != primary {
		t.Errorf("error = %+v, want load of primary", perr)
	}
}

func TestAdapter_SaveQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(substrate.NewMemory(16).Tab())

	err := a.Save(ctx, map[string]json.RawMessage{
		"2024-01-01": json.RawMessage(`{"globalMessage":"far too long for sixteen bytes"}`),
	})
	if !errors.Is(err, substrate.ErrQuotaExceeded) {
		t.Fatalf("Save() error = %v, want ErrQuotaExceeded", err)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Op != "save" {
		t.Errorf("Save() error = %v, want *Error op save", err)
	}
}

func TestAdapter_Clear(t *testing.T) {
	ctx := context.Background()
	tab := substrate.NewMemory(0).Tab()
	a := newAdapter(tab)

	_ = tab.Set(ctx, legacy, `{}`)
	_ = a.Save(ctx, map[string]json.RawMessage{"2024-01-01": json.RawMessage(`{}`)})

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	for _, k := range []string{primary, legacy} {
		if _, ok, _ := tab.Get(ctx, k); ok {
			t.Errorf("key %q still present after Clear", k)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"object", `{"2024-01-01":{},"_metadata":{"count":1}}`, 1, false},
		{"empty object", `{}`, 0, false},
		{"array", `[1,2]`, 0, true},
		{"null", `null`, 0, true},
		{"garbage", `<<<`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("Decode() = %d entries, want %d", len(got), tt.want)
			}
		})
	}
}
