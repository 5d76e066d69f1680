package fluxion

import (
	"testing"
	"time"
)

func TestDecodeVarsIntoStruct(t *testing.T) {
	src := `let target = "10.0.0.1"
let attempts = 3
let ratio = 2.5
let open_ports = [80, 443]
let meta = {region: "eu", tier: 1}
let started = "2024-03-01T10:00:00Z"`
	res := runSrc(t, src, nil)

	var out struct {
		Target    string         `json:"target"`
		Attempts  int            `json:"attempts"`
		Ratio     float64        `json:"ratio"`
		OpenPorts []int          `json:"open_ports"`
		Meta      map[string]any `json:"meta"`
		Started   time.Time      `json:"started"`
	}
	if err := res.Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Target != "10.0.0.1" || out.Attempts != 3 || out.Ratio != 2.5 {
		t.Errorf("scalars = %+v", out)
	}
	if len(out.OpenPorts) != 2 || out.OpenPorts[1] != 443 {
		t.Errorf("open_ports = %v", out.OpenPorts)
	}
	if out.Meta["region"] != "eu" {
		t.Errorf("meta = %v", out.Meta)
	}
	if out.Started.Year() != 2024 || out.Started.Month() != time.March {
		t.Errorf("started = %v", out.Started)
	}
}

func TestDecodeFieldNameFallback(t *testing.T) {
	var out struct {
		HostName string
	}
	if err := DecodeVars(map[string]any{"hostname": "edge-1"}, &out); err != nil {
		t.Fatalf("DecodeVars failed: %v", err)
	}
	if out.HostName != "edge-1" {
		t.Errorf("HostName = %q", out.HostName)
	}
}

func TestDecodeRejectsNonPointer(t *testing.T) {
	var out struct{ A int }
	if err := DecodeVars(map[string]any{"a": 1}, out); err == nil {
		t.Error("expected error for non-pointer target")
	}
}

func TestDecodeTypeMismatch(t *testing.T) {
	var out struct {
		Count int `json:"count"`
	}
	if err := DecodeVars(map[string]any{"count": "three"}, &out); err == nil {
		t.Error("expected error assigning string to int")
	}
}
