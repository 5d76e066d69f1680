package fluxion

import (
	"encoding/json"
	"testing"
)

func TestMarshalPreservesMapOrder(t *testing.T) {
	m := NewMap()
	m.Set("zeta", 1)
	m.Set("alpha", 2)
	m.Set("mid", []any{1, "x", nil})
	b, err := MarshalJSON(m)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if got, want := string(b), `{"zeta":1,"alpha":2,"mid":[1,"x",null]}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMarshalDropsInternalKeys(t *testing.T) {
	m := NewMap()
	m.Set("__scratch", 1)
	m.Set("kept", 2)
	b, err := MarshalJSON(m)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if got, want := string(b), `{"kept":2}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMarshalFunctionValuesAsTags(t *testing.T) {
	res := runSrc(t, "func probe_all(hosts) {\n return hosts\n}\nlet f = probe_all", nil)
	b, err := MarshalJSON(res.Vars["f"])
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if got, want := string(b), `"<func probe_all>"`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestJsonifyRoundTrip(t *testing.T) {
	src := `return jsonify({name: "scan", ports: [80, 443], deep: {ok: true}})`
	res := runSrc(t, src, nil)
	encoded, ok := res.Return.(string)
	if !ok {
		t.Fatalf("jsonify returned %T", res.Return)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["name"] != "scan" {
		t.Errorf("name = %v", decoded["name"])
	}
	ports, ok := decoded["ports"].([]any)
	if !ok || len(ports) != 2 || ports[0] != float64(80) {
		t.Errorf("ports = %v", decoded["ports"])
	}
	deep, ok := decoded["deep"].(map[string]any)
	if !ok || deep["ok"] != true {
		t.Errorf("deep = %v", decoded["deep"])
	}
}
