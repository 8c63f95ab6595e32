package db

import "testing"

func TestCounterMapScanObjectForm(t *testing.T) {
	var m CounterMap
	if err := m.Scan([]byte(`{"Chrome": 3, "Firefox": 1}`)); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if m["Chrome"] != 3 || m["Firefox"] != 1 {
		t.Fatalf("unexpected map: %v", m)
	}
}

func TestCounterMapScanStringForm(t *testing.T) {
	// 历史数据可能被双重编码为 JSON 字符串
	var m CounterMap
	if err := m.Scan(`"{\"14\": 2}"`); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if m["14"] != 2 {
		t.Fatalf("unexpected map: %v", m)
	}
}

func TestCounterMapScanGarbageDefaultsEmpty(t *testing.T) {
	var m CounterMap
	if err := m.Scan([]byte(`not json at all`)); err != nil {
		t.Fatalf("scan must not fail on garbage: %v", err)
	}
	if len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}

	if err := m.Scan(nil); err != nil {
		t.Fatalf("scan must not fail on nil: %v", err)
	}
	if m == nil {
		t.Fatal("scan must leave a usable empty map")
	}
}

func TestCounterMapRoundTrip(t *testing.T) {
	m := CounterMap{"desktop": 5}
	m.Bump("desktop")
	m.Bump("mobile")

	value, err := m.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}

	var back CounterMap
	if err := back.Scan(value); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if back["desktop"] != 6 || back["mobile"] != 1 {
		t.Fatalf("unexpected round trip: %v", back)
	}
}
