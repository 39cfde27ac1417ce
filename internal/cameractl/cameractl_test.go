package cameractl

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Brightness", "brightness"},
		{"White Balance Temperature", "white_balance_temperature"},
		{"  Gain ", "gain"},
	}
	for _, c := range cases {
		if got := normalizeName(c.in); got != c.want {
			t.Errorf("normalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestControlReadOnly(t *testing.T) {
	cases := []struct {
		name  string
		flags uint32
		want  bool
	}{
		{"writable", 0, false},
		{"read-only flag", flagReadOnly, true},
		{"inactive flag", flagInactive, true},
		{"both flags", flagReadOnly | flagInactive, true},
	}
	for _, c := range cases {
		ctl := Control{Flags: c.flags}
		if got := ctl.readOnly(); got != c.want {
			t.Errorf("%s: readOnly() = %v, want %v", c.name, got, c.want)
		}
	}
}

func newTestBridge() *Bridge {
	b := New(-1)
	b.byID = map[uint32]Control{
		9963776: {ID: 9963776, Name: "Brightness", Type: TypeInteger, Min: -64, Max: 64, Default: 0, Value: 10},
		9963788: {ID: 9963788, Name: "White Balance Temperature", Type: TypeInteger, Min: 2800, Max: 6500, Default: 4600, Value: 4600, Flags: flagReadOnly},
	}
	b.byName = map[string]uint32{
		"brightness":                9963776,
		"white_balance_temperature": 9963788,
	}
	b.order = []uint32{9963776, 9963788}
	return b
}

func TestListPreservesEnumerationOrder(t *testing.T) {
	b := newTestBridge()
	list := b.List()
	if len(list) != 2 || list[0].ID != 9963776 || list[1].ID != 9963788 {
		t.Fatalf("List() = %+v, want order [9963776, 9963788]", list)
	}
}

func TestGetByNameCaseInsensitive(t *testing.T) {
	b := newTestBridge()
	ctl, ok := b.GetByName("BRIGHTNESS")
	if !ok {
		t.Fatal("GetByName(BRIGHTNESS) not found")
	}
	if ctl.ID != 9963776 {
		t.Fatalf("GetByName(BRIGHTNESS).ID = %d, want 9963776", ctl.ID)
	}

	if _, ok := b.GetByName("nonexistent"); ok {
		t.Fatal("GetByName(nonexistent) unexpectedly found")
	}
}

func TestResetOneSkipsReadOnly(t *testing.T) {
	b := newTestBridge()
	// White Balance Temperature is read-only; ResetOne must no-op rather
	// than attempt a device write (fd is -1, so a write attempt would
	// return an error).
	if err := b.ResetOne(9963788); err != nil {
		t.Fatalf("ResetOne(read-only) = %v, want nil", err)
	}
}

func TestExportNormalizesNames(t *testing.T) {
	b := newTestBridge()
	values := b.Export()
	if values["brightness"] != 10 {
		t.Errorf("Export()[brightness] = %d, want 10", values["brightness"])
	}
	if values["white_balance_temperature"] != 4600 {
		t.Errorf("Export()[white_balance_temperature] = %d, want 4600", values["white_balance_temperature"])
	}
}
