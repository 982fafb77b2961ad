package speculos

import "testing"

func TestDeviceModelSlugs(t *testing.T) {
	seen := make(map[string]DeviceModel)
	for _, m := range AllModels() {
		slug := m.Slug()
		if slug == "" {
			t.Errorf("model %d has empty slug", int(m))
			continue
		}
		if prev, dup := seen[slug]; dup {
			t.Errorf("models %v and %v share slug %q", prev, m, slug)
		}
		seen[slug] = m
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct slugs, got %d", len(seen))
	}
}

func TestParseDeviceModel(t *testing.T) {
	for _, m := range AllModels() {
		got, err := ParseDeviceModel(m.Slug())
		if err != nil {
			t.Errorf("ParseDeviceModel(%q): %v", m.Slug(), err)
		}
		if got != m {
			t.Errorf("ParseDeviceModel(%q) = %v, want %v", m.Slug(), got, m)
		}
	}

	if _, err := ParseDeviceModel("nano"); err == nil {
		t.Error("ParseDeviceModel(\"nano\") should fail")
	}
}

func TestButtonCodes(t *testing.T) {
	if got := ButtonLeft.code(); got != 1 {
		t.Errorf("ButtonLeft code = %d, want 1", got)
	}
	if got := ButtonRight.code(); got != 2 {
		t.Errorf("ButtonRight code = %d, want 2", got)
	}
}

func TestParseButton(t *testing.T) {
	tests := []struct {
		in      string
		want    Button
		wantErr bool
	}{
		{"left", ButtonLeft, false},
		{"right", ButtonRight, false},
		{"middle", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseButton(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseButton(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseButton(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
