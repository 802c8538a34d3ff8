package chart

import "testing"

func TestSettingsOptions(t *testing.T) {
	got, err := DefaultSettings().Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	want := DefaultOptions()
	if got.Margin != want.Margin || got.Height != want.Height || got.TickCount != want.TickCount {
		t.Errorf("Options() = %+v, want %+v", got, want)
	}
	if got.Location.String() != "UTC" {
		t.Errorf("Location = %s, want UTC", got.Location)
	}
}

func TestSettingsOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Settings)
	}{
		{"unknown zone", func(s *Settings) { s.TimeZone = "Mars/Olympus_Mons" }},
		{"negative margin", func(s *Settings) { s.MarginLeft = -1 }},
		{"bad value format", func(s *Settings) { s.ValueFormat = "%%" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.edit(&s)
			if _, err := s.Options(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
