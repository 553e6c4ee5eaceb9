package config

import (
	"context"
	"errors"
	"testing"

	"autonome/internal/core"
	"autonome/internal/log"
	"autonome/internal/storage/memory"
)

func TestSettingsStore_LoadDefaults(t *testing.T) {
	st, err := NewSettingsStore(memory.New(), log.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultSettings()
	if st != want {
		t.Errorf("Load() = %+v, want defaults %+v", st, want)
	}
	if st.TPSRate != 0.05 || st.TVQRate != 0.09975 || st.EstimatedTaxRate != 0.25 || st.Currency != "CAD" || st.Locale != "fr" {
		t.Errorf("unexpected defaults %+v", st)
	}
}

func TestSettingsStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	store := NewSettingsStore(kv, log.Nop())

	st := DefaultSettings()
	st.TPSRate = 0.06
	st.MonthlyGoal = core.Money{Cents: 500000}
	st.Locale = "en"
	st.PIN = "1234"
	st.Company.Name = "Rénovations Gagnon"
	st.CategoryMappingVersion = 1

	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != st {
		t.Errorf("Load() = %+v, want %+v", got, st)
	}

	rates, err := store.TaxRates(ctx)
	if err != nil || rates.TPS != 0.06 {
		t.Errorf("TaxRates = %+v, %v", rates, err)
	}
	if p := got.ReportParams(); p.Normalizer.Version != 1 || p.MonthlyGoal.Cents != 500000 {
		t.Errorf("ReportParams = %+v", p)
	}
}

func TestSettingsStore_IgnoresCorruptValues(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	if err := kv.SetSetting(ctx, KeyTPSRate, "cinq pourcent"); err != nil {
		t.Fatal(err)
	}
	if err := kv.SetSetting(ctx, KeyMonthlyGoal, "beaucoup"); err != nil {
		t.Fatal(err)
	}

	st, err := NewSettingsStore(kv, log.Nop()).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.TPSRate != 0.05 || st.MonthlyGoal.Cents != 0 {
		t.Errorf("corrupt values should keep defaults, got %+v", st)
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"rate above one", func(s *Settings) { s.TVQRate = 9.975 }},
		{"negative goal", func(s *Settings) { s.MonthlyGoal = core.Money{Cents: -1} }},
		{"unknown locale", func(s *Settings) { s.Locale = "ro" }},
		{"unknown currency", func(s *Settings) { s.Currency = "XYZ" }},
		{"short pin", func(s *Settings) { s.PIN = "12" }},
		{"pin with letters", func(s *Settings) { s.PIN = "12ab" }},
		{"missing mapping", func(s *Settings) { s.CategoryMappingVersion = 99 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidSetting) {
				t.Errorf("Validate() = %v, want ErrInvalidSetting", err)
			}
		})
	}

	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}
