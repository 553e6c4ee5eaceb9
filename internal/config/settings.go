package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"

	"autonome/internal/core"
	"autonome/internal/ledger"
	"autonome/internal/log"
	"autonome/internal/report"
)

// Settings keys in the key-value store.
const (
	KeyTPSRate          = "tps_rate"
	KeyTVQRate          = "tvq_rate"
	KeyMonthlyGoal      = "monthly_goal_cents"
	KeyEstimatedTaxRate = "estimated_tax_rate"
	KeyLocale           = "locale"
	KeyCurrency         = "currency"
	KeyPIN              = "pin"
	KeyCompanyName      = "company_name"
	KeyCompanyAddress   = "company_address"
	KeyCompanyPhone     = "company_phone"
	KeyCompanyEmail     = "company_email"
	KeyTPSNumber        = "company_tps_number"
	KeyTVQNumber        = "company_tvq_number"
	KeyCategoryMapping  = "category_mapping_version"
)

var ErrInvalidSetting = errors.New("invalid setting")

type CompanyProfile struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	TPSNumber string `json:"tpsNumber"`
	TVQNumber string `json:"tvqNumber"`
}

// Settings are the user preferences the ledger reads. They are passed
// explicitly to the components that need them.
type Settings struct {
	TPSRate                float64        `json:"tpsRate"`
	TVQRate                float64        `json:"tvqRate"`
	MonthlyGoal            core.Money     `json:"monthlyGoal"`
	EstimatedTaxRate       float64        `json:"estimatedTaxRate"`
	Locale                 string         `json:"locale"`
	Currency               string         `json:"currency"`
	PIN                    string         `json:"pin,omitempty"`
	Company                CompanyProfile `json:"company"`
	CategoryMappingVersion int            `json:"categoryMappingVersion"`
}

func DefaultSettings() Settings {
	return Settings{
		TPSRate:                0.05,
		TVQRate:                0.09975,
		EstimatedTaxRate:       0.25,
		Locale:                 "fr",
		Currency:               money.CAD,
		CategoryMappingVersion: core.LatestCategoryMappingVersion(),
	}
}

func (s Settings) TaxRates() core.TaxRates {
	return core.TaxRates{TPS: s.TPSRate, TVQ: s.TVQRate}
}

// ReportParams are the summary inputs derived from the settings.
func (s Settings) ReportParams() report.Params {
	return report.Params{
		MonthlyGoal:      s.MonthlyGoal,
		EstimatedTaxRate: s.EstimatedTaxRate,
		Normalizer:       core.NewCategoryNormalizer(s.CategoryMappingVersion),
	}
}

// Validate reports every invalid field in one error.
func (s Settings) Validate() error {
	var problems []string
	for _, r := range []struct {
		name string
		rate float64
	}{{"tps rate", s.TPSRate}, {"tvq rate", s.TVQRate}, {"estimated tax rate", s.EstimatedTaxRate}} {
		if r.rate < 0 || r.rate > 1 {
			problems = append(problems, fmt.Sprintf("%s %v must be between 0 and 1", r.name, r.rate))
		}
	}
	if s.MonthlyGoal.Cents < 0 {
		problems = append(problems, "monthly goal must not be negative")
	}
	if s.Locale != "fr" && s.Locale != "en" {
		problems = append(problems, fmt.Sprintf("locale %q must be fr or en", s.Locale))
	}
	if money.GetCurrency(s.Currency) == nil {
		problems = append(problems, fmt.Sprintf("unknown currency %q", s.Currency))
	}
	if s.PIN != "" {
		if len(s.PIN) < 4 || len(s.PIN) > 8 || strings.Trim(s.PIN, "0123456789") != "" {
			problems = append(problems, "pin must be 4 to 8 digits")
		}
	}
	if s.CategoryMappingVersion < 1 || s.CategoryMappingVersion > core.LatestCategoryMappingVersion() {
		problems = append(problems, fmt.Sprintf("category mapping version %d does not exist", s.CategoryMappingVersion))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSetting, strings.Join(problems, "; "))
	}
	return nil
}

// SettingsStore loads and saves Settings through a key-value store.
type SettingsStore struct {
	kv     ledger.KVStore
	logger *log.Logger
}

func NewSettingsStore(kv ledger.KVStore, logger *log.Logger) *SettingsStore {
	if logger == nil {
		logger = log.Default(log.ComponentApp)
	}
	return &SettingsStore{kv: kv, logger: logger}
}

// Load returns the stored settings over the defaults. A stored value that
// does not parse keeps its default and is logged.
func (s *SettingsStore) Load(ctx context.Context) (Settings, error) {
	pairs, err := s.kv.Settings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	out := DefaultSettings()
	float := func(key string, dst *float64) {
		if v, ok := pairs[key]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				s.logger.WarnContext(ctx, "Ignoring unparseable setting", "key", key, "value", v)
				return
			}
			*dst = f
		}
	}
	str := func(key string, dst *string) {
		if v, ok := pairs[key]; ok {
			*dst = v
		}
	}

	float(KeyTPSRate, &out.TPSRate)
	float(KeyTVQRate, &out.TVQRate)
	float(KeyEstimatedTaxRate, &out.EstimatedTaxRate)
	if v, ok := pairs[KeyMonthlyGoal]; ok {
		if cents, err := strconv.ParseInt(v, 10, 64); err == nil {
			out.MonthlyGoal = core.Money{Cents: cents}
		} else {
			s.logger.WarnContext(ctx, "Ignoring unparseable setting", "key", KeyMonthlyGoal, "value", v)
		}
	}
	if v, ok := pairs[KeyCategoryMapping]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.CategoryMappingVersion = n
		} else {
			s.logger.WarnContext(ctx, "Ignoring unparseable setting", "key", KeyCategoryMapping, "value", v)
		}
	}
	str(KeyLocale, &out.Locale)
	str(KeyCurrency, &out.Currency)
	str(KeyPIN, &out.PIN)
	str(KeyCompanyName, &out.Company.Name)
	str(KeyCompanyAddress, &out.Company.Address)
	str(KeyCompanyPhone, &out.Company.Phone)
	str(KeyCompanyEmail, &out.Company.Email)
	str(KeyTPSNumber, &out.Company.TPSNumber)
	str(KeyTVQNumber, &out.Company.TVQNumber)
	return out, nil
}

// Save validates st and writes every key.
func (s *SettingsStore) Save(ctx context.Context, st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	pairs := [][2]string{
		{KeyTPSRate, strconv.FormatFloat(st.TPSRate, 'f', -1, 64)},
		{KeyTVQRate, strconv.FormatFloat(st.TVQRate, 'f', -1, 64)},
		{KeyEstimatedTaxRate, strconv.FormatFloat(st.EstimatedTaxRate, 'f', -1, 64)},
		{KeyMonthlyGoal, strconv.FormatInt(st.MonthlyGoal.Cents, 10)},
		{KeyLocale, st.Locale},
		{KeyCurrency, st.Currency},
		{KeyPIN, st.PIN},
		{KeyCompanyName, st.Company.Name},
		{KeyCompanyAddress, st.Company.Address},
		{KeyCompanyPhone, st.Company.Phone},
		{KeyCompanyEmail, st.Company.Email},
		{KeyTPSNumber, st.Company.TPSNumber},
		{KeyTVQNumber, st.Company.TVQNumber},
		{KeyCategoryMapping, strconv.Itoa(st.CategoryMappingVersion)},
	}
	for _, p := range pairs {
		if err := s.kv.SetSetting(ctx, p[0], p[1]); err != nil {
			return fmt.Errorf("save %s: %w", p[0], err)
		}
	}
	return nil
}

// TaxRates reads the current rates for invoicing.
func (s *SettingsStore) TaxRates(ctx context.Context) (core.TaxRates, error) {
	st, err := s.Load(ctx)
	if err != nil {
		return core.TaxRates{}, err
	}
	return st.TaxRates(), nil
}
