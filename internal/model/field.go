package model

import (
	"sort"

	"github.com/rotisserie/eris"
)

// CompanyField describes one nullable text column of a company. Name is
// both the JSON key and the database column.
type CompanyField struct {
	Name     string
	Editable bool
	str      func(*Company) **string
}

var companyFields = []CompanyField{
	{Name: "name", Editable: true, str: func(c *Company) **string { return &c.Name }},
	{Name: "country", Editable: true, str: func(c *Company) **string { return &c.Country }},
	{Name: "url", Editable: true, str: func(c *Company) **string { return &c.URL }},
	{Name: "street", Editable: true, str: func(c *Company) **string { return &c.Street }},
	{Name: "city", Editable: true, str: func(c *Company) **string { return &c.City }},
	{Name: "zip_code", Editable: true, str: func(c *Company) **string { return &c.ZipCode }},
	{Name: "state", Editable: true, str: func(c *Company) **string { return &c.State }},
	{Name: "trade_description_original", Editable: true, str: func(c *Company) **string { return &c.TradeDescriptionOriginal }},
	{Name: "trade_description_english", Editable: true, str: func(c *Company) **string { return &c.TradeDescriptionEnglish }},
	{Name: "full_overview", Editable: true, str: func(c *Company) **string { return &c.FullOverview }},
	{Name: "full_overview_manual", Editable: true, str: func(c *Company) **string { return &c.FullOverviewManual }},
	{Name: "search_id", str: func(c *Company) **string { return &c.SearchID }},
	{Name: "url_validation_url", str: func(c *Company) **string { return &c.URLValidationURL }},
	{Name: "url_validation_input", str: func(c *Company) **string { return &c.URLValidationInput }},
	{Name: "cf_products_services_hr_decision", Editable: true, str: func(c *Company) **string { return &c.CFProductsServicesHRDecision }},
	{Name: "cf_products_services_hr_motivation", Editable: true, str: func(c *Company) **string { return &c.CFProductsServicesHRMotivation }},
	{Name: "cf_functional_profile_hr_decision", Editable: true, str: func(c *Company) **string { return &c.CFFunctionalProfileHRDecision }},
	{Name: "cf_functional_profile_hr_motivation", Editable: true, str: func(c *Company) **string { return &c.CFFunctionalProfileHRMotivation }},
	{Name: "cf_independence_hr_decision", Editable: true, str: func(c *Company) **string { return &c.CFIndependenceHRDecision }},
	{Name: "cf_independence_hr_motivation", Editable: true, str: func(c *Company) **string { return &c.CFIndependenceHRMotivation }},
}

var companyFieldsByName = func() map[string]*CompanyField {
	m := make(map[string]*CompanyField, len(companyFields))
	for i := range companyFields {
		m[companyFields[i].Name] = &companyFields[i]
	}
	return m
}()

// URLValidationValidField is the only non-text company column that can be
// patched through the store.
const URLValidationValidField = "url_validation_valid"

// CompanyFields returns a copy of the text field registry in declaration order.
func CompanyFields() []CompanyField {
	out := make([]CompanyField, len(companyFields))
	copy(out, companyFields)
	return out
}

// Ref returns the address of the field on c, usable as a scan target.
func (f CompanyField) Ref(c *Company) **string {
	return f.str(c)
}

// CompanyFieldNames returns all text field names in declaration order.
func CompanyFieldNames() []string {
	names := make([]string, len(companyFields))
	for i, f := range companyFields {
		names[i] = f.Name
	}
	return names
}

// LookupCompanyField returns the field descriptor for name.
func LookupCompanyField(name string) (*CompanyField, bool) {
	f, ok := companyFieldsByName[name]
	return f, ok
}

// IsCompanyColumn reports whether name can be written by UpdateCompanyFields.
func IsCompanyColumn(name string) bool {
	if name == URLValidationValidField {
		return true
	}
	_, ok := companyFieldsByName[name]
	return ok
}

// GetCompanyField returns the value of a text field.
func GetCompanyField(c *Company, name string) (*string, error) {
	f, ok := companyFieldsByName[name]
	if !ok {
		return nil, eris.Errorf("model: unknown company field %q", name)
	}
	return *f.str(c), nil
}

// SetCompanyField assigns a text field. Blank values are stored as nil.
func SetCompanyField(c *Company, name string, v *string) error {
	f, ok := companyFieldsByName[name]
	if !ok {
		return eris.Errorf("model: unknown company field %q", name)
	}
	if v != nil {
		v = NullIfBlank(*v)
	}
	*f.str(c) = v
	return nil
}

// ApplyCompanyPatch writes each editable field in patch to c and returns the
// names of fields whose value actually changed, sorted.
func ApplyCompanyPatch(c *Company, patch map[string]*string) ([]string, error) {
	for name := range patch {
		f, ok := companyFieldsByName[name]
		if !ok {
			return nil, eris.Errorf("model: unknown company field %q", name)
		}
		if !f.Editable {
			return nil, eris.Errorf("model: company field %q is read-only", name)
		}
	}

	var changed []string
	for name, v := range patch {
		f := companyFieldsByName[name]
		if v != nil {
			v = NullIfBlank(*v)
		}
		cur := *f.str(c)
		if Str(cur) == Str(v) && (cur == nil) == (v == nil) {
			continue
		}
		*f.str(c) = v
		changed = append(changed, name)
	}
	sort.Strings(changed)
	return changed, nil
}
