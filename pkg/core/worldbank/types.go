package worldbank

// Country is a World Bank economy.
type Country struct {
	ID          string `json:"id"` // ISO 3166-1 alpha-3
	ISO2        string `json:"iso2"`
	Name        string `json:"name"`
	Region      string `json:"region"`
	IncomeLevel string `json:"income_level"`
}

// IsAggregate reports whether the entry is a regional or income-group aggregate
// rather than a single economy.
func (c Country) IsAggregate() bool {
	return c.Region == aggregatesRegion
}

// Indicator is the metadata of one World Bank indicator.
type Indicator struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Unit        string `json:"unit"`
}

// Observation is one (country, year) value of an indicator.
type Observation struct {
	CountryID   string  `json:"country_id"`
	CountryName string  `json:"country_name"`
	Year        int     `json:"year"`
	Value       float64 `json:"value"`
}

// CountrySeries is the time series of one indicator for one country.
// Years without a value upstream are absent from Points.
type CountrySeries struct {
	CountryID string        `json:"country_id"`
	Points    []Observation `json:"points"`
}

// --- wire types ---

const aggregatesRegion = "Aggregates"

type pageMeta struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
}

type apiMessage struct {
	Message []struct {
		ID    string `json:"id"`
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"message"`
}

type idValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type wireCountry struct {
	ID          string  `json:"id"`
	ISO2Code    string  `json:"iso2Code"`
	Name        string  `json:"name"`
	Region      idValue `json:"region"`
	IncomeLevel idValue `json:"incomeLevel"`
}

type wireIndicator struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Unit               string  `json:"unit"`
	Source             idValue `json:"source"`
	SourceNote         string  `json:"sourceNote"`
	SourceOrganization string  `json:"sourceOrganization"`
}

type wireObservation struct {
	Indicator       idValue  `json:"indicator"`
	Country         idValue  `json:"country"`
	CountryISO3Code string   `json:"countryiso3code"`
	Date            string   `json:"date"`
	Value           *float64 `json:"value"`
}
