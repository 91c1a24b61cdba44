package models

type ForecastResponse struct {
	Results []CityForecastResult `json:"results"`
}

type CityForecastResult struct {
	City     string        `json:"city"`
	State    string        `json:"state,omitempty"`
	Forecast []ForecastDay `json:"forecast"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
