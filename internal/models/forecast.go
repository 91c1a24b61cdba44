package models

type ForecastDay struct {
	Date           string  `json:"date"`
	TemperatureMax float64 `json:"temperature_max"`
	TemperatureMin float64 `json:"temperature_min"`
	Weather        string  `json:"weather"`
}

type CityForecast struct {
	City     City
	Forecast []ForecastDay
}

// OneCallResponse is the subset of the One Call payload the service reads.
type OneCallResponse struct {
	Daily []DailyEntry `json:"daily"`
}

type DailyEntry struct {
	Dt      int64              `json:"dt"`
	Temp    DailyTemperature   `json:"temp"`
	Weather []WeatherCondition `json:"weather"`
}

type DailyTemperature struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

type WeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}
