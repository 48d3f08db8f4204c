package hibouair

// Metric names a physical quantity a reading carries.
type Metric string

const (
	MetricCO2          Metric = "co2"
	MetricTemperature  Metric = "temperature"
	MetricHumidity     Metric = "humidity"
	MetricPressure     Metric = "pressure"
	MetricAmbientLight Metric = "ambient_light"
	MetricVOC          Metric = "voc"
	MetricPM1          Metric = "pm1_0"
	MetricPM25         Metric = "pm2_5"
	MetricPM10         Metric = "pm10"
)

var climateMetrics = []Metric{MetricTemperature, MetricHumidity, MetricPressure}

var boardMetrics = map[BoardType][]Metric{
	BoardCO2: {MetricCO2, MetricTemperature, MetricHumidity, MetricPressure, MetricAmbientLight},
	BoardCO2Noise: {
		MetricCO2, MetricVOC, MetricPM1, MetricPM25, MetricPM10,
		MetricTemperature, MetricHumidity, MetricPressure,
	},
	BoardPM: {MetricPM1, MetricPM25, MetricPM10, MetricTemperature, MetricHumidity, MetricPressure},
}

// Metrics returns the quantities meaningful for the board type, in display
// order. Boards without a dedicated layout report the climate values only.
func (t BoardType) Metrics() []Metric {
	if m, ok := boardMetrics[t]; ok {
		return m
	}
	return climateMetrics
}

// Unit returns the display unit of the metric. VOC units depend on the
// reading, see VocKind.Unit.
func (m Metric) Unit() string {
	switch m {
	case MetricCO2:
		return "ppm"
	case MetricTemperature:
		return "°C"
	case MetricHumidity:
		return "%rh"
	case MetricPressure:
		return "hPa"
	case MetricAmbientLight:
		return "lux"
	case MetricPM1, MetricPM25, MetricPM10:
		return "µg/m³"
	default:
		return ""
	}
}

// Value returns the physical value of metric m, and false for unknown metrics.
func (r Reading) Value(m Metric) (float64, bool) {
	switch m {
	case MetricCO2:
		return float64(r.CO2()), true
	case MetricTemperature:
		return r.Temperature(), true
	case MetricHumidity:
		return r.Humidity(), true
	case MetricPressure:
		return r.Pressure(), true
	case MetricAmbientLight:
		return float64(r.AmbientLight), true
	case MetricVOC:
		return r.VOC(), true
	case MetricPM1:
		return r.PM1(), true
	case MetricPM25:
		return r.PM25(), true
	case MetricPM10:
		return r.PM10(), true
	default:
		return 0, false
	}
}
