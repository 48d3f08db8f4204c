// Package exporter publishes sensor readings and driver counters as
// Prometheus metrics.
package exporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/srg/hibou/bleuio"
	"github.com/srg/hibou/hibouair"
)

const (
	sensorNamespace = "hibouair"
	driverNamespace = "bleuio"
)

// ReadingSource is the registry view the collector reads from.
type ReadingSource interface {
	Snapshot() []hibouair.Reading
	Count() uint64
	LastUpdate() time.Time
	DroppedUpdates() uint64
}

// DriverSource is the driver view the collector reads from.
type DriverSource interface {
	State() bleuio.State
	Stats() bleuio.Stats
}

var sensorLabels = []string{"board_id", "board_type"}

var metricDescs = map[hibouair.Metric]*prometheus.Desc{
	hibouair.MetricCO2:          sensorDesc("co2_ppm", "CO2 concentration in ppm."),
	hibouair.MetricTemperature:  sensorDesc("temperature_celsius", "Temperature in degrees Celsius."),
	hibouair.MetricHumidity:     sensorDesc("humidity_percent", "Relative humidity in percent."),
	hibouair.MetricPressure:     sensorDesc("pressure_hpa", "Barometric pressure in hPa."),
	hibouair.MetricAmbientLight: sensorDesc("ambient_light_lux", "Ambient light in lux."),
	hibouair.MetricVOC:          sensorDesc("voc", "Volatile organic compounds, in ppm or IAQ depending on the board."),
	hibouair.MetricPM1:          sensorDesc("pm1_0_ugm3", "PM1.0 concentration in micrograms per cubic meter."),
	hibouair.MetricPM25:         sensorDesc("pm2_5_ugm3", "PM2.5 concentration in micrograms per cubic meter."),
	hibouair.MetricPM10:         sensorDesc("pm10_ugm3", "PM10 concentration in micrograms per cubic meter."),
}

func sensorDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(sensorNamespace, "", name), help, sensorLabels, nil)
}

var (
	sensorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(sensorNamespace, "", "sensors"),
		"Number of sensors with a reading.", nil, nil)
	readingsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(sensorNamespace, "", "readings_total"),
		"Readings accepted since start.", nil, nil)
	lastUpdateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(sensorNamespace, "", "last_update_timestamp_seconds"),
		"Time of the most recent reading.", nil, nil)
	droppedUpdatesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(sensorNamespace, "", "dropped_updates_total"),
		"Update events discarded because no observer kept up.", nil, nil)

	stateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(driverNamespace, "", "state"),
		"Current driver state, 1 for the active state.", []string{"state"}, nil)
	linesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(driverNamespace, "", "lines_total"),
		"Non-empty lines read from the dongle.", nil, nil)
	timeoutsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(driverNamespace, "", "read_timeouts_total"),
		"Read timeouts without a line from the dongle.", nil, nil)
	parseErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(driverNamespace, "", "unstructured_lines_total"),
		"Lines that were not JSON objects.", nil, nil)
	scanResultsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(driverNamespace, "", "scan_results_total"),
		"Scan results by outcome.", []string{"outcome"}, nil)
	commandsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(driverNamespace, "", "commands_written_total"),
		"AT commands written to the dongle.", nil, nil)
	writeErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(driverNamespace, "", "write_errors_total"),
		"AT commands that failed to write.", nil, nil)
)

var allStates = []bleuio.State{
	bleuio.StateOpening,
	bleuio.StateEchoOff,
	bleuio.StateVerboseOn,
	bleuio.StateScanning,
	bleuio.StateClosed,
	bleuio.StateFailed,
}

// Collector is a prometheus.Collector over the sensor registry and,
// optionally, the driver. Values are read at scrape time.
type Collector struct {
	readings ReadingSource
	driver   DriverSource
}

// NewCollector creates a collector. driver may be nil.
func NewCollector(readings ReadingSource, driver DriverSource) *Collector {
	return &Collector{readings: readings, driver: driver}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range metricDescs {
		ch <- d
	}
	ch <- sensorsDesc
	ch <- readingsDesc
	ch <- lastUpdateDesc
	ch <- droppedUpdatesDesc

	if c.driver == nil {
		return
	}
	ch <- stateDesc
	ch <- linesDesc
	ch <- timeoutsDesc
	ch <- parseErrorsDesc
	ch <- scanResultsDesc
	ch <- commandsDesc
	ch <- writeErrorsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.readings.Snapshot()
	for _, r := range snapshot {
		id, board := r.BoardIDString(), r.BoardType().String()
		for _, m := range r.BoardType().Metrics() {
			v, ok := r.Value(m)
			if !ok {
				continue
			}
			ch <- prometheus.MustNewConstMetric(metricDescs[m], prometheus.GaugeValue, v, id, board)
		}
	}

	ch <- prometheus.MustNewConstMetric(sensorsDesc, prometheus.GaugeValue, float64(len(snapshot)))
	ch <- prometheus.MustNewConstMetric(readingsDesc, prometheus.CounterValue, float64(c.readings.Count()))
	ch <- prometheus.MustNewConstMetric(droppedUpdatesDesc, prometheus.CounterValue, float64(c.readings.DroppedUpdates()))
	if last := c.readings.LastUpdate(); !last.IsZero() {
		ch <- prometheus.MustNewConstMetric(lastUpdateDesc, prometheus.GaugeValue, float64(last.UnixNano())/1e9)
	}

	if c.driver != nil {
		c.collectDriver(ch)
	}
}

func (c *Collector) collectDriver(ch chan<- prometheus.Metric) {
	current := c.driver.State()
	for _, s := range allStates {
		v := 0.0
		if s == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(stateDesc, prometheus.GaugeValue, v, s.String())
	}

	st := c.driver.Stats()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	counter(linesDesc, st.Lines)
	counter(timeoutsDesc, st.Timeouts)
	counter(parseErrorsDesc, st.ParseErrors)
	counter(scanResultsDesc, st.Accepted, "accepted")
	counter(scanResultsDesc, st.ShortPayloads, "short_payload")
	counter(scanResultsDesc, st.DecodeErrors, "decode_error")
	counter(scanResultsDesc, st.ForeignBeacons, "foreign_beacon")
	counter(commandsDesc, st.CommandsWritten)
	counter(writeErrorsDesc, st.WriteErrors)
}
