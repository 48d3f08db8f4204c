package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/srg/hibou/hibouair"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	co2Elevated = 800
	co2High     = 1200
)

var (
	co2Good     = color.New(color.FgGreen)
	co2Warn     = color.New(color.FgYellow)
	co2Bad      = color.New(color.FgRed)
	absentColor = color.New(color.Faint)
)

// tableColumns are the metric columns of the readings table, in order.
var tableColumns = []struct {
	title  string
	metric hibouair.Metric
}{
	{"CO2", hibouair.MetricCO2},
	{"TEMP", hibouair.MetricTemperature},
	{"HUMIDITY", hibouair.MetricHumidity},
	{"PRESSURE", hibouair.MetricPressure},
	{"PM1.0", hibouair.MetricPM1},
	{"PM2.5", hibouair.MetricPM25},
	{"PM10", hibouair.MetricPM10},
	{"VOC", hibouair.MetricVOC},
	{"LIGHT", hibouair.MetricAmbientLight},
}

func sortByBoardID(readings []hibouair.Reading) {
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].BoardID() < readings[j].BoardID()
	})
}

func writeReadings(w io.Writer, format string, readings []hibouair.Reading) error {
	if format == "json" {
		return writeReadingsJSON(w, readings)
	}
	return writeReadingsTable(w, readings)
}

func writeReadingsTable(w io.Writer, readings []hibouair.Reading) error {
	if len(readings) == 0 {
		_, err := fmt.Fprintln(w, "No sensors discovered")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	titles := []string{"BOARD ID", "TYPE"}
	for _, c := range tableColumns {
		titles = append(titles, c.title)
	}
	rule := make([]string, len(titles))
	for i, t := range titles {
		rule[i] = strings.Repeat("-", len(t))
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))
	fmt.Fprintln(tw, strings.Join(rule, "\t"))

	for _, r := range readings {
		cells := []string{r.BoardIDString(), r.BoardType().String()}
		metrics := r.BoardType().Metrics()
		for _, c := range tableColumns {
			cells = append(cells, formatCell(r, c.metric, slices.Contains(metrics, c.metric)))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	return tw.Flush()
}

func formatCell(r hibouair.Reading, m hibouair.Metric, present bool) string {
	if !present {
		if m == hibouair.MetricCO2 {
			// Same escape length as the colored values keeps the column aligned.
			return absentColor.Sprint("-")
		}
		return "-"
	}

	switch m {
	case hibouair.MetricCO2:
		return co2Color(r.CO2()).Sprintf("%d ppm", r.CO2())
	case hibouair.MetricTemperature:
		return fmt.Sprintf("%.1f °C", r.Temperature())
	case hibouair.MetricHumidity:
		return fmt.Sprintf("%.1f %%rh", r.Humidity())
	case hibouair.MetricPressure:
		return fmt.Sprintf("%.1f hPa", r.Pressure())
	case hibouair.MetricAmbientLight:
		return fmt.Sprintf("%d lux", r.AmbientLight)
	case hibouair.MetricVOC:
		if v := r.VocView(); v != "" {
			return v
		}
		return "-"
	default:
		v, _ := r.Value(m)
		return fmt.Sprintf("%.1f", v)
	}
}

func co2Color(ppm uint16) *color.Color {
	switch {
	case ppm >= co2High:
		return co2Bad
	case ppm >= co2Elevated:
		return co2Warn
	default:
		return co2Good
	}
}

// readingJSON renders a reading with the metrics of its board, in display
// order.
func readingJSON(r hibouair.Reading) *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any]()
	om.Set("board_id", r.BoardIDString())
	om.Set("board_type", r.BoardType().String())

	for _, m := range r.BoardType().Metrics() {
		switch m {
		case hibouair.MetricCO2:
			om.Set(string(m), r.CO2())
		case hibouair.MetricAmbientLight:
			om.Set(string(m), r.AmbientLight)
		case hibouair.MetricVOC:
			om.Set(string(m), r.VOC())
			om.Set("voc_kind", r.VocKind.String())
		default:
			v, _ := r.Value(m)
			om.Set(string(m), v)
		}
	}
	return om
}

func writeReadingsJSON(w io.Writer, readings []hibouair.Reading) error {
	out := make([]*orderedmap.OrderedMap[string, any], 0, len(readings))
	for _, r := range readings {
		out = append(out, readingJSON(r))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func clearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[2J\033[H")
}
