package dataflows

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"testing"
)

// trendSeries builds n ascending daily bars with a deterministic shape.
func trendSeries(n int) PriceSeries {
	var series PriceSeries
	for i := 0; i < n; i++ {
		base := 100 + float64(i) + 3*math.Sin(float64(i)/4)
		series = append(series, PriceBar{
			Date:   fmt.Sprintf("2024-%02d-%02d", 1+i/28, 1+i%28),
			Open:   base - 0.5,
			High:   base + 1,
			Low:    base - 1,
			Close:  base,
			Volume: int64(1000 + 100*(i%7)),
		})
	}
	return series
}

func TestComputeIndicatorUnknownName(t *testing.T) {
	_, err := ComputeIndicator(trendSeries(30), "close_5_wma")
	var unknownErr *UnknownIndicatorError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Expected UnknownIndicatorError, got %v", err)
	}
	if unknownErr.Indicator != "close_5_wma" {
		t.Errorf("Indicator = %s, want close_5_wma", unknownErr.Indicator)
	}
	if !sort.StringsAreSorted(unknownErr.Known) {
		t.Errorf("Known names not sorted: %v", unknownErr.Known)
	}
	if len(unknownErr.Known) != len(indicatorRegistry) {
		t.Errorf("Known has %d names, registry has %d", len(unknownErr.Known), len(indicatorRegistry))
	}
}

func TestComputeIndicatorAlignment(t *testing.T) {
	series := trendSeries(60)

	for _, name := range KnownIndicators() {
		got, err := ComputeIndicator(series, name)
		if err != nil {
			t.Fatalf("ComputeIndicator(%s) failed: %v", name, err)
		}
		if len(got.Points) != len(series) {
			t.Fatalf("%s: %d points for %d bars", name, len(got.Points), len(series))
		}
		for i, p := range got.Points {
			if p.Date != series[i].Date {
				t.Fatalf("%s: point %d date %s, bar date %s", name, i, p.Date, series[i].Date)
			}
		}
	}
}

func TestComputeIndicatorWarmup(t *testing.T) {
	series := trendSeries(60)

	warmups := map[string]int{
		"close_10_ema": 9,
		"close_50_sma": 49,
		"vwma":         19,
		"rsi":          14,
		"macd":         25,
		"macds":        33,
		"macdh":        33,
		"mfi":          14,
		"boll":         19,
		"boll_ub":      19,
		"boll_lb":      19,
		"atr":          14,
	}

	for name, warmup := range warmups {
		got, err := ComputeIndicator(series, name)
		if err != nil {
			t.Fatalf("ComputeIndicator(%s) failed: %v", name, err)
		}
		for i, p := range got.Points {
			if i < warmup && p.Valid {
				t.Errorf("%s: point %d valid inside warm-up of %d", name, i, warmup)
			}
			if i >= warmup && !p.Valid {
				t.Errorf("%s: point %d invalid after warm-up of %d", name, i, warmup)
			}
		}
	}
}

func TestComputeIndicatorShortSeriesAllInvalid(t *testing.T) {
	series := trendSeries(5)

	got, err := ComputeIndicator(series, "close_200_sma")
	if err != nil {
		t.Fatalf("ComputeIndicator failed: %v", err)
	}
	if len(got.Points) != 5 {
		t.Fatalf("Expected 5 points, got %d", len(got.Points))
	}
	for i, p := range got.Points {
		if p.Valid {
			t.Errorf("Point %d valid with insufficient history", i)
		}
		if p.Value != 0 {
			t.Errorf("Point %d has value %f, invalid points must be zero", i, p.Value)
		}
	}
}

func TestComputeIndicatorDeterministic(t *testing.T) {
	series := trendSeries(80)

	for _, name := range KnownIndicators() {
		first, err := ComputeIndicator(series, name)
		if err != nil {
			t.Fatalf("ComputeIndicator(%s) failed: %v", name, err)
		}
		second, err := ComputeIndicator(series, name)
		if err != nil {
			t.Fatalf("ComputeIndicator(%s) failed on repeat: %v", name, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: repeated computation differs", name)
		}
	}
}

func TestComputeIndicatorSMAValues(t *testing.T) {
	series := PriceSeries{
		{Date: "2024-01-01", Close: 10},
		{Date: "2024-01-02", Close: 20},
		{Date: "2024-01-03", Close: 30},
		{Date: "2024-01-04", Close: 40},
	}

	got, err := ComputeIndicator(series, "close_50_sma", 3)
	if err != nil {
		t.Fatalf("ComputeIndicator failed: %v", err)
	}

	if got.Points[0].Valid || got.Points[1].Valid {
		t.Error("Points inside warm-up must be invalid")
	}
	if !got.Points[2].Valid || math.Abs(got.Points[2].Value-20) > 1e-9 {
		t.Errorf("SMA at index 2 = %v, want 20", got.Points[2].Value)
	}
	if !got.Points[3].Valid || math.Abs(got.Points[3].Value-30) > 1e-9 {
		t.Errorf("SMA at index 3 = %v, want 30", got.Points[3].Value)
	}
}

func TestComputeIndicatorRejectsPeriodForComposite(t *testing.T) {
	_, err := ComputeIndicator(trendSeries(60), "macd", 5)
	var inputErr *InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("Expected InvalidInputError, got %v", err)
	}
}

func TestBollingerBandsBracketMiddle(t *testing.T) {
	series := trendSeries(40)

	middle, _ := ComputeIndicator(series, "boll")
	upper, _ := ComputeIndicator(series, "boll_ub")
	lower, _ := ComputeIndicator(series, "boll_lb")

	for i := range series {
		if !middle.Points[i].Valid {
			continue
		}
		if upper.Points[i].Value < middle.Points[i].Value {
			t.Errorf("Upper band below middle at %s", series[i].Date)
		}
		if lower.Points[i].Value > middle.Points[i].Value {
			t.Errorf("Lower band above middle at %s", series[i].Date)
		}
	}
}
