package dataflows

import (
	"math"
	"sort"
)

// indicatorSpec is one registry entry. period is the canonical window
// parameter; composite indicators (the MACD family) have period 0 and
// accept no override.
type indicatorSpec struct {
	period   int
	lookback func(period int) int
	compute  func(series PriceSeries, period int) []float64
	usage    string
}

// indicatorRegistry is the closed catalog of supported indicators.
var indicatorRegistry = map[string]indicatorSpec{
	"close_10_ema": {
		period:   10,
		lookback: func(p int) int { return p - 1 },
		compute:  func(s PriceSeries, p int) []float64 { return emaSeries(closesOf(s), p) },
		usage:    "10 EMA: A responsive short-term average. Usage: Capture quick shifts in momentum and potential entry points. Tips: Prone to noise in choppy markets; use alongside longer averages for filtering false signals.",
	},
	"close_50_sma": {
		period:   50,
		lookback: func(p int) int { return p - 1 },
		compute:  func(s PriceSeries, p int) []float64 { return smaSeries(closesOf(s), p) },
		usage:    "50 SMA: A medium-term trend indicator. Usage: Identify trend direction and serve as dynamic support/resistance. Tips: It lags price; combine with faster indicators for timely signals.",
	},
	"close_200_sma": {
		period:   200,
		lookback: func(p int) int { return p - 1 },
		compute:  func(s PriceSeries, p int) []float64 { return smaSeries(closesOf(s), p) },
		usage:    "200 SMA: A long-term trend benchmark. Usage: Confirm overall market trend and identify golden/death cross setups. Tips: It reacts slowly; best for strategic trend confirmation rather than frequent trading entries.",
	},
	"vwma": {
		period:   20,
		lookback: func(p int) int { return p - 1 },
		compute:  vwmaSeries,
		usage:    "VWMA: A moving average weighted by volume. Usage: Confirm trends by integrating price action with volume data. Tips: Watch for skewed results from volume spikes; use in combination with other volume analyses.",
	},
	"rsi": {
		period:   14,
		lookback: func(p int) int { return p },
		compute:  func(s PriceSeries, p int) []float64 { return rsiSeries(closesOf(s), p) },
		usage:    "RSI: Measures momentum to flag overbought/oversold conditions. Usage: Apply 70/30 thresholds and watch for divergence to signal reversals. Tips: In strong trends, RSI may remain extreme; always cross-check with trend analysis.",
	},
	"macd": {
		lookback: func(int) int { return 25 },
		compute:  func(s PriceSeries, _ int) []float64 { return macdSeries(closesOf(s)) },
		usage:    "MACD: Computes momentum via differences of EMAs. Usage: Look for crossovers and divergence as signals of trend changes. Tips: Confirm with other indicators in low-volatility or sideways markets.",
	},
	"macds": {
		lookback: func(int) int { return 33 },
		compute:  func(s PriceSeries, _ int) []float64 { return macdSignalSeries(closesOf(s)) },
		usage:    "MACD Signal: An EMA smoothing of the MACD line. Usage: Use crossovers with the MACD line to trigger trades. Tips: Should be part of a broader strategy to avoid false positives.",
	},
	"macdh": {
		lookback: func(int) int { return 33 },
		compute:  func(s PriceSeries, _ int) []float64 { return macdHistogramSeries(closesOf(s)) },
		usage:    "MACD Histogram: Shows the gap between the MACD line and its signal. Usage: Visualize momentum strength and spot divergence early. Tips: Can be volatile; complement with additional filters in fast-moving markets.",
	},
	"mfi": {
		period:   14,
		lookback: func(p int) int { return p },
		compute:  mfiSeries,
		usage:    "MFI: The Money Flow Index is a momentum indicator that uses both price and volume to measure buying and selling pressure. Usage: Identify overbought (>80) or oversold (<20) conditions and confirm the strength of trends or reversals. Tips: Use alongside RSI or MACD to confirm signals; divergence between price and MFI can indicate potential reversals.",
	},
	"boll": {
		period:   20,
		lookback: func(p int) int { return p - 1 },
		compute:  func(s PriceSeries, p int) []float64 { return smaSeries(closesOf(s), p) },
		usage:    "Bollinger Middle: A 20 SMA serving as the basis for Bollinger Bands. Usage: Acts as a dynamic benchmark for price movement. Tips: Combine with the upper and lower bands to effectively spot breakouts or reversals.",
	},
	"boll_ub": {
		period:   20,
		lookback: func(p int) int { return p - 1 },
		compute:  func(s PriceSeries, p int) []float64 { return bollBandSeries(closesOf(s), p, 2) },
		usage:    "Bollinger Upper Band: Typically 2 standard deviations above the middle line. Usage: Signals potential overbought conditions and breakout zones. Tips: Confirm signals with other tools; prices may ride the band in strong trends.",
	},
	"boll_lb": {
		period:   20,
		lookback: func(p int) int { return p - 1 },
		compute:  func(s PriceSeries, p int) []float64 { return bollBandSeries(closesOf(s), p, -2) },
		usage:    "Bollinger Lower Band: Typically 2 standard deviations below the middle line. Usage: Indicates potential oversold conditions. Tips: Use additional analysis to avoid false reversal signals.",
	},
	"atr": {
		period:   14,
		lookback: func(p int) int { return p },
		compute:  atrSeries,
		usage:    "ATR: Averages true range to measure volatility. Usage: Set stop-loss levels and adjust position sizes based on current market volatility. Tips: It's a reactive measure, so use it as part of a broader risk management strategy.",
	},
}

// KnownIndicators returns the sorted registry names.
func KnownIndicators() []string {
	names := make([]string, 0, len(indicatorRegistry))
	for name := range indicatorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndicatorUsage returns the usage note for a known indicator.
func IndicatorUsage(name string) string {
	return indicatorRegistry[name].usage
}

// ComputeIndicator computes a named indicator over a series, one point
// per input bar, aligned by date. Positions inside the warm-up prefix
// (and any position without enough history) are marked invalid, never
// zero. An optional period overrides the canonical window parameter for
// single-period indicators.
//
// The computation is pure: identical inputs always produce identical
// output.
func ComputeIndicator(series PriceSeries, name string, period ...int) (IndicatorSeries, error) {
	spec, ok := indicatorRegistry[name]
	if !ok {
		return IndicatorSeries{}, &UnknownIndicatorError{Indicator: name, Known: KnownIndicators()}
	}

	p := spec.period
	if len(period) > 0 && period[0] > 0 {
		if spec.period == 0 {
			return IndicatorSeries{}, &InvalidInputError{Field: "period", Value: name,
				Reason: "indicator does not take a window parameter"}
		}
		p = period[0]
	}

	values := spec.compute(series, p)
	lookback := spec.lookback(p)

	points := make([]IndicatorPoint, len(series))
	for i := range series {
		v := values[i]
		valid := i >= lookback && !math.IsNaN(v)
		if !valid {
			v = 0
		}
		points[i] = IndicatorPoint{Date: series[i].Date, Value: v, Valid: valid}
	}

	return IndicatorSeries{Indicator: name, Points: points}, nil
}

func closesOf(series PriceSeries) []float64 {
	closes := make([]float64, len(series))
	for i, bar := range series {
		closes[i] = bar.Close
	}
	return closes
}

// nanSlice returns a slice with every position undefined.
func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// smaSeries computes a simple moving average; positions before period-1
// are undefined.
func smaSeries(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	if period <= 0 || len(vals) < period {
		return out
	}
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= period {
			sum -= vals[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// emaSeries computes an exponential moving average seeded with the SMA
// of the first period values.
func emaSeries(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	if period <= 0 || len(vals) < period {
		return out
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += vals[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	multiplier := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(vals); i++ {
		ema = vals[i]*multiplier + ema*(1-multiplier)
		out[i] = ema
	}
	return out
}

// rsiSeries computes Wilder-smoothed RSI; positions before period are
// undefined.
func rsiSeries(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macdSeries is EMA12 minus EMA26; undefined before index 25.
func macdSeries(closes []float64) []float64 {
	ema12 := emaSeries(closes, 12)
	ema26 := emaSeries(closes, 26)
	out := nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(ema12[i]) && !math.IsNaN(ema26[i]) {
			out[i] = ema12[i] - ema26[i]
		}
	}
	return out
}

// macdSignalSeries is the EMA9 of the MACD line, computed over the
// defined suffix and placed back at the original offsets.
func macdSignalSeries(closes []float64) []float64 {
	macd := macdSeries(closes)
	out := nanSlice(len(closes))

	offset := -1
	for i, v := range macd {
		if !math.IsNaN(v) {
			offset = i
			break
		}
	}
	if offset < 0 {
		return out
	}

	signal := emaSeries(macd[offset:], 9)
	for i, v := range signal {
		out[offset+i] = v
	}
	return out
}

func macdHistogramSeries(closes []float64) []float64 {
	macd := macdSeries(closes)
	signal := macdSignalSeries(closes)
	out := nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(macd[i]) && !math.IsNaN(signal[i]) {
			out[i] = macd[i] - signal[i]
		}
	}
	return out
}

// bollBandSeries is SMA plus mult standard deviations (negative mult for
// the lower band).
func bollBandSeries(closes []float64, period int, mult float64) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}
	for i := period - 1; i < len(closes); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += closes[j]
		}
		sma := sum / float64(period)

		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			diff := closes[j] - sma
			variance += diff * diff
		}
		variance /= float64(period)

		out[i] = sma + mult*math.Sqrt(variance)
	}
	return out
}

// atrSeries averages the true range over period; undefined before index
// period because the first true range needs a previous close.
func atrSeries(series PriceSeries, period int) []float64 {
	out := nanSlice(len(series))
	if period <= 0 || len(series) < period+1 {
		return out
	}

	tr := make([]float64, len(series))
	for i := 1; i < len(series); i++ {
		hl := series[i].High - series[i].Low
		hc := math.Abs(series[i].High - series[i-1].Close)
		lc := math.Abs(series[i].Low - series[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	for i := period; i < len(series); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += tr[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// vwmaSeries weights closes by volume over period.
func vwmaSeries(series PriceSeries, period int) []float64 {
	out := nanSlice(len(series))
	if period <= 0 || len(series) < period {
		return out
	}
	for i := period - 1; i < len(series); i++ {
		var totalVolume, weightedSum float64
		for j := i - period + 1; j <= i; j++ {
			totalVolume += float64(series[j].Volume)
			weightedSum += series[j].Close * float64(series[j].Volume)
		}
		if totalVolume > 0 {
			out[i] = weightedSum / totalVolume
		} else {
			out[i] = 0
		}
	}
	return out
}

// mfiSeries is the Money Flow Index over period.
func mfiSeries(series PriceSeries, period int) []float64 {
	out := nanSlice(len(series))
	if period <= 0 || len(series) < period+1 {
		return out
	}

	typical := make([]float64, len(series))
	for i, bar := range series {
		typical[i] = (bar.High + bar.Low + bar.Close) / 3
	}

	for i := period; i < len(series); i++ {
		var positiveFlow, negativeFlow float64
		for j := i - period + 1; j <= i; j++ {
			raw := typical[j] * float64(series[j].Volume)
			switch {
			case typical[j] > typical[j-1]:
				positiveFlow += raw
			case typical[j] < typical[j-1]:
				negativeFlow += raw
			}
		}
		if negativeFlow == 0 {
			out[i] = 100
		} else {
			ratio := positiveFlow / negativeFlow
			out[i] = 100 - 100/(1+ratio)
		}
	}
	return out
}
