package chart

import (
	"chart-terminal/internal/model"
)

// VolumeBar is one rendered volume rectangle, anchored to the chart
// bottom.
type VolumeBar struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Candle is one rendered candlestick: body spans open/close, wick spans
// high/low.
type Candle struct {
	X          float64 `json:"x"`
	Width      float64 `json:"width"`
	BodyTop    float64 `json:"bodyTop"`
	BodyBottom float64 `json:"bodyBottom"`
	WickTop    float64 `json:"wickTop"`
	WickBottom float64 `json:"wickBottom"`
	Bullish    bool    `json:"bullish"`
}

// barWidth sizes bars so adjacent samples leave a small gutter.
func barWidth(m *Mapper, count int) float64 {
	if count == 0 {
		return 0
	}
	w := m.PastWidth() / float64(count) * 0.8
	if w < 1 {
		w = 1
	}
	return w
}

// BuildVolumeBars produces the volume rectangle per sample, parallel to
// the price path.
func BuildVolumeBars(points []model.PricePoint, m *Mapper) []VolumeBar {
	width := barWidth(m, len(points))
	bars := make([]VolumeBar, 0, len(points))
	for _, p := range points {
		h := m.VolumeToHeight(p.Volume)
		bars = append(bars, VolumeBar{
			X:      m.TimeToX(p.Timestamp) - width/2,
			Y:      m.height - h,
			Width:  width,
			Height: h,
		})
	}
	return bars
}

// BuildCandles produces candlestick geometry per sample.
func BuildCandles(points []model.PricePoint, m *Mapper) []Candle {
	width := barWidth(m, len(points))
	candles := make([]Candle, 0, len(points))
	for _, p := range points {
		top, bottom := p.Open, p.Close
		if bottom > top {
			top, bottom = bottom, top
		}
		candles = append(candles, Candle{
			X:          m.TimeToX(p.Timestamp) - width/2,
			Width:      width,
			BodyTop:    m.PriceToY(top),
			BodyBottom: m.PriceToY(bottom),
			WickTop:    m.PriceToY(p.High),
			WickBottom: m.PriceToY(p.Low),
			Bullish:    p.Close >= p.Open,
		})
	}
	return candles
}
