package chart

import (
	"chart-terminal/internal/model"
)

// Mapper converts (timestamp, price) and (timestamp, volume) pairs into
// pixel space for a chart of the given dimensions. It is recomputed
// whenever the visible window or chart dimensions change and never
// cached across renders with different data.
type Mapper struct {
	width      float64 // full chart width in px
	pastWidth  float64 // width of the historical region
	height     float64
	minTs      int64
	maxTs      int64
	minPrice   float64 // padded domain
	maxPrice   float64
	maxVolume  float64
	volumeArea float64 // max bar height in px
}

// NewMapper computes a padded value domain over the visible window: the
// min/max price expanded by paddingPercent so the curve never touches
// the chart edges. The horizontal axis covers only the historical
// portion of the viewport split.
func NewMapper(points []model.PricePoint, width, height, paddingPercent float64, split model.ViewportSplit) *Mapper {
	m := &Mapper{
		width:      width,
		pastWidth:  width * split.PastPercent / 100,
		height:     height,
		volumeArea: height * 0.2,
	}
	if len(points) == 0 {
		m.minPrice, m.maxPrice = 0, 1
		return m
	}

	m.minTs = points[0].Timestamp
	m.maxTs = points[len(points)-1].Timestamp

	lo, hi := points[0].Low, points[0].High
	for _, p := range points {
		if p.Low < lo {
			lo = p.Low
		}
		if p.High > hi {
			hi = p.High
		}
		if p.Volume > m.maxVolume {
			m.maxVolume = p.Volume
		}
	}

	pad := (hi - lo) * paddingPercent / 100
	if pad == 0 {
		// Flat series still needs a non-degenerate domain
		pad = hi * paddingPercent / 100
		if pad == 0 {
			pad = 1
		}
	}
	m.minPrice = lo - pad
	m.maxPrice = hi + pad
	return m
}

// PastWidth returns the pixel width of the historical region.
func (m *Mapper) PastWidth() float64 { return m.pastWidth }

// Width returns the full chart width.
func (m *Mapper) Width() float64 { return m.width }

// Domain returns the padded price domain.
func (m *Mapper) Domain() (min, max float64) { return m.minPrice, m.maxPrice }

// TimeToX maps a timestamp into the historical region.
func (m *Mapper) TimeToX(ts int64) float64 {
	if m.maxTs == m.minTs {
		return 0
	}
	frac := float64(ts-m.minTs) / float64(m.maxTs-m.minTs)
	return frac * m.pastWidth
}

// XToTime is the inverse of TimeToX for x within the historical region.
func (m *Mapper) XToTime(x float64) int64 {
	if m.pastWidth == 0 {
		return m.minTs
	}
	frac := x / m.pastWidth
	return m.minTs + int64(frac*float64(m.maxTs-m.minTs))
}

// PriceToY maps a price to a pixel row; larger prices sit higher on the
// chart (smaller y).
func (m *Mapper) PriceToY(price float64) float64 {
	return m.height * (1 - (price-m.minPrice)/(m.maxPrice-m.minPrice))
}

// YToPrice is the exact inverse of PriceToY.
func (m *Mapper) YToPrice(y float64) float64 {
	return m.minPrice + (1-y/m.height)*(m.maxPrice-m.minPrice)
}

// VolumeToHeight maps a volume to a bar height within the volume area.
func (m *Mapper) VolumeToHeight(volume float64) float64 {
	if m.maxVolume == 0 {
		return 0
	}
	return volume / m.maxVolume * m.volumeArea
}
