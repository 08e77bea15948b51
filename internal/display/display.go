// Package display превращает Report в строки для показа: температура в °F,
// эмодзи по коду погоды и описание. Пакет чистый, без побочных эффектов.
package display

import (
	"fmt"
	"math"
	"time"

	"github.com/gometeo/cityweather/internal/model"
)

const (
	GlyphThunderstorm = "⛈️"
	GlyphDrizzle      = "🌦️"
	GlyphRain         = "🌧️"
	GlyphFreezingRain = "🌨️"
	GlyphSnow         = "❄️"
	GlyphMist         = "🌫️"
	GlyphHaze         = "🌁"
	GlyphDust         = "🌬️"
	GlyphSand         = "🏜️"
	GlyphTornado      = "🌪️"
	GlyphAsh          = "🌋"
	GlyphSquall       = "💨"
	GlyphClearDay     = "☀️"
	GlyphClearNight   = "🌙"
	GlyphFewClouds    = "🌤️"
	GlyphScattered    = "⛅"
	GlyphBroken       = "🌥️"
	GlyphOvercast     = "☁️"
	GlyphUnknown      = "❓"
)

const codeClear = 800

// Включительные диапазоны кодов OpenWeatherMap. Одиночный код - lo == hi.
var glyphTable = []struct {
	lo, hi int
	glyph  string
}{
	{200, 232, GlyphThunderstorm},
	{300, 321, GlyphDrizzle},
	{500, 504, GlyphRain},
	{511, 511, GlyphFreezingRain},
	{520, 531, GlyphDrizzle},
	{600, 622, GlyphSnow},
	{701, 711, GlyphMist},
	{721, 721, GlyphHaze},
	{731, 741, GlyphDust},
	{751, 751, GlyphSand},
	{761, 761, GlyphTornado},
	{762, 762, GlyphAsh},
	{771, 771, GlyphSquall},
	{781, 781, GlyphTornado},
	{801, 801, GlyphFewClouds},
	{802, 802, GlyphScattered},
	{803, 803, GlyphBroken},
	{804, 804, GlyphOvercast},
}

// Describe возвращает эмодзи для кода погоды. Для ясного неба (800)
// солнце только при sunrise < now < sunset, иначе луна.
func Describe(code int, sunrise, sunset, now time.Time) string {
	if code == codeClear {
		if now.After(sunrise) && now.Before(sunset) {
			return GlyphClearDay
		}
		return GlyphClearNight
	}
	for _, row := range glyphTable {
		if code >= row.lo && code <= row.hi {
			return row.glyph
		}
	}
	return GlyphUnknown
}

func KelvinToFahrenheit(k float64) float64 {
	return k*9/5 - 459.67
}

// FormatFahrenheit округляет до целого градуса, половины к четному (как %.0f)
func FormatFahrenheit(f float64) string {
	deg := math.RoundToEven(f)
	if deg == 0 {
		deg = 0 // без "-0°F"
	}
	return fmt.Sprintf("%.0f°F", deg)
}

func Present(r model.Report, now time.Time) model.View {
	return model.View{
		Temperature: FormatFahrenheit(KelvinToFahrenheit(r.TempKelvin)),
		Glyph:       Describe(r.ConditionCode, r.Sunrise, r.Sunset, now),
		Description: r.Description,
	}
}

// PresentError кладет сообщение на место температуры и очищает остальное
func PresentError(o model.Outcome) model.View {
	return model.View{Temperature: o.Message, Error: true}
}
