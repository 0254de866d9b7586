package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePhenomenon(t *testing.T) {
	tests := []struct {
		code string
		want string
		ok   bool
	}{
		{"RA", "降雨", true},
		{"+TSRA", "强雷暴降雨", true},
		{"-DZ", "轻毛毛雨", true},
		{"VCSH", "阵性降水附近", true},
		{"VCFG", "雾附近", true},
		{"TS", "雷暴", true},
		{"FZFG", "冻结的雾", true},
		{"BLSN", "高吹的降雪", true},
		{"SNRA", "降雪降雨", true},
		{"RAXX", "降雨XX", true},
		{"nsw", "无显著天气", true},
		{"FU", "烟", true},
		{"ZZ", "", false},
		{"MI", "", false},
		{"+", "", false},
		{"RAX", "", false},
		{"R36L", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := DecodePhenomenon(tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TS inside TSRA must not be translated on its own.
func TestDecodePhenomenonNoSubstringReplacement(t *testing.T) {
	got, ok := DecodePhenomenon("TSRA")
	assert.True(t, ok)
	assert.Equal(t, "雷暴降雨", got)
	assert.NotContains(t, got, "TS")
}

func TestTranslateWeatherString(t *testing.T) {
	assert.Equal(t, "轻阵性的降雨, 轻雾, 近期有雷暴", TranslateWeatherString("-SHRA BR RETS"))
	assert.Equal(t, "强雷暴降雨, ???", TranslateWeatherString("+TSRA ???"))
	assert.Empty(t, TranslateWeatherString("  "))
}

func TestLookupHelpers(t *testing.T) {
	assert.Equal(t, "仪表飞行规则", FlightCategory("ifr"))
	assert.Equal(t, "XYZ", FlightCategory("XYZ"))
	assert.Equal(t, "短暂波动", ChangeType("tempo"))
	assert.Equal(t, "裂云", CloudCoverName("bkn"))
	assert.Equal(t, "积雨云", CloudTypeName("CB"))
	assert.Equal(t, "QQ", CloudTypeName("QQ"))
}
