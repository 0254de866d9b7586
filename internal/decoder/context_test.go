package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "15日06时-16日12时", Period{FromDay: 15, FromHour: 6, ToDay: 16, ToHour: 12}.Label())
	assert.Equal(t, "15时-18时", Period{FromHour: 15, ToHour: 18}.Label())
	assert.Equal(t, "15日18:30起", Period{FromDay: 15, FromHour: 18, FromMinute: 30, Open: true}.Label())
	assert.Equal(t, "18:30起", Period{FromHour: 18, FromMinute: 30, Open: true}.Label())
}

func TestLookaheadPeriod(t *testing.T) {
	p, ok := lookaheadPeriod("1512/1516")
	require.True(t, ok)
	assert.Equal(t, Period{FromDay: 15, FromHour: 12, ToDay: 15, ToHour: 16}, p)

	p, ok = lookaheadPeriod("2224")
	require.True(t, ok)
	assert.Equal(t, Period{FromHour: 22, ToHour: 24}, p)

	for _, s := range []string{"", "9999", "1500", "3001", "BKN015", "151200Z"} {
		_, ok := lookaheadPeriod(s)
		assert.False(t, ok, s)
	}
}

func TestForecastContextTransitions(t *testing.T) {
	fc := &ForecastContext{}
	assert.Empty(t, fc.periodLabel())

	fc.setValidity(Period{FromDay: 15, FromHour: 12, ToDay: 16, ToHour: 18})
	assert.Equal(t, "15日12时-16日18时", fc.periodLabel())

	fc.setProbability(30, nil)
	assert.Equal(t, 30, fc.Probability)
	assert.Equal(t, "15日12时-16日18时", fc.periodLabel())

	fc.probPending = true
	fc.setChange("TEMPO", &Period{FromHour: 15, ToHour: 18})
	assert.Equal(t, 30, fc.Probability)
	assert.Equal(t, "TEMPO", fc.Change)

	fc.probPending = false
	fc.setChange("BECMG", nil)
	assert.Zero(t, fc.Probability)
	assert.Equal(t, "15时-18时", fc.periodLabel())

	fc.setValidity(Period{FromDay: 1, FromHour: 0, ToDay: 1, ToHour: 6})
	assert.Empty(t, fc.Change)
}
