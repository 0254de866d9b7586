package decoder

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	rePeriod       = regexp.MustCompile(`^(\d{2})(\d{2})/(\d{2})(\d{2})$`)
	reLegacyPeriod = regexp.MustCompile(`^(\d{2})(\d{2})$`)
)

// Period is a forecast validity window. Day is zero for the legacy HHhh
// form. An open period comes from an FM group and has no end.
type Period struct {
	FromDay    int  `json:"from_day,omitempty"`
	FromHour   int  `json:"from_hour"`
	FromMinute int  `json:"from_minute,omitempty"`
	ToDay      int  `json:"to_day,omitempty"`
	ToHour     int  `json:"to_hour,omitempty"`
	Open       bool `json:"open,omitempty"`
}

// HasDay reports whether the period was written as DDHH/DDHH.
func (p Period) HasDay() bool {
	return p.FromDay > 0
}

// Label renders the window for row headings, e.g. 15日06时-16日12时.
func (p Period) Label() string {
	if p.Open {
		if p.HasDay() {
			return fmt.Sprintf("%02d日%02d:%02d起", p.FromDay, p.FromHour, p.FromMinute)
		}
		return fmt.Sprintf("%02d:%02d起", p.FromHour, p.FromMinute)
	}
	if p.HasDay() {
		return fmt.Sprintf("%02d日%02d时-%02d日%02d时", p.FromDay, p.FromHour, p.ToDay, p.ToHour)
	}
	return fmt.Sprintf("%02d时-%02d时", p.FromHour, p.ToHour)
}

func (p Period) describe() string {
	if p.HasDay() {
		return fmt.Sprintf("%02d日%02d时 UTC 至 %02d日%02d时 UTC", p.FromDay, p.FromHour, p.ToDay, p.ToHour)
	}
	return fmt.Sprintf("%02d:00 UTC 至 %02d:00 UTC", p.FromHour, p.ToHour)
}

// parseValidity accepts the DDHH/DDHH shape.
func parseValidity(s string) (Period, bool) {
	m := rePeriod.FindStringSubmatch(s)
	if m == nil {
		return Period{}, false
	}
	return Period{FromDay: atoi(m[1]), FromHour: atoi(m[2]), ToDay: atoi(m[3]), ToHour: atoi(m[4])}, true
}

// parseLegacyPeriod accepts the four-digit HHhh form used after trend
// indicators. The end hour must be 01-24, which keeps visibility groups
// such as 1500 or 0800 out.
func parseLegacyPeriod(s string) (Period, bool) {
	m := reLegacyPeriod.FindStringSubmatch(s)
	if m == nil {
		return Period{}, false
	}
	from, to := atoi(m[1]), atoi(m[2])
	if from > 23 || to < 1 || to > 24 {
		return Period{}, false
	}
	return Period{FromHour: from, ToHour: to}, true
}

// lookaheadPeriod reports whether the token after a change indicator is a
// period that belongs to it.
func lookaheadPeriod(next string) (Period, bool) {
	if p, ok := parseValidity(next); ok {
		return p, true
	}
	return parseLegacyPeriod(next)
}

// ForecastContext is the cross-token state of one decode call.
type ForecastContext struct {
	Change      string  `json:"change,omitempty"`
	Probability int     `json:"probability,omitempty"`
	Period      *Period `json:"period,omitempty"`

	// probPending is set right after a PROB group so an immediately
	// following TEMPO keeps the probability.
	probPending bool
}

// setValidity applies a bare validity period (the TAF header window).
func (fc *ForecastContext) setValidity(p Period) {
	fc.Change = ""
	fc.Probability = 0
	fc.Period = &p
}

// setChange applies a BECMG/TEMPO/FM style indicator. A nil period keeps
// the current window.
func (fc *ForecastContext) setChange(change string, p *Period) {
	if !fc.probPending {
		fc.Probability = 0
	}
	fc.Change = change
	if p != nil {
		fc.Period = p
	}
}

func (fc *ForecastContext) setProbability(pct int, p *Period) {
	fc.Change = ""
	fc.Probability = pct
	if p != nil {
		fc.Period = p
	}
}

// periodLabel is empty until a period has been seen.
func (fc *ForecastContext) periodLabel() string {
	if fc.Period == nil {
		return ""
	}
	return fc.Period.Label()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
