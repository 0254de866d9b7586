package decoder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reObsTime       = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})Z$`)
	reWind          = regexp.MustCompile(`^(\d{3}|VRB)(\d{2,3})(?:G(\d{2,3}))?(KT|MPS|KMH)$`)
	reWindVar       = regexp.MustCompile(`^(\d{3})V(\d{3})$`)
	reVis           = regexp.MustCompile(`^(\d{4})$`)
	reVisDir        = regexp.MustCompile(`^(\d{4})(NDV|NE|NW|SE|SW|N|S|E|W)$`)
	reVisFrac       = regexp.MustCompile(`^([PM])?(\d{1,2})/(\d{1,2})(SM|KM)$`)
	reVisWhole      = regexp.MustCompile(`^([PM])?(\d{1,2})(SM|KM)$`)
	reCloud         = regexp.MustCompile(`^(VV|FEW|SCT|BKN|OVC)(\d{3}|///)(.*)$`)
	reTemp          = regexp.MustCompile(`^(M)?(\d{2})/(M)?(\d{2})$`)
	reTempExtreme   = regexp.MustCompile(`^(TX|TN)(M)?(\d{2})/(\d{2})(\d{2})Z$`)
	reQNH           = regexp.MustCompile(`^Q(\d{4})$`)
	reInHg          = regexp.MustCompile(`^A(\d{4})$`)
	reFrom          = regexp.MustCompile(`^FM(\d{6}|\d{4})$`)
	reUntilAt       = regexp.MustCompile(`^(TL|AT)(\d{2})(\d{2})$`)
	reProb          = regexp.MustCompile(`^PROB(\d{2})$`)
	reRVR           = regexp.MustCompile(`^R(\d{2}[LCR]?)/([PM])?(\d{4})(?:V([PM])?(\d{4}))?(FT)?/?([UDN])?$`)
	reRecent        = regexp.MustCompile(`^RE(\w{2,4})$`)
	reWindShear     = regexp.MustCompile(`^WS\w{3}/`)
	reWindShearFull = regexp.MustCompile(`^WS(\d{3})/(\d{3})(\d{2,3})KT$`)
)

// input is what a rule sees for one position in the token stream.
type input struct {
	raw      string
	up       string // upper-cased, bulletin terminator trimmed
	next     string // normalized following token, empty at the end
	kind     Kind
	fc       *ForecastContext
	stations map[string]string
}

// result is a rule's classification. consumed is 1, or 2 when a
// lookahead folded the following period token in.
type result struct {
	category Category
	label    string
	desc     string
	fields   map[string]string
	consumed int

	// forecast rows are relabelled in TAF mode and carry the active period
	forecast bool
	tafLabel string
}

type rule struct {
	name  string
	match func(in *input) (result, bool)
}

// rules is evaluated top to bottom and the first match wins. The order
// matters: four-digit groups must reach visibility only after the time
// and validity shapes have been tried.
var rules = []rule{
	{"keyword", matchKeyword},
	{"station", matchStation},
	{"observation-time", matchObservationTime},
	{"validity", matchValidity},
	{"wind", matchWind},
	{"wind-variation", matchWindVariation},
	{"visibility", matchVisibility},
	{"fractional-visibility", matchFractionalVisibility},
	{"weather", matchWeather},
	{"cloud", matchCloud},
	{"temperature", matchTemperature},
	{"qnh", matchQNH},
	{"inhg", matchInHg},
	{"change", matchChange},
	{"probability", matchProbability},
	{"rvr", matchRVR},
	{"recent-weather", matchRecentWeather},
	{"wind-shear", matchWindShear},
	{"color", matchColor},
}

func one(c Category, label, desc string, fields map[string]string) result {
	return result{category: c, label: label, desc: desc, fields: fields, consumed: 1}
}

func matchKeyword(in *input) (result, bool) {
	taf := in.kind == KindTAF
	switch in.up {
	case "METAR", "SPECI", "TAF":
		return one(ReportType, "报告类型", reportTypes[in.up], map[string]string{"type": in.up}), true
	case "COR":
		if taf {
			return one(Modifier, "修正报", "此预报为修正预报", map[string]string{"modifier": in.up}), true
		}
		return one(Modifier, "修正报告", "此报告为修正报告", map[string]string{"modifier": in.up}), true
	case "AMD":
		return one(Modifier, "修正报", "此预报为修正预报", map[string]string{"modifier": in.up}), true
	case "AUTO":
		return one(Modifier, "观测方式", "自动观测站报告", map[string]string{"modifier": in.up}), true
	case "CNL":
		return one(Modifier, "取消", "此预报已取消", map[string]string{"modifier": in.up}), true
	case "NIL":
		return one(Modifier, "缺报", "无报告", map[string]string{"modifier": in.up}), true
	case "NOSIG":
		return one(TrendIndicator, "趋势", ChangeTypes["NOSIG"], map[string]string{"change": in.up}), true
	}
	return result{}, false
}

func matchStation(in *input) (result, bool) {
	name, ok := in.stations[in.up]
	if !ok {
		return result{}, false
	}
	return one(StationID, "机场", fmt.Sprintf("%s (%s)", name, in.up), map[string]string{"icao": in.up}), true
}

func matchObservationTime(in *input) (result, bool) {
	m := reObsTime.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	label := "观测时间"
	if in.kind == KindTAF {
		label = "发布时间"
	}
	return one(ObservationTime, label, fmt.Sprintf("当月%s日 %s:%s UTC", m[1], m[2], m[3]),
		map[string]string{"day": m[1], "hour": m[2], "minute": m[3]}), true
}

func matchValidity(in *input) (result, bool) {
	p, ok := parseValidity(in.up)
	if !ok {
		return result{}, false
	}
	in.fc.setValidity(p)
	return one(ValidityPeriod, "有效期", p.describe(), map[string]string{"period": p.Label()}), true
}

var windUnits = map[string]string{
	"KT":  "节",
	"MPS": "米/秒",
	"KMH": "公里/小时",
}

func matchWind(in *input) (result, bool) {
	m := reWind.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	dir, speed, gust, unit := m[1], atoi(m[2]), m[3], m[4]
	u := windUnits[unit]
	fields := map[string]string{
		"direction": dir,
		"speed":     strconv.Itoa(speed),
		"unit":      unit,
	}

	var desc string
	switch {
	case dir == "000" && speed == 0 && gust == "":
		desc = "静风"
	case dir == "VRB":
		desc = fmt.Sprintf("风向多变, 风速 %d%s", speed, u)
	default:
		desc = fmt.Sprintf("风向 %s°, 风速 %d%s", dir, speed, u)
	}
	if gust != "" {
		g := atoi(gust)
		fields["gust"] = strconv.Itoa(g)
		desc += fmt.Sprintf(", 阵风 %d%s", g, u)
	}

	r := one(Wind, "地面风", desc, fields)
	r.forecast, r.tafLabel = true, "预报风况"
	return r, true
}

func matchWindVariation(in *input) (result, bool) {
	m := reWindVar.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	return one(WindVariation, "风向变化", fmt.Sprintf("从 %s° 到 %s° 之间变化", m[1], m[2]),
		map[string]string{"from": m[1], "to": m[2]}), true
}

func visibilityMeters(digits string) string {
	switch digits {
	case "9999":
		return "10公里或以上"
	case "0000":
		return "小于50米"
	}
	return fmt.Sprintf("%d 米", atoi(digits))
}

func matchVisibility(in *input) (result, bool) {
	var r result
	if m := reVis.FindStringSubmatch(in.up); m != nil {
		r = one(Visibility, "能见度", visibilityMeters(m[1]), map[string]string{"value": strconv.Itoa(atoi(m[1])), "unit": "m"})
	} else if m := reVisDir.FindStringSubmatch(in.up); m != nil {
		dir := "无方向变化"
		if m[2] != "NDV" {
			dir = compassPoints[m[2]] + "方向"
		}
		r = one(VisibilityDirectional, "能见度", fmt.Sprintf("%s (%s)", visibilityMeters(m[1]), dir),
			map[string]string{"value": strconv.Itoa(atoi(m[1])), "unit": "m", "direction": m[2]})
	} else {
		return result{}, false
	}
	r.forecast, r.tafLabel = true, "预报能见度"
	return r, true
}

var visibilityUnits = map[string]string{
	"SM": "英里",
	"KM": "公里",
}

func matchFractionalVisibility(in *input) (result, bool) {
	var prefix, value, unit string
	whole := 0
	if m := reVisFrac.FindStringSubmatch(in.up); m != nil {
		prefix, value, unit = m[1], m[2]+"/"+m[3], m[4]
	} else if m := reVisWhole.FindStringSubmatch(in.up); m != nil {
		whole = atoi(m[2])
		prefix, value, unit = m[1], strconv.Itoa(whole), m[3]
	} else {
		return result{}, false
	}

	// 10SM and up is the reporting ceiling, so it reads as a lower bound
	if prefix == "" && unit == "SM" && whole >= 10 {
		prefix = "P"
	}

	desc := value + " " + visibilityUnits[unit]
	switch prefix {
	case "P":
		desc = "大于或等于 " + desc
	case "M":
		desc = "小于 " + desc
	}

	fields := map[string]string{"value": value, "unit": unit}
	if prefix != "" {
		fields["prefix"] = prefix
	}
	r := one(FractionalVisibility, "能见度", desc, fields)
	r.forecast, r.tafLabel = true, "预报能见度"
	return r, true
}

func matchWeather(in *input) (result, bool) {
	desc, ok := DecodePhenomenon(in.up)
	if !ok {
		return result{}, false
	}
	r := one(WeatherPhenomenon, "天气现象", desc, map[string]string{"code": in.up})
	r.forecast, r.tafLabel = true, "预报天气现象"
	return r, true
}

func cloudSuffix(s string) string {
	switch s {
	case "", "///":
		return ""
	case "CB", "TCU":
		return fmt.Sprintf(" (%s)", CloudTypes[s])
	}
	if name, ok := CloudTypes[s]; ok {
		return fmt.Sprintf(" (%s)", name)
	}
	return " " + s
}

func matchCloud(in *input) (result, bool) {
	switch in.up {
	case "SKC", "CLR", "NSC", "NCD", "CAVOK":
		r := one(SkyClear, "云量", CloudCover[in.up], map[string]string{"cover": in.up})
		r.forecast, r.tafLabel = true, "预报云量"
		return r, true
	}

	m := reCloud.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	cover, base, suffix := m[1], m[2], m[3]
	fields := map[string]string{"cover": cover}

	height := "高度未知"
	if base != "///" {
		ft := atoi(base) * 100
		height = fmt.Sprintf("高度 %d英尺", ft)
		fields["base"] = strconv.Itoa(ft)
	}
	if suffix != "" && suffix != "///" {
		fields["type"] = suffix
	}

	r := one(CloudLayer, "云况", fmt.Sprintf("%s %s%s", CloudCover[cover], height, cloudSuffix(suffix)), fields)
	r.forecast, r.tafLabel = true, "预报云量"
	return r, true
}

func signed(minus string, digits string) int {
	n := atoi(digits)
	if minus != "" {
		return -n
	}
	return n
}

func matchTemperature(in *input) (result, bool) {
	if m := reTemp.FindStringSubmatch(in.up); m != nil {
		t, d := signed(m[1], m[2]), signed(m[3], m[4])
		return one(TemperatureDewpoint, "温度/露点", fmt.Sprintf("%d°C / %d°C", t, d),
			map[string]string{"temperature": strconv.Itoa(t), "dewpoint": strconv.Itoa(d)}), true
	}

	m := reTempExtreme.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	t := signed(m[2], m[3])
	what := "最高温度"
	if m[1] == "TN" {
		what = "最低温度"
	}
	r := one(TemperatureDewpoint, "预报温度", fmt.Sprintf("%s %d°C (%s日%s时 UTC)", what, t, m[4], m[5]),
		map[string]string{strings.ToLower(m[1]): strconv.Itoa(t), "day": m[4], "hour": m[5]})
	r.forecast, r.tafLabel = true, "预报温度"
	return r, true
}

func matchQNH(in *input) (result, bool) {
	m := reQNH.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	return one(AltimeterQNH, "气压 (QNH)", m[1]+" hPa", map[string]string{"value": m[1], "unit": "hPa"}), true
}

func matchInHg(in *input) (result, bool) {
	m := reInHg.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	v := float64(atoi(m[1])) / 100
	value := strconv.FormatFloat(v, 'f', 2, 64)
	return one(AltimeterInHg, "气压", value+" 英寸汞柱", map[string]string{"value": value, "unit": "inHg"}), true
}

// changeRow picks the category and heading for a change indicator: a
// ChangeGroup in a forecast, a TrendIndicator in an observation.
func changeRow(in *input, desc string, fields map[string]string, consumed int) result {
	r := one(TrendIndicator, "趋势", desc, fields)
	if in.kind == KindTAF {
		r.category, r.label = ChangeGroup, "变化预报"
	}
	r.consumed = consumed
	return r
}

func matchChange(in *input) (result, bool) {
	switch in.up {
	case "BECMG", "TEMPO":
		name := ChangeTypes[in.up]
		fields := map[string]string{"change": in.up}
		desc, consumed := name, 1
		if p, ok := lookaheadPeriod(in.next); ok {
			in.fc.setChange(in.up, &p)
			fields["period"] = p.Label()
			desc, consumed = fmt.Sprintf("%s (%s)", name, p.Label()), 2
		} else {
			in.fc.setChange(in.up, nil)
		}
		// PROB30 TEMPO keeps the probability
		if in.fc.Probability > 0 {
			fields["probability"] = strconv.Itoa(in.fc.Probability)
		}
		return changeRow(in, desc, fields, consumed), true
	}

	if m := reFrom.FindStringSubmatch(in.up); m != nil {
		d := m[1]
		p := Period{Open: true}
		if len(d) == 6 {
			p.FromDay, d = atoi(d[:2]), d[2:]
		}
		p.FromHour, p.FromMinute = atoi(d[:2]), atoi(d[2:])
		in.fc.setChange("FM", &p)

		at := fmt.Sprintf("%02d:%02d UTC", p.FromHour, p.FromMinute)
		if p.HasDay() {
			at = fmt.Sprintf("%02d日%s", p.FromDay, at)
		}
		return changeRow(in, fmt.Sprintf("从 %s 开始", at),
			map[string]string{"change": "FM", "period": p.Label()}, 1), true
	}

	if m := reUntilAt.FindStringSubmatch(in.up); m != nil {
		return changeRow(in, fmt.Sprintf("%s %s:%s UTC", ChangeTypes[m[1]], m[2], m[3]),
			map[string]string{"change": m[1], "time": m[2] + m[3]}, 1), true
	}
	return result{}, false
}

func matchProbability(in *input) (result, bool) {
	m := reProb.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	pct := atoi(m[1])
	fields := map[string]string{"probability": strconv.Itoa(pct)}
	desc := fmt.Sprintf("%d%% 概率", pct)

	r := one(ProbabilityGroup, "概率预报", desc, fields)
	if p, ok := lookaheadPeriod(in.next); ok {
		in.fc.setProbability(pct, &p)
		fields["period"] = p.Label()
		r.desc = fmt.Sprintf("%s (%s)", desc, p.Label())
		r.consumed = 2
		return r, true
	}
	in.fc.setProbability(pct, nil)
	return r, true
}

var rvrPrefixes = map[string]string{
	"P": "大于",
	"M": "小于",
}

func matchRVR(in *input) (result, bool) {
	m := reRVR.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	runway, prefix, value := m[1], m[2], m[3]
	varPrefix, varValue, feet, tendency := m[4], m[5], m[6], m[7]

	unit, unitName := "m", "米"
	if feet != "" {
		unit, unitName = "ft", "英尺"
	}
	fields := map[string]string{"runway": runway, "value": strconv.Itoa(atoi(value)), "unit": unit}
	if prefix != "" {
		fields["prefix"] = prefix
	}

	rng := rvrPrefixes[prefix] + strconv.Itoa(atoi(value))
	if varValue != "" {
		fields["variable"] = varPrefix + varValue
		rng += " 至 " + rvrPrefixes[varPrefix] + strconv.Itoa(atoi(varValue))
	}
	desc := fmt.Sprintf("跑道%s 视程 %s %s", runway, rng, unitName)
	if t, ok := rvrTendencies[tendency]; ok {
		fields["tendency"] = t[0]
		desc += fmt.Sprintf(" (%s)", t[1])
	}
	return one(RunwayVisualRange, "跑道视程", desc, fields), true
}

func matchRecentWeather(in *input) (result, bool) {
	m := reRecent.FindStringSubmatch(in.up)
	if m == nil {
		return result{}, false
	}
	name, ok := DecodePhenomenon(m[1])
	if !ok {
		name = lookup(Phenomena, m[1])
	}
	return one(RecentWeather, "最近天气", "近期有 "+name, map[string]string{"code": m[1]}), true
}

func matchWindShear(in *input) (result, bool) {
	if !reWindShear.MatchString(in.up) {
		return result{}, false
	}
	if m := reWindShearFull.FindStringSubmatch(in.up); m != nil {
		height := atoi(m[1]) * 100
		speed := atoi(m[3])
		return one(WindShear, "风切变警告", fmt.Sprintf("%d英尺高度风切变：风向%s° 风速%d节", height, m[2], speed),
			map[string]string{"height": strconv.Itoa(height), "direction": m[2], "speed": strconv.Itoa(speed)}), true
	}
	return one(WindShear, "风切变警告", "存在风切变", map[string]string{"present": "true"}), true
}

func matchColor(in *input) (result, bool) {
	desc, ok := ColorCodes[in.up]
	if !ok {
		return result{}, false
	}
	return one(ColorCode, "颜色状态", desc, map[string]string{"color": in.up}), true
}
