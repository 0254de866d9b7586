package decoder

import "strings"

// Canonical lookup tables. Every translation in the module reads from here.

// Stations maps the built-in ICAO codes to their Chinese names.
var Stations = map[string]string{
	"VHHH": "香港国际机场",
	"ZGGG": "广州白云国际机场",
	"ZBAA": "北京首都国际机场",
	"ZSSS": "上海虹桥国际机场",
	"ZSPD": "上海浦东国际机场",
	"WSSS": "新加坡樟宜机场",
}

// Phenomena covers precipitation, obscuration and other weather codes.
var Phenomena = map[string]string{
	// precipitation
	"RA": "降雨",
	"DZ": "毛毛雨",
	"SN": "降雪",
	"SG": "雪粒",
	"IC": "冰晶",
	"PL": "冰粒",
	"GR": "冰雹",
	"GS": "小冰雹",
	"UP": "未知降水",
	// obscuration
	"FG": "雾",
	"BR": "轻雾",
	"HZ": "霾",
	"DU": "浮尘",
	"SA": "扬沙",
	"VA": "火山灰",
	"PY": "喷雾",
	"FU": "烟",
	// other
	"SQ": "飑",
	"FC": "漏斗云",
	"DS": "尘暴",
	"SS": "沙暴",
	"PO": "尘卷/沙卷",
}

// Descriptors qualify a phenomenon. SH and TS also stand alone.
var Descriptors = map[string]string{
	"MI": "浅薄的",
	"BC": "散片的",
	"PR": "部分的",
	"DR": "低吹的",
	"BL": "高吹的",
	"SH": "阵性的",
	"TS": "雷暴",
	"FZ": "冻结的",
}

// descriptorOrder is the order descriptors are tried in.
var descriptorOrder = []string{"MI", "BC", "PR", "DR", "BL", "SH", "TS", "FZ"}

// standaloneDescriptors render a descriptor with nothing after it.
var standaloneDescriptors = map[string]string{
	"TS": "雷暴",
	"SH": "阵性降水",
	"FZ": "冻结",
}

// Intensity prefixes. VC is rendered after the phenomenon.
var Intensity = map[string]string{
	"-":  "轻",
	"+":  "强",
	"VC": "附近",
}

// CloudCover maps cover codes, including the sky-clear keywords.
var CloudCover = map[string]string{
	"SKC":   "碧空",
	"CLR":   "无云",
	"NSC":   "无显著云",
	"NCD":   "无云被探测到",
	"CAVOK": "云和能见度良好",
	"FEW":   "少云",
	"SCT":   "散云",
	"BKN":   "裂云",
	"OVC":   "阴天",
	"VV":    "垂直能见度",
}

// CloudTypes maps convective and genus codes that may trail a cloud group.
var CloudTypes = map[string]string{
	"CB":  "积雨云",
	"TCU": "浓积云",
	"CU":  "积云",
	"AC":  "高积云",
	"AS":  "高层云",
	"CC":  "卷积云",
	"CI":  "卷云",
	"CS":  "卷层云",
	"NS":  "雨层云",
	"SC":  "层积云",
	"ST":  "层云",
}

// ColorCodes are the military aerodrome color states.
var ColorCodes = map[string]string{
	"BLACK": "黑色 - 危险天气条件",
	"BLU":   "蓝色 - 目视飞行规则",
	"WHT":   "白色 - 目视飞行规则",
	"GRN":   "绿色 - 仪表飞行规则",
	"YLO":   "黄色 - 低能见度/低云底",
	"AMB":   "琥珀色 - 低能见度/低云底",
	"RED":   "红色 - 危险天气条件",
}

// ChangeTypes maps trend and change-group indicators.
var ChangeTypes = map[string]string{
	"BECMG":  "逐渐变为",
	"TEMPO":  "短暂波动",
	"NOSIG":  "无显著变化",
	"FM":     "从时间开始",
	"TL":     "直到",
	"AT":     "在",
	"PROB30": "30%概率",
	"PROB40": "40%概率",
}

// FlightCategories maps AWC flight category codes.
var FlightCategories = map[string]string{
	"VFR":  "目视飞行规则",
	"MVFR": "边缘目视飞行规则",
	"IFR":  "仪表飞行规则",
	"LIFR": "低仪表飞行规则",
}

// IntensityLevels maps icing and turbulence intensity numbers.
var IntensityLevels = map[int]string{
	0: "无",
	1: "轻微",
	2: "轻度",
	3: "中度",
	4: "强度",
	5: "严重",
	6: "极强",
}

var compassPoints = map[string]string{
	"N":  "北",
	"S":  "南",
	"E":  "东",
	"W":  "西",
	"NE": "东北",
	"NW": "西北",
	"SE": "东南",
	"SW": "西南",
}

var rvrTendencies = map[string][2]string{
	"U": {"rising", "上升"},
	"D": {"falling", "下降"},
	"N": {"no_change", "无变化"},
}

var reportTypes = map[string]string{
	"METAR": "航空例行天气报告",
	"SPECI": "特殊天气报告",
	"TAF":   "航站天气预报",
}

// lookup returns the table value for key or the key itself.
func lookup(table map[string]string, key string) string {
	if v, ok := table[key]; ok {
		return v
	}
	return key
}

// FlightCategory translates an AWC flight category, falling back to the code.
func FlightCategory(code string) string {
	return lookup(FlightCategories, strings.ToUpper(code))
}

// ChangeType translates a change indicator, falling back to the code.
func ChangeType(code string) string {
	return lookup(ChangeTypes, strings.ToUpper(code))
}

// CloudCoverName translates a cover code, falling back to the code.
func CloudCoverName(code string) string {
	return lookup(CloudCover, strings.ToUpper(code))
}

// CloudTypeName translates a cloud type code, falling back to the code.
func CloudTypeName(code string) string {
	return lookup(CloudTypes, strings.ToUpper(code))
}
