package decoder

import "strings"

const noSignificantWeather = "无显著天气"

// DecodePhenomenon renders one present-weather group such as +TSRA or VCFG.
// Intensity is stripped first, then a descriptor, then two-letter codes.
// The first code after the descriptor must be known; later unknown codes
// are kept verbatim. The boolean is false when the shape does not fit.
func DecodePhenomenon(code string) (string, bool) {
	s := strings.ToUpper(code)
	if s == "NSW" {
		return noSignificantWeather, true
	}

	var prefix, suffix string
	switch {
	case strings.HasPrefix(s, "+"):
		prefix, s = Intensity["+"], s[1:]
	case strings.HasPrefix(s, "-"):
		prefix, s = Intensity["-"], s[1:]
	case strings.HasPrefix(s, "VC"):
		suffix, s = Intensity["VC"], s[2:]
	}

	descriptor := ""
	for _, d := range descriptorOrder {
		if strings.HasPrefix(s, d) {
			descriptor, s = d, s[len(d):]
			break
		}
	}

	if s == "" {
		name, ok := standaloneDescriptors[descriptor]
		if !ok {
			return "", false
		}
		return prefix + name + suffix, true
	}

	if len(s)%2 != 0 || !isLetters(s) {
		return "", false
	}
	if _, ok := Phenomena[s[:2]]; !ok {
		return "", false
	}

	var b strings.Builder
	b.WriteString(prefix)
	if descriptor != "" {
		b.WriteString(Descriptors[descriptor])
	}
	for i := 0; i < len(s); i += 2 {
		b.WriteString(lookup(Phenomena, s[i:i+2]))
	}
	b.WriteString(suffix)
	return b.String(), true
}

// TranslateWeatherString renders a space separated wxString as found in
// the JSON feed, e.g. "-SHRA BR". Groups that do not decode are kept as is.
func TranslateWeatherString(wx string) string {
	groups := strings.Fields(wx)
	if len(groups) == 0 {
		return ""
	}
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if name, ok := DecodePhenomenon(g); ok {
			out = append(out, name)
			continue
		}
		if up := strings.ToUpper(g); strings.HasPrefix(up, "RE") {
			if name, ok := DecodePhenomenon(up[2:]); ok {
				out = append(out, "近期有"+name)
				continue
			}
		}
		out = append(out, g)
	}
	return strings.Join(out, ", ")
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
