// Package decoder classifies METAR and TAF groups and renders each one as
// a Chinese description. Decoding is pure: every call owns its own
// forecast context, so a Decoder may be shared between goroutines.
package decoder

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
)

// ErrInvalidKind is returned by ParseKind for anything but metar or taf.
var ErrInvalidKind = errors.New("invalid report kind")

// Kind selects METAR or TAF wording.
type Kind string

const (
	KindMETAR Kind = "metar"
	KindTAF   Kind = "taf"
)

// Kinds lists the supported report kinds.
func Kinds() []Kind {
	return []Kind{KindMETAR, KindTAF}
}

// ParseKind accepts metar or taf in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindMETAR:
		return KindMETAR, nil
	case KindTAF:
		return KindTAF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// detectWindow is how many leading groups DetectKind looks at.
const detectWindow = 6

// DetectKind guesses the report kind from its header: a TAF keyword or a
// DDHH/DDHH validity group near the start means TAF.
func DetectKind(raw string) Kind {
	tokens := Tokenize(raw)
	if len(tokens) > detectWindow {
		tokens = tokens[:detectWindow]
	}
	for _, t := range tokens {
		up := normalize(t)
		if up == "TAF" || rePeriod.MatchString(up) {
			return KindTAF
		}
		if up == "METAR" || up == "SPECI" {
			return KindMETAR
		}
	}
	return KindMETAR
}

// DecodedToken is one output row. Token holds the raw text of every group
// the row consumed, joined by a single space.
type DecodedToken struct {
	Token       string            `json:"token"`
	Parts       int               `json:"parts"`
	Category    Category          `json:"category"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	Period      string            `json:"period,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Tokenize splits on runs of whitespace. Nothing is normalized.
func Tokenize(raw string) []string {
	return strings.Fields(raw)
}

func normalize(token string) string {
	return strings.TrimSuffix(strings.ToUpper(token), "=")
}

// Decoder carries the station table. The zero value is not usable; call New.
type Decoder struct {
	stations map[string]string
}

// New builds a decoder that knows the built-in stations plus extra.
// Extra entries override built-in names.
func New(extra map[string]string) *Decoder {
	stations := maps.Clone(Stations)
	for icao, name := range extra {
		stations[strings.ToUpper(strings.TrimSpace(icao))] = name
	}
	return &Decoder{stations: stations}
}

// Stations returns the known ICAO codes in sorted order.
func (d *Decoder) Stations() []string {
	codes := make([]string, 0, len(d.stations))
	for code := range d.stations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// StationName returns the Chinese name of a known station.
func (d *Decoder) StationName(icao string) (string, bool) {
	name, ok := d.stations[strings.ToUpper(icao)]
	return name, ok
}

// Decode classifies every group of raw. Empty input gives an empty slice.
func (d *Decoder) Decode(kind Kind, raw string) []DecodedToken {
	tokens := Tokenize(raw)
	out := make([]DecodedToken, 0, len(tokens))
	fc := &ForecastContext{}

	for i := 0; i < len(tokens); {
		tok := d.classify(kind, tokens, i, fc)
		fc.probPending = tok.Category == ProbabilityGroup
		out = append(out, tok)
		i += tok.Parts
	}
	return out
}

// classify runs the rule table at position i and returns the row with the
// number of groups it consumed.
func (d *Decoder) classify(kind Kind, tokens []string, i int, fc *ForecastContext) DecodedToken {
	in := &input{
		raw:      tokens[i],
		up:       normalize(tokens[i]),
		kind:     kind,
		fc:       fc,
		stations: d.stations,
	}
	if i+1 < len(tokens) {
		in.next = normalize(tokens[i+1])
	}

	for _, r := range rules {
		res, ok := r.match(in)
		if !ok {
			continue
		}
		if res.consumed < 1 || i+res.consumed > len(tokens) {
			res.consumed = 1
		}
		tok := DecodedToken{
			Token:       strings.Join(tokens[i:i+res.consumed], " "),
			Parts:       res.consumed,
			Category:    res.category,
			Label:       res.label,
			Description: res.desc,
			Fields:      res.fields,
		}
		if kind == KindTAF && res.forecast {
			tok.Label = res.tafLabel
			tok.Period = fc.periodLabel()
		}
		return tok
	}

	return DecodedToken{
		Token:       tokens[i],
		Parts:       1,
		Category:    Unrecognized,
		Label:       "未识别",
		Description: tokens[i],
	}
}

var defaultDecoder = New(nil)

// Decode detects the kind of raw and decodes it with the built-in stations.
func Decode(raw string) []DecodedToken {
	return defaultDecoder.Decode(DetectKind(raw), raw)
}

// DecodeMETAR decodes raw with observation wording.
func DecodeMETAR(raw string) []DecodedToken {
	return defaultDecoder.Decode(KindMETAR, raw)
}

// DecodeTAF decodes raw with forecast wording.
func DecodeTAF(raw string) []DecodedToken {
	return defaultDecoder.Decode(KindTAF, raw)
}
