package decoder

import "fmt"

// Category tags the shape a token was classified as.
type Category int

const (
	Unrecognized Category = iota
	ReportType
	StationID
	ObservationTime
	Modifier
	Wind
	WindVariation
	Visibility
	VisibilityDirectional
	FractionalVisibility
	WeatherPhenomenon
	CloudLayer
	SkyClear
	TemperatureDewpoint
	AltimeterQNH
	AltimeterInHg
	TrendIndicator
	RunwayVisualRange
	RecentWeather
	WindShear
	ColorCode
	ValidityPeriod
	ChangeGroup
	ProbabilityGroup
)

var categoryNames = [...]string{
	Unrecognized:          "Unrecognized",
	ReportType:            "ReportType",
	StationID:             "StationId",
	ObservationTime:       "ObservationTime",
	Modifier:              "Modifier",
	Wind:                  "Wind",
	WindVariation:         "WindVariation",
	Visibility:            "Visibility",
	VisibilityDirectional: "VisibilityDirectional",
	FractionalVisibility:  "FractionalVisibility",
	WeatherPhenomenon:     "WeatherPhenomenon",
	CloudLayer:            "CloudLayer",
	SkyClear:              "SkyClear",
	TemperatureDewpoint:   "TemperatureDewpoint",
	AltimeterQNH:          "AltimeterQNH",
	AltimeterInHg:         "AltimeterInHg",
	TrendIndicator:        "TrendIndicator",
	RunwayVisualRange:     "RunwayVisualRange",
	RecentWeather:         "RecentWeather",
	WindShear:             "WindShear",
	ColorCode:             "ColorCode",
	ValidityPeriod:        "ValidityPeriod",
	ChangeGroup:           "ChangeGroup",
	ProbabilityGroup:      "ProbabilityGroup",
}

// Categories lists every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categoryNames))
	for i := range categoryNames {
		out[i] = Category(i)
	}
	return out
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// MarshalText renders the category by name so JSON carries "Wind" rather than 5.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a category name.
func (c *Category) UnmarshalText(text []byte) error {
	for i, name := range categoryNames {
		if name == string(text) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown token category %q", text)
}
