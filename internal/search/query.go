package search

import (
	"fmt"
	"net/url"
	"strings"
)

// Filter values accepted by the search endpoint. The empty string of each
// type means "no filter".
type (
	Color     string
	ColorType string
	License   string
	ImageType string
	Time      string
	Ratio     string
	Format    string
)

// Colors.
const (
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorTeal   Color = "teal"
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
	ColorPink   Color = "pink"
	ColorWhite  Color = "white"
	ColorGray   Color = "gray"
	ColorBlack  Color = "black"
	ColorBrown  Color = "brown"
)

// Color types.
const (
	ColorTypeColor       ColorType = "color"
	ColorTypeGrayscale   ColorType = "grayscale"
	ColorTypeTransparent ColorType = "transparent"
)

// Licenses.
const (
	LicenseCreativeCommons License = "creative_commons"
	LicenseOther           License = "other"
)

// Image types.
const (
	ImageTypeFace     ImageType = "face"
	ImageTypePhoto    ImageType = "photo"
	ImageTypeClipart  ImageType = "clipart"
	ImageTypeLineart  ImageType = "lineart"
	ImageTypeAnimated ImageType = "animated"
)

// Posting-time windows.
const (
	TimeDay   Time = "day"
	TimeWeek  Time = "week"
	TimeMonth Time = "month"
	TimeYear  Time = "year"
)

// Aspect ratios.
const (
	RatioTall      Ratio = "tall"
	RatioSquare    Ratio = "square"
	RatioWide      Ratio = "wide"
	RatioPanoramic Ratio = "panoramic"
)

// Formats.
const (
	FormatJpg  Format = "jpg"
	FormatGif  Format = "gif"
	FormatPng  Format = "png"
	FormatBmp  Format = "bmp"
	FormatSvg  Format = "svg"
	FormatWebp Format = "webp"
	FormatIco  Format = "ico"
	FormatRaw  Format = "raw"
)

var (
	colorParams = map[Color]string{
		ColorRed: "isc:red", ColorOrange: "isc:orange", ColorYellow: "isc:yellow",
		ColorGreen: "isc:green", ColorTeal: "isc:teal", ColorBlue: "isc:blue",
		ColorPurple: "isc:purple", ColorPink: "isc:pink", ColorWhite: "isc:white",
		ColorGray: "isc:gray", ColorBlack: "isc:black", ColorBrown: "isc:brown",
	}
	colorTypeParams = map[ColorType]string{
		ColorTypeColor: "ic:full", ColorTypeGrayscale: "ic:gray", ColorTypeTransparent: "ic:trans",
	}
	licenseParams = map[License]string{
		LicenseCreativeCommons: "il:cl", LicenseOther: "il:ol",
	}
	imageTypeParams = map[ImageType]string{
		ImageTypeFace: "itp:face", ImageTypePhoto: "itp:photo", ImageTypeClipart: "itp:clipart",
		ImageTypeLineart: "itp:lineart", ImageTypeAnimated: "itp:animated",
	}
	timeParams = map[Time]string{
		TimeDay: "qdr:d", TimeWeek: "qdr:w", TimeMonth: "qdr:m", TimeYear: "qdr:y",
	}
	ratioParams = map[Ratio]string{
		RatioTall: "iar:t", RatioSquare: "iar:s", RatioWide: "iar:w", RatioPanoramic: "iar:xw",
	}
	formatParams = map[Format]string{
		FormatJpg: "ift:jpg", FormatGif: "ift:gif", FormatPng: "ift:png", FormatBmp: "ift:bmp",
		FormatSvg: "ift:svg", FormatWebp: "ift:webp", FormatIco: "ift:ico", FormatRaw: "ift:raw",
	}
)

// paramSeparator joins filter tokens inside the tbs parameter (an escaped comma).
const paramSeparator = "%2C"

// Filters narrows the search results.
type Filters struct {
	Color     Color     `mapstructure:"color"`
	ColorType ColorType `mapstructure:"color_type"`
	License   License   `mapstructure:"license"`
	ImageType ImageType `mapstructure:"image_type"`
	Time      Time      `mapstructure:"time"`
	Ratio     Ratio     `mapstructure:"ratio"`
	Format    Format    `mapstructure:"format"`
}

// Validate rejects filter values the endpoint does not understand.
func (f Filters) Validate() error {
	checks := []struct {
		name  string
		value string
		ok    bool
	}{
		{"color", string(f.Color), known(colorParams, f.Color)},
		{"color_type", string(f.ColorType), known(colorTypeParams, f.ColorType)},
		{"license", string(f.License), known(licenseParams, f.License)},
		{"image_type", string(f.ImageType), known(imageTypeParams, f.ImageType)},
		{"time", string(f.Time), known(timeParams, f.Time)},
		{"ratio", string(f.Ratio), known(ratioParams, f.Ratio)},
		{"format", string(f.Format), known(formatParams, f.Format)},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("filters.%s: unknown value %q", c.name, c.value)
		}
	}
	return nil
}

// params renders the set filters in a fixed order, each prefixed by the
// separator. It returns "" when no filter is set.
func (f Filters) params() string {
	tokens := []string{
		colorParams[f.Color],
		colorTypeParams[f.ColorType],
		licenseParams[f.License],
		imageTypeParams[f.ImageType],
		timeParams[f.Time],
		ratioParams[f.Ratio],
		formatParams[f.Format],
	}
	var b strings.Builder
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		b.WriteString(paramSeparator)
		b.WriteString(tok)
	}
	return b.String()
}

// BuildURL assembles the results-page URL for args against base.
func BuildURL(base string, args Arguments) string {
	u := base + "?tbm=isch&q=" + url.QueryEscape(args.Query)
	if params := args.Filters.params(); params != "" {
		u += "&tbs=ic:specific" + params
	}
	return u
}

func known[K ~string](table map[K]string, v K) bool {
	if v == "" {
		return true
	}
	_, ok := table[v]
	return ok
}
