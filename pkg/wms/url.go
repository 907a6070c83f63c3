package wms

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/noah-isme/wms-imagery/pkg/interval"
)

// DefaultBaseURLTemplate points at the INSAT-3R L1B thermal infrared archive.
const DefaultBaseURLTemplate = "https://mosdac.gov.in/live_data/wms/live3RL1BSTD4km/products/Insat3r/3R_IMG/{{.Year}}/{{.DayMonth}}/3RIMG_{{.DayMonth}}{{.Year}}_"

// DefaultQueryParams is appended after the time label of every GetMap request.
const DefaultQueryParams = "_L1B_STD_V01R00.h5?SERVICE=WMS&VERSION=1.3.0&REQUEST=GetMap&FORMAT=image/png&TRANSPARENT=true&LAYERS=IMG_TIR1&COLORSCALERANGE=315,929&BELOWMINCOLOR=extend&ABOVEMAXCOLOR=extend&transparent=true&format=image/png&STYLES=boxfill/greyscale&singleTile=true&ratio=1&CRS=EPSG:3857&WIDTH=871&HEIGHT=782&BBOX=4579514.378564888,-882744.3739599851,13101325.788022619,6768296.409273017"

// TemplateData is exposed to the base URL template.
type TemplateData struct {
	// Year is the four digit year, e.g. 2024.
	Year string
	// DayMonth is the day and upper-case month abbreviation, e.g. 15SEP.
	DayMonth string
	// Date is the YYYYMMDD form of the date.
	Date string
}

// URLBuilder renders GetMap request URLs for a date and time label.
type URLBuilder struct {
	tpl         *template.Template
	queryParams string
}

// NewURLBuilder parses the base URL template once.
func NewURLBuilder(baseTemplate, queryParams string) (*URLBuilder, error) {
	if strings.TrimSpace(baseTemplate) == "" {
		return nil, fmt.Errorf("base url template required")
	}
	tpl, err := template.New("wms_base_url").Option("missingkey=error").Parse(baseTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse base url template: %w", err)
	}
	return &URLBuilder{tpl: tpl, queryParams: queryParams}, nil
}

// Build returns <base rendered for date><label><query params>.
func (b *URLBuilder) Build(date time.Time, label interval.Label) (string, error) {
	base, err := b.Base(date)
	if err != nil {
		return "", err
	}
	return base + label.String() + b.queryParams, nil
}

// Base renders only the date-dependent prefix.
func (b *URLBuilder) Base(date time.Time) (string, error) {
	var buf bytes.Buffer
	if err := b.tpl.Execute(&buf, NewTemplateData(date)); err != nil {
		return "", fmt.Errorf("render base url: %w", err)
	}
	return buf.String(), nil
}

// NewTemplateData derives the template fields from a calendar date.
func NewTemplateData(date time.Time) TemplateData {
	return TemplateData{
		Year:     date.Format("2006"),
		DayMonth: strings.ToUpper(date.Format("02Jan")),
		Date:     interval.FormatDate(date),
	}
}

// Filename is the on-disk name of the tile for date and label.
func Filename(date time.Time, label interval.Label) string {
	return fmt.Sprintf("wms_image_%s_%s.png", interval.FormatDate(date), label)
}
