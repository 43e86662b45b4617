package composer

import (
	"fmt"
	"html"
	"strings"

	"github.com/keystat/keystat/pkg/errlvl"
	"github.com/keystat/keystat/scavenger/ecos"
	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"
)

// DefaultIndicators is the allow-list of key statistics that make it into a post.
var DefaultIndicators = []string{
	"한국은행 기준금리",
	"콜금리(익일물)",
	"원/달러 환율(종가)",
	"코스피지수",
	"코스닥지수",
}

// Indicator is an allow-listed key statistic ready to be printed.
type Indicator struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit"`  // trimmed, may be empty
	Cycle string `json:"cycle"` // raw cycle token
}

// Line formats the indicator as "<name>: <value> <unit> (<date>)".
func (i Indicator) Line() string {
	return fmt.Sprintf("%s: %s %s (%s)", i.Name, i.Value, i.Unit, FormatCycle(i.Cycle))
}

// Indicators keeps the order of the source payload.
type Indicators []Indicator

// Text joins the indicator lines with newlines.
func (s Indicators) Text() string {
	return strings.Join(lo.Map(s, func(i Indicator, _ int) string {
		return i.Line()
	}), "\n")
}

// Extractor keeps allow-listed rows of a key statistics payload.
type Extractor struct {
	allowList []string
	policy    *bluemonday.Policy
}

// NewExtractor creates an Extractor for the given indicator names, DefaultIndicators if none are given.
func NewExtractor(names ...string) *Extractor {
	if len(names) == 0 {
		names = DefaultIndicators
	}
	return &Extractor{
		allowList: names,
		policy:    bluemonday.StrictPolicy(),
	}
}

// Filter returns the allow-listed records of the payload in payload order.
// Names must match exactly. Zero matches is reported as ErrNoIndicators.
func (e *Extractor) Filter(p *ecos.Payload) (Indicators, error) {
	if p == nil || p.KeyStatisticList == nil || p.KeyStatisticList.Rows == nil {
		err := newError(ErrMalformedPayload, errlvl.ERROR, "Extractor.Filter")
		if p != nil && p.Result != nil {
			err = err.WithValue(p.Result.String())
		}
		return nil, err
	}

	rows := lo.Filter(p.KeyStatisticList.Rows, func(r ecos.Record, _ int) bool {
		return lo.Contains(e.allowList, r.Name)
	})
	if len(rows) == 0 {
		return nil, newError(ErrNoIndicators, errlvl.WARN, "Extractor.Filter").
			WithValue(fmt.Sprintf("%d rows", len(p.KeyStatisticList.Rows)))
	}

	return lo.Map(rows, func(r ecos.Record, _ int) Indicator {
		return Indicator{
			Name:  r.Name,
			Value: e.clean(r.Value.String()),
			Unit:  e.clean(r.Unit.String()),
			Cycle: strings.TrimSpace(r.Cycle),
		}
	}), nil
}

// Extract returns the allow-listed records formatted as newline separated lines.
func (e *Extractor) Extract(p *ecos.Payload) (string, error) {
	indicators, err := e.Filter(p)
	if err != nil {
		return "", err
	}
	return indicators.Text(), nil
}

// clean strips markup and surrounding spaces. ECOS pads units with spaces.
func (e *Extractor) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(e.policy.Sanitize(s)))
}
