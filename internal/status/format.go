package status

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = " ETA: %a "

// minWidth is the width the expanded template is padded to before the bar
// is drawn over it.
const minWidth = 17

// TemplateError reports a template that cannot be expanded.
type TemplateError struct {
	Template string
	Pos      int  // byte offset of the offending '%'
	Verb     rune // 0 when the template ends with a lone '%'
}

func (e *TemplateError) Error() string {
	if e.Verb == 0 {
		return fmt.Sprintf("status template %q: dangling %% at end", e.Template)
	}
	return fmt.Sprintf("status template %q: unknown placeholder %%%c at offset %d", e.Template, e.Verb, e.Pos)
}

type segment struct {
	lit  string
	verb byte // 0 for a literal
}

// Formatter expands a status template. Templates are validated once, in
// NewFormatter.
type Formatter struct {
	template string
	segments []segment
}

// NewFormatter parses template. It returns a *TemplateError for an unknown
// placeholder or a trailing '%'.
func NewFormatter(template string) (*Formatter, error) {
	f := &Formatter{template: template}
	var lit strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		if i+1 == len(template) {
			return nil, &TemplateError{Template: template, Pos: i}
		}
		i++
		switch v := template[i]; v {
		case '%':
			lit.WriteByte('%')
		case 's', 't', 'r', 'u', 'f', 'o', 'c', 'p', 'e', 'a':
			if lit.Len() > 0 {
				f.segments = append(f.segments, segment{lit: lit.String()})
				lit.Reset()
			}
			f.segments = append(f.segments, segment{verb: v})
		default:
			r := []rune(template[i:])[0]
			return nil, &TemplateError{Template: template, Pos: i - 1, Verb: r}
		}
	}
	if lit.Len() > 0 {
		f.segments = append(f.segments, segment{lit: lit.String()})
	}
	return f, nil
}

// Template returns the source template.
func (f *Formatter) Template() string { return f.template }

// Expand substitutes the placeholders of the template. rate is fed the
// current finished count whenever the template shows the current rate.
func (f *Formatter) Expand(c Counters, rate *RateWindow) string {
	var b strings.Builder
	for _, seg := range f.segments {
		switch seg.verb {
		case 0:
			b.WriteString(seg.lit)
		case 's':
			b.WriteString(strconv.Itoa(c.Started))
		case 't':
			b.WriteString(strconv.Itoa(c.Total))
		case 'r':
			b.WriteString(strconv.Itoa(c.Running))
		case 'u':
			b.WriteString(strconv.Itoa(c.Unstarted()))
		case 'f':
			b.WriteString(strconv.Itoa(c.Finished))
		case 'o':
			if c.TimeMillis > 0 {
				fmt.Fprintf(&b, "%.1f", float64(c.Finished)/(float64(c.TimeMillis)/1e3))
			} else {
				b.WriteByte('?')
			}
		case 'c':
			if rate == nil {
				b.WriteByte('?')
				break
			}
			rate.Update(c.Finished, c.TimeMillis)
			if r, ok := rate.Rate(); ok {
				fmt.Fprintf(&b, "%.1f", r)
			} else {
				b.WriteByte('?')
			}
		case 'p':
			pct := 0
			if c.Total > 0 {
				pct = 100 * c.Finished / c.Total
			}
			fmt.Fprintf(&b, "%3d%%", pct)
		case 'e':
			fmt.Fprintf(&b, "%.3f", float64(c.TimeMillis)/1e3)
		case 'a':
			b.WriteString(remaining(c))
		}
	}
	return b.String()
}

// Bar expands the template, pads it and draws the progress bar across it:
// the finished share of the text is shown inverted. Builds of one edge or
// fewer get no bar.
func (f *Formatter) Bar(c Counters, rate *RateWindow) string {
	if c.Total <= 1 {
		return ""
	}
	text := []rune(fmt.Sprintf("%-*s", minWidth, f.Expand(c, rate)))
	end := int(math.RoundToEven(float64(len(text)) * float64(c.Finished) / float64(c.Total)))
	end = max(0, min(end, len(text)))

	p := termenv.ANSI
	var b strings.Builder
	b.WriteString(p.String("▕").Foreground(termenv.ANSICyan).String())
	if end > 0 {
		b.WriteString(p.String(string(text[:end])).Bold().Foreground(termenv.ANSIWhite).Background(termenv.ANSICyan).String())
	}
	if end < len(text) {
		b.WriteString(p.String(string(text[end:])).Bold().String())
	}
	b.WriteString(p.String("▏").Foreground(termenv.ANSICyan).String())
	return b.String()
}

var etaMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Second, Format: "a moment"},
	{D: 2 * time.Second, Format: "a second"},
	{D: time.Minute, Format: "%d seconds", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "a minute"},
	{D: time.Hour, Format: "%d minutes", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "an hour"},
	{D: humanize.Day, Format: "%d hours", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "a day"},
	{D: humanize.Year, Format: "%d days", DivBy: humanize.Day},
	{D: 2 * humanize.Year, Format: "a year"},
	{D: math.MaxInt64, Format: "%d years", DivBy: humanize.Year},
}

// remaining estimates the time left from the average edge duration so far.
func remaining(c Counters) string {
	if c.Finished <= 0 {
		return "?"
	}
	ms := float64(c.TimeMillis) / float64(c.Finished) * float64(c.Total-c.Finished)
	return humanDuration(time.Duration(ms * float64(time.Millisecond)))
}

func humanDuration(d time.Duration) string {
	var epoch time.Time
	return humanize.CustomRelTime(epoch, epoch.Add(d), "", "", etaMagnitudes)
}
