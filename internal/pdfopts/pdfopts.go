// Package pdfopts defines the PdfOptions value object: a plain,
// immutable-once-built set of Page.printToPDF parameters that the CDP
// session and the conversion facade both depend on.
package pdfopts

// Options mirrors every Page.printToPDF parameter this service populates
// on every call.
type Options struct {
	Landscape         bool
	PrintBackground   bool
	Scale             float64
	PaperWidth        float64 // inches
	PaperHeight       float64 // inches
	MarginTop         float64 // inches
	MarginBottom      float64 // inches
	MarginLeft        float64 // inches
	MarginRight       float64 // inches
	PageRanges        string
	PreferCSSPageSize bool
}

// Default returns the documented defaults: portrait, backgrounds printed,
// scale 1.0, US Letter, 0.4in margins, all pages, no CSS page size
// preference.
func Default() Options {
	return Options{
		Landscape:         false,
		PrintBackground:   true,
		Scale:             1.0,
		PaperWidth:        8.5,
		PaperHeight:       11.0,
		MarginTop:         0.4,
		MarginBottom:      0.4,
		MarginLeft:        0.4,
		MarginRight:       0.4,
		PageRanges:        "",
		PreferCSSPageSize: false,
	}
}

// Option customizes an Options value built from Default in the
// functional-options style.
type Option func(*Options)

// Landscape sets the page orientation.
func Landscape(v bool) Option { return func(o *Options) { o.Landscape = v } }

// PrintBackground toggles background graphics.
func PrintBackground(v bool) Option { return func(o *Options) { o.PrintBackground = v } }

// Scale sets the page scale factor.
func Scale(v float64) Option { return func(o *Options) { o.Scale = v } }

// PaperSize sets the paper width/height in inches.
func PaperSize(width, height float64) Option {
	return func(o *Options) { o.PaperWidth = width; o.PaperHeight = height }
}

// Margins sets all four margins in inches.
func Margins(top, bottom, left, right float64) Option {
	return func(o *Options) {
		o.MarginTop, o.MarginBottom, o.MarginLeft, o.MarginRight = top, bottom, left, right
	}
}

// PageRanges sets the page range string, e.g. "1-4,7".
func PageRanges(v string) Option { return func(o *Options) { o.PageRanges = v } }

// PreferCSSPageSize toggles honoring @page CSS size declarations.
func PreferCSSPageSize(v bool) Option { return func(o *Options) { o.PreferCSSPageSize = v } }

// New builds an Options value from Default plus the given overrides.
func New(opts ...Option) Options {
	o := Default()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
