// internal/normalizer/normalizer.go
package normalizer

import (
	"fmt"
	"regexp"
	"strings"
)

// Shape names the branch that produced the text.
type Shape string

const (
	ShapeText                 Shape = "text"
	ShapeOutput               Shape = "output"
	ShapeEmptyOutput          Shape = "empty_output"
	ShapeError                Shape = "error"
	ShapeAnswer               Shape = "answer"
	ShapeResults              Shape = "results"
	ShapeSummary              Shape = "summary"
	ShapeFallback             Shape = "fallback"
	ShapeSerializationFailure Shape = "serialization_failure"
	ShapeUnsupported          Shape = "unsupported"
)

const (
	DefaultErrorTemplate       = "Error: {error}. Please try again or rephrase your question."
	DefaultEmptyNotice         = "The response was empty."
	DefaultUnprocessableNotice = "I received your message, but couldn't process the response format."
	DefaultFormatFailureNotice = "I received a response but couldn't format it properly."
	DefaultSourcesLabel        = "Sources"

	errorPlaceholder = "{error}"
	outputMarker     = `{"output":`
	resultsHeader    = "Here are the search results:\n\n"
	summaryHeader    = "**Document Summary**\n\n"
	keyPointsHeader  = "\n\n**Key Points:**\n"
	untitledResult   = "Document Section"
	missingPreview   = "No preview available"
	untitledSource   = "Source"
)

var outputPattern = regexp.MustCompile(`"output":"([^"]+)"`)

// Options tunes the user-facing wording. Blank fields fall back to defaults.
type Options struct {
	ErrorTemplate       string `mapstructure:"error_template" json:"errorTemplate,omitempty"`
	EmptyNotice         string `mapstructure:"empty_notice" json:"emptyNotice,omitempty"`
	UnprocessableNotice string `mapstructure:"unprocessable_notice" json:"unprocessableNotice,omitempty"`
	FormatFailureNotice string `mapstructure:"format_failure_notice" json:"formatFailureNotice,omitempty"`
	SourcesLabel        string `mapstructure:"sources_label" json:"sourcesLabel,omitempty"`
	// OutputIndent indents containers serialized out of an "output" member.
	OutputIndent string `mapstructure:"output_indent" json:"outputIndent,omitempty"`
}

// DefaultOptions returns the wording used by the chat panels.
func DefaultOptions() Options {
	return Options{
		ErrorTemplate:       DefaultErrorTemplate,
		EmptyNotice:         DefaultEmptyNotice,
		UnprocessableNotice: DefaultUnprocessableNotice,
		FormatFailureNotice: DefaultFormatFailureNotice,
		SourcesLabel:        DefaultSourcesLabel,
	}
}

// Merge overlays the non-blank fields of o onto base.
func (o Options) Merge(base Options) Options {
	if o.ErrorTemplate != "" {
		base.ErrorTemplate = o.ErrorTemplate
	}
	if o.EmptyNotice != "" {
		base.EmptyNotice = o.EmptyNotice
	}
	if o.UnprocessableNotice != "" {
		base.UnprocessableNotice = o.UnprocessableNotice
	}
	if o.FormatFailureNotice != "" {
		base.FormatFailureNotice = o.FormatFailureNotice
	}
	if o.SourcesLabel != "" {
		base.SourcesLabel = o.SourcesLabel
	}
	if o.OutputIndent != "" {
		base.OutputIndent = o.OutputIndent
	}
	return base
}

// Result is the normalized text and the branch that produced it.
type Result struct {
	Text  string `json:"text"`
	Shape Shape  `json:"shape"`
}

// Normalizer is stateless after construction and safe for concurrent use.
type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts.Merge(DefaultOptions())}
}

// Options returns the effective options.
func (n *Normalizer) Options() Options {
	return n.opts
}

var defaultNormalizer = New(Options{})

// Normalize uses the default wording.
func Normalize(raw Value) string {
	return defaultNormalizer.Normalize(raw)
}

func (n *Normalizer) Normalize(raw Value) string {
	return n.Classify(raw).Text
}

// objectRule is one entry of the ordered shape table. The first rule whose
// match accepts the object renders it.
type objectRule struct {
	shape  Shape
	match  func(obj Value) bool
	render func(n *Normalizer, obj Value) Result
}

var objectRules = []objectRule{
	{shape: ShapeOutput, match: isSoleOutput, render: (*Normalizer).renderOutput},
	{shape: ShapeError, match: hasError, render: (*Normalizer).renderError},
	{shape: ShapeAnswer, match: hasAnswer, render: (*Normalizer).renderAnswer},
	{shape: ShapeResults, match: hasResults, render: (*Normalizer).renderResults},
	{shape: ShapeSummary, match: hasSummary, render: (*Normalizer).renderSummary},
}

// Priority lists the object shapes in the order they are tried.
func Priority() []Shape {
	shapes := make([]Shape, 0, len(objectRules)+1)
	for _, rule := range objectRules {
		shapes = append(shapes, rule.shape)
	}
	return append(shapes, ShapeFallback)
}

// Classify picks the first matching shape and renders it. Non-string input
// always yields a non-empty text.
func (n *Normalizer) Classify(raw Value) Result {
	switch raw.Kind() {
	case KindString:
		return Result{Text: raw.Str(), Shape: ShapeText}
	case KindObject:
		for _, rule := range objectRules {
			if rule.match(raw) {
				return n.nonEmpty(rule.render(n, raw))
			}
		}
		return n.nonEmpty(n.renderFallback(raw))
	case KindArray:
		return n.nonEmpty(n.renderFallback(raw))
	}
	return Result{Text: n.opts.UnprocessableNotice, Shape: ShapeUnsupported}
}

func (n *Normalizer) nonEmpty(r Result) Result {
	if r.Text == "" {
		return Result{Text: n.opts.EmptyNotice, Shape: ShapeEmptyOutput}
	}
	return r
}

func isSoleOutput(obj Value) bool {
	return obj.Len() == 1 && obj.Members()[0].Key == "output"
}

func hasError(obj Value) bool {
	return obj.Field("error").Truthy()
}

func hasAnswer(obj Value) bool {
	return obj.Field("answer").NonEmptyString() || obj.Field("response").NonEmptyString()
}

func hasResults(obj Value) bool {
	return obj.Field("results").IsArray()
}

func hasSummary(obj Value) bool {
	return obj.Field("summary").NonEmptyString()
}

func (n *Normalizer) renderOutput(obj Value) Result {
	out := obj.Field("output")
	switch out.Kind() {
	case KindString:
		return Result{Text: out.Str(), Shape: ShapeOutput}
	case KindObject, KindArray:
		if out.Len() == 0 {
			return Result{Text: n.opts.EmptyNotice, Shape: ShapeEmptyOutput}
		}
		first := firstValue(out)
		if first.IsString() {
			return Result{Text: first.Str(), Shape: ShapeOutput}
		}
		text, err := out.Serialize(n.opts.OutputIndent)
		if err != nil {
			return Result{Text: n.opts.FormatFailureNotice, Shape: ShapeSerializationFailure}
		}
		return Result{Text: text, Shape: ShapeOutput}
	case KindNumber, KindBool:
		text, err := out.Serialize("")
		if err != nil {
			return Result{Text: n.opts.FormatFailureNotice, Shape: ShapeSerializationFailure}
		}
		return Result{Text: text, Shape: ShapeOutput}
	}
	return Result{Text: n.opts.EmptyNotice, Shape: ShapeEmptyOutput}
}

func firstValue(container Value) Value {
	if container.IsArray() {
		return container.Items()[0]
	}
	return container.Members()[0].Value
}

func (n *Normalizer) renderError(obj Value) Result {
	text := strings.ReplaceAll(n.opts.ErrorTemplate, errorPlaceholder, n.plain(obj.Field("error")))
	return Result{Text: text, Shape: ShapeError}
}

func (n *Normalizer) renderAnswer(obj Value) Result {
	answer := obj.Field("answer")
	if !answer.NonEmptyString() {
		answer = obj.Field("response")
	}

	var b strings.Builder
	b.WriteString(answer.Str())

	sources := obj.Field("sources")
	if sources.IsArray() && sources.Len() > 0 {
		fmt.Fprintf(&b, "\n\n**%s:**\n", n.opts.SourcesLabel)
		for i, src := range sources.Items() {
			title, url := sourceParts(src)
			fmt.Fprintf(&b, "%d. %s", i+1, title)
			if url != "" {
				fmt.Fprintf(&b, " [link](%s)", url)
			}
			b.WriteByte('\n')
		}
	}
	return Result{Text: b.String(), Shape: ShapeAnswer}
}

func sourceParts(src Value) (title, url string) {
	if src.IsString() {
		return src.Str(), ""
	}
	if u := src.Field("url"); u.NonEmptyString() {
		url = u.Str()
	}
	switch {
	case src.Field("title").NonEmptyString():
		title = src.Field("title").Str()
	case src.Field("name").NonEmptyString():
		title = src.Field("name").Str()
	case url != "":
		title = url
	default:
		title = untitledSource
	}
	return title, url
}

func (n *Normalizer) renderResults(obj Value) Result {
	var b strings.Builder
	b.WriteString(resultsHeader)
	for i, item := range obj.Field("results").Items() {
		title := untitledResult
		if t := item.Field("title"); t.NonEmptyString() {
			title = t.Str()
		}
		preview := missingPreview
		if c := item.Field("content"); c.NonEmptyString() {
			preview = c.Str()
		} else if s := item.Field("snippet"); s.NonEmptyString() {
			preview = s.Str()
		}
		fmt.Fprintf(&b, "**%d. %s**\n%s\n\n", i+1, title, preview)
	}
	return Result{Text: b.String(), Shape: ShapeResults}
}

func (n *Normalizer) renderSummary(obj Value) Result {
	var b strings.Builder
	b.WriteString(summaryHeader)
	b.WriteString(obj.Field("summary").Str())

	points := obj.Field("keyPoints")
	if points.IsArray() && points.Len() > 0 {
		b.WriteString(keyPointsHeader)
		for i, point := range points.Items() {
			fmt.Fprintf(&b, "%d. %s\n", i+1, n.plain(point))
		}
	}
	return Result{Text: b.String(), Shape: ShapeSummary}
}

// renderFallback is the best-effort tier for shapes nothing above recognizes.
func (n *Normalizer) renderFallback(raw Value) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Text: n.opts.FormatFailureNotice, Shape: ShapeSerializationFailure}
		}
	}()

	text, err := raw.Serialize("")
	if err != nil {
		return Result{Text: n.opts.FormatFailureNotice, Shape: ShapeSerializationFailure}
	}
	if strings.Contains(text, outputMarker) {
		if m := outputPattern.FindStringSubmatch(text); m != nil && m[1] != "" {
			extracted := strings.ReplaceAll(m[1], `\n`, "\n")
			extracted = strings.ReplaceAll(extracted, `\"`, `"`)
			return Result{Text: extracted, Shape: ShapeFallback}
		}
	}
	return Result{Text: text, Shape: ShapeFallback}
}

// plain renders a scalar for inline use: strings as-is, anything else as JSON.
func (n *Normalizer) plain(v Value) string {
	if v.IsString() {
		return v.Str()
	}
	text, err := v.Serialize("")
	if err != nil {
		return ""
	}
	return text
}
