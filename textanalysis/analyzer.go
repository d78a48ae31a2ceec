package textanalysis

import (
	"context"

	"github.com/odit-bit/expertfinder/socialgraph"
)

// Analyzer bundles the text analysis used while ingesting resources and
// answering queries.
type Analyzer struct {
	expander *LinkExpander
	tagme    *TagmeClient
}

// NewAnalyzer returns an Analyzer. A nil expander leaves texts unexpanded
// and a nil tagme client extracts no entities.
func NewAnalyzer(expander *LinkExpander, tagme *TagmeClient) *Analyzer {
	return &Analyzer{expander: expander, tagme: tagme}
}

// ExpandLinks appends the text of the first linked page to text.
func (a *Analyzer) ExpandLinks(ctx context.Context, text string) string {
	if a.expander == nil {
		return text
	}
	return a.expander.Expand(ctx, text)
}

// IsEnglish classifies text by stop word overlap.
func (a *Analyzer) IsEnglish(text string) bool {
	return IsEnglish(text)
}

// Analyze returns the stems and weighted entities of text.
func (a *Analyzer) Analyze(ctx context.Context, text string) socialgraph.Annotation {
	ann := socialgraph.Annotation{Stems: Stems(text)}
	if a.tagme != nil {
		ann.Entities = a.tagme.Entities(ctx, text)
	}
	return ann
}
