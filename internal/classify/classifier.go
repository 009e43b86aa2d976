// Package classify runs the brochure pattern battery over extracted PDF
// text: stage five of the pipeline.
package classify

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/iapd-pipeline/internal/model"
	"github.com/sells-group/iapd-pipeline/internal/textextract"
)

// Classifier applies the pattern catalog to brochure text. Output is a pure
// function of the text and the catalog.
type Classifier struct {
	extractor textextract.Extractor
	catalog   *Catalog
}

// New creates a Classifier. A nil catalog uses the built-ins.
func New(extractor textextract.Extractor, catalog *Catalog) *Classifier {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Classifier{extractor: extractor, catalog: catalog}
}

// Classify extracts text from the PDF and runs the battery. Extraction
// failure or empty text yields the zero analysis with skipped=true; the
// caller joins it into the output with empty fields rather than dropping
// the row.
func (c *Classifier) Classify(ctx context.Context, pdfPath string) (*model.BrochureAnalysis, bool) {
	text, err := c.extractor.ExtractText(ctx, pdfPath)
	if err != nil {
		zap.L().Warn("text extraction failed, skipping classification",
			zap.String("file", pdfPath),
			zap.Error(err),
		)
		return &model.BrochureAnalysis{}, true
	}
	if text == "" {
		zap.L().Warn("empty brochure text, skipping classification",
			zap.String("file", pdfPath),
		)
		return &model.BrochureAnalysis{}, true
	}
	return c.ClassifyText(text), false
}

// ClassifyText runs the battery over already-extracted text.
func (c *Classifier) ClassifyText(text string) *model.BrochureAnalysis {
	a := &model.BrochureAnalysis{
		ProxyProviders:       c.matchTags(CategoryProxyProvider, text),
		ClassActionProviders: c.matchTags(CategoryClassActionProvider, text),
		ESGProviders:         c.matchTags(CategoryESGProvider, text),
	}

	spans := sentences(text)

	a.ESGLanguageExcerpt = c.esgExcerpt(text, spans)
	a.EmailAll = uniqueMatches(emailPattern.FindAllString(text, -1))
	a.EmailCompliance = c.contextEmails(CategoryEmailCompliance, text, spans)
	a.EmailProxy = c.contextEmails(CategoryEmailProxy, text, spans)
	a.EmailBrochure = c.contextEmails(CategoryEmailBrochure, text, spans)
	a.EmailItem17 = c.contextEmails(CategoryEmailItem17, text, spans)

	for _, p := range c.catalog.Patterns(CategoryDoesNotVote) {
		if p.Match(text) {
			a.DoesNotVoteMarker = p.Tag
			break
		}
	}

	return a
}

// matchTags returns the category's canonical tags in first-match position
// order, deduplicated.
func (c *Classifier) matchTags(cat Category, text string) []string {
	type hit struct {
		pos int
		tag string
	}
	var hits []hit
	seen := make(map[string]struct{})
	for _, p := range c.catalog.Patterns(cat) {
		loc := p.FindIndex(text)
		if loc == nil {
			continue
		}
		if _, dup := seen[p.Tag]; dup {
			continue
		}
		seen[p.Tag] = struct{}{}
		hits = append(hits, hit{pos: loc[0], tag: p.Tag})
	}
	// Emit in order of first appearance in the text, not catalog order.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	tags := make([]string, 0, len(hits))
	for _, h := range hits {
		tags = append(tags, h.tag)
	}
	return tags
}

// esgExcerpt returns the sentence around the earliest ESG language match.
func (c *Classifier) esgExcerpt(text string, spans []span) string {
	best := -1
	for _, p := range c.catalog.Patterns(CategoryESGLanguage) {
		loc := p.FindIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best = loc[0]
		}
	}
	if best == -1 {
		return ""
	}
	return sentenceAt(text, spans, best)
}

// contextEmails collects the addresses inside sentences matching any of the
// category's context patterns.
func (c *Classifier) contextEmails(cat Category, text string, spans []span) []string {
	var emails []string
	seen := make(map[string]struct{})
	for _, s := range spans {
		sentence := text[s.start:s.end]
		matched := false
		for _, p := range c.catalog.Patterns(cat) {
			if p.Match(sentence) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, email := range emailPattern.FindAllString(sentence, -1) {
			if _, dup := seen[email]; dup {
				continue
			}
			seen[email] = struct{}{}
			emails = append(emails, email)
		}
	}
	return emails
}

func uniqueMatches(matches []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
