package model

// BrochureAnalysis is the classification result for one brochure's extracted
// text. Set-valued fields are slices in first-match order, already
// deduplicated; the output emits them pipe-separated. A skipped
// classification is the zero value.
type BrochureAnalysis struct {
	ProxyProviders       []string
	ClassActionProviders []string
	ESGProviders         []string
	ESGLanguageExcerpt   string
	EmailCompliance      []string
	EmailProxy           []string
	EmailBrochure        []string
	EmailItem17          []string
	EmailAll             []string
	DoesNotVoteMarker    string
}
