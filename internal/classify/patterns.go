package classify

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category partitions the pattern catalog.
type Category string

const (
	CategoryProxyProvider       Category = "proxy_provider"
	CategoryClassActionProvider Category = "class_action_provider"
	CategoryESGProvider         Category = "esg_provider"
	CategoryESGLanguage         Category = "esg_language"
	CategoryEmailCompliance     Category = "email_context_compliance"
	CategoryEmailProxy          Category = "email_context_proxy"
	CategoryEmailBrochure       Category = "email_context_brochure"
	CategoryEmailItem17         Category = "email_context_item17"
	CategoryDoesNotVote         Category = "does_not_vote"
	CategoryCustodian           Category = "custodian"
)

// Pattern is one named, compiled catalog entry. Tag is the canonical label
// emitted when the pattern matches; for context and language categories the
// tag is unused.
type Pattern struct {
	Name string
	Tag  string
	re   *regexp.Regexp
}

// Match reports whether the pattern occurs anywhere in text.
func (p *Pattern) Match(text string) bool {
	return p.re.MatchString(text)
}

// FindIndex returns the location of the first occurrence, or nil.
func (p *Pattern) FindIndex(text string) []int {
	return p.re.FindStringIndex(text)
}

// emailPattern finds contact addresses anywhere in brochure text.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)

// versionIDPattern extracts the brochure version id from an IAPD brochure
// URL; group 1 is the id.
var versionIDPattern = regexp.MustCompile(`BRCHR_VRSN_ID=(\d+)`)

// VersionIDFromURL returns the brochure version id embedded in an IAPD
// brochure URL, or "".
func VersionIDFromURL(rawURL string) string {
	m := versionIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Catalog is the pattern battery the classifier runs. Pattern order within a
// category is fixed at load time and drives the emit order of tags.
type Catalog struct {
	byCategory map[Category][]*Pattern
}

// Patterns returns the category's patterns in catalog order.
func (c *Catalog) Patterns(cat Category) []*Pattern {
	return c.byCategory[cat]
}

func (c *Catalog) add(cat Category, p *Pattern) {
	c.byCategory[cat] = append(c.byCategory[cat], p)
}

// patternSpec is one overlay entry as written in the YAML file.
type patternSpec struct {
	Name          string `yaml:"name"`
	Tag           string `yaml:"tag"`
	Pattern       string `yaml:"pattern"`
	CaseSensitive bool   `yaml:"case_sensitive"`
}

func (s *patternSpec) compile() (*Pattern, error) {
	expr := s.Pattern
	if !s.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: pattern %q", s.Name)
	}
	tag := s.Tag
	if tag == "" {
		tag = s.Name
	}
	return &Pattern{Name: s.Name, Tag: tag, re: re}, nil
}

// LoadOverlay appends operator-defined patterns from a YAML file, keyed by
// category name. Overlay patterns run after the built-ins of the same
// category.
func (c *Catalog) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "classify: read overlay %s", path)
	}
	var overlay map[Category][]patternSpec
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return eris.Wrapf(err, "classify: parse overlay %s", path)
	}
	for cat, specs := range overlay {
		for i := range specs {
			p, err := specs[i].compile()
			if err != nil {
				return err
			}
			c.add(cat, p)
		}
	}
	return nil
}

// mustPattern compiles a built-in entry; expressions are literals reviewed
// for RE2 compatibility, so compile failure is a programming error.
func mustPattern(name, tag, expr string) *Pattern {
	return &Pattern{Name: name, Tag: tag, re: regexp.MustCompile("(?i)" + expr)}
}

// DefaultCatalog returns the built-in pattern battery.
func DefaultCatalog() *Catalog {
	c := &Catalog{byCategory: make(map[Category][]*Pattern)}

	for _, p := range []*Pattern{
		mustPattern("glass-lewis", "Glass Lewis", `glass[\s,]+lewis`),
		mustPattern("iss", "ISS", `institutional\s+shareholder\s+services|\bISS\b`),
		mustPattern("broadridge", "Broadridge", `broadridge`),
		mustPattern("egan-jones", "Egan-Jones", `egan[\s-]+jones`),
		mustPattern("proxyedge", "ProxyEdge", `proxy\s?edge`),
		mustPattern("proxyvote", "ProxyVote", `proxyvote`),
	} {
		c.add(CategoryProxyProvider, p)
	}

	for _, p := range []*Pattern{
		mustPattern("chicago-clearing", "Chicago Clearing Corporation", `chicago\s+clearing`),
		mustPattern("frt", "Financial Recovery Technologies", `financial\s+recovery\s+technologies|\bFRT\b`),
		mustPattern("battea", "Battea", `battea`),
		mustPattern("iss-scas", "ISS Securities Class Action Services", `securities\s+class\s+action\s+services`),
		mustPattern("kcc", "KCC Class Action Services", `kcc\s+class\s+action`),
	} {
		c.add(CategoryClassActionProvider, p)
	}

	for _, p := range []*Pattern{
		mustPattern("sustainalytics", "Sustainalytics", `sustainalytics`),
		mustPattern("msci-esg", "MSCI ESG", `msci\s+esg`),
		mustPattern("iss-esg", "ISS ESG", `iss[\s-]+esg`),
		mustPattern("morningstar-esg", "Morningstar ESG", `morningstar\s+(esg|sustainability)`),
		mustPattern("bloomberg-esg", "Bloomberg ESG", `bloomberg\s+esg`),
		mustPattern("refinitiv-esg", "Refinitiv ESG", `refinitiv\s+esg`),
	} {
		c.add(CategoryESGProvider, p)
	}

	for _, p := range []*Pattern{
		mustPattern("esg-spelled-out", "", `environmental[\s,]+social[\s,]+and\s+governance`),
		mustPattern("esg-factors", "", `\bESG\b\s+(factors|criteria|considerations|data|ratings?|screening|integration)`),
		mustPattern("sri", "", `socially\s+responsible\s+invest`),
		mustPattern("sustainable-investing", "", `sustainable\s+invest`),
		mustPattern("impact-investing", "", `impact\s+invest`),
	} {
		c.add(CategoryESGLanguage, p)
	}

	c.add(CategoryEmailCompliance, mustPattern("compliance-context", "", `compliance`))
	c.add(CategoryEmailProxy, mustPattern("proxy-context", "", `proxy|proxies`))
	c.add(CategoryEmailBrochure, mustPattern("brochure-context", "", `brochure`))
	c.add(CategoryEmailItem17, mustPattern("item17-context", "", `item\s*17|voting\s+client\s+securities`))

	for _, p := range []*Pattern{
		mustPattern("no-vote-authority", "Does not vote", `do(es)?\s+not\s+(accept|have|retain)\s+(the\s+)?authority\s+to\s+vote`),
		mustPattern("will-not-vote", "Does not vote", `will\s+not\s+vote\s+(client\s+)?(proxies|securities)`),
		mustPattern("does-not-vote", "Does not vote", `do(es)?\s+not\s+vote\s+(client\s+)?(proxies|securities)`),
	} {
		c.add(CategoryDoesNotVote, p)
	}

	for _, p := range []*Pattern{
		mustPattern("schwab", "Charles Schwab", `charles\s+schwab|\bschwab\b`),
		mustPattern("fidelity", "Fidelity", `fidelity\s+(institutional|brokerage|investments)`),
		mustPattern("pershing", "Pershing", `pershing`),
		mustPattern("td-ameritrade", "TD Ameritrade", `td\s+ameritrade`),
		mustPattern("interactive-brokers", "Interactive Brokers", `interactive\s+brokers`),
	} {
		c.add(CategoryCustodian, p)
	}

	return c
}
