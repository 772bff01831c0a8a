package crawler

import (
	"iter"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Extractor names accepted by NewExtractor.
const (
	ExtractorRegex = "regex"
	ExtractorHTML  = "html"
)

// Match is one raw link reference found in page text.
// A match may carry an href candidate, a src candidate, or both.
type Match struct {
	// Href is the anchor href value, valid when HasHref is true.
	Href    string
	HasHref bool

	// Src is the src attribute value, valid when HasSrc is true.
	Src    string
	HasSrc bool
}

// Extractor finds link references in decoded page text.
// The returned sequence is lazy and may be ranged over more than once;
// each pass yields the same matches in document order.
type Extractor interface {
	Extract(text string) iter.Seq[Match]
}

// NewExtractor returns the extractor registered under name.
// It returns false for unknown names.
func NewExtractor(name string) (Extractor, bool) {
	switch strings.ToLower(name) {
	case "", ExtractorRegex:
		return NewRegexExtractor(), true
	case ExtractorHTML:
		return TokenExtractor{}, true
	default:
		return nil, false
	}
}

// linkPattern matches an anchor's href, or a src attribute on any element.
// It is deliberately loose: src is matched without looking at the tag, and
// the lazy (.*?) can run past other attributes up to the next href on the
// same line.
const linkPattern = `<a(.*?)href="(?P<href>.*?)"|src="(?P<src>.*?)"`

// RegexExtractor is the default extractor. It scans text with linkPattern.
// Because of the alternation a single match carries either an href or a src.
type RegexExtractor struct {
	re       *regexp.Regexp
	hrefSlot int
	srcSlot  int
}

// NewRegexExtractor compiles linkPattern.
func NewRegexExtractor() *RegexExtractor {
	re := regexp.MustCompile(linkPattern)
	return &RegexExtractor{
		re:       re,
		hrefSlot: re.SubexpIndex("href"),
		srcSlot:  re.SubexpIndex("src"),
	}
}

// Extract returns the matches of linkPattern in text, one at a time.
func (e *RegexExtractor) Extract(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		pos := 0
		for pos < len(text) {
			loc := e.re.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				return
			}

			var m Match
			if start, end := loc[2*e.hrefSlot], loc[2*e.hrefSlot+1]; start >= 0 {
				m.Href, m.HasHref = text[pos+start:pos+end], true
			}
			if start, end := loc[2*e.srcSlot], loc[2*e.srcSlot+1]; start >= 0 {
				m.Src, m.HasSrc = text[pos+start:pos+end], true
			}
			if !yield(m) {
				return
			}

			// linkPattern cannot match the empty string, so this always advances.
			pos += loc[1]
		}
	}
}

// TokenExtractor walks the HTML token stream instead of using a regex.
// It reports href only on <a> elements and src on any element, and handles
// single-quoted and unquoted attribute values the regex misses.
type TokenExtractor struct{}

// Extract yields one match per start tag carrying an anchor href or a src.
func (TokenExtractor) Extract(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		z := html.NewTokenizer(strings.NewReader(text))
		for {
			switch z.Next() {
			case html.ErrorToken:
				return
			case html.StartTagToken, html.SelfClosingTagToken:
				name, hasAttr := z.TagName()
				isAnchor := string(name) == "a"

				var m Match
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					switch string(key) {
					case "href":
						if isAnchor && !m.HasHref {
							m.Href, m.HasHref = string(val), true
						}
					case "src":
						if !m.HasSrc {
							m.Src, m.HasSrc = string(val), true
						}
					}
				}

				if (m.HasHref || m.HasSrc) && !yield(m) {
					return
				}
			}
		}
	}
}
