package banner

import (
	"coursewatch-backend/lib/htmlutil"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

var (
	termCodeRegex = regexp.MustCompile(`^\d{6}$`)
	crnRegex      = regexp.MustCompile(`^\d{5}$`)
)

// ExtractTerms reads the term dropdown of the schedule landing page.
// Options without a six digit code ("None", placeholders) are skipped.
func ExtractTerms(doc *goquery.Document) []Term {
	var terms []Term
	seen := map[string]bool{}
	doc.Find(`select[name="p_term"] option`).Each(func(_ int, option *goquery.Selection) {
		code := htmlutil.Clean(option.AttrOr("value", ""))
		if !termCodeRegex.MatchString(code) || seen[code] {
			return
		}
		seen[code] = true
		terms = append(terms, Term{
			Code: code,
			Name: htmlutil.SelectionText(option),
		})
	})
	return terms
}

// ExtractSubjects reads the subject list of the term search page, the
// "%" (all subjects) option is skipped.
func ExtractSubjects(doc *goquery.Document) []string {
	var subjects []string
	seen := map[string]bool{}
	doc.Find("#subj_id option").Each(func(_ int, option *goquery.Selection) {
		code := htmlutil.Clean(option.AttrOr("value", ""))
		if code == "" || code == "%" || seen[code] {
			return
		}
		seen[code] = true
		subjects = append(subjects, code)
	})
	return subjects
}
