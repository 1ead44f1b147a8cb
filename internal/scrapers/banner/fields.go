package banner

import (
	"regexp"
	"strings"
)

// fieldRule recognizes a labelled line. The pattern's first capture group
// is the value found on the same line as the label.
type fieldRule struct {
	field   string
	pattern *regexp.Regexp
	// multiline fields also take every following unlabelled line, this is
	// how values printed on the line(s) after their label are reassembled.
	multiline bool
}

type fieldRules []fieldRule

type parsedFields struct {
	// lead holds the lines before the first label.
	lead   []string
	values map[string]string
}

func (p parsedFields) get(field string) string {
	return p.values[field]
}

func (rules fieldRules) match(line string) (fieldRule, string, bool) {
	for _, rule := range rules {
		groups := rule.pattern.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		value := ""
		if len(groups) > 1 {
			value = strings.TrimSpace(groups[1])
		}
		return rule, value, true
	}
	return fieldRule{}, "", false
}

func appendValue(existing, value string) string {
	if value == "" {
		return existing
	}
	if existing == "" {
		return value
	}
	return existing + " " + value
}

func (rules fieldRules) parse(lines []string) parsedFields {
	out := parsedFields{values: map[string]string{}}

	var current *fieldRule
	seenLabel := false
	for _, line := range lines {
		rule, value, ok := rules.match(line)
		if ok {
			seenLabel = true
			out.values[rule.field] = appendValue(out.values[rule.field], value)
			if rule.multiline {
				current = &rule
			} else {
				current = nil
			}
			continue
		}

		if !seenLabel {
			out.lead = append(out.lead, line)
			continue
		}
		if current != nil {
			out.values[current.field] = appendValue(out.values[current.field], line)
		}
	}
	return out
}

const (
	field_associated_term    = "associated_term"
	field_registration_dates = "registration_dates"
	field_levels             = "levels"
	field_attributes         = "attributes"
	field_instructors        = "instructors"
	field_credits            = "credits"
	field_lecture_hours      = "lecture_hours"
	field_lab_hours          = "lab_hours"
	field_schedule_types     = "schedule_types"
	field_prerequisites      = "prerequisites"
	field_corequisites       = "corequisites"
	field_restrictions       = "restrictions"
	field_general_reqs       = "general_requirements"
	field_department         = "department"
)

// hours matches "3.000", "1.000 TO 4.000" and "3.000 OR 4.000", capturing the first number.
const hours = `(\d+\.\d+)(?:\s+(?:TO|OR)\s+\d+\.\d+)?`

var detailFields = fieldRules{
	{field: field_associated_term, pattern: regexp.MustCompile(`^Associated Term:\s*(.*)$`)},
	{field: field_registration_dates, pattern: regexp.MustCompile(`^Registration Dates:\s*(.*)$`)},
	{field: field_levels, pattern: regexp.MustCompile(`^Levels:\s*(.*)$`)},
	{field: field_attributes, pattern: regexp.MustCompile(`^Attributes:\s*(.*)$`)},
	{field: field_instructors, pattern: regexp.MustCompile(`^Instructors?:\s*(.*)$`)},
	{field: field_credits, pattern: regexp.MustCompile(`^` + hours + `\s+Credits?\b`)},
}

var catalogFields = fieldRules{
	{field: field_credits, pattern: regexp.MustCompile(`^` + hours + `\s+Credit\b`)},
	{field: field_lecture_hours, pattern: regexp.MustCompile(`^` + hours + `\s+Lecture\b`)},
	{field: field_lab_hours, pattern: regexp.MustCompile(`^` + hours + `\s+Lab\b`)},
	{field: field_levels, pattern: regexp.MustCompile(`^Levels:\s*(.*)$`)},
	{field: field_schedule_types, pattern: regexp.MustCompile(`^Schedule Types:\s*(.*)$`), multiline: true},
	{field: field_attributes, pattern: regexp.MustCompile(`^Course Attributes:\s*(.*)$`), multiline: true},
	{field: field_prerequisites, pattern: regexp.MustCompile(`^Prerequisites?(?:\(s\))?:\s*(.*)$`), multiline: true},
	{field: field_corequisites, pattern: regexp.MustCompile(`^Corequisites?(?:\(s\))?:\s*(.*)$`), multiline: true},
	{field: field_restrictions, pattern: regexp.MustCompile(`^Restrictions:\s*(.*)$`), multiline: true},
	{field: field_general_reqs, pattern: regexp.MustCompile(`^General Requirements:\s*(.*)$`), multiline: true},
	{field: field_department, pattern: regexp.MustCompile(`^(.+ Department)$`)},
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
