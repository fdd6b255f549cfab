package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Canonical lead fields a rule may target. Any other target is kept in CustomFields.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldName      = "name"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldCompany   = "company"
	FieldTitle     = "title"
	FieldWebsite   = "website"
	FieldNotes     = "notes"
	FieldSource    = "source"

	customFieldsKey = "custom_fields"
)

var canonicalFields = map[string]struct{}{
	FieldFirstName: {},
	FieldLastName:  {},
	FieldName:      {},
	FieldEmail:     {},
	FieldPhone:     {},
	FieldCompany:   {},
	FieldTitle:     {},
	FieldWebsite:   {},
	FieldNotes:     {},
	FieldSource:    {},
}

var fallbackEmailKeys = map[string]struct{}{
	"email":         {},
	"e-mail":        {},
	"email_address": {},
}

// ErrorKind classifies a normalization failure.
type ErrorKind string

// KindMissingRequiredField is reported when a required lead field cannot be resolved.
const KindMissingRequiredField ErrorKind = "missing_required_field"

// Error reports why a payload could not become a Lead.
type Error struct {
	Kind  ErrorKind `json:"kind"`
	Field string    `json:"field"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Field)
}

// Lead is the canonical record produced from a third-party payload.
type Lead struct {
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	Company      string         `json:"company,omitempty"`
	Title        string         `json:"title,omitempty"`
	Website      string         `json:"website,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	Source       string         `json:"source"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// Rule maps one dot-delimited payload path onto one lead field.
type Rule struct {
	SourcePath  string `json:"source_path"`
	TargetField string `json:"target_field"`
}

// Profile is the ordered rule set used for one integration.
type Profile struct {
	Name    string
	Source  string
	Rules   []Rule
	Markers []string
}

// ProfileFromMapping builds a profile from a {targetField: sourcePath} object as stored on
// webhook endpoints. Rules are ordered by target field.
func ProfileFromMapping(name string, mapping map[string]string) Profile {
	targets := make([]string, 0, len(mapping))
	for target := range mapping {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	rules := make([]Rule, 0, len(targets))
	for _, target := range targets {
		path := strings.TrimSpace(mapping[target])
		target = strings.TrimSpace(target)
		if path == "" || target == "" {
			continue
		}
		rules = append(rules, Rule{SourcePath: path, TargetField: target})
	}
	return Profile{Name: name, Source: name, Rules: rules}
}

// Layer joins profiles into one whose rules run in the given order. A target resolved by an
// earlier profile is never overwritten, so later profiles only fill what is still unset. Name
// and Source come from the first profile.
func Layer(profiles ...Profile) Profile {
	if len(profiles) == 0 {
		return Generic
	}
	layered := Profile{Name: profiles[0].Name, Source: profiles[0].Source}
	for _, profile := range profiles {
		layered.Rules = append(layered.Rules, profile.Rules...)
	}
	return layered
}

// Normalize maps payload onto a Lead using the first profile that resolves an email. When none
// does, a case-insensitive email key search runs over the top level and one nesting level, and
// the first profile still supplies the remaining fields.
func Normalize(payload map[string]any, profiles ...Profile) (Lead, error) {
	if len(profiles) == 0 {
		profiles = []Profile{Generic}
	}

	selected := profiles[0]
	var (
		email     string
		emailPath string
		found     bool
	)
	for _, profile := range profiles {
		if path, value, ok := profile.resolveTarget(payload, FieldEmail); ok {
			selected, emailPath, email, found = profile, path, value, true
			break
		}
	}
	if !found {
		emailPath, email, found = fallbackEmail(payload)
	}
	if !found {
		return Lead{}, &Error{Kind: KindMissingRequiredField, Field: FieldEmail}
	}

	claimed := map[string]struct{}{emailPath: {}}
	values := make(map[string]string)
	extra := make(map[string]any)

	for _, rule := range selected.Rules {
		target := strings.TrimSpace(rule.TargetField)
		raw, ok := resolve(payload, rule.SourcePath)
		if !ok || !isScalar(raw) {
			continue
		}
		if _, canonical := canonicalFields[target]; !canonical {
			if _, set := extra[target]; !set {
				extra[target] = raw
				claimed[rule.SourcePath] = struct{}{}
			}
			continue
		}
		if target == FieldEmail {
			claimed[rule.SourcePath] = struct{}{}
			continue
		}
		// A target filled by an earlier rule leaves this path unclaimed for custom_fields.
		if _, set := values[target]; set {
			continue
		}
		claimed[rule.SourcePath] = struct{}{}
		if text, ok := scalarString(raw); ok && text != "" {
			values[target] = text
		}
	}

	lead := Lead{
		FirstName: values[FieldFirstName],
		LastName:  values[FieldLastName],
		Email:     email,
		Phone:     values[FieldPhone],
		Company:   values[FieldCompany],
		Title:     values[FieldTitle],
		Website:   values[FieldWebsite],
		Notes:     values[FieldNotes],
		Source:    values[FieldSource],
	}
	if lead.FirstName == "" && lead.LastName == "" {
		lead.FirstName, lead.LastName = SplitName(values[FieldName])
	}
	if lead.Source == "" {
		lead.Source = selected.Source
	}
	if lead.Source == "" {
		lead.Source = selected.Name
	}

	custom := make(map[string]any)
	collectUnclaimed(payload, "", claimed, custom)
	if nested, ok := payload[customFieldsKey].(map[string]any); ok {
		if _, taken := claimed[customFieldsKey]; !taken {
			flattenInto(nested, "", custom)
		}
	}
	for _, key := range sortedKeys(extra) {
		setOnce(custom, key, extra[key])
	}
	if len(custom) > 0 {
		lead.CustomFields = custom
	}

	return lead, nil
}

// SplitName splits a combined name on the first whitespace run. A single word becomes the first
// name with an empty last name.
func SplitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	idx := strings.IndexFunc(full, unicode.IsSpace)
	if idx < 0 {
		return full, ""
	}
	return full[:idx], strings.TrimSpace(full[idx:])
}

func (p Profile) resolveTarget(payload map[string]any, target string) (string, string, bool) {
	for _, rule := range p.Rules {
		if strings.TrimSpace(rule.TargetField) != target {
			continue
		}
		raw, ok := resolve(payload, rule.SourcePath)
		if !ok {
			continue
		}
		if text, ok := scalarString(raw); ok && text != "" {
			return rule.SourcePath, text, true
		}
	}
	return "", "", false
}

// resolve descends into nested objects along a dot-delimited path. A literal top-level key
// containing dots wins over descent.
func resolve(payload map[string]any, path string) (any, bool) {
	if path == "" || payload == nil {
		return nil, false
	}
	if value, ok := payload[path]; ok {
		return value, true
	}
	return descend(payload, strings.Split(path, "."))
}

func descend(node any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return node, true
	}
	object, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	child, ok := object[parts[0]]
	if !ok {
		return nil, false
	}
	return descend(child, parts[1:])
}

func fallbackEmail(payload map[string]any) (string, string, bool) {
	keys := sortedKeys(payload)
	for _, key := range keys {
		if !isEmailKey(key) {
			continue
		}
		if text, ok := scalarString(payload[key]); ok && text != "" {
			return key, text, true
		}
	}
	for _, key := range keys {
		nested, ok := payload[key].(map[string]any)
		if !ok {
			continue
		}
		for _, nestedKey := range sortedKeys(nested) {
			if !isEmailKey(nestedKey) {
				continue
			}
			if text, ok := scalarString(nested[nestedKey]); ok && text != "" {
				return key + "." + nestedKey, text, true
			}
		}
	}
	return "", "", false
}

// collectUnclaimed copies unclaimed scalars into out. Keys already present in out are kept, and
// at each level scalars are visited before nested objects, both in key order, so a literal
// dotted key beats the same path reached by descent. The top-level custom_fields object is
// skipped here and merged by the caller.
func collectUnclaimed(node map[string]any, prefix string, claimed map[string]struct{}, out map[string]any) {
	keys := sortedKeys(node)
	for _, key := range keys {
		path := joinPath(prefix, key)
		if _, taken := claimed[path]; taken {
			continue
		}
		if isScalar(node[key]) {
			setOnce(out, path, node[key])
		}
	}
	for _, key := range keys {
		nested, ok := node[key].(map[string]any)
		if !ok || (prefix == "" && key == customFieldsKey) {
			continue
		}
		path := joinPath(prefix, key)
		if _, taken := claimed[path]; taken {
			continue
		}
		collectUnclaimed(nested, path, claimed, out)
	}
}

func flattenInto(node map[string]any, prefix string, out map[string]any) {
	keys := sortedKeys(node)
	for _, key := range keys {
		if isScalar(node[key]) {
			setOnce(out, joinPath(prefix, key), node[key])
		}
	}
	for _, key := range keys {
		if nested, ok := node[key].(map[string]any); ok {
			flattenInto(nested, joinPath(prefix, key), out)
		}
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func setOnce(out map[string]any, key string, value any) {
	if _, set := out[key]; !set {
		out[key] = value
	}
}

func isScalar(value any) bool {
	switch value.(type) {
	case nil, string, bool, float64, float32, int, int32, int64, json.Number:
		return true
	default:
		return false
	}
}

func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func isEmailKey(key string) bool {
	_, ok := fallbackEmailKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
