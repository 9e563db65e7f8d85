package matching

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FallbackReason is the verdict reason used whenever a judge response cannot be read.
const FallbackReason = "Could not determine match due to processing error."

// Verdict is the judge's answer for one document.
type Verdict struct {
	Match  bool   `json:"match"`
	Reason string `json:"reason"`
}

func FallbackVerdict() Verdict { return Verdict{Match: false, Reason: FallbackReason} }

var (
	jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)
	fenceRe      = regexp.MustCompile("```(?:json|JSON)?")
	spaceRe      = regexp.MustCompile(`\s+`)
	reasonKeyRe  = regexp.MustCompile(`"reason"\s*:\s*"`)
	reasonEndRe  = regexp.MustCompile(`"\s*(?:,\s*"match"\s*:|\})`)
)

// ParseVerdict reads a {"match","reason"} object out of raw model output.
// On any failure it returns the fallback verdict together with a *ParseError.
func ParseVerdict(raw string) (Verdict, error) {
	obj := jsonObjectRe.FindString(raw)
	if obj == "" {
		return FallbackVerdict(), &ParseError{Raw: raw, Reason: "no JSON object found"}
	}
	obj = fenceRe.ReplaceAllString(obj, "")
	obj = strings.TrimSpace(spaceRe.ReplaceAllString(obj, " "))

	fields, err := decodeObject(obj)
	if err != nil {
		fields, err = decodeObject(repairReasonQuotes(obj))
	}
	if err != nil {
		return FallbackVerdict(), &ParseError{Raw: raw, Reason: "malformed JSON: " + err.Error()}
	}

	match, ok := fields["match"].(bool)
	if !ok {
		return FallbackVerdict(), &ParseError{Raw: raw, Reason: `"match" is not a boolean`}
	}
	reason, ok := fields["reason"].(string)
	if !ok {
		return FallbackVerdict(), &ParseError{Raw: raw, Reason: `"reason" is not a string`}
	}
	return Verdict{Match: match, Reason: strings.TrimSpace(reason)}, nil
}

func decodeObject(s string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// repairReasonQuotes escapes bare double quotes inside the "reason" value.
func repairReasonQuotes(s string) string {
	loc := reasonKeyRe.FindStringIndex(s)
	if loc == nil {
		return s
	}
	start := loc[1]
	rest := s[start:]
	ends := reasonEndRe.FindAllStringIndex(rest, -1)
	if len(ends) == 0 {
		return s
	}
	end := ends[len(ends)-1][0]
	for _, e := range ends {
		if strings.Contains(rest[e[0]:e[1]], `"match"`) {
			end = e[0]
			break
		}
	}

	var b strings.Builder
	b.WriteString(s[:start])
	body := rest[:end]
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch == '\\' && i+1 < len(body) {
			b.WriteByte(ch)
			b.WriteByte(body[i+1])
			i++
			continue
		}
		if ch == '"' {
			b.WriteString(`\"`)
			continue
		}
		b.WriteByte(ch)
	}
	b.WriteString(rest[end:])
	return b.String()
}
