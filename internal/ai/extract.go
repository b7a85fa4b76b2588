package ai

import "regexp"

var (
	jsonFenceRe  = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	bareBracesRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON pulls the JSON payload out of a model response. Models wrap
// JSON in markdown fences, surround it with prose, or return it bare, so
// extraction tries three shapes in order: a ```json fence, the widest
// brace-delimited span, then the raw text.
func ExtractJSON(response string) string {
	if m := jsonFenceRe.FindStringSubmatch(response); m != nil {
		return m[1]
	}
	if m := bareBracesRe.FindString(response); m != "" {
		return m
	}
	return response
}
