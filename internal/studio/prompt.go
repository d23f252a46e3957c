package studio

import "regexp"

// The prompt-generation persona is told to wrap its proposed prompt in double
// quotes; picking it out of the reply is a heuristic that can legitimately
// find nothing.
var quotedSpan = regexp.MustCompile(`"(.*?)"`)

// ExtractPrompt returns the first double-quoted span of an assistant reply,
// or found=false when the reply contains none.
func ExtractPrompt(reply string) (prompt string, found bool) {
	m := quotedSpan.FindStringSubmatch(reply)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
