package feeds

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// acronyms maps lowercase tokens to their canonical casing.
var acronyms = map[string]string{
	"mcp":    "MCP",
	"llm":    "LLM",
	"ai":     "AI",
	"api":    "API",
	"sdk":    "SDK",
	"openai": "OpenAI",
}

// HumanizeTag turns a slug-style category into a display label:
// "mcp-server" becomes "MCP Server" and "claude" becomes "Claude".
func HumanizeTag(label string) string {
	tokens := strings.Split(label, "-")
	for i, tok := range tokens {
		tokens[i] = humanizeToken(tok)
	}
	return strings.Join(tokens, " ")
}

// humanizeToken returns the acronym spelling for known tokens and otherwise
// uppercases only the first character.
func humanizeToken(tok string) string {
	if canon, ok := acronyms[strings.ToLower(tok)]; ok {
		return canon
	}
	r, size := utf8.DecodeRuneInString(tok)
	if r == utf8.RuneError {
		return tok
	}
	return string(unicode.ToUpper(r)) + tok[size:]
}
