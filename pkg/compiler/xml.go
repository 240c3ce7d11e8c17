package compiler

import "strings"

var xmlTags = [...]string{
	KEYWORD:      "keyword",
	SYMBOL:       "symbol",
	IDENTIFIER:   "identifier",
	INT_CONST:    "integerConstant",
	STRING_CONST: "stringConstant",
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// TokensXML renders the token listing used to check a tokenizer against
// reference output, one element per line. EOF is not listed.
func TokensXML(tokens []Token) string {
	var sb strings.Builder
	sb.WriteString("<tokens>\n")
	for _, tok := range tokens {
		if tok.Type == EOF {
			continue
		}
		tag := xmlTags[tok.Type]
		sb.WriteString("<" + tag + "> " + xmlEscaper.Replace(tok.Lexeme) + " </" + tag + ">\n")
	}
	sb.WriteString("</tokens>\n")
	return sb.String()
}
