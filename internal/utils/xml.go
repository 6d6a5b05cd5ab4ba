package utils

import "strings"

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
)

// XMLEscape escapes the characters that are unsafe inside XML text
// nodes and double-quoted attribute values.
func XMLEscape(s string) string {
	return xmlReplacer.Replace(s)
}
