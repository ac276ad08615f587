package httpcodec

import (
	"strconv"
	"strings"

	"github.com/shoresys/httpd/pkg/reqres"
)

// Serialize renders resp as a complete HTTP/1.1 response: the status line,
// headers in insertion order, the blank line, and the body verbatim.
func Serialize(resp *reqres.Response) []byte {
	var b strings.Builder

	b.WriteString(reqres.Version)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(resp.Status))
	b.WriteByte(' ')
	b.WriteString(resp.Reason())
	b.WriteString("\r\n")

	resp.Headers.Each(func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	})

	b.WriteString("\r\n")

	out := make([]byte, 0, b.Len()+len(resp.Body))
	out = append(out, b.String()...)
	out = append(out, resp.Body...)
	return out
}
