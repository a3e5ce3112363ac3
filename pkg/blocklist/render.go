package blocklist

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
)

const bannerWidth = 82

var bannerRule = strings.Repeat("#", bannerWidth)

// Render writes the document in the dnscrypt-proxy blocklist configuration
// format. Output depends only on the document.
func Render(w io.Writer, doc *MergedDocument) error {
	bw := bufio.NewWriter(w)
	writeBanner(bw, []string{
		"DNSCrypt-Proxy Domains Blocklist Configuration",
		"Generated by blockmerge",
	})

	if doc != nil {
		for _, section := range doc.Sections {
			bw.WriteString("\n")
			writeBanner(bw, append([]string{section.Title}, section.Notes...))
			for _, line := range section.Lines {
				writeLineHeader(bw, line)
				bw.WriteString(RenderLine(line))
				bw.WriteString("\n")
			}
		}
	}
	return bw.Flush()
}

// RenderBytes renders the document into memory.
func RenderBytes(doc *MergedDocument) []byte {
	var buf bytes.Buffer
	_ = Render(&buf, doc)
	return buf.Bytes()
}

// RenderLine formats a single line. Commented lines carry the reason ahead of
// the URL so that deleting the prefix enables the entry.
func RenderLine(line Line) string {
	switch line.Status {
	case StatusCommentedDuplicate:
		return "# duplicate-of:" + line.OriginSourceID + " " + line.URL
	case StatusCommentedDisabled:
		return "# disabled-by-default " + line.URL
	default:
		return line.URL
	}
}

// writeLineHeader names the list ahead of its URL line.
func writeLineHeader(w *bufio.Writer, line Line) {
	if line.Name != "" {
		w.WriteString("# ")
		w.WriteString(line.Name)
		w.WriteString("\n")
	}
	if line.Entries > 0 {
		w.WriteString("# Entries: ")
		w.WriteString(strconv.Itoa(line.Entries))
		w.WriteString("\n")
	}
}

func writeBanner(w *bufio.Writer, lines []string) {
	w.WriteString(bannerRule)
	w.WriteString("\n")
	for _, line := range lines {
		w.WriteString("# ")
		w.WriteString(line)
		w.WriteString("\n")
	}
	w.WriteString(bannerRule)
	w.WriteString("\n")
}
