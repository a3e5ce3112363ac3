package fetch

import (
	"bytes"
	"text/template"

	"blockmerge/pkg/blocklist"
)

var docTemplate = template.Must(template.New("doc").Parse(`# {{.Source.Name}} Blocklists
{{with .Source.Homepage}}
- Source: {{.}}{{end}}{{with .Source.License}}
- License: {{.}}{{end}}{{with .Source.Note}}
- Note: {{.}}{{end}}
- Lists: {{.Total}}
{{range .Categories}}
## {{.Name}}
{{range .Records}}
### {{if .Name}}{{.Name}}{{else}}{{.URL}}{{end}}
- URL: {{.URL}}{{if .Entries}}
- Entries: {{.Entries}}{{end}}
{{end}}{{end}}`))

type docCategory struct {
	Name    string
	Records []blocklist.Record
}

type docData struct {
	Source     blocklist.SourceDefinition
	Total      int
	Categories []docCategory
}

// RenderDoc renders the markdown overview of an intermediate. Categories
// appear in first-seen order.
func RenderDoc(in *blocklist.Intermediate) ([]byte, error) {
	def, ok := blocklist.LookupSource(in.Source)
	if !ok {
		def = blocklist.SourceDefinition{ID: in.Source, Name: in.Source}
	}
	data := docData{Source: def, Total: len(in.Records)}
	index := make(map[string]int)
	for _, record := range in.Records {
		i, ok := index[record.Category]
		if !ok {
			i = len(data.Categories)
			index[record.Category] = i
			data.Categories = append(data.Categories, docCategory{Name: record.Category})
		}
		data.Categories[i].Records = append(data.Categories[i].Records, record)
	}

	var buf bytes.Buffer
	if err := docTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
