package emit

import (
	"bytes"
	"fmt"
	"text/template"
)

var fileTemplate = template.Must(template.New("file").Parse(`// Code generated by codegen-pipeline. DO NOT EDIT.
// builder: {{.Builder}}
{{- range .Annotations}}
// {{.}}
{{- end}}
{{range .Fragments}}
fragment {{.}}
{{- end}}
`))

var indexTemplate = template.Must(template.New("index").Parse(`# generated files
{{- range .}}
{{.}}
{{- end}}
`))

type fileData struct {
	Builder     string
	Annotations []string
	Fragments   []string
}

func renderFile(builder string, a *Artifact) ([]byte, error) {
	var buf bytes.Buffer

	err := fileTemplate.Execute(&buf, fileData{
		Builder:     builder,
		Annotations: a.Annotations,
		Fragments:   a.Fragments,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", builder, err)
	}

	return buf.Bytes(), nil
}

func renderIndex(files []string) ([]byte, error) {
	var buf bytes.Buffer

	if err := indexTemplate.Execute(&buf, files); err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}

	return buf.Bytes(), nil
}
