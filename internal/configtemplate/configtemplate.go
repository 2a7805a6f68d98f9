// Package configtemplate renders the packet inspector's and log shipper's
// own configuration files from fixed text/template sources. Their content
// (Suricata's rule language, Vector's pipeline DSL) is out of scope; this
// package only owns the mechanical substitution and a syntax check that the
// rendered output is well-formed YAML.
package configtemplate

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
)

// SuricataData holds the substitution values for the packet inspector's
// configuration.
type SuricataData struct {
	NetworkInterface string
	LogFilePath      string
}

// VectorData holds the substitution values for the log shipper's
// configuration.
type VectorData struct {
	LogFilePath        string
	OpenSearchEndpoint string
	IndexPrefix        string
	Region             string
	SideBufferEndpoint string
	BatchBufferBytes   int
}

var suricataTemplate = template.Must(template.New("suricata").Parse(`
af-packet:
  - interface: {{.NetworkInterface}}
outputs:
  - eve-log:
      enabled: yes
      filename: {{.LogFilePath}}
`))

var vectorTemplate = template.Must(template.New("vector").Parse(`
sources:
  suricata_eve:
    type: file
    include: ["{{.LogFilePath}}"]
sinks:
  opensearch:
    type: elasticsearch
    endpoint: {{.OpenSearchEndpoint}}
    bulk:
      index: "{{.IndexPrefix}}-%Y.%m.%d"
    aws:
      region: {{.Region}}
  side_buffer:
    type: redis
    endpoint: {{.SideBufferEndpoint}}
    batch:
      max_bytes: {{.BatchBufferBytes}}
`))

// RenderSuricata renders and syntax-checks the packet inspector config,
// writing it to path.
func RenderSuricata(path string, data SuricataData) error {
	return renderAndWrite(path, suricataTemplate, data)
}

// RenderVector renders and syntax-checks the log shipper config, writing it
// to path.
func RenderVector(path string, data VectorData) error {
	return renderAndWrite(path, vectorTemplate, data)
}

func renderAndWrite(path string, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("%w: render %s: %v", apperrors.ErrConfigInvalid, path, err)
	}

	var probe any
	if err := yaml.Unmarshal(buf.Bytes(), &probe); err != nil {
		return fmt.Errorf("%w: rendered %s is not valid YAML: %v", apperrors.ErrConfigInvalid, path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", apperrors.ErrConfigInvalid, path, err)
	}
	return nil
}
