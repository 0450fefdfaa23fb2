package plugins

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/yaml.v2"

	"sitesmith/core"
)

// DecodeOptions converts a generic option map (as read from the site
// configuration) into a typed options struct
func DecodeOptions(raw map[string]interface{}, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}
	if err := yaml.UnmarshalStrict(data, out); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}
	return nil
}

func ApplyTemplate(tmpl *template.Template, vars map[string]interface{}) ([]byte, error) {
	var output bytes.Buffer
	if err := tmpl.Execute(&output, vars); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

func BuildTemplateVars(smith *core.Smith, filePath string, file *core.File) map[string]interface{} {
	site := map[string]interface{}{}
	if smith != nil && smith.Metadata != nil {
		site = smith.Metadata
	}

	vars := map[string]interface{}{
		"Site":     site,
		"Page":     file.Metadata,
		"Path":     filePath,
		"Title":    file.GetString("title"),
		"Contents": template.HTML(file.Contents),
	}

	// Date of last update is either specified in the metadata or taken from the file system
	if date, ok := file.Get("date-of-last-update"); ok {
		vars["DateOfLastUpdate"] = date
	} else if !file.ModTime.IsZero() {
		vars["DateOfLastUpdate"] = file.ModTime
	}

	return vars
}
