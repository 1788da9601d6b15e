package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-macfiles/pkg/app"
)

// writeStructured writes v as JSON or YAML
func writeStructured(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(v)
	}
	return fmt.Errorf("unsupported output format: %s", format)
}

func errorCode(err error) string {
	var ce *app.CommonError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
