package dump

import (
	"github.com/deploymenttheory/go-macfiles/pkg/app"
)

// Validate validates a dump request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if r.Property != "" {
		if _, err := app.ParseProperty(r.Property); err != nil {
			return err
		}
	}
	return nil
}
