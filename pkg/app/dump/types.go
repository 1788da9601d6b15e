package dump

import (
	"time"

	"github.com/deploymenttheory/go-macfiles/pkg/app"
	"github.com/deploymenttheory/go-macfiles/pkg/services"
)

// Request represents a store dump request
type Request struct {
	Target app.StoreTarget

	// Property restricts the dump to one property code when set
	Property string
	// Summary prints only the store layout, not the records
	Summary bool
}

// Response represents the contents of a store
type Response struct {
	Store    services.StoreInfo    `json:"store" yaml:"store"`
	Records  []services.RecordInfo `json:"records" yaml:"records"`
	Total    int                   `json:"total" yaml:"total"`
	ReadTime time.Duration         `json:"read_time" yaml:"read_time"`
}
