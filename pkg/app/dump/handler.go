package dump

import (
	"fmt"
	"time"

	"github.com/deploymenttheory/go-macfiles/internal/types"
	"github.com/deploymenttheory/go-macfiles/pkg/app"
	"github.com/deploymenttheory/go-macfiles/pkg/services"
)

// Handle processes a dump request
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	svc, err := ctx.Services.StoreService()
	if err != nil {
		return nil, app.Classify("store service unavailable", err)
	}

	ctx.Log(fmt.Sprintf("Reading store: %s", req.Target.String()))
	ctx.Progress("Opening store...", 10)

	info, err := svc.OpenStore(ctx.Context, req.Target.Path, false)
	if err != nil {
		return nil, app.Classify("failed to open store", err)
	}

	response := &Response{Store: info, Records: []services.RecordInfo{}}
	if !req.Summary {
		ctx.Progress("Walking records...", 40)
		records, err := svc.ListRecords(ctx.Context, req.Target.Path, req.Target.Filename)
		if err != nil {
			return nil, app.Classify("failed to read records", err)
		}
		response.Records = filterProperty(records, types.FourCC(req.Property))
	}
	response.Total = len(response.Records)
	response.ReadTime = time.Since(startTime)

	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Dump completed: %d records in %v", response.Total, response.ReadTime))
	return response, nil
}

func filterProperty(records []services.RecordInfo, property types.FourCC) []services.RecordInfo {
	if property == "" {
		return records
	}
	filtered := []services.RecordInfo{}
	for _, rec := range records {
		if rec.Property == property {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
