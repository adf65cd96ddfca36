package export

import (
	"context"
	"time"

	"prismgw/prism/pkg/calllog"
)

// Filters narrows which call logs an export includes.
type Filters struct {
	StartTime   *time.Time
	EndTime     *time.Time
	Models      []string
	Providers   []string
	SuccessOnly bool
}

// maxExportRecords bounds one export query.
const maxExportRecords = 1_000_000

// queries converts the filters into storage queries. Storage queries
// filter on single values, so list filters fan out into one query per
// model/provider combination.
func (f *Filters) queries() []*calllog.Query {
	base := calllog.Query{
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		SortOrder: "ASC",
		Limit:     maxExportRecords,
	}
	if f.SuccessOnly {
		success := true
		base.Success = &success
	}

	models := f.Models
	if len(models) == 0 {
		models = []string{""}
	}
	providers := f.Providers
	if len(providers) == 0 {
		providers = []string{""}
	}

	var queries []*calllog.Query
	for _, model := range models {
		for _, provider := range providers {
			q := base
			q.Model = model
			q.Provider = provider
			queries = append(queries, &q)
		}
	}
	return queries
}

// Fetch loads all logs matching the filters, oldest first.
func Fetch(ctx context.Context, storage calllog.Storage, f *Filters) ([]*calllog.CallLog, error) {
	if f == nil {
		f = &Filters{}
	}

	var all []*calllog.CallLog
	for _, q := range f.queries() {
		logs, err := storage.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, logs...)
	}
	return all, nil
}
