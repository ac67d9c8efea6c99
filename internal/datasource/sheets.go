package datasource

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultTabs maps entities onto the worksheet names of the EDP spreadsheet.
var DefaultTabs = map[Entity]string{
	EntityEDP:     "edp",
	EntityProject: "proyectos",
	EntityCost:    "costos",
	EntityLog:     "log",
}

// SheetsConfig locates the spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	Tabs            map[Entity]string
}

// SheetsSource reads one worksheet per entity through the Sheets API v4.
type SheetsSource struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	tabs          map[Entity]string
}

// NewSheetsSource authenticates with the service-account credentials file.
// Extra client options are appended, which tests use to point at a fake server.
func NewSheetsSource(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*SheetsSource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("datasource: sheets: spreadsheet id required")
	}
	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)
	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("datasource: sheets: new service: %w", err)
	}
	tabs := cfg.Tabs
	if len(tabs) == 0 {
		tabs = DefaultTabs
	}
	return &SheetsSource{values: svc.Spreadsheets.Values, spreadsheetID: cfg.SpreadsheetID, tabs: tabs}, nil
}

// FetchRecords implements Source. Cells come back unformatted so amounts are
// numbers and dates are serial day numbers.
func (s *SheetsSource) FetchRecords(ctx context.Context, entity Entity) ([]map[string]any, error) {
	tab, ok := s.tabs[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	resp, err := s.values.Get(s.spreadsheetID, tab).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, unavailable("sheets get", entity, err)
	}
	return rowsFromGrid(resp.Values), nil
}
