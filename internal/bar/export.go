package bar

import (
	"strings"

	"github.com/jszwec/csvutil"
)

// exportRow flattens a Record for CSV export; the menu pipeline and
// spreadsheet consumers want one line per bar.
type exportRow struct {
	ID            string `csv:"id"`
	Name          string `csv:"name"`
	City          string `csv:"city"`
	Description   string `csv:"description"`
	Website       string `csv:"website"`
	MenuURL       string `csv:"menu_url"`
	DiscoveredAt  string `csv:"discovered_at"`
	SourceQueries string `csv:"source_queries"`
}

// ExportCSV renders records as CSV with a header row. Source queries join
// with "; " since they may themselves contain commas.
func ExportCSV(records []*Record) ([]byte, error) {
	rows := make([]exportRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, exportRow{
			ID:            rec.ID,
			Name:          rec.Name,
			City:          rec.City,
			Description:   rec.Description,
			Website:       rec.Website,
			MenuURL:       rec.MenuURL,
			DiscoveredAt:  rec.DiscoveredAt.Format("2006-01-02T15:04:05Z07:00"),
			SourceQueries: strings.Join(rec.SourceQueries, "; "),
		})
	}

	return csvutil.Marshal(rows)
}
