package sources

import "log"

// CompareRow is one record of the habdde comparison report, reduced to the
// match status keyed by generic address.
type CompareRow struct {
	Status  string
	Address string
	Key     string
}

// ImportCompare reads the habdde comparison CSV.
func ImportCompare(path string, logger *log.Logger) ([]CompareRow, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	rows := make([]CompareRow, 0, t.len())
	for i := 0; i < t.len(); i++ {
		rows = append(rows, CompareRow{
			Status:  t.get(i, "matched_status"),
			Address: t.get(i, "GenericPointAddress"),
			Key:     t.get(i, "Key"),
		})
	}
	return rows, nil
}
