package render

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CSVRenderer writes each chart as a long-form CSV file
// (series,timestamp,value) under Dir.
type CSVRenderer struct {
	Dir string
}

func NewCSVRenderer(dir string) *CSVRenderer {
	return &CSVRenderer{Dir: dir}
}

// Path returns the file a chart is written to.
func (r *CSVRenderer) Path(name string) string {
	return filepath.Join(r.Dir, name+".csv")
}

func (r *CSVRenderer) Render(name string, series ...Series) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create render dir: %w", err)
	}
	f, err := os.Create(r.Path(name))
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"series", "timestamp", "value"}); err != nil {
		return err
	}
	for _, s := range series {
		for _, p := range s.Points {
			row := []string{
				s.Name,
				strconv.FormatInt(p.Timestamp, 10),
				strconv.FormatFloat(p.Value, 'f', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write chart row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush chart: %w", err)
	}
	return f.Close()
}
