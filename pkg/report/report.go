package report

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// WriteCsv marshals a slice of csv-tagged structs into fileName.
func WriteCsv(in interface{}, fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", fileName, err)
	}
	if err := gocsv.Marshal(in, file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	return file.Close()
}
