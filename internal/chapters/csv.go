package chapters

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// BuildCSV renders the chapter import sheet: a header row followed by
// one row per chapter
func BuildCSV(list []domain.Chapter) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Time (s)", "Image name", "Description"}); err != nil {
		return nil, err
	}
	for _, c := range list {
		if err := w.Write([]string{strconv.Itoa(c.TimeSeconds), c.ImageName, c.Title}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
