package subtitle

import (
	"fmt"
	"strings"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// RenderSRT produces SubRip text from the transcript segments. Entry
// numbering starts at 1 and timestamps use the HH:MM:SS,mmm form.
func RenderSRT(segments []domain.TranscriptSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(fmt.Sprintf("%d\n", i+1))
		b.WriteString(fmt.Sprintf("%s --> %s\n", formatTimestamp(seg.Start), formatTimestamp(seg.End)))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	millis := int((seconds - float64(total)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
