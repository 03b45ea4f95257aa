package docxport

import (
	"fmt"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

// WriteTranscript renders the transcript as a styled docx: a title,
// a metadata line, then one paragraph per segment with its start time.
func WriteTranscript(title string, transcript *domain.Transcript, outputPath string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)

	meta := fmt.Sprintf("Language: %s | Duration: %s", transcript.Language, formatClock(transcript.Duration))
	addStyledRun(doc.AddParagraph(""), meta, false, fontSize)
	doc.AddParagraph("")

	for _, seg := range transcript.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		p := doc.AddParagraph("")
		p.AddText("["+formatClock(seg.Start)+"] ").Font(fontName).Size(fontSize).Color("808080")
		p.AddText(text).Font(fontName).Size(fontSize).Color("000000")
	}

	return doc.SaveTo(outputPath)
}

// WriteChapterSheet renders the chapter list as a docx companion to the
// CSV import file
func WriteChapterSheet(title string, list []domain.Chapter, outputPath string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)
	doc.AddParagraph("")

	for _, c := range list {
		p := doc.AddParagraph("")
		p.AddText("["+formatClock(float64(c.TimeSeconds))+"] ").Font(fontName).Size(fontSize).Color("808080")
		run := p.AddText(c.Title).Font(fontName).Size(fontSize).Color("000000")
		if c.IsQA() {
			run.Bold(true)
		}
	}

	return doc.SaveTo(outputPath)
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
