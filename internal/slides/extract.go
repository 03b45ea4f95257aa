package slides

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// Extract renders the deck into ordered slide images named 01.jpg,
// 02.jpg and so on under workDir. PowerPoint decks are converted to PDF
// through LibreOffice first; PDFs go straight to pdftoppm.
func (s *implExtractor) Extract(ctx context.Context, deckPath, workDir string) ([]string, error) {
	pdfPath := deckPath

	ext := strings.ToLower(filepath.Ext(deckPath))
	switch ext {
	case ".pdf":
	case ".ppt", ".pptx":
		converted, err := s.convertToPDF(ctx, deckPath, workDir)
		if err != nil {
			return nil, err
		}
		pdfPath = converted
	default:
		return nil, fmt.Errorf("unsupported deck format %q", ext)
	}

	slideDir := filepath.Join(workDir, "slides")
	if err := os.MkdirAll(slideDir, 0755); err != nil {
		return nil, fmt.Errorf("create slide dir: %w", err)
	}

	if _, err := s.executor.Execute(ctx, "pdftoppm",
		"-jpeg", "-r", "150",
		pdfPath, filepath.Join(slideDir, "page"),
	); err != nil {
		return nil, fmt.Errorf("render slides: %w", err)
	}

	rendered, err := filepath.Glob(filepath.Join(slideDir, "page-*.jpg"))
	if err != nil {
		return nil, err
	}
	if len(rendered) == 0 {
		return nil, fmt.Errorf("no slides rendered from %s", deckPath)
	}
	sort.Strings(rendered)

	// pdftoppm page numbering depends on page count, so rename to a
	// fixed two-digit scheme that matches the chapter image names
	paths := make([]string, 0, len(rendered))
	for i, src := range rendered {
		dest := filepath.Join(slideDir, fmt.Sprintf("%02d.jpg", i+1))
		if err := os.Rename(src, dest); err != nil {
			return nil, fmt.Errorf("rename slide %d: %w", i+1, err)
		}
		paths = append(paths, dest)
	}

	s.logger.Info(ctx, "Extracted %d slides from %s", len(paths), filepath.Base(deckPath))
	return paths, nil
}

// convertToPDF runs LibreOffice inside the job work dir so its profile
// and lock files land there instead of the process working directory
func (s *implExtractor) convertToPDF(ctx context.Context, deckPath, workDir string) (string, error) {
	if _, err := s.executor.ExecuteInDir(ctx, workDir, "soffice",
		"--headless",
		"--convert-to", "pdf",
		"--outdir", workDir,
		deckPath,
	); err != nil {
		return "", fmt.Errorf("convert deck to pdf: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(deckPath), filepath.Ext(deckPath))
	pdfPath := filepath.Join(workDir, base+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("no PDF generated from %s", deckPath)
	}
	return pdfPath, nil
}

// Publish uploads the slide images under the job's output prefix
func (s *implExtractor) Publish(ctx context.Context, jobID string, imagePaths []string) (*domain.SlideSet, error) {
	set := &domain.SlideSet{SlideCount: len(imagePaths)}

	for _, path := range imagePaths {
		key := fmt.Sprintf("outputs/%s/slides/%s", jobID, filepath.Base(path))
		if err := s.store.Upload(ctx, path, key, "image/jpeg"); err != nil {
			return nil, fmt.Errorf("upload slide %s: %w", filepath.Base(path), err)
		}
		set.ImageKeys = append(set.ImageKeys, key)
	}

	return set, nil
}

// Package zips the slide images, adds the Q&A placeholder when any
// chapter referenced it, uploads the archive, and returns its key
func (s *implExtractor) Package(ctx context.Context, jobID, workDir string, imagePaths []string, includeQA bool) (string, error) {
	zipPath := filepath.Join(workDir, "slides.zip")
	if err := buildZip(zipPath, imagePaths, includeQA, s.qaImage(ctx)); err != nil {
		return "", fmt.Errorf("package slides: %w", err)
	}

	key := fmt.Sprintf("outputs/%s/slides.zip", jobID)
	if err := s.store.Upload(ctx, zipPath, key, "application/zip"); err != nil {
		return "", fmt.Errorf("upload slides zip: %w", err)
	}
	return key, nil
}

// qaImage returns the placeholder path, or "" when the asset is absent
func (s *implExtractor) qaImage(ctx context.Context) string {
	if _, err := os.Stat(qaImageSource); err != nil {
		s.logger.Warn(ctx, "Q&A placeholder %s not found, packaging without it", qaImageSource)
		return ""
	}
	return qaImageSource
}

func buildZip(zipPath string, imagePaths []string, includeQA bool, qaPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, path := range imagePaths {
		if err := addZipEntry(w, path, filepath.Base(path)); err != nil {
			return err
		}
	}
	if includeQA && qaPath != "" {
		if err := addZipEntry(w, qaPath, "qa.jpg"); err != nil {
			return err
		}
	}
	return w.Close()
}

func addZipEntry(w *zip.Writer, srcPath, name string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	entry, err := w.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, src)
	return err
}
