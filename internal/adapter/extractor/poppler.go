package extractor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// ErrPopplerNotFound is returned when the poppler tools are not in PATH.
var ErrPopplerNotFound = errors.New("poppler tools (pdftotext, pdftohtml) not found in PATH")

var pdfHeader = []byte("%PDF-")

// PopplerExtractor extracts per-page text and images from a PDF by
// shelling out to poppler's pdftotext and pdftohtml. pdftotext separates
// pages with form feeds; pdftohtml -xml reports each image with its
// page position. All intermediate files live in a temporary workspace
// removed before Extract returns.
type PopplerExtractor struct {
	runner port.CommandRunner
}

func New() *PopplerExtractor {
	return &PopplerExtractor{runner: ExecRunner{}}
}

func NewWithRunner(runner port.CommandRunner) *PopplerExtractor {
	return &PopplerExtractor{runner: runner}
}

// CheckAvailable verifies the poppler tools are installed.
func CheckAvailable() error {
	for _, tool := range []string{"pdftotext", "pdftohtml"} {
		if _, err := exec.LookPath(tool); err != nil {
			return ErrPopplerNotFound
		}
	}
	return nil
}

// InstallInstructions returns platform hints for installing poppler.
func InstallInstructions() string {
	return "pdftotext and pdftohtml are part of poppler:\n" +
		"  macOS:  brew install poppler\n" +
		"  Debian: apt install poppler-utils"
}

func (e *PopplerExtractor) Extract(ctx context.Context, docID string, data []byte) ([]domain.Page, error) {
	if !bytes.HasPrefix(data, pdfHeader) {
		return nil, &domain.ExtractionError{Err: errors.New("input is not a PDF")}
	}

	workdir, err := os.MkdirTemp("", "docrag-extract-")
	if err != nil {
		return nil, &domain.ExtractionError{Err: fmt.Errorf("create workspace: %w", err)}
	}
	defer os.RemoveAll(workdir)

	pdfPath := filepath.Join(workdir, "source.pdf")
	if err := os.WriteFile(pdfPath, data, 0600); err != nil {
		return nil, &domain.ExtractionError{Err: fmt.Errorf("write workspace copy: %w", err)}
	}

	texts, err := e.extractText(ctx, pdfPath)
	if err != nil {
		return nil, &domain.ExtractionError{Err: err}
	}

	images, heights, maxImagePage, err := e.extractImages(ctx, docID, pdfPath, workdir)
	if err != nil {
		return nil, &domain.ExtractionError{Err: err}
	}

	pageCount := len(texts)
	if maxImagePage > pageCount {
		pageCount = maxImagePage
	}
	if pageCount == 0 {
		return nil, &domain.ExtractionError{Err: errors.New("document has zero pages")}
	}

	pages := make([]domain.Page, pageCount)
	for i := range pages {
		pages[i].Number = i + 1
		if i < len(texts) {
			pages[i].Text = cleanText(texts[i])
		}
		pages[i].Height = heights[i+1]
		pages[i].Images = images[i+1]
	}

	return pages, nil
}

// extractText returns raw page texts in order. pdftotext writes a form
// feed after every page.
func (e *PopplerExtractor) extractText(ctx context.Context, pdfPath string) ([]string, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	texts := strings.Split(string(out), "\f")
	// Trailing form feed leaves an empty final element.
	if n := len(texts); n > 0 && strings.TrimSpace(texts[n-1]) == "" {
		texts = texts[:n-1]
	}
	return texts, nil
}

type xmlPDF struct {
	Pages []xmlPage `xml:"page"`
}

type xmlPage struct {
	Number int        `xml:"number,attr"`
	Height float64    `xml:"height,attr"`
	Images []xmlImage `xml:"image"`
}

type xmlImage struct {
	Top    float64 `xml:"top,attr"`
	Left   float64 `xml:"left,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
	Src    string  `xml:"src,attr"`
}

// extractImages returns page-keyed image assets, page heights and the
// highest page number that carries an image.
func (e *PopplerExtractor) extractImages(ctx context.Context, docID, pdfPath, workdir string) (map[int][]domain.ImageAsset, map[int]float64, int, error) {
	base := filepath.Join(workdir, "pages")
	if _, err := e.runner.Run(ctx, "pdftohtml", "-xml", "-hidden", "-q", pdfPath, base); err != nil {
		return nil, nil, 0, fmt.Errorf("pdftohtml: %w", err)
	}

	xmlData, err := os.ReadFile(base + ".xml")
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read pdftohtml output: %w", err)
	}

	var parsed xmlPDF
	if err := xml.Unmarshal(xmlData, &parsed); err != nil {
		return nil, nil, 0, fmt.Errorf("parse pdftohtml output: %w", err)
	}

	assets := make(map[int][]domain.ImageAsset)
	heights := make(map[int]float64)
	maxPage := 0

	for _, page := range parsed.Pages {
		heights[page.Number] = page.Height
		if page.Number > maxPage && len(page.Images) > 0 {
			maxPage = page.Number
		}
		for i, img := range page.Images {
			src := img.Src
			if !filepath.IsAbs(src) {
				src = filepath.Join(workdir, src)
			}
			content, err := os.ReadFile(src)
			if err != nil {
				return nil, nil, 0, fmt.Errorf("read extracted image %s: %w", img.Src, err)
			}
			assets[page.Number] = append(assets[page.Number], domain.ImageAsset{
				ID:    imageID(docID, page.Number, i),
				DocID: docID,
				Page:  page.Number,
				Region: domain.Region{
					Left:   img.Left,
					Top:    img.Top,
					Width:  img.Width,
					Height: img.Height,
				},
				Data: content,
			})
		}
	}

	return assets, heights, maxPage, nil
}

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
	blankRuns    = regexp.MustCompile(`[ \t]+`)
	newlineRuns  = regexp.MustCompile(`\n{3,}`)
)

// cleanText normalises extracted page text. Chunk offsets refer to the
// cleaned form, so this must stay deterministic.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = controlChars.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// imageID derives a stable asset ID so re-ingesting the same bytes
// reproduces identical IDs.
func imageID(docID string, page, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:p%d:i%d", docID, page, index)))
	return hex.EncodeToString(hash[:8])
}
