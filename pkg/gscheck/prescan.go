package gscheck

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// Section is one element of the Phase A header index: a contiguous page
// range in the Grundschutz-Check PDF belonging to a single Zielobjekt.
type Section struct {
	Kuerzel   string
	StartPage int
	EndPage   int
}

// PreScan deterministically locates every page whose first line reads
// "<kürzel> <name>" for a (kürzel, name) pair known to structure, and
// produces an ordered, gap-free section list running from the first header
// page to the last page of the document. Pages before the first header page
// belong to no section.
func PreScan(pdfBytes []byte, structure *models.SystemStructureMap) ([]Section, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("gscheck: opening grundschutz-check pdf: %w", err)
	}

	headerByName := make(map[string]string, len(structure.Zielobjekte)) // normalized header -> kuerzel
	for _, z := range structure.Zielobjekte {
		if z.Kuerzel == "" || z.Name == "" {
			continue
		}
		headerByName[normalizeHeader(z.Kuerzel, z.Name)] = z.Kuerzel
	}

	numPages := reader.NumPage()
	type boundary struct {
		kuerzel string
		page    int
	}
	var boundaries []boundary

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if kuerzel, ok := matchHeader(text, headerByName); ok {
			boundaries = append(boundaries, boundary{kuerzel: kuerzel, page: pageNum})
		}
	}

	if len(boundaries) == 0 {
		return nil, ErrNoHeadersFound
	}

	sections := make([]Section, 0, len(boundaries))
	for i, b := range boundaries {
		end := numPages
		if i+1 < len(boundaries) {
			end = boundaries[i+1].page - 1
		}
		sections = append(sections, Section{Kuerzel: b.kuerzel, StartPage: b.page, EndPage: end})
	}
	return sections, nil
}

// matchHeader checks the first non-empty line of text against every known
// "<kürzel> <name>" header, exact match.
func matchHeader(text string, headerByName map[string]string) (string, bool) {
	firstLine := firstNonEmptyLine(text)
	if firstLine == "" {
		return "", false
	}
	kuerzel, ok := headerByName[normalize(firstLine)]
	return kuerzel, ok
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

func normalizeHeader(kuerzel, name string) string {
	return normalize(kuerzel + " " + name)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
