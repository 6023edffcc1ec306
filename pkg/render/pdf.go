package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/redcube-studio/postforge/pkg/artifact"
)

// PDFRenderer renders the design artifact as a reviewable PDF: one page
// per image block, styled with the design's palette. It does not rasterize
// the encoded HTML; it is a proofing format, not the published asset.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render converts a design artifact into PDF bytes.
func (r *PDFRenderer) Render(a *artifact.Artifact) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("render: nil artifact")
	}
	images, _ := a.Payload["images"].([]any)
	if len(images) == 0 {
		return nil, fmt.Errorf("render: artifact %s has no image blocks", a.Stage)
	}

	accent, bg, ink := paletteColors(a.Payload)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	// Cover sheet: post title and caption.
	pdf.AddPage()
	pdf.SetFillColor(bg.r, bg.g, bg.b)
	pdf.Rect(0, 0, 210, 297, "F")
	pdf.SetTextColor(accent.r, accent.g, accent.b)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetY(60)
	pdf.MultiCell(0, 12, firstTitle(a.Payload, a.Topic), "", "C", false)
	if caption, _ := a.Payload["caption"].(string); caption != "" {
		pdf.Ln(8)
		pdf.SetTextColor(ink.r, ink.g, ink.b)
		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(0, 7, caption, "", "C", false)
	}

	for _, item := range images {
		img, ok := item.(map[string]any)
		if !ok {
			continue
		}
		pdf.AddPage()
		pdf.SetFillColor(bg.r, bg.g, bg.b)
		pdf.Rect(0, 0, 210, 297, "F")

		num := 0
		if n, ok := img["image_number"].(float64); ok {
			num = int(n)
		}
		pdf.SetTextColor(ink.r, ink.g, ink.b)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetY(15)
		layout, _ := img["layout"].(string)
		pdf.MultiCell(0, 5, fmt.Sprintf("page %d / %s", num, layout), "", "L", false)

		pdf.SetTextColor(accent.r, accent.g, accent.b)
		pdf.SetFont("Helvetica", "B", 18)
		pdf.SetY(40)
		title, _ := img["title"].(string)
		pdf.MultiCell(0, 10, title, "", "L", false)

		pdf.Ln(6)
		pdf.SetTextColor(ink.r, ink.g, ink.b)
		pdf.SetFont("Helvetica", "", 12)
		content, _ := img["main_content"].(string)
		pdf.MultiCell(0, 7, content, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

type rgb struct{ r, g, b int }

// paletteColors reads the design's three-color palette, falling back to
// a neutral scheme for payloads without one.
func paletteColors(payload map[string]any) (accent, bg, ink rgb) {
	accent = rgb{51, 51, 51}
	bg = rgb{255, 255, 255}
	ink = rgb{33, 33, 33}

	principles, _ := payload["design_principles"].(map[string]any)
	palette, _ := principles["palette"].([]any)
	colors := []*rgb{&accent, &bg, &ink}
	for i, c := range palette {
		if i >= len(colors) {
			break
		}
		if hex, ok := c.(string); ok {
			if parsed, ok := parseHexColor(hex); ok {
				*colors[i] = parsed
			}
		}
	}
	return accent, bg, ink
}

// parseHexColor parses #RGB and #RRGGBB strings.
func parseHexColor(s string) (rgb, bool) {
	if len(s) == 0 || s[0] != '#' {
		return rgb{}, false
	}
	s = s[1:]
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return rgb{}, false
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{int(n >> 16 & 0xFF), int(n >> 8 & 0xFF), int(n & 0xFF)}, true
}

func firstTitle(payload map[string]any, fallback string) string {
	if titles, ok := payload["titles"].([]any); ok && len(titles) > 0 {
		if s, ok := titles[0].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
