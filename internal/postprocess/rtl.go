// Package postprocess applies layout normalization to generated DOCX
// documents containing Arabic text: glyph reshaping into presentation form
// and forced right alignment on every paragraph.
//
// The whole pass is cosmetic and best-effort. A run that cannot be reshaped
// is skipped; a document that cannot be rewritten is left as produced by
// the engine and remains valid output.
package postprocess

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/abdullahdiaa/garabic"
	"github.com/beevik/etree"
)

const documentEntry = "word/document.xml"

// Policy controls how much of the normalization runs
type Policy string

const (
	// PolicyReshape rewrites run text into presentation form and right-aligns
	PolicyReshape Policy = "reshape"

	// PolicyAlignOnly skips reshaping and only right-aligns paragraphs
	PolicyAlignOnly Policy = "align-only"
)

// Processor rewrites DOCX files in place
type Processor struct {
	policy Policy
}

// New creates a processor. Unrecognized policy names fall back to reshape.
func New(policy string) *Processor {
	p := Policy(policy)
	if p != PolicyReshape && p != PolicyAlignOnly {
		p = PolicyReshape
	}
	return &Processor{policy: p}
}

// Apply normalizes the DOCX at path in place. On success every paragraph
// carries a right-alignment directive; reshaping is applied per run
// according to the policy.
func (p *Processor) Apply(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}

	var document []byte
	for _, f := range zr.File {
		if f.Name == documentEntry {
			rc, err := f.Open()
			if err != nil {
				zr.Close()
				return fmt.Errorf("failed to open document entry: %w", err)
			}
			document, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				zr.Close()
				return fmt.Errorf("failed to read document entry: %w", err)
			}
			break
		}
	}
	if document == nil {
		zr.Close()
		return fmt.Errorf("no %s entry in document", documentEntry)
	}

	rewritten, err := p.rewriteDocument(document)
	if err != nil {
		zr.Close()
		return err
	}

	// Rebuild the archive next to the original, then swap
	tmpPath := path + ".rtl"
	out, err := os.Create(tmpPath)
	if err != nil {
		zr.Close()
		return fmt.Errorf("failed to create rewritten document: %w", err)
	}

	zw := zip.NewWriter(out)
	var rebuildErr error
	for _, f := range zr.File {
		w, err := zw.Create(f.Name)
		if err != nil {
			rebuildErr = err
			break
		}
		if f.Name == documentEntry {
			_, err = w.Write(rewritten)
		} else {
			var rc io.ReadCloser
			rc, err = f.Open()
			if err == nil {
				_, err = io.Copy(w, rc)
				rc.Close()
			}
		}
		if err != nil {
			rebuildErr = err
			break
		}
	}
	zr.Close()
	if cerr := zw.Close(); rebuildErr == nil {
		rebuildErr = cerr
	}
	if cerr := out.Close(); rebuildErr == nil {
		rebuildErr = cerr
	}
	if rebuildErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rewrite document: %w", rebuildErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace document: %w", err)
	}

	return nil
}

// rewriteDocument reshapes runs and right-aligns every paragraph in the
// document XML
func (p *Processor) rewriteDocument(document []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(document); err != nil {
		return nil, fmt.Errorf("failed to parse document xml: %w", err)
	}

	for _, para := range doc.FindElements("//w:p") {
		if p.policy == PolicyReshape {
			for _, t := range para.FindElements(".//w:t") {
				text := t.Text()
				if strings.TrimSpace(text) == "" {
					continue
				}
				shaped, ok := shapeRun(text)
				if !ok {
					continue
				}
				t.SetText(shaped)
			}
		}
		alignRight(para)
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document xml: %w", err)
	}
	return out, nil
}

// alignRight forces w:jc val="right" on the paragraph, creating the
// properties element as first child when absent
func alignRight(para *etree.Element) {
	pPr := para.SelectElement("w:pPr")
	if pPr == nil {
		pPr = etree.NewElement("w:pPr")
		para.InsertChildAt(0, pPr)
	}

	jc := pPr.SelectElement("w:jc")
	if jc == nil {
		jc = pPr.CreateElement("w:jc")
	}
	jc.CreateAttr("w:val", "right")
}

// shapeRun reshapes one run's text into presentation form. A failing run
// reports ok=false and is left untouched by the caller.
func shapeRun(text string) (shaped string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("reshape failed for run, keeping original text: %v", r)
			shaped, ok = "", false
		}
	}()
	return garabic.Shape(text), true
}
