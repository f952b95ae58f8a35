package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// SofficeEngine is the standard engine, backed by a local LibreOffice
// binary invoked in headless mode
type SofficeEngine struct {
	binary string
}

// NewSofficeEngine creates the standard engine. binary may be a bare name
// resolved via PATH.
func NewSofficeEngine(binary string) *SofficeEngine {
	return &SofficeEngine{binary: binary}
}

// Kind returns the engine identifier
func (e *SofficeEngine) Kind() convert.EngineKind {
	return convert.EngineStandard
}

// Probe reports whether the LibreOffice binary is present
func (e *SofficeEngine) Probe(ctx context.Context) bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Convert converts inputPath to DOCX at outputPath.
// LibreOffice names its output after the input file, so the produced file
// is renamed when the requested name differs.
func (e *SofficeEngine) Convert(ctx context.Context, inputPath, outputPath string) error {
	outDir := filepath.Dir(outputPath)

	cmd := exec.CommandContext(ctx, e.binary,
		"--headless",
		"--convert-to", "docx",
		"--outdir", outDir,
		inputPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("soffice conversion failed: %w: %s", err, bytes.TrimSpace(out))
	}

	base := filepath.Base(inputPath)
	produced := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".docx")
	if produced != outputPath {
		if err := os.Rename(produced, outputPath); err != nil {
			return fmt.Errorf("failed to move soffice output: %w", err)
		}
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("soffice produced no output: %w", err)
	}

	return nil
}
