package ocr

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner lets tests stub the tesseract binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	log logrus.FieldLogger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	fields := logrus.Fields{
		"cmd":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		r.log.WithFields(fields).WithError(err).WithField("stderr", truncate(errb.String(), 8<<10)).Error("exec failed")
	} else {
		r.log.WithFields(fields).WithField("stdout_bytes", out.Len()).Debug("exec ok")
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// TesseractOCR runs the tesseract command line tool and reads its TSV output,
// which carries per-word confidences.
type TesseractOCR struct {
	language string
	binary   string
	runner   Runner
}

// NewTesseractOCR creates a new Tesseract OCR instance. A nil runner execs the binary.
func NewTesseractOCR(language string, runner Runner, log logrus.FieldLogger) *TesseractOCR {
	if language == "" {
		language = "eng" // Default to English
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if runner == nil {
		runner = execRunner{log: log}
	}
	return &TesseractOCR{
		language: language,
		binary:   "tesseract",
		runner:   runner,
	}
}

// Name implements Engine.
func (t *TesseractOCR) Name() string { return "tesseract" }

// Recognize performs OCR on a preprocessed image file.
func (t *TesseractOCR) Recognize(ctx context.Context, imagePath string) (*Result, error) {
	stdout, stderr, err := t.runner.Run(ctx, t.binary, imagePath, "stdout", "-l", t.language, "--psm", "6", "tsv")
	if err != nil {
		return nil, fmt.Errorf("tesseract failed: %w (%s)", err, strings.TrimSpace(truncate(string(stderr), 512)))
	}
	return ParseTSV(stdout)
}

// Version reports the installed tesseract version for health checks.
func (t *TesseractOCR) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := t.runner.Run(ctx, t.binary, "--version")
	if err != nil {
		return "", err
	}
	// older builds print the banner on stderr
	out := string(stdout)
	if strings.TrimSpace(out) == "" {
		out = string(stderr)
	}
	line, _, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(line), nil
}

// tsv columns
const (
	colLevel = iota
	colPage
	colBlock
	colPar
	colLine
	colWord
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	tsvColumns
)

const wordLevel = "5"

// ParseTSV rebuilds line-broken text and word confidences from tesseract TSV.
func ParseTSV(data []byte) (*Result, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	res := &Result{}
	var b strings.Builder
	lastLine := ""
	header := true
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse tesseract output: %w", err)
		}
		if header {
			header = false
			if len(rec) > 0 && rec[0] == "level" {
				continue
			}
		}
		if len(rec) < tsvColumns || rec[colLevel] != wordLevel {
			continue
		}
		conf, err := strconv.ParseFloat(rec[colConf], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(rec[colText])
		if text == "" {
			continue
		}

		lineKey := rec[colPage] + "/" + rec[colBlock] + "/" + rec[colPar] + "/" + rec[colLine]
		switch {
		case b.Len() == 0:
		case lineKey != lastLine:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
		lastLine = lineKey
		b.WriteString(text)

		res.Words = append(res.Words, WordInfo{
			Text:       text,
			Confidence: conf,
			Box: BoundingBox{
				X:      atoiOrZero(rec[colLeft]),
				Y:      atoiOrZero(rec[colTop]),
				Width:  atoiOrZero(rec[colWidth]),
				Height: atoiOrZero(rec[colHeight]),
			},
		})
	}
	res.Text = b.String()
	res.Confidence = meanConfidence(res.Words)
	return res, nil
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
