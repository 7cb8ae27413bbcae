/*
Package pdf renders invoice documents through a staged pipeline.

PURPOSE:
  Turns a stored invoice into a hosted PDF in five stages:

    fetch -> format -> render -> upload -> verify

  The pipeline fails fast: the first stage error aborts the run and is
  returned with the stage name attached. Every stage records its start
  time and duration into a trace; the trace is returned to the caller
  only when DebugMode is set.

SIZE POLICY:
  - below 1,000 bytes: corrupt, always rejected
  - above 15MB: rejected, unless AllowLargeFiles (50MB ceiling) or
    SkipSizeValidation (logged warning, no rejection)
  - above 50MB: always rejected

STATE:
  Each Generate call is stateless and request-scoped. Partial uploads
  are not rolled back; instead any existing file is removed before
  re-upload so a failed run can never leave a stale document behind.
  Retries are caller-driven.

SEE ALSO:
  - layout.go: page layout, text wrapping, pagination
  - filestore.go: upload target abstraction
*/
package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atelier/billing-engine/billing"
)

const (
	minPDFBytes      = 1000
	standardMaxBytes = 15 << 20
	largeMaxBytes    = 50 << 20
)

// Request is one PDF export invocation.
type Request struct {
	InvoiceID          string
	ForceRegenerate    bool
	DebugMode          bool
	SkipSizeValidation bool
	AllowLargeFiles    bool
}

// Response carries the hosted document URL. DebugInfo is populated only
// when the request set DebugMode.
type Response struct {
	PDFURL    string        `json:"pdf_url"`
	DebugInfo []StageTiming `json:"debug_info,omitempty"`
}

// StageTiming is one entry of the pipeline trace.
type StageTiming struct {
	Stage     string    `json:"stage"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
}

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("pdf %s stage: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Generator runs the export pipeline. Safe for concurrent use; all
// per-request state lives on the stack.
type Generator struct {
	Store    billing.Store
	Files    FileStore
	Log      logrus.FieldLogger
	FontPath string // optional UTF-8 TTF for full CJK glyph coverage
}

// trace accumulates stage timings for one run.
type trace struct {
	stages []StageTiming
}

// run executes one stage, recording its timing and wrapping its error.
func (t *trace) run(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	entry := StageTiming{
		Stage:     stage,
		StartedAt: start,
		Duration:  time.Since(start).String(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	t.stages = append(t.stages, entry)
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

// Generate produces the invoice PDF and returns its hosted URL.
func (g *Generator) Generate(ctx context.Context, req Request) (*Response, error) {
	name := fileName(req.InvoiceID)
	log := g.Log.WithField("invoice", req.InvoiceID)

	// A previously generated document short-circuits the pipeline
	// unless the caller asks for a fresh one.
	if !req.ForceRegenerate {
		if exists, err := g.Files.Exists(ctx, name); err == nil && exists {
			log.Debug("serving existing document")
			return &Response{PDFURL: g.Files.URL(name)}, nil
		}
	}

	var (
		t        trace
		invoice  *billing.Invoice
		client   *billing.Client
		document invoiceDocument
		rendered []byte
		url      string
	)

	fail := func(err error) (*Response, error) {
		log.WithError(err).Warn("pdf generation failed")
		if req.DebugMode {
			return &Response{DebugInfo: t.stages}, err
		}
		return nil, err
	}

	if err := t.run("fetch", func() error {
		var err error
		invoice, err = g.Store.GetInvoice(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return fmt.Errorf("invoice %s not found", req.InvoiceID)
		}
		if invoice.ClientID != "" {
			if client, err = g.Store.GetClient(ctx, invoice.ClientID); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fail(err)
	}

	if err := t.run("format", func() error {
		document = formatInvoice(invoice, client)
		return nil
	}); err != nil {
		return fail(err)
	}

	if err := t.run("render", func() error {
		var err error
		rendered, err = renderDocument(document, g.FontPath)
		return err
	}); err != nil {
		return fail(err)
	}

	if err := t.run("upload", func() error {
		// Remove first so a failed upload can't leave a stale file.
		if err := g.Files.Remove(ctx, name); err != nil {
			return err
		}
		var err error
		url, err = g.Files.Put(ctx, name, rendered)
		return err
	}); err != nil {
		return fail(err)
	}

	if err := t.run("verify", func() error {
		stored, err := g.Files.Get(ctx, name)
		if err != nil {
			return err
		}
		return g.validate(stored, req, log)
	}); err != nil {
		return fail(err)
	}

	log.WithField("bytes", len(rendered)).Info("pdf generated")

	resp := &Response{PDFURL: url}
	if req.DebugMode {
		resp.DebugInfo = t.stages
	}
	return resp, nil
}

// validate applies the magic-header check and the size policy.
func (g *Generator) validate(data []byte, req Request, log logrus.FieldLogger) error {
	if len(data) < minPDFBytes {
		return fmt.Errorf("document is %d bytes, below the %d byte corruption threshold", len(data), minPDFBytes)
	}
	if string(data[:5]) != "%PDF-" {
		return fmt.Errorf("document is missing the %%PDF- header")
	}
	return checkSize(int64(len(data)), req, log)
}

func checkSize(size int64, req Request, log logrus.FieldLogger) error {
	if size <= standardMaxBytes {
		return nil
	}
	if size > largeMaxBytes {
		return fmt.Errorf("document is %dMB, above the %dMB hard limit", size>>20, largeMaxBytes>>20)
	}
	if req.AllowLargeFiles {
		return nil
	}
	if req.SkipSizeValidation {
		log.WithField("bytes", size).Warn("size validation skipped for oversized document")
		return nil
	}
	return fmt.Errorf("document is %dMB, above the %dMB limit", size>>20, standardMaxBytes>>20)
}

func fileName(invoiceID string) string {
	return fmt.Sprintf("invoice-%s.pdf", invoiceID)
}
