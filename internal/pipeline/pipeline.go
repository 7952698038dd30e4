// Package pipeline runs uploaded documents through decode, extract and
// aggregate for one airline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/airline-extractor/internal/airline"
	"github.com/BerylCAtieno/airline-extractor/internal/decoder"
	"github.com/BerylCAtieno/airline-extractor/internal/engine"
	"github.com/BerylCAtieno/airline-extractor/internal/table"
	"github.com/BerylCAtieno/airline-extractor/internal/utils"
)

var (
	ErrNoDocuments        = errors.New("no documents")
	ErrAllDocumentsFailed = errors.New("all documents failed")
	ErrNoPatternMatched   = errors.New("no records matched")
)

type Stage string

const (
	StageDecode    Stage = "decode"
	StageExtract   Stage = "extract"
	StageAggregate Stage = "aggregate"
)

// DocumentError is a failure or warning tied to one document and stage.
// Aggregation errors have no filename.
type DocumentError struct {
	Filename string
	Stage    Stage
	Err      error
}

func (e *DocumentError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Filename, e.Stage, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

type Request struct {
	Airline   airline.Code
	Documents []decoder.RawDocument
}

type Result struct {
	Airline airline.Code
	Table   *table.Table
	// Failures lists documents that contributed nothing because a stage
	// failed. Warnings lists documents that were read but matched nothing.
	Failures  []*DocumentError
	Warnings  []*DocumentError
	Documents int
	Elapsed   time.Duration
}

// NoData reports a run that worked but found no records.
func (r *Result) NoData() bool {
	return r.Table.Empty() && len(r.Failures) < r.Documents
}

// Succeeded is the number of documents that were decoded and extracted.
func (r *Result) Succeeded() int {
	return r.Documents - len(r.Failures)
}

type Pipeline struct {
	engine  *engine.Engine
	workers int
	logger  *utils.Logger
}

// New builds a pipeline that processes up to workers documents at once;
// workers <= 0 uses the number of CPUs.
func New(eng *engine.Engine, workers int, logger *utils.Logger) *Pipeline {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pipeline{engine: eng, workers: workers, logger: logger}
}

type outcome struct {
	fragment *table.Fragment
	err      *DocumentError
}

// Run processes every document of the request. A document that fails to
// decode or extract is reported in Result.Failures and does not stop the
// others. Run fails when the airline is unknown, the runtime is
// unavailable, every document failed, or the fragments cannot be merged.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if len(req.Documents) == 0 {
		return nil, ErrNoDocuments
	}

	env, err := p.engine.Environment(ctx)
	if err != nil {
		return nil, err
	}
	x, err := env.Extractor(req.Airline)
	if err != nil {
		return nil, err
	}

	logger := p.logger.With("airline", string(req.Airline), "documents", len(req.Documents))
	logger.Debug("Starting extraction")

	slots := make([]outcome, len(req.Documents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, raw := range req.Documents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = p.process(env, x, raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Airline: req.Airline, Documents: len(req.Documents)}
	fragments := make([]*table.Fragment, 0, len(slots))
	for i, s := range slots {
		if s.err != nil {
			logger.Warn("Document failed", "filename", req.Documents[i].Filename, "stage", s.err.Stage, "error", s.err.Err)
			res.Failures = append(res.Failures, s.err)
			continue
		}
		if s.fragment.Len() == 0 {
			res.Warnings = append(res.Warnings, &DocumentError{
				Filename: req.Documents[i].Filename,
				Stage:    StageExtract,
				Err:      fmt.Errorf("%w for %s", ErrNoPatternMatched, x.Name()),
			})
		}
		fragments = append(fragments, s.fragment)
	}

	if len(res.Failures) == len(req.Documents) {
		errs := make([]error, len(res.Failures))
		for i, f := range res.Failures {
			errs[i] = f
		}
		return nil, fmt.Errorf("%w: %w", ErrAllDocumentsFailed, errors.Join(errs...))
	}

	t, err := table.Aggregate(fragments)
	if err != nil {
		return nil, &DocumentError{Stage: StageAggregate, Err: err}
	}
	res.Table = t
	res.Elapsed = time.Since(start)

	logger.Info("Extraction finished",
		"rows", t.Len(),
		"failures", len(res.Failures),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Elapsed.Milliseconds())
	return res, nil
}

func (p *Pipeline) process(env *engine.Environment, x airline.Extractor, raw decoder.RawDocument) outcome {
	fail := func(stage Stage, err error) outcome {
		return outcome{err: &DocumentError{Filename: raw.Filename, Stage: stage, Err: err}}
	}

	if raw.Kind == "" {
		kind, err := decoder.DetectKind(raw.Filename, raw.Data)
		if err != nil {
			return fail(StageDecode, err)
		}
		raw.Kind = kind
	}
	if raw.Kind != x.Kind() {
		return fail(StageDecode, fmt.Errorf("%w: %s reports are %s files, got %s",
			decoder.ErrUnsupportedKind, x.Name(), x.Kind(), raw.Kind))
	}

	content, err := decoder.Decode(raw, decoder.Options{PDFConfig: env.PDFConfig, Layout: x.Layout()})
	if err != nil {
		return fail(StageDecode, err)
	}

	frag, err := extract(x, content)
	if err != nil {
		return fail(StageExtract, err)
	}
	return outcome{fragment: frag}
}

func extract(x airline.Extractor, content *decoder.Content) (frag *table.Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			frag, err = nil, fmt.Errorf("extractor panicked: %v", r)
		}
	}()

	frag = x.Extract(content)
	if err := frag.Validate(); err != nil {
		return nil, err
	}
	return frag, nil
}
