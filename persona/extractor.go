package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/persona-pack/persona/fileutils"
)

const (
	DefaultCallTimeout     = 90 * time.Second
	DefaultMaxOutputTokens = 2500
)

// errMalformedResponse marks a completion that did not carry a usable profile.
var errMalformedResponse = errors.New("malformed extraction response")

// Completer is the external completion service that turns instructions and input into
// (hopefully) schema-shaped JSON text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	// Name identifies the pass; it is used as the response schema name.
	Name            string
	Instructions    string
	Input           string
	MaxOutputTokens int
}

// ExtractionResponse is the JSON envelope every completion must return.
type ExtractionResponse struct {
	Profile *Profile `json:"profile"`
}

// Extractor runs the extraction passes for a single chunk.
type Extractor struct {
	completer       Completer
	logger          *slog.Logger
	timeout         time.Duration
	maxOutputTokens int
}

type ExtractorOption func(*Extractor)

// WithCallTimeout bounds each completion call. A timed-out call counts as a failed pass.
func WithCallTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithMaxOutputTokens(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxOutputTokens = n
		}
	}
}

func NewExtractor(completer Completer, logger *slog.Logger, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		completer:       completer,
		logger:          orDiscard(logger),
		timeout:         DefaultCallTimeout,
		maxOutputTokens: DefaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type extractionPass struct {
	name         string
	instructions string
}

var (
	generalPass = extractionPass{name: "ProfileExtraction", instructions: generalInstructions}
	workPass    = extractionPass{name: "WorkProfileExtraction", instructions: workInstructions}
)

// passesFor returns the passes a chunk receives, general first.
func passesFor(chunk string) []extractionPass {
	if NeedsWorkPass(chunk) {
		return []extractionPass{generalPass, workPass}
	}
	return []extractionPass{generalPass}
}

// Extract runs the general pass, plus the work pass when the chunk mentions work, and returns
// the usable fragments in pass order.
//
// Failed, timed-out and malformed passes are logged and reported in the joined error, while
// fragments from the other pass are still returned. Only cancellation of ctx itself aborts
// and returns ctx.Err().
func (e *Extractor) Extract(ctx context.Context, chunk string, index, total int) ([]Profile, error) {
	if e == nil || e.completer == nil {
		return nil, errors.New("Extract: completer is nil")
	}

	input := buildChunkInput(chunk, index, total)
	var (
		fragments []Profile
		errs      []error
	)
	for _, pass := range passesFor(chunk) {
		p, err := e.runPass(ctx, pass, input)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.logger.Warn("extraction pass failed", "pass", pass.name, "chunk", index+1, "of", total, "error", err)
			errs = append(errs, fmt.Errorf("chunk %d %s: %w", index+1, pass.name, err))
			continue
		}
		fragments = append(fragments, p)
	}
	return fragments, errors.Join(errs...)
}

func (e *Extractor) runPass(ctx context.Context, pass extractionPass, input string) (Profile, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.completer.Complete(callCtx, CompletionRequest{
		Name:            pass.name,
		Instructions:    pass.instructions,
		Input:           input,
		MaxOutputTokens: e.maxOutputTokens,
	})
	if err != nil {
		return Profile{}, err
	}

	var resp ExtractionResponse
	if err := fileutils.DecodeModelJSON(out, &resp); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	if resp.Profile == nil {
		return Profile{}, fmt.Errorf("%w: missing profile", errMalformedResponse)
	}
	return Normalize(*resp.Profile), nil
}

func buildChunkInput(chunk string, index, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "chunk_metadata:\nchunk_number=%d\nchunk_total=%d\n\n", index+1, total)
	b.WriteString("transcript:\n")
	b.WriteString(chunk)
	b.WriteString("\n")
	return b.String()
}
