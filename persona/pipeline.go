package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxChunks caps the number of chunks sent for extraction per upload.
const DefaultMaxChunks = 20

// Limits bounds the work done for one upload.
type Limits struct {
	// MaxChunkChars is the per-chunk character budget (DefaultMaxChunkChars when <= 0).
	MaxChunkChars int

	// MaxChunks caps how many chunks are extracted; the rest of the transcript is dropped.
	// Zero or less disables the cap.
	MaxChunks int

	// Concurrency is the number of chunks extracted in parallel (1 when <= 0).
	Concurrency int
}

func DefaultLimits() Limits {
	return Limits{
		MaxChunkChars: DefaultMaxChunkChars,
		MaxChunks:     DefaultMaxChunks,
		Concurrency:   1,
	}
}

// Pipeline turns an upload into a canonical profile: detect, parse, chunk, extract, merge.
type Pipeline struct {
	Extractor *Extractor
	Limits    Limits
	Logger    *slog.Logger

	// Format forces a provider parser. Empty means DetectFormat decides.
	Format Format
}

// Result is the outcome of one pipeline run.
type Result struct {
	Format   Format          `json:"format"`
	Profile  Profile         `json:"profile"`
	Stats    ExtractionStats `json:"stats"`
	Coverage Coverage        `json:"coverage"`
}

// Run processes one upload.
//
// It returns ErrNoFiles for an empty upload and ErrNoContent when no file yields any text.
// Failed extraction passes are logged and counted in Stats but do not fail the run, so a
// sparse or even empty profile is a valid result. Cancelling ctx aborts with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, files []File) (Result, error) {
	if len(files) == 0 {
		return Result{}, ErrNoFiles
	}
	if p.Extractor == nil || p.Extractor.completer == nil {
		return Result{}, errors.New("Run: extractor has no completer")
	}
	logger := orDiscard(p.Logger)

	format := p.Format
	if format == "" {
		format = DetectFormat(files)
	}
	res := Result{Format: format, Profile: Empty()}
	logger.Info("detected upload format", "format", format, "files", len(files))

	transcript, err := Parse(ctx, format, files, logger)
	if err != nil {
		return res, err
	}
	if transcript == NoContentSentinel {
		return res, fmt.Errorf("%w (format=%s, files=%d)", ErrNoContent, format, len(files))
	}

	chunks, cov := chunkText(transcript, p.Limits.MaxChunkChars, p.Limits.MaxChunks)
	res.Coverage = cov
	if len(chunks) == 0 {
		return res, fmt.Errorf("%w (format=%s, files=%d)", ErrNoContent, format, len(files))
	}
	if cov.Truncated {
		logger.Warn("transcript truncated at chunk cap",
			"chunks", cov.Chunks, "covered_chars", cov.CoveredChars, "total_chars", cov.TotalChars)
	}

	fragments, err := p.extractAll(ctx, chunks, logger)
	if err != nil {
		return res, err
	}

	res.Stats.ChunksTotal = len(chunks)
	var flat []Profile
	for i, frags := range fragments {
		passes := len(passesFor(chunks[i]))
		res.Stats.PassesAttempted += passes
		res.Stats.SecondaryPasses += passes - 1
		res.Stats.PassesSucceeded += len(frags)
		if len(frags) > 0 {
			res.Stats.ChunksUsed++
		}
		flat = append(flat, frags...)
	}
	res.Profile = Merge(flat)

	logger.Info("extraction complete",
		"chunks", res.Stats.ChunksTotal,
		"chunks_used", res.Stats.ChunksUsed,
		"passes", res.Stats.PassesAttempted,
		"passes_ok", res.Stats.PassesSucceeded,
		"completeness", Completeness(res.Profile))
	return res, nil
}

// extractAll fans chunks out to the extractor. Fragments are stored per chunk index so the
// merge order is chunk order regardless of completion order.
func (p *Pipeline) extractAll(ctx context.Context, chunks []string, logger *slog.Logger) ([][]Profile, error) {
	concurrency := p.Limits.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([][]Profile, len(chunks))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frags, err := p.Extractor.Extract(ctx, chunk, i, len(chunks))
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			results[i] = frags
			logger.Debug("chunk extracted", "chunk", i+1, "of", len(chunks), "fragments", len(frags))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
