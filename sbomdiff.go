// Package sbomdiff compares two normalized SBOM documents and reports a
// semantic diff: components added/removed/modified, vulnerabilities
// introduced/fixed, dependency-graph restructurings, and an impact
// classification per structural change.
//
// The package wires the matching subsystem (internal/matcher), the
// component and vulnerability differs (differ), and the dependency-graph
// differ (graphdiff) into one call, with an optional incremental cache
// (diffcache) wrapped around the whole pipeline. It does not parse any
// SBOM wire format, fetch enrichment data, or render reports; those
// belong to the surrounding collaborators.
package sbomdiff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/quay/sbomdiff/diffcache"
	"github.com/quay/sbomdiff/differ"
	"github.com/quay/sbomdiff/graphdiff"
	"github.com/quay/sbomdiff/internal/diag"
	"github.com/quay/sbomdiff/internal/matcher"
	"github.com/quay/sbomdiff/model"
)

// Diff compares old (the earlier document) against new (the later one)
// under cfg and returns the complete DiffResult. It is equivalent to
// DiffWithCache(ctx, old, new, cfg, nil, nil).
func Diff(ctx context.Context, old, new *model.NormalizedSbom, cfg model.DiffConfig) (*model.DiffResult, error) {
	return DiffWithCache(ctx, old, new, cfg, nil, nil)
}

// DiffWithCache runs the full pipeline (matcher, component differ,
// vulnerability differ, graph differ, aggregator), optionally checking
// and populating cache first. A nil cache always runs the pipeline. sink
// receives non-fatal diagnostics; a nil sink discards them.
//
// On a cache hit the memoized result is returned unchanged; callers that
// need a fresh run must bypass the cache.
func DiffWithCache(
	ctx context.Context,
	old, new *model.NormalizedSbom,
	cfg model.DiffConfig,
	cache *diffcache.Cache,
	sink diag.Sink,
) (_ *model.DiffResult, err error) {
	const op = "sbomdiff.Diff"
	if sink == nil {
		sink = diag.Noop{}
	}

	ctx, span := tracer.Start(ctx, "DiffWithCache")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, "diff failed")
			span.RecordError(err)
		}
		span.End()
	}()

	select {
	case <-ctx.Done():
		return nil, &Error{Kind: ErrCancelled, Op: op, Inner: ctx.Err()}
	default:
	}

	if err := cfg.Validate(); err != nil {
		return nil, &Error{Kind: ErrInvalidInput, Op: op, Message: "invalid config", Inner: err}
	}
	if err := old.Validate(); err != nil {
		return nil, invalidInputErr(op, old, new, err)
	}
	if err := new.Validate(); err != nil {
		return nil, invalidInputErr(op, old, new, err)
	}
	span.SetAttributes(
		attribute.Int("sbomdiff.components.old", len(old.Components)),
		attribute.Int("sbomdiff.components.new", len(new.Components)),
	)

	var key diffcache.Key
	if cache != nil {
		key = diffcache.FingerprintPair(old, new)
		if cached, ok := cache.Get(key); ok {
			span.SetAttributes(attribute.Bool("sbomdiff.cache.hit", true))
			return cached, nil
		}
	}
	defer observeDiff(&err)()

	opts := matcher.Options{
		SameFormat: old.Metadata.Format == model.FormatCycloneDX && new.Metadata.Format == model.FormatCycloneDX,
	}
	mr, err := matcher.Match(ctx, old, new, cfg, opts, sink)
	if err != nil {
		return nil, wrapMatchErr(op, err)
	}

	components := differ.Components(old, new, mr.Matches, mr.UnmatchedOld, mr.UnmatchedNew, cfg)

	var vulns model.Vulnerabilities
	if cfg.DetectVulnerabilityChanges {
		vulns = differ.Vulnerabilities(old, new, mr.Matches, mr.UnmatchedOld, mr.UnmatchedNew)
	}

	var graphChanges []model.GraphChange
	var graphSummary model.GraphSummary
	if cfg.DetectGraphChanges {
		graphChanges, graphSummary = graphdiff.Diff(old, new, mr.Matches)
	}

	result := &model.DiffResult{
		Components:      components,
		Vulnerabilities: vulns,
		GraphChanges:    graphChanges,
		GraphSummary:    graphSummary,
		MatchStats:      mr.Stats,
	}
	result.Recount()
	result.Sort()

	if cache != nil {
		cache.Put(key, result)
	}
	return result, nil
}

func wrapMatchErr(op string, err error) error {
	if errors.Is(err, matcher.ErrCancelled) {
		return &Error{Kind: ErrCancelled, Op: op, Inner: err}
	}
	var rlerr *matcher.ResourceLimitError
	if errors.As(err, &rlerr) {
		return &Error{Kind: ErrResourceLimit, Op: op,
			Message: fmt.Sprintf("candidate set for component %s exceeded ceiling", rlerr.Component), Inner: err}
	}
	return &Error{Kind: ErrInternal, Op: op, Inner: err}
}

func invalidInputErr(op string, old, new *model.NormalizedSbom, err error) error {
	return &Error{
		Kind:    ErrInvalidInput,
		Op:      op,
		Message: fmt.Sprintf("sbom pair (%s, %s)", docIdentity(old), docIdentity(new)),
		Inner:   err,
	}
}

// docIdentity returns a document serial usable in error messages
// attributing a failure to one of the two inputs: the document's own
// serial if it declared one, or else a deterministic UUID (v5-style, via
// uuid.NewSHA1) derived from its content fingerprint so the identity is
// stable across repeated calls on the same content without requiring the
// document to carry a serial.
func docIdentity(s *model.NormalizedSbom) string {
	if s == nil {
		return "<nil>"
	}
	if s.Metadata.Serial != "" {
		return s.Metadata.Serial
	}
	fp := diffcache.FingerprintSbom(s)
	return uuid.NewSHA1(uuid.Nil, fp[:]).String()
}
