// Package discovery classifies downloaded git artifacts and extracts the
// further artifacts they reference.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/quantmind-br/gitripper/internal/domain"
	"github.com/quantmind-br/gitripper/internal/utils"
)

// EmitFunc receives a path relative to the artifact's .git/ base
type EmitFunc func(rel string)

// Handler parses one class of artifact
type Handler struct {
	// Name identifies the handler in logs and results
	Name string

	// Match reports whether the handler owns a relative path
	Match func(rel string) bool

	// Parse extracts references from the artifact's bytes
	Parse func(ctx context.Context, a domain.Artifact, data []byte, emit EmitFunc) error

	// SkipRead avoids loading the file for handlers that never look at it
	SkipRead bool
}

// Result summarizes what discovery did for one artifact
type Result struct {
	Handler  string
	Found    int
	Enqueued int
	Rejected int
}

// Engine dispatches artifacts over an ordered handler table
type Engine struct {
	handlers []Handler
	inflater domain.Inflater
	logger   *utils.Logger
}

// NewEngine creates an engine with the standard handler table
func NewEngine(inflater domain.Inflater, logger *utils.Logger) *Engine {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	e := &Engine{
		inflater: inflater,
		logger:   logger.WithComponent("discovery"),
	}
	e.handlers = e.defaultHandlers()
	return e
}

// Classify returns the handler owning a relative path
func (e *Engine) Classify(rel string) Handler {
	for _, h := range e.handlers {
		if h.Match(rel) {
			return h
		}
	}
	// the last handler matches everything
	return e.handlers[len(e.handlers)-1]
}

// Process parses the artifact stored at a.LocalPath and enqueues every
// reference it yields, resolved against a.BaseURL.
func (e *Engine) Process(ctx context.Context, a domain.Artifact, enq domain.Enqueuer) (Result, error) {
	h := e.Classify(a.Path)
	res := Result{Handler: h.Name}

	var data []byte
	if !h.SkipRead {
		var err error
		data, err = os.ReadFile(a.LocalPath)
		if err != nil {
			return res, domain.NewParseError(a.Path, h.Name, err)
		}
	}

	seen := make(map[string]struct{})
	emit := func(rel string) {
		if _, dup := seen[rel]; dup {
			return
		}
		seen[rel] = struct{}{}
		res.Found++

		resolved, err := utils.ResolveArtifact(a.BaseURL, rel)
		if err != nil {
			res.Rejected++
			e.logger.Debug().Err(err).Str("from", a.URL).Msg("Rejected reference")
			return
		}
		enq.Enqueue(resolved)
		res.Enqueued++
	}

	if err := h.Parse(ctx, a, data, emit); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return res, err
		}
		var perr *domain.ParseError
		if errors.As(err, &perr) {
			return res, err
		}
		return res, domain.NewParseError(a.Path, h.Name, err)
	}
	return res, nil
}

// NewArtifact builds an Artifact from its URL and the output root
func NewArtifact(url, outputRoot string) (domain.Artifact, error) {
	base, rel, err := utils.RelativePath(url)
	if err != nil {
		return domain.Artifact{}, err
	}
	local, err := utils.LocalPath(outputRoot, url)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("resolve local path: %w", err)
	}
	return domain.Artifact{URL: url, BaseURL: base, Path: rel, LocalPath: local}, nil
}
