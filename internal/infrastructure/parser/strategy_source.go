package parser

import (
	"context"
	"fmt"
	"log/slog"

	"NewsMerger/internal/config"
	"NewsMerger/internal/domain"
	"NewsMerger/internal/ports"
	"NewsMerger/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// Sources lists configured outlets in configuration order.
func (s *StrategySource) Sources() []domain.SourceName {
	names := make([]domain.SourceName, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, domain.SourceName(src.Name))
	}
	return names
}

// FetchSource runs the scanner configured for one outlet.
func (s *StrategySource) FetchSource(ctx context.Context, name domain.SourceName) ([]domain.RawRecord, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	site, ok := s.lookup(name)
	if !ok {
		return nil, fmt.Errorf("source %s is not configured", name)
	}

	s.debug("process source", "source", site.Name, "scanner", site.Scanner, "url", site.URL)
	strategy, err := s.registry.Resolve(site.Scanner)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", site.Name, err)
	}

	records, err := strategy.Scan(ctx, scanner.Request{
		Source:  name,
		URL:     site.URL,
		Options: site.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("scan source %s: %w", site.Name, err)
	}

	for i := range records {
		if records[i].Source == "" {
			records[i].Source = name
		}
	}
	s.debug("source produced records", "source", site.Name, "count", len(records))
	return records, nil
}

func (s *StrategySource) lookup(name domain.SourceName) (config.SourceConfig, bool) {
	for _, src := range s.sources {
		if domain.SourceName(src.Name) == name {
			return src, true
		}
	}
	return config.SourceConfig{}, false
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
