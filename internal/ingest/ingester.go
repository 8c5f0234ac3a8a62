package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"caregiver-compass/internal/ai"
	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/store"
	"caregiver-compass/models"
)

// SourceSpec describes one knowledge source to ingest: where the file
// lives and what provenance its chunks inherit.
type SourceSpec struct {
	Path           string `yaml:"path" json:"path"`
	SourceName     string `yaml:"source_name" json:"source_name"`
	Collection     string `yaml:"collection" json:"collection"`
	TrustTier      string `yaml:"trust_tier" json:"trust_tier"`
	Category       string `yaml:"category" json:"category"`
	RegionRelevant bool   `yaml:"region_relevant" json:"region_relevant"`
}

// Manifest is the YAML description of a full knowledge base.
type Manifest struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadManifest reads a YAML ingestion manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	for i, src := range m.Sources {
		if src.Path == "" || src.SourceName == "" || src.Collection == "" {
			return nil, fmt.Errorf("manifest source %d: path, source_name and collection are required", i)
		}
	}

	return &m, nil
}

// Ingester turns source files into embedded Documents. Document IDs are
// derived from source name and chunk order, so re-ingesting a source
// replaces its chunks instead of duplicating them.
type Ingester struct {
	embedder ai.Embedder
	store    store.SemanticWriter
	chunker  *Chunker
}

func NewIngester(embedder ai.Embedder, st store.SemanticWriter, chunker *Chunker) *Ingester {
	return &Ingester{embedder: embedder, store: st, chunker: chunker}
}

// IngestSource processes one source end to end and returns the number of
// documents written.
func (ing *Ingester) IngestSource(ctx context.Context, spec SourceSpec) (int, error) {
	text, err := extractText(spec.Path)
	if err != nil {
		return 0, err
	}

	chunks := ing.chunker.ChunkText(text)
	if len(chunks) == 0 {
		logger.Warn("Source produced no chunks", "source", spec.SourceName, "path", spec.Path)
		return 0, nil
	}

	tier := models.ParseTrustTier(spec.TrustTier)
	docs := make([]models.Document, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := ing.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return 0, fmt.Errorf("embedding chunk %d of %s: %w", chunk.Order, spec.SourceName, err)
		}

		docs = append(docs, models.Document{
			ID:     fmt.Sprintf("%s-%04d", slugify(spec.SourceName), chunk.Order),
			Text:   chunk.Text,
			Vector: vector,
			Metadata: models.DocumentMetadata{
				SourceName:     spec.SourceName,
				TrustTier:      tier,
				Category:       spec.Category,
				RegionRelevant: spec.RegionRelevant,
			},
		})
	}

	if err := ing.store.Upsert(ctx, spec.Collection, docs); err != nil {
		return 0, err
	}

	logger.Info("Source ingested",
		"source", spec.SourceName,
		"collection", spec.Collection,
		"documents", len(docs))
	return len(docs), nil
}

// IngestManifest processes every source in a manifest, continuing past
// per-source failures so one bad file does not block the rest.
func (ing *Ingester) IngestManifest(ctx context.Context, m *Manifest) (int, error) {
	total := 0
	var firstErr error
	for _, spec := range m.Sources {
		n, err := ing.IngestSource(ctx, spec)
		if err != nil {
			logger.Error("Source ingestion failed", "source", spec.SourceName, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	return total, firstErr
}

func extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ExtractPDFText(path)
	case ".txt", ".md", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported source file type: %s", path)
	}
}

func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, slug)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
