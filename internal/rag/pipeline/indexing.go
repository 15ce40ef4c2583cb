package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/schema"
	"ragchatbot/pkg/logger"
)

// embedConcurrency caps how many embedding batches run in parallel per
// document during ingestion.
const embedConcurrency = 4

// IndexingPipeline drives the offline corpus build: discover PDFs, extract
// text per page, chunk, embed and upsert into the vector index.
type IndexingPipeline struct {
	extractor interfaces.Extractor
	splitter  interfaces.Splitter
	embedder  interfaces.EmbeddingModel
	index     interfaces.VectorIndex
	batchSize int
	log       *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	extractor interfaces.Extractor,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	index interfaces.VectorIndex,
	batchSize int,
	log *logger.Logger,
) *IndexingPipeline {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &IndexingPipeline{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
		log:       log,
	}
}

// Ingest processes every PDF in dir and returns a report of the run.
//
// Non-PDF entries are recorded as skipped. A document whose content
// fingerprint matches the indexed version is left untouched, so re-running
// ingest over an unchanged corpus is a no-op. Per-page extraction failures
// are recorded but do not abort the document; a document that fails as a
// whole is recorded and excluded without leaving partial state behind.
func (p *IndexingPipeline) Ingest(ctx context.Context, dir string) (*schema.IngestionReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory '%s': %w", dir, err)
	}

	report := &schema.IngestionReport{}
	p.log.Info(fmt.Sprintf("Starting ingestion of %s (%d entries)", dir, len(entries)))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.ToLower(filepath.Ext(name)) != ".pdf" {
			report.DocumentsSkipped++
			continue
		}

		path := filepath.Join(dir, name)
		fingerprint, err := fileFingerprint(path)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		indexed, present, err := p.index.Fingerprint(ctx, name)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if present && indexed == fingerprint {
			p.log.Debug(fmt.Sprintf("Document %s unchanged, skipping", name))
			report.DocumentsUnchanged++
			continue
		}

		chunks, pageErrs, err := p.processDocument(ctx, name, path)
		report.Errors = append(report.Errors, pageErrs...)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		if err := p.index.Upsert(ctx, name, fingerprint, chunks); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		report.DocumentsProcessed++
		report.ChunksCreated += len(chunks)
		p.log.Info(fmt.Sprintf("Indexed %s: %d chunks", name, len(chunks)))
	}

	p.log.Info(fmt.Sprintf(
		"Ingestion finished: %d processed, %d unchanged, %d skipped, %d chunks, %d errors",
		report.DocumentsProcessed, report.DocumentsUnchanged, report.DocumentsSkipped,
		report.ChunksCreated, len(report.Errors),
	))
	return report, nil
}

// processDocument extracts, chunks and embeds one PDF. It returns the fully
// embedded chunk set, per-page errors, and a document-level error when
// nothing usable could be extracted or embedding failed.
func (p *IndexingPipeline) processDocument(ctx context.Context, docID, path string) ([]*schema.Chunk, []string, error) {
	pages, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	var chunks []*schema.Chunk
	var pageErrs []string
	failedPages := 0
	for _, page := range pages {
		if page.Err != nil {
			pageErrs = append(pageErrs, fmt.Sprintf("%s: %v", docID, page.Err))
			failedPages++
			continue
		}
		chunks = append(chunks, p.splitter.Split(docID, page.Number, page.Text)...)
	}

	if len(chunks) == 0 {
		if failedPages == len(pages) && len(pages) > 0 {
			return nil, pageErrs, fmt.Errorf("extraction failed on all %d pages", len(pages))
		}
		return nil, pageErrs, fmt.Errorf("no extractable text")
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		return nil, pageErrs, err
	}
	return chunks, pageErrs, nil
}

// embedChunks fills the Embedding field of every chunk, running batches in
// parallel while keeping each vector matched to its chunk by index.
func (p *IndexingPipeline) embedChunks(ctx context.Context, chunks []*schema.Chunk) error {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		eg.Go(func() error {
			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}
			vectors, err := p.embedder.EmbedBatch(gCtx, texts)
			if err != nil {
				return err
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}

	return eg.Wait()
}

// fileFingerprint hashes the file content so unchanged documents can be
// detected across ingestion runs.
func fileFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
