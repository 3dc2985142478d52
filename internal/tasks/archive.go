package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/transcribeflow/internal/formatter"
	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/services"
	"github.com/desertthunder/transcribeflow/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultWorkers   = 4
	MaxWorkers       = 10
	DefaultRateLimit = 5.0
	ManifestName     = "archive_manifest.json"
)

// HistorySource is the part of the backend client an archive needs.
type HistorySource interface {
	History(ctx context.Context) ([]models.HistoryItem, error)
	DownloadAudio(ctx context.Context, audioURL string, w io.Writer) (int64, error)
}

// ArchiveOpts contains configuration for a history archive.
type ArchiveOpts struct {
	Format     string  // Export format: txt, markdown, csv, json
	OutputDir  string  // Base output directory (default: tflow_archive_{epoch})
	NumWorkers int     // Concurrent workers (default: 4, max: 10)
	RateLimit  float64 // Audio downloads per second (default: 5)
	IDs        []int64 // Items to export; empty means all
	Audio      bool    // Also download each item's audio file
}

// ItemResult is the outcome of archiving one history item.
type ItemResult struct {
	ID           int64    `json:"id"`
	Filename     string   `json:"filename"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`
}

// ArchiveResult summarizes an archive run and doubles as its manifest.
type ArchiveResult struct {
	CreatedAt       time.Time    `json:"created_at"`
	Format          string       `json:"format"`
	OutputDirectory string       `json:"output_directory"`
	TotalItems      int          `json:"total_items"`
	Successful      int          `json:"successful"`
	Failed          int          `json:"failed"`
	Results         []ItemResult `json:"results"`
	ManifestPath    string       `json:"-"`
}

// Archiver exports stored transcriptions concurrently.
type Archiver struct {
	source HistorySource
	logger *log.Logger
}

// NewArchiver creates an [Archiver] backed by source.
func NewArchiver(source HistorySource, logger *log.Logger) *Archiver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Archiver{source: source, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Archive exports history items to opts.OutputDir with a worker pool and writes a manifest.
//
// Per-item failures are recorded in the result; the returned error is reserved for failures
// that stop the whole run (history fetch, output directory, manifest, cancellation).
func (a *Archiver) Archive(ctx context.Context, prog chan<- ProgressUpdate, opts ArchiveOpts) (*ArchiveResult, error) {
	if a.source == nil {
		return nil, fmt.Errorf("%w: history source not initialized", shared.ErrServiceUnavailable)
	}

	opts = normalizeOpts(opts)
	if _, err := formatter.Export(nil, opts.Format); err != nil {
		return nil, err
	}

	sendProgress(prog, fetchingHistoryUpdate())
	items, err := a.source.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch history: %v", shared.ErrAPIRequest, err)
	}

	selected, missing := selectItems(items, opts.IDs)
	sendProgress(prog, foundHistoryUpdate(len(selected)))

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ArchiveResult{
		CreatedAt:       time.Now().UTC(),
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		TotalItems:      len(selected) + len(missing),
		Results:         make([]ItemResult, 0, len(selected)+len(missing)),
	}

	for _, id := range missing {
		err := fmt.Errorf("%w: %d", services.ErrHistoryNotFound, id)
		result.Results = append(result.Results, ItemResult{ID: id, Error: err, ErrorMessage: err.Error()})
		result.Failed++
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.HistoryItem, len(selected))
	results := make(chan ItemResult, len(selected))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go a.worker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for _, item := range selected {
			select {
			case <-ctx.Done():
				return
			case jobs <- item:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Success {
			result.Successful++
			sendProgress(prog, exportCompletedUpdate(completed, len(selected), res))
		} else {
			result.Failed++
			a.logger.Warn("archive item failed", "id", res.ID, "error", res.Error)
			sendProgress(prog, exportFailedUpdate(completed, len(selected), res))
		}
	}

	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].ID < result.Results[j].ID })

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("archive completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func normalizeOpts(opts ArchiveOpts) ArchiveOpts {
	if opts.Format == "" {
		opts.Format = formatter.FormatText
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("tflow_archive_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultWorkers
	}
	opts.NumWorkers = min(opts.NumWorkers, MaxWorkers)
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	return opts
}

// selectItems filters items to ids, preserving history order, and reports ids that were not found.
func selectItems(items []models.HistoryItem, ids []int64) ([]models.HistoryItem, []int64) {
	if len(ids) == 0 {
		return items, nil
	}

	byID := make(map[int64]models.HistoryItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var selected []models.HistoryItem
	var missing []int64
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if item, ok := byID[id]; ok {
			selected = append(selected, item)
		} else {
			missing = append(missing, id)
		}
	}
	return selected, missing
}

// worker archives history items from the jobs channel.
func (a *Archiver) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan models.HistoryItem,
	results chan<- ItemResult,
	opts ArchiveOpts,
) {
	defer wg.Done()

	for item := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- a.archiveItem(ctx, limiter, item, opts)
	}
}

// archiveItem writes a single history item and, when requested, its audio.
func (a *Archiver) archiveItem(ctx context.Context, limiter *rate.Limiter, item models.HistoryItem, opts ArchiveOpts) ItemResult {
	res := ItemResult{ID: item.ID, Filename: item.Filename, Files: []string{}}
	base := fmt.Sprintf("%d_%s", item.ID, formatter.SafeFilename(item.Filename))

	path := filepath.Join(opts.OutputDir, base+formatter.Extension(opts.Format))
	written, err := formatter.WriteExport(formatter.FromHistory(item), opts.Format, path)
	if err != nil {
		return res.fail(fmt.Errorf("%s export failed: %w", opts.Format, err))
	}
	res.Files = append(res.Files, written)

	if opts.Audio && item.Filename != "" {
		if err := limiter.Wait(ctx); err != nil {
			return res.fail(err)
		}

		audioPath := filepath.Join(opts.OutputDir, base+filepath.Ext(item.Filename))
		if err := a.downloadAudio(ctx, item.Filename, audioPath); err != nil {
			return res.fail(fmt.Errorf("audio download failed: %w", err))
		}
		res.Files = append(res.Files, audioPath)
	}

	res.Success = true
	return res
}

func (a *Archiver) downloadAudio(ctx context.Context, filename, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	n, err := a.source.DownloadAudio(ctx, filename, f)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	a.logger.Debug("downloaded audio", "path", path, "bytes", n)
	return nil
}

func (r ItemResult) fail(err error) ItemResult {
	r.Success = false
	r.Error = err
	r.ErrorMessage = err.Error()
	return r
}
