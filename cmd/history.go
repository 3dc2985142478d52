package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/transcribeflow/internal/formatter"
	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/repositories"
	"github.com/desertthunder/transcribeflow/internal/services"
	"github.com/desertthunder/transcribeflow/internal/shared"
	"github.com/desertthunder/transcribeflow/internal/tasks"
	"github.com/urfave/cli/v3"
)

func parseID(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: history item ID", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a history item ID", shared.ErrInvalidArgument, raw)
	}
	return id, nil
}

// HistoryList lists stored transcriptions, or the local upload journal with --local.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("local") {
		return r.historyListLocal(cmd)
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	items, err := svc.History(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit := int(cmd.Int("limit")); limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}
	return formatter.WriteHistoryTable(r.output, items)
}

func (r *Runner) historyListLocal(cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}

	records, err := repositories.NewUploadRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]map[string]any, len(records))
		for i, rec := range records {
			out[i] = map[string]any{
				"id":              rec.ID(),
				"filename":        rec.Filename,
				"mode":            rec.Mode,
				"target_language": rec.TargetLanguage,
				"diarization":     rec.Diarization,
				"status":          rec.Status,
				"error":           rec.Error,
				"created_at":      rec.CreatedAt(),
			}
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}
	return formatter.WriteUploadJournal(r.output, records)
}

// HistoryShow prints one stored transcription.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	item, err := r.historyItem(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(item, true)
	}

	data, err := formatter.Export([]formatter.Document{formatter.FromHistory(*item)}, cmd.String("format"))
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", data)
}

func (r *Runner) historyItem(ctx context.Context, rawID string) (*models.HistoryItem, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	svc, err := r.service()
	if err != nil {
		return nil, err
	}

	return svc.HistoryItem(ctx, id)
}

// HistoryDelete removes one stored transcription.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	res, err := svc.DeleteHistory(ctx, id)
	if err != nil {
		return err
	}

	r.logger.Info("deleted history item", "id", id)
	return r.writePlain("✓ %s\n", deleteMessage(res, "Item deleted successfully"))
}

// HistoryDeleteAll removes every stored transcription after confirmation.
func (r *Runner) HistoryDeleteAll(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	if !cmd.Bool("yes") && !r.confirm("Delete ALL history? This cannot be undone.") {
		return r.writePlain("Cancelled\n")
	}

	res, err := svc.DeleteAllHistory(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("deleted all history")
	return r.writePlain("✓ %s\n", deleteMessage(res, "All history deleted successfully"))
}

func deleteMessage(res *models.DeleteResult, fallback string) string {
	if res != nil && res.Message != "" {
		return res.Message
	}
	return fallback
}

// HistoryExport writes one transcription to stdout or a file, or archives many with --all/--ids.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("all") || cmd.String("ids") != "" {
		return r.historyArchive(ctx, cmd)
	}

	item, err := r.historyItem(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	format := cmd.String("format")
	doc := formatter.FromHistory(*item)

	output := cmd.String("output")
	if output == "" {
		data, err := formatter.Export([]formatter.Document{doc}, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", data)
	}

	path, err := formatter.WriteExport(doc, format, output)
	if err != nil {
		return err
	}
	r.logger.Info("exported transcription", "id", item.ID, "path", path)
	return r.writePlain("✓ Exported to %s\n", path)
}

func (r *Runner) historyArchive(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	var ids []int64
	if raw := cmd.String("ids"); raw != "" {
		for part := range strings.SplitSeq(raw, ",") {
			id, err := parseID(strings.TrimSpace(part))
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
	}

	opts := tasks.ArchiveOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
		IDs:        ids,
		Audio:      cmd.Bool("audio"),
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	archiver := tasks.NewArchiver(svc, shared.WithLogger(r.logger, "component", "archive"))
	result, err := archiver.Archive(ctx, progress, opts)
	close(progress)
	<-done

	if result != nil {
		r.writePlainHeader("History Archive")
		r.writePlain("Directory:  %s\n", result.OutputDirectory)
		r.writePlain("Exported:   %d/%d\n", result.Successful, result.TotalItems)
		if result.Failed > 0 {
			r.writePlain("Failed:     %d\n", result.Failed)
			for _, res := range result.Results {
				if !res.Success {
					r.writePlain("  ✗ %d %s: %s\n", res.ID, res.Filename, res.ErrorMessage)
				}
			}
		}
		if result.ManifestPath != "" {
			r.writePlain("Manifest:   %s\n", result.ManifestPath)
		}
	}
	return err
}

// HistoryDownload saves the uploaded audio of a stored transcription.
func (r *Runner) HistoryDownload(ctx context.Context, cmd *cli.Command) error {
	item, err := r.historyItem(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if item.Filename == "" {
		return fmt.Errorf("%w: history item %d has no audio file", services.ErrMalformedResponse, item.ID)
	}

	output := cmd.String("output")
	if output == "" {
		output = filepath.Base(item.Filename)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	n, err := r.api.DownloadAudio(ctx, item.Filename, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(output)
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.logger.Info("downloaded audio", "id", item.ID, "path", output, "bytes", n)
	return r.writePlain("✓ Saved %s (%d bytes)\n", output, n)
}
