package issuance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"boleta/internal/extraction"
	"boleta/pkg/services"
)

// Batch result statuses.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// BatchResult is the outcome of extracting one file of a batch.
type BatchResult struct {
	Index    int
	Path     string
	Filename string
	Draft    *services.DraftResult
	Err      error
	Status   string
}

type batchJob struct {
	path  string
	index int
}

// FindReceipts lists the supported receipt files under folder, sorted by path.
func FindReceipts(folder string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("folder not found: %s", folder)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", folder)
	}

	var files []string
	err = filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && extraction.Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// ExtractBatch drafts every file with a pool of workers. Results keep the
// order of paths. progress, when set, is called once per finished file with
// the running count; calls are serialized.
func (s *Service) ExtractBatch(ctx context.Context, paths []string, senderID uint, workers int, progress func(done, total int, r BatchResult)) []BatchResult {
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan batchJob, len(paths))
	results := make([]BatchResult, len(paths))

	var processed int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				s.log.Debug().
					Int("worker", workerID).
					Str("file", job.path).
					Int("index", job.index+1).
					Msg("Worker processing receipt")

				result := s.extractOne(ctx, job.path, senderID)
				result.Index = job.index
				results[job.index] = result

				mu.Lock()
				processed++
				if progress != nil {
					progress(processed, len(paths), result)
				}
				mu.Unlock()
			}
		}(w)
	}

	for i, path := range paths {
		jobs <- batchJob{path: path, index: i}
	}
	close(jobs)

	wg.Wait()
	return results
}

func (s *Service) extractOne(ctx context.Context, path string, senderID uint) BatchResult {
	result := BatchResult{Path: path, Filename: filepath.Base(path), Status: StatusError}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	draft, err := s.DraftFromFile(ctx, path, senderID)
	if err != nil {
		result.Err = err
		return result
	}

	result.Draft = draft
	result.Status = StatusSuccess
	if len(draft.Warnings) > 0 {
		result.Status = StatusWarning
	}
	return result
}
