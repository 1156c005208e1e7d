package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoChanges is returned when a snapshot would not change the repository
var ErrNoChanges = errors.New("dataset files unchanged")

// SnapshotInfo describes one dataset commit
type SnapshotInfo struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// DatasetRepo versions pipeline outputs in a git working tree
type DatasetRepo struct {
	repo             *git.Repository
	repoPath         string
	metricsCollector MetricsCollector
}

// OpenDatasetRepo opens the repository at repoPath, initializing it when absent
func OpenDatasetRepo(repoPath string, metrics MetricsCollector) (*DatasetRepo, error) {
	repo, err := git.PlainOpen(repoPath)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(repoPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", repoPath, err)
		}
		repo, err = git.PlainInit(repoPath, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	return &DatasetRepo{
		repo:             repo,
		repoPath:         repoPath,
		metricsCollector: metrics,
	}, nil
}

// Snapshot copies files into the repository root and commits them.
// Returns ErrNoChanges when every file is already committed as is.
func (d *DatasetRepo) Snapshot(ctx context.Context, files []string, message string) (hash string, err error) {
	defer func(start time.Time) { recordMetric(d.metricsCollector, "git", "snapshot", start, err) }(time.Now())

	w, err := d.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		name := filepath.Base(f)
		if err := copyFile(f, filepath.Join(d.repoPath, name)); err != nil {
			return "", err
		}
		if _, err := w.Add(name); err != nil {
			return "", fmt.Errorf("failed to add %s: %w", name, err)
		}
	}

	status, err := w.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read status: %w", err)
	}
	if status.IsClean() {
		return "", ErrNoChanges
	}

	commit, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Darija Corpus",
			Email: "corpus@caiatech.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	logger := logging.GetStorageLogger("snapshot", "git")
	logger.Info().
		Str("commit", commit.String()).
		Int("files", len(files)).
		Msg("Dataset snapshot committed")
	return commit.String(), nil
}

// History returns up to limit snapshots, newest first
func (d *DatasetRepo) History(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	iter, err := d.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var out []SnapshotInfo
	for limit <= 0 || len(out) < limit {
		c, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, SnapshotInfo{Hash: c.Hash.String(), Message: c.Message, When: c.Author.When})
	}
	return out, nil
}

// Health checks that HEAD resolves
func (d *DatasetRepo) Health(ctx context.Context) (err error) {
	defer func(start time.Time) { recordMetric(d.metricsCollector, "git", "health", start, err) }(time.Now())
	_, err = d.repo.Head()
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
