package analyzer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"truthx/internal/audit"
	"truthx/internal/logging"
	"truthx/internal/report"
	"truthx/internal/services"
	"truthx/internal/textutil"
)

const (
	sniffBytes        = 3072
	defaultUploadName = "upload"
	tempPattern       = "upload-*"
)

// Staged is an upload copied into the temp directory. Callers must Remove it.
type Staged struct {
	subject
	path   string
	size   int64
	logger *slog.Logger
}

// Path returns the temp file location.
func (s *Staged) Path() string { return s.path }

// Name returns the sanitized client file name.
func (s *Staged) Name() string { return s.name }

// Size returns the number of bytes staged.
func (s *Staged) Size() int64 { return s.size }

// Stage copies the upload into one temp file in the configured temp
// directory. The body is hashed and sniffed while it is copied.
func (a *Analyzer) Stage(upload *Upload) (*Staged, error) {
	if upload == nil || upload.Body == nil {
		return nil, services.Wrap(services.ErrValidation, "analyzer", "stage upload", "upload has no body", nil)
	}
	name := textutil.SanitizeFileName(upload.Name)
	if name == "" {
		name = defaultUploadName
	}

	body := bufio.NewReaderSize(upload.Body, sniffBytes)
	head, err := body.Peek(sniffBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	detected := mimetype.Detect(head)
	ext := textutil.SafeExtension(name)
	if ext == "" {
		ext = textutil.SafeExtension(defaultUploadName + detected.Extension())
	}

	file, err := os.CreateTemp(a.cfg.Paths.TempDir, tempPattern+ext)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "analyzer", "stage upload", "create temp file", err)
	}
	staged := &Staged{
		subject: subject{name: name, mimeType: detected.String()},
		path:    file.Name(),
		logger:  a.logger,
	}

	limit := a.cfg.MaxUploadBytes()
	var src io.Reader = body
	if limit > 0 {
		src = io.LimitReader(body, limit+1)
	}
	digest := audit.NewDigest()
	size, err := io.Copy(io.MultiWriter(file, digest), src)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && limit > 0 && size > limit {
		err = services.Wrap(services.ErrValidation, "analyzer", "stage upload",
			fmt.Sprintf("upload exceeds %d MB", a.cfg.Server.MaxUploadMB), nil)
	}
	if err != nil {
		_ = os.Remove(staged.path)
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	staged.size = size
	staged.digest = audit.FormatDigest(digest)
	return staged, nil
}

// Remove deletes the temp file. It is safe to call more than once.
func (s *Staged) Remove() {
	if s == nil {
		return
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(s.logger, "failed to remove staged upload", "temp_cleanup_failed",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually and check temp_dir permissions"),
			logging.String(logging.FieldImpact, "temp directory accumulates stale uploads"),
		)
	}
}

// AnalyzeFile runs the pipeline on a local file without copying it. query may
// be empty.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path, query string) (report.Report, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return a.Analyze(ctx, Request{Query: query})
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return report.Report{}, services.Wrap(services.ErrNotFound, "analyzer", "analyze file", fmt.Sprintf("%s does not exist", path), nil)
	}
	if err != nil {
		return report.Report{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return report.Report{}, services.Wrap(services.ErrValidation, "analyzer", "analyze file", fmt.Sprintf("%s is a directory", path), nil)
	}

	ctx, requestID := withRequestID(ctx)
	logger := logging.WithContext(ctx, a.logger)
	r := a.newRun(requestID)
	r.subject = subject{name: filepath.Base(path)}
	if detected, err := mimetype.DetectFile(path); err == nil {
		r.subject.mimeType = detected.String()
	}
	if digest, err := audit.DigestFile(path); err == nil {
		r.subject.digest = digest
	} else {
		logger.Debug("digest unavailable", logging.Error(err))
	}

	a.analyzeMedia(ctx, path, logger, r)
	if query = strings.TrimSpace(query); query != "" {
		a.analyzeText(ctx, query, false, logger, r)
	}
	return a.finish(ctx, logger, r), nil
}
