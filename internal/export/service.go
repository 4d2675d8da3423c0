package export

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/catalog"
	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/repository"
)

type workerFunc func(context.Context, domain.ExportJob) error

var errJobNotRunnable = errors.New("export job is no longer runnable")

// Service queues and runs asynchronous catalog exports. Each job transforms
// one data source and writes the unified catalog to disk as indented JSON.
type Service struct {
	sources    repository.DataSourceRepository
	exportRepo repository.ExportJobRepository
	catalogs   *catalog.Service

	exportDir  string
	jobTimeout time.Duration
	now        func() time.Time

	downloadSigner *downloadSigner

	workerCancels sync.Map // map[uuid.UUID]context.CancelFunc
}

type Option func(*Service)

func WithExportDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

func WithJobTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.jobTimeout = timeout
		}
	}
}

// WithDownloadTokenTTL customizes the TTL for generated download links.
func WithDownloadTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.downloadSigner = newDownloadSigner(ttl)
		}
	}
}

// WithSigningSecret pins the token secret so links survive restarts.
func WithSigningSecret(secret string) Option {
	return func(s *Service) {
		if strings.TrimSpace(secret) == "" {
			return
		}
		ttl := 5 * time.Minute
		if s.downloadSigner != nil {
			ttl = s.downloadSigner.ttl
		}
		s.downloadSigner = newDownloadSignerWithSecret(secret, ttl)
	}
}

func NewService(
	sources repository.DataSourceRepository,
	exportRepo repository.ExportJobRepository,
	catalogs *catalog.Service,
	opts ...Option,
) *Service {
	service := &Service{
		sources:    sources,
		exportRepo: exportRepo,
		catalogs:   catalogs,
		exportDir:  filepath.Join(os.TempDir(), "datacatalog-exports"),
		jobTimeout: 30 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.jobTimeout <= 0 {
		service.jobTimeout = 30 * time.Minute
	}
	if strings.TrimSpace(service.exportDir) == "" {
		service.exportDir = filepath.Join(os.TempDir(), "datacatalog-exports")
	}
	if service.downloadSigner == nil {
		service.downloadSigner = newDownloadSigner(5 * time.Minute)
	}
	if service.now == nil {
		service.now = time.Now
	}
	return service
}

// CatalogExportRequest describes one queued export.
type CatalogExportRequest struct {
	SourceID   uuid.UUID
	MaxRecords int
}

// QueueCatalogExport validates the source and enqueues an export job. The
// worker starts immediately in the background.
func (s *Service) QueueCatalogExport(ctx context.Context, req CatalogExportRequest) (domain.ExportJob, error) {
	if req.SourceID == uuid.Nil {
		return domain.ExportJob{}, errors.New("source ID is required")
	}
	source, err := s.sources.GetByID(ctx, req.SourceID)
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("validate source: %w", err)
	}
	maxRecords := req.MaxRecords
	if maxRecords < 0 {
		maxRecords = 0
	}
	job := domain.ExportJob{
		SourceID:      source.ID,
		SourceName:    source.Name,
		MaxRecords:    maxRecords,
		RowsRequested: maxRecords,
	}
	persisted, err := s.exportRepo.Create(ctx, job)
	if err != nil {
		return domain.ExportJob{}, err
	}
	s.launchWorker(persisted, s.runCatalogExport)
	return persisted, nil
}

// GetJob returns the metadata for a single export job.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (domain.ExportJob, error) {
	if id == uuid.Nil {
		return domain.ExportJob{}, errors.New("job ID is required")
	}
	return s.exportRepo.GetByID(ctx, id)
}

// ListJobs returns recent export jobs.
func (s *Service) ListJobs(ctx context.Context, limit int) ([]domain.ExportJob, error) {
	return s.exportRepo.List(ctx, limit)
}

// BuildDownloadURL signs a short-lived download URL for completed export files.
func (s *Service) BuildDownloadURL(job domain.ExportJob) (*string, error) {
	if job.Status != domain.ExportJobStatusCompleted {
		return nil, nil
	}
	if job.FilePath == nil || strings.TrimSpace(*job.FilePath) == "" {
		return nil, nil
	}
	if s.downloadSigner == nil {
		return nil, errors.New("download signer not configured")
	}
	token := s.downloadSigner.Sign(job.ID, s.now())
	values := url.Values{}
	values.Set("token", token)
	download := fmt.Sprintf("/exports/files/%s?%s", job.ID.String(), values.Encode())
	return &download, nil
}

// ValidateDownloadToken ensures the token is valid for the given job.
func (s *Service) ValidateDownloadToken(jobID uuid.UUID, token string) error {
	if s.downloadSigner == nil {
		return errors.New("download signer not configured")
	}
	return s.downloadSigner.Verify(jobID, token, s.now())
}

// OpenJobFile opens the completed export file for streaming to the client.
func (s *Service) OpenJobFile(job domain.ExportJob) (*os.File, error) {
	if job.Status != domain.ExportJobStatusCompleted {
		return nil, errors.New("export is not completed")
	}
	if job.FilePath == nil || strings.TrimSpace(*job.FilePath) == "" {
		return nil, errors.New("export file is unavailable")
	}
	file, err := os.Open(*job.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// CancelJob cancels a queued or running export. The job is marked CANCELLED
// first so a pending worker can never start afterwards, then the running
// worker's context, if any, is cancelled.
func (s *Service) CancelJob(ctx context.Context, id uuid.UUID) (domain.ExportJob, error) {
	if id == uuid.Nil {
		return domain.ExportJob{}, errors.New("job ID is required")
	}
	if _, err := s.exportRepo.GetByID(ctx, id); err != nil {
		return domain.ExportJob{}, err
	}
	if err := s.exportRepo.MarkCancelled(ctx, id); err != nil {
		return domain.ExportJob{}, err
	}
	s.CancelWorker(id)
	log.Printf("[export] job %s cancelled by request", id)
	return s.exportRepo.GetByID(ctx, id)
}

// CancelWorker requests cancellation for a running export worker.
func (s *Service) CancelWorker(id uuid.UUID) {
	if cancel, ok := s.workerCancels.LoadAndDelete(id); ok {
		if fn, okCast := cancel.(context.CancelFunc); okCast {
			fn()
		}
	}
}

func (s *Service) launchWorker(job domain.ExportJob, run workerFunc) {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	ctx := baseCtx
	cancelFunc := baseCancel
	if s.jobTimeout > 0 {
		timeoutCtx, timeoutCancel := context.WithTimeout(baseCtx, s.jobTimeout)
		ctx = timeoutCtx
		cancelFunc = func() {
			timeoutCancel()
			baseCancel()
		}
	}
	s.workerCancels.Store(job.ID, cancelFunc)
	go func() {
		defer func() {
			cancelFunc()
			s.workerCancels.Delete(job.ID)
		}()
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				log.Printf("[export] panic while processing job %s: %v", job.ID, rec)
				s.failJob(context.Background(), job.ID, err)
			}
		}()
		if err := run(ctx, job); err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				log.Printf("[export] job %s cancelled", job.ID)
			case errors.Is(err, errJobNotRunnable):
				log.Printf("[export] job %s not runnable, skipping", job.ID)
			default:
				s.failJob(ctx, job.ID, err)
			}
		}
	}()
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, err error) {
	if err == nil {
		return
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	message := truncateError(err)
	if markErr := s.exportRepo.MarkFailed(ctx, jobID, message); markErr != nil {
		log.Printf("[export] failed to mark job %s as failed: %v (original error: %v)", jobID, markErr, err)
		return
	}
	log.Printf("[export] job %s failed: %v", jobID, err)
}

func (s *Service) runCatalogExport(ctx context.Context, job domain.ExportJob) error {
	if err := s.exportRepo.MarkRunning(ctx, job.ID); err != nil {
		if errors.Is(err, repository.ErrExportJobStatusConflict) {
			return errJobNotRunnable
		}
		return fmt.Errorf("mark export job running: %w", err)
	}

	source, err := s.sources.GetByID(ctx, job.SourceID)
	if err != nil {
		return fmt.Errorf("load source %s: %w", job.SourceID, err)
	}
	result, err := s.catalogs.TransformDataSource(ctx, source, catalog.TransformOptions{MaxRecords: job.MaxRecords})
	if err != nil {
		return fmt.Errorf("transform source %s: %w", source.Name, err)
	}

	if err := s.ensureExportDirectory(); err != nil {
		return err
	}
	tempFile, err := os.CreateTemp(s.exportDir, fmt.Sprintf("%s-*.json", job.ID))
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	buffered := bufio.NewWriterSize(tempFile, 1<<20) // 1 MiB buffer for streaming writes
	counter := &countingWriter{writer: buffered}

	encoder := json.NewEncoder(counter)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result.Catalog); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("flush export file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync export file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	finalPath := filepath.Join(s.exportDir, s.finalFileName(job))
	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("promote export file: %w", err)
	}
	cleanup = false
	info, err := os.Stat(finalPath)
	if err != nil {
		return fmt.Errorf("stat export file: %w", err)
	}
	size := info.Size()
	mime := "application/json"
	bytesWritten := counter.count
	if bytesWritten == 0 {
		bytesWritten = size
	}
	job.RowsExported = result.Catalog.Meta.ReturnedRecords
	job.BytesWritten = bytesWritten
	job.FilePath = &finalPath
	job.FileMimeType = &mime
	job.FileByteSize = &size
	if err := s.exportRepo.MarkCompleted(ctx, job); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}
	log.Printf("[export] job %s completed (rows=%d path=%s)", job.ID, job.RowsExported, finalPath)
	return nil
}

func (s *Service) ensureExportDirectory() error {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	return nil
}

func (s *Service) finalFileName(job domain.ExportJob) string {
	return fmt.Sprintf("%s-%s.json", sanitizeFileName(job.SourceName), job.ID)
}

func sanitizeFileName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	result := strings.Trim(sb.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}

type countingWriter struct {
	writer *bufio.Writer
	count  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.count += int64(n)
	return n, err
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	const maxLen = 512
	msg := err.Error()
	if len(msg) > maxLen {
		return msg[:maxLen]
	}
	return msg
}

type downloadSigner struct {
	secret []byte
	ttl    time.Duration
}

func newDownloadSigner(ttl time.Duration) *downloadSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &downloadSigner{secret: []byte(uuid.New().String()), ttl: ttl}
}

func newDownloadSignerWithSecret(secret string, ttl time.Duration) *downloadSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &downloadSigner{secret: []byte(secret), ttl: ttl}
}

func (s *downloadSigner) Sign(jobID uuid.UUID, now time.Time) string {
	expires := now.Add(s.ttl).Unix()
	payload := fmt.Sprintf("%s:%d", jobID.String(), expires)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	raw := fmt.Sprintf("%s:%s", payload, signature)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (s *downloadSigner) Verify(jobID uuid.UUID, token string, now time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("missing download token")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	parts := strings.Split(string(decoded), ":")
	if len(parts) != 3 {
		return errors.New("invalid token format")
	}
	if parts[0] != jobID.String() {
		return errors.New("token does not match export job")
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid token expiration: %w", err)
	}
	if now.Unix() > expires {
		return errors.New("download token expired")
	}
	payload := fmt.Sprintf("%s:%s", parts[0], parts[1])
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	expected := mac.Sum(nil)
	provided, err := hex.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("invalid token signature: %w", err)
	}
	if !hmac.Equal(expected, provided) {
		return errors.New("invalid download token")
	}
	return nil
}
