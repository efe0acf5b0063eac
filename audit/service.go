// Package audit records mutating requests to the audit_logs table. Writes
// are batched off the request path.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/dreamrealm/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Entry holds one audit event to be logged.
type Entry struct {
	TraceID    string
	AccountID  *int64
	Action     string
	Request    interface{}
	Response   interface{}
	Error      string
	ErrorKind  string
	IP         string
	DurationMs int
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	db       *gorm.DB
	ch       chan *model.AuditLog
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.AuditLog, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

func encode(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return datatypes.JSON(raw)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// Log enqueues an entry. Entries are dropped, with a warning, when the
// queue is full or the service has stopped.
func (svc *Service) Log(entry Entry) {
	record := &model.AuditLog{
		TraceID:    entry.TraceID,
		AccountID:  entry.AccountID,
		Action:     entry.Action,
		Request:    encode(entry.Request),
		Response:   encode(entry.Response),
		Error:      entry.Error,
		ErrorKind:  entry.ErrorKind,
		IP:         entry.IP,
		DurationMs: entry.DurationMs,
	}
	select {
	case <-svc.stopCh:
		svc.logger.Warn("audit stopped, dropping entry", zap.String("action", entry.Action))
		return
	default:
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action))
	}
}

// Stop flushes queued entries and shuts down the worker. It blocks until
// the worker has finished or ctx is done.
func (svc *Service) Stop(ctx context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	done := make(chan struct{})
	go func() {
		svc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		svc.logger.Warn("audit flush abandoned", zap.Error(ctx.Err()))
	}
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.CreateInBatches(&batch, batchSize).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
