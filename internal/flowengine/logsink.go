package flowengine

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jeamxn/codeblock-bff/internal/models"
)

// LogSink is the asynchronous execution-log writer. It must never block
// the response path: Enqueue is non-blocking, backed by a bounded
// channel with drop-oldest-on-overflow semantics, drained by a single
// goroutine started at construction. Test-mode executions are never
// enqueued.
type LogSink struct {
	collection *mongo.Collection
	queue      chan *models.ExecutionLog
	dropped    atomic.Int64
}

// NewLogSink builds a LogSink with the given bounded capacity and starts
// its drain loop.
func NewLogSink(collection *mongo.Collection, capacity int) *LogSink {
	s := &LogSink{
		collection: collection,
		queue:      make(chan *models.ExecutionLog, capacity),
	}
	go s.drain()
	return s
}

// Enqueue hands off a deep copy of record for durable persistence. It
// never blocks: on a full queue, the oldest queued record is dropped to
// make room and the drop counter is incremented.
func (s *LogSink) Enqueue(record *models.ExecutionLog) {
	copied, err := deepCopyLog(record)
	if err != nil {
		log.Printf("⚠️ [LOGSINK] failed to deep-copy execution log for flow %s: %v", record.FlowID, err)
		return
	}

	select {
	case s.queue <- copied:
		return
	default:
	}

	select {
	case <-s.queue:
		s.dropped.Add(1)
		log.Printf("⚠️ [LOGSINK] queue full, dropped oldest execution log (dropped so far: %d)", s.dropped.Load())
	default:
	}

	select {
	case s.queue <- copied:
	default:
		// Another writer raced us and refilled the queue between our drop
		// and this send; drop the incoming record instead of blocking.
		s.dropped.Add(1)
		log.Printf("⚠️ [LOGSINK] queue full on retry, dropped incoming execution log (dropped so far: %d)", s.dropped.Load())
	}
}

// DroppedCount returns how many execution logs have been dropped due to
// queue overflow since process start.
func (s *LogSink) DroppedCount() int64 {
	return s.dropped.Load()
}

func (s *LogSink) drain() {
	for record := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := s.collection.InsertOne(ctx, record)
		cancel()
		if err != nil {
			log.Printf("❌ [LOGSINK] failed to persist execution log for flow %s: %v", record.FlowID, err)
		}
	}
}

// deepCopyLog round-trips record through JSON, following the reference
// backend's established use of encoding/json as its general-purpose
// deep-copy tool, so the log sink never shares memory with the
// execution context that produced it.
func deepCopyLog(record *models.ExecutionLog) (*models.ExecutionLog, error) {
	encoded, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var copied models.ExecutionLog
	if err := json.Unmarshal(encoded, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}
