package collab

import (
	"context"
	"log"
	"sync"
	"time"

	"docsync/backend/internal/docs"
)

// Job is one pending write of a document's latest content to the backend.
type Job struct {
	DocID   string
	Content string // normalized by the gateway
}

// SnapshotRecorder persists the content that was last successfully written
// to the backend. Best effort; a nil recorder disables it.
type SnapshotRecorder interface {
	SaveDocumentSnapshot(ctx context.Context, docID string, content string) error
}

// Worker serializes backend writes per document. At most one write per docID
// is in flight at any instant; a job enqueued while a write runs replaces any
// queued-but-unstarted job for that document, so only the latest content is
// written next. Different documents proceed fully concurrently.
//
// A failed write is logged and dropped — the next edit's job retries with
// fresher content.
type Worker struct {
	adapter   docs.Adapter
	snapshots SnapshotRecorder
	timeout   time.Duration

	mu   sync.Mutex
	docs map[string]*docWrite
	wg   sync.WaitGroup
}

type docWrite struct {
	pending *Job // superseded by each newer enqueue until the writer picks it up
}

func NewWorker(adapter docs.Adapter, snapshots SnapshotRecorder, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Worker{
		adapter:   adapter,
		snapshots: snapshots,
		timeout:   timeout,
		docs:      make(map[string]*docWrite),
	}
}

// Enqueue schedules job's content to be written. Never blocks.
func (w *Worker) Enqueue(job Job) {
	w.mu.Lock()
	if dw, ok := w.docs[job.DocID]; ok {
		// A write is in flight: coalesce to latest.
		dw.pending = &job
		w.mu.Unlock()
		return
	}
	w.docs[job.DocID] = &docWrite{}
	w.wg.Add(1)
	w.mu.Unlock()
	go w.run(job)
}

func (w *Worker) run(job Job) {
	defer w.wg.Done()
	for {
		w.write(job)
		w.mu.Lock()
		dw := w.docs[job.DocID]
		if dw.pending == nil {
			// Idle: drop the entry so many short-lived documents do not
			// grow the map.
			delete(w.docs, job.DocID)
			w.mu.Unlock()
			return
		}
		job = *dw.pending
		dw.pending = nil
		w.mu.Unlock()
	}
}

// write replaces the backend document's content with job.Content:
// read the end offset, clear the existing range, insert the new text.
// The backend offers no transaction across these calls; a failed clear
// aborts the job so stale content is never mixed with a partial insert.
func (w *Worker) write(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	doc, err := w.adapter.Get(ctx, job.DocID)
	if err != nil {
		log.Printf("sync: get doc %s failed: %v", job.DocID, err)
		return
	}

	// The last writable offset sits one before the trailing section break.
	lastIndex := doc.EndIndex() - 1
	if lastIndex < 1 {
		lastIndex = 1
	}
	if lastIndex > 1 {
		if err := w.adapter.DeleteRange(ctx, job.DocID, 1, lastIndex); err != nil {
			log.Printf("sync: clear doc %s failed, aborting write: %v", job.DocID, err)
			return
		}
	}

	if err := w.adapter.InsertText(ctx, job.DocID, 1, job.Content); err != nil {
		log.Printf("sync: insert into doc %s failed: %v", job.DocID, err)
		return
	}

	if w.snapshots != nil {
		if err := w.snapshots.SaveDocumentSnapshot(ctx, job.DocID, job.Content); err != nil {
			log.Printf("sync: record snapshot for doc %s failed: %v", job.DocID, err)
		}
	}
}

// Wait blocks until every scheduled write chain has drained. Used on
// shutdown so an in-flight write runs to completion or failure.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// ActiveDocs reports how many documents currently have a write in flight or
// queued.
func (w *Worker) ActiveDocs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.docs)
}
