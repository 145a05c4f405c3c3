package gateway

import (
	"context"
	"fmt"

	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/storage"
)

// WriteState is a step of a multi-step write that uploads a file before
// writing the document referencing it.
type WriteState int

const (
	StatePending WriteState = iota
	StateUploaded
	StateCommitted
	StateCleanupOnFailure
	StateCleanedUp
	StateOrphaned
)

func (s WriteState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateUploaded:
		return "uploaded"
	case StateCommitted:
		return "committed"
	case StateCleanupOnFailure:
		return "cleanup_on_failure"
	case StateCleanedUp:
		return "cleaned_up"
	case StateOrphaned:
		return "orphaned"
	default:
		return fmt.Sprintf("WriteState(%d)", int(s))
	}
}

var writeTransitions = map[WriteState][]WriteState{
	StatePending:          {StateUploaded},
	StateUploaded:         {StateCommitted, StateCleanupOnFailure},
	StateCleanupOnFailure: {StateCleanedUp, StateOrphaned},
}

// fileWrite tracks one upload-then-write operation. A failure after the
// upload triggers a single best-effort delete of the uploaded file; a failed
// delete leaves the file orphaned and is only reported.
type fileWrite struct {
	g       *Gateway
	op      string
	state   WriteState
	history []WriteState
	file    *models.StoredFile
	url     string
}

func (g *Gateway) beginFileWrite(op string) *fileWrite {
	return &fileWrite{g: g, op: op, state: StatePending, history: []WriteState{StatePending}}
}

func (w *fileWrite) transition(to WriteState) {
	for _, allowed := range writeTransitions[w.state] {
		if allowed == to {
			w.state = to
			w.history = append(w.history, to)
			return
		}
	}
	panic(fmt.Sprintf("gateway: invalid write transition %s -> %s", w.state, to))
}

// upload stores the file and resolves its preview URL.
func (w *fileWrite) upload(ctx context.Context, u storage.Upload) error {
	file, err := w.g.uploadFile(ctx, u)
	if err != nil {
		return err
	}
	w.file = file
	w.transition(StateUploaded)

	url, err := w.g.filePreview(file.ID)
	if err != nil {
		return w.fail(ctx, err)
	}
	w.url = url
	return nil
}

// commit records that the document write referencing the file succeeded.
func (w *fileWrite) commit() {
	w.transition(StateCommitted)
}

// fail runs the compensation for an uploaded file and returns cause.
func (w *fileWrite) fail(ctx context.Context, cause error) error {
	if w.state != StateUploaded {
		return cause
	}
	w.transition(StateCleanupOnFailure)

	fields := map[string]interface{}{"file_id": w.file.ID, "cause": cause.Error()}
	if err := w.g.p.Files.DeleteFile(ctx, w.file.ID); err != nil {
		w.transition(StateOrphaned)
		observability.CompensationOutcomes.WithLabelValues(w.op, "orphaned").Inc()
		w.g.log.LogError(ctx, w.op+".compensate", models.CodeOf(err), err, fields)
		return cause
	}
	w.transition(StateCleanedUp)
	observability.CompensationOutcomes.WithLabelValues(w.op, "cleaned").Inc()
	w.g.log.LogWarn(ctx, w.op+".compensate", "deleted uploaded file after failed write", fields)
	return cause
}

// releasePrevious deletes the file a committed write replaced. Failure leaves
// the old file orphaned and does not fail the operation.
func (g *Gateway) releasePrevious(ctx context.Context, op, fileID string) {
	if fileID == "" {
		return
	}
	if err := g.p.Files.DeleteFile(ctx, fileID); err != nil {
		observability.CompensationOutcomes.WithLabelValues(op, "stale_orphaned").Inc()
		g.log.LogError(ctx, op+".release_previous", models.CodeOf(err), err, map[string]interface{}{"file_id": fileID})
	}
}
