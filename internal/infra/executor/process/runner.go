// Package process runs one chunk of an external recon tool as a child
// process and turns whatever artifact it leaves behind into a payload.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
)

const (
	defaultWaitDelay   = 2 * time.Second
	defaultOutputLimit = 16 * 1024
	archiveTimeout     = 30 * time.Second
)

// Runner implements domain.Runner. It never returns an error: a chunk that
// cannot run, times out or leaves garbage behind contributes an empty
// payload and is logged with its chunk id.
type Runner struct {
	// Artifacts receives each artifact after parsing. Nil removes it.
	Artifacts domain.ArtifactStore
	// KeepFiles leaves every file the tool wrote in the work dir.
	KeepFiles bool
	// WaitDelay bounds the wait for I/O after the process group is killed.
	WaitDelay time.Duration
	// OutputLimit caps how much stdout/stderr is kept for diagnostics.
	OutputLimit int
}

func NewRunner(artifacts domain.ArtifactStore, keepFiles bool) *Runner {
	return &Runner{Artifacts: artifacts, KeepFiles: keepFiles}
}

func (r *Runner) Run(ctx context.Context, task domain.ChunkTask) (res domain.ChunkResult) {
	log := logger.C(ctx).With().
		Str("chunk_id", task.ChunkID).
		Str("tool", task.Tool).
		Str("technique", task.Technique).
		Logger()

	res = domain.ChunkResult{
		ChunkID:   task.ChunkID,
		Tool:      task.Tool,
		Technique: task.Technique,
		Outcome:   domain.OutcomeEmpty,
	}
	defer func() {
		if p := recover(); p != nil {
			res.Outcome = domain.OutcomeFailed
			res.Payload = domain.Payload{}
			res.Message = fmt.Sprintf("panic: %v", p)
			log.Error().Str("panic", fmt.Sprint(p)).Msg("chunk panicked")
		}
	}()

	if err := os.MkdirAll(filepath.Dir(task.ArtifactPath), 0o750); err != nil {
		res.Outcome = domain.OutcomeFailed
		res.Message = err.Error()
		log.Error().Err(err).Msg("create work dir")
		return res
	}
	defer r.cleanup(task)

	start := time.Now()
	run := r.exec(ctx, task)
	duration := time.Since(start)

	payload, parseErr := domain.ParseArtifact(task.ArtifactPath, task.Kind)
	r.archive(ctx, task)

	switch {
	case parseErr != nil:
		res.Outcome = domain.OutcomeFailed
		res.Message = fmt.Sprintf("parse artifact: %v", parseErr)
	case payload.Len() > 0:
		// partial output from a killed tool still counts
		res.Outcome = domain.OutcomeOK
		res.Payload = payload
	case run.timedOut:
		res.Outcome = domain.OutcomeTimedOut
		res.Message = fmt.Sprintf("no output within %s", task.Timeout)
	case run.err != nil:
		res.Outcome = domain.OutcomeFailed
		res.Message = run.err.Error()
	}

	ev := log.Info()
	if res.Outcome == domain.OutcomeFailed || res.Outcome == domain.OutcomeTimedOut {
		ev = log.Warn().Str("stderr", run.stderr).Str("stdout", run.stdout)
	}
	ev.Str("outcome", string(res.Outcome)).
		Int("values", payload.Len()).
		Dur("duration", duration).
		Str("reason", res.Message).
		Msg("chunk finished")
	return res
}

type execResult struct {
	err      error
	timedOut bool
	stdout   string
	stderr   string
}

// exec runs the tool under the chunk deadline. On expiry the whole process
// group is killed and the wait is bounded by WaitDelay.
func (r *Runner) exec(ctx context.Context, task domain.ChunkTask) execResult {
	cctx, cancel := context.WithTimeout(ctx, task.Timeout)
	defer cancel()

	limit := r.OutputLimit
	if limit <= 0 {
		limit = defaultOutputLimit
	}
	outBuf := &capBuffer{limit: limit}
	errBuf := &capBuffer{limit: limit}

	cmd := exec.CommandContext(cctx, task.Binary, task.Args...)
	cmd.Stdout = outBuf
	cmd.Stderr = errBuf
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	setProcessGroup(cmd)

	err := cmd.Run()
	// Reap daemonized leftovers. The pgid stays reserved while any member
	// lives; an empty group's pid could be reused meanwhile, a risk accepted.
	killProcessGroup(cmd)

	res := execResult{
		err:      err,
		timedOut: cctx.Err() != nil,
		stdout:   outBuf.String(),
		stderr:   errBuf.String(),
	}
	if res.timedOut && errors.Is(err, exec.ErrWaitDelay) {
		res.err = nil
	}
	return res
}

func (r *Runner) archive(ctx context.Context, task domain.ChunkTask) {
	if _, err := os.Stat(task.ArtifactPath); err != nil {
		return
	}
	if r.Artifacts == nil {
		if !r.KeepFiles {
			_ = os.Remove(task.ArtifactPath)
		}
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	key := fmt.Sprintf("%s/%s", task.Tool, filepath.Base(task.ArtifactPath))
	loc, err := r.Artifacts.Archive(actx, task.ArtifactPath, key)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("chunk_id", task.ChunkID).Msg("archive artifact")
		return
	}
	if loc != "" {
		logger.C(ctx).Debug().Str("chunk_id", task.ChunkID).Str("location", loc).Msg("artifact archived")
	}
}

// cleanup removes side files the tool wrote next to its artifact.
func (r *Runner) cleanup(task domain.ChunkTask) {
	if r.KeepFiles || task.OutputBase == "" {
		return
	}
	matches, _ := filepath.Glob(task.OutputBase + "*")
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

// capBuffer keeps the first limit bytes written and discards the rest.
type capBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *capBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - len(b.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		b.buf = append(b.buf, p[:room]...)
	}
	return len(p), nil
}

func (b *capBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
