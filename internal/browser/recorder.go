package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"mdac/internal/engine"
	"mdac/internal/model"
)

// Recorder captures per-job diagnostics from a live session: a network
// request log, a JSON step trace, screencast frames, and on-demand
// screenshots. All captures are best effort; a recording failure never
// fails the job.
type Recorder struct {
	sess   *Session
	opts   engine.RecordOptions
	dir    string
	logger *slog.Logger
	cancel context.CancelFunc

	mu        sync.Mutex
	netLines  []string
	trace     []engine.TraceEvent
	shots     []string
	frames    int
	finalized bool
	final     model.ArtifactSet
	ferr      error
}

func newRecorder(s *Session, opts engine.RecordOptions, dir string) (*Recorder, error) {
	r := &Recorder{sess: s, opts: opts, dir: dir, logger: s.logger}
	if dir == "" {
		return r, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	evCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	evPage := s.page.Context(evCtx)

	if opts.Network {
		go evPage.EachEvent(
			func(e *proto.NetworkRequestWillBeSent) {
				r.netLine(fmt.Sprintf("REQ %s %s", e.Request.Method, e.Request.URL))
			},
			func(e *proto.NetworkResponseReceived) {
				r.netLine(fmt.Sprintf("RES %d %s", e.Response.Status, e.Response.URL))
			},
			func(e *proto.NetworkLoadingFailed) {
				r.netLine(fmt.Sprintf("ERR %s %s", e.ErrorText, e.RequestID))
			},
		)()
	}

	if opts.Video {
		if err := os.MkdirAll(r.framesDir(), 0o755); err != nil {
			cancel()
			return nil, fmt.Errorf("create frames dir: %w", err)
		}
		quality := 60
		everyNth := 2
		err := proto.PageStartScreencast{
			Format:        proto.PageStartScreencastFormatJpeg,
			Quality:       &quality,
			EveryNthFrame: &everyNth,
		}.Call(s.page)
		if err != nil {
			r.logger.Warn("start screencast failed", "session", s.id, "error", err)
		} else {
			go evPage.EachEvent(func(e *proto.PageScreencastFrame) {
				_ = proto.PageScreencastFrameAck{SessionID: e.SessionID}.Call(evPage)
				r.writeFrame(e.Data)
			})()
		}
	}

	return r, nil
}

func (r *Recorder) framesDir() string { return filepath.Join(r.dir, "frames") }

func (r *Recorder) netLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.netLines = append(r.netLines, time.Now().UTC().Format(time.RFC3339Nano)+" "+line)
}

func (r *Recorder) writeFrame(data []byte) {
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return
	}
	r.frames++
	n := r.frames
	r.mu.Unlock()

	path := filepath.Join(r.framesDir(), fmt.Sprintf("%06d.jpg", n))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.logger.Warn("write screencast frame failed", "error", err)
	}
}

// TraceStep records one step attempt in the execution trace.
func (r *Recorder) TraceStep(ev engine.TraceEvent) {
	if !r.opts.Trace {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.trace = append(r.trace, ev)
}

// Screenshot captures the full page under the given name. Screenshots
// accompany the video capture and land in the same artifact tree.
func (r *Recorder) Screenshot(name string) {
	if r.dir == "" || !r.opts.Video {
		return
	}
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	data, err := r.sess.page.Screenshot(true, nil)
	if err != nil {
		r.logger.Warn("screenshot failed", "name", name, "error", err)
		return
	}
	path := filepath.Join(r.dir, name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.logger.Warn("write screenshot failed", "name", name, "error", err)
		return
	}

	r.mu.Lock()
	r.shots = append(r.shots, path)
	r.mu.Unlock()
}

// Finalize stops event capture and flushes the buffered artifacts to
// disk. The first call does the work; later calls return the cached
// result, so the coordinator's deferred finalize and the session's
// close-time backstop cannot double-write.
func (r *Recorder) Finalize() (model.ArtifactSet, error) {
	r.mu.Lock()
	if r.finalized {
		defer r.mu.Unlock()
		return r.final, r.ferr
	}
	r.finalized = true
	netLines := r.netLines
	trace := r.trace
	shots := r.shots
	frames := r.frames
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	if r.opts.Video && r.dir != "" {
		_ = proto.PageStopScreencast{}.Call(r.sess.page)
	}
	if r.dir == "" {
		return model.ArtifactSet{}, nil
	}

	var arts model.ArtifactSet
	var firstErr error

	if r.opts.Network {
		path := filepath.Join(r.dir, "network.log")
		body := ""
		for _, l := range netLines {
			body += l + "\n"
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			firstErr = fmt.Errorf("write network log: %w", err)
		} else {
			arts.NetworkLog = path
		}
	}

	if r.opts.Trace {
		path := filepath.Join(r.dir, "trace.json")
		data, err := json.MarshalIndent(trace, "", "  ")
		if err == nil {
			err = os.WriteFile(path, data, 0o644)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("write trace: %w", err)
			}
		} else {
			arts.Trace = path
		}
	}

	if r.opts.Video && frames > 0 {
		arts.Video = r.framesDir()
	}
	arts.Screenshots = shots

	r.mu.Lock()
	r.final = arts
	r.ferr = firstErr
	r.mu.Unlock()
	return arts, firstErr
}
