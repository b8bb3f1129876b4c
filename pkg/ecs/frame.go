package ecs

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FrameSample is the recorded timeline of one frame.
type FrameSample struct {
	Frame    uint64        `json:"frame"`
	Start    time.Time     `json:"start"`
	Delta    time.Duration `json:"delta"`
	Duration time.Duration `json:"duration"`
	Spans    []SystemSpan  `json:"spans"`
	Err      string        `json:"error,omitempty"`
}

// SystemSpan is the time one system spent in one hook.
type SystemSpan struct {
	System   string        `json:"system"`
	Hook     SystemHook    `json:"hook"`
	Duration time.Duration `json:"duration"`
}

// Update runs one frame. It advances the clock, calls every system's Update in registration
// order, then every PostUpdate in the same order, then applies the structural changes queued by
// the hooks. The first hook error aborts the frame, its queued changes are discarded, and the
// error is returned wrapped with the system name.
func (w *World) Update(ctx context.Context) error {
	if w.inFrame {
		return eris.Wrapf(ErrStage, "world is already running frame %d", w.clock.Frame())
	}
	if w.stage == StageCreated {
		w.stage = StageRunning
		w.logger.Info().Int("systems", len(w.systems)).Msg("world running")
	}

	start := w.clock.tick()
	frame := w.clock.Frame()

	ctx, span := w.tracer.Start(ctx, "world.update", trace.WithAttributes(
		attribute.Int64("frame", int64(frame)), //nolint:gosec // frame count won't overflow
	))
	defer span.End()

	var sample *FrameSample
	if w.history != nil {
		sample = &FrameSample{
			Frame: frame,
			Start: start,
			Delta: w.clock.Delta(),
			Spans: make([]SystemSpan, 0, 2*len(w.systems)),
		}
	}

	err := w.runFrame(ctx, sample)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if sample != nil {
		sample.Duration = w.clock.now().Sub(start)
		if err != nil {
			sample.Err = err.Error()
		}
		w.history.Advance(*sample)
	}
	return err
}

func (w *World) runFrame(ctx context.Context, sample *FrameSample) error {
	w.inFrame = true

	for _, hook := range [...]SystemHook{Update, PostUpdate} {
		for _, s := range w.systems {
			if hook == PostUpdate && s.post == nil {
				continue
			}
			if err := w.runSystem(ctx, s, hook, sample); err != nil {
				w.discard()
				return err
			}
		}
	}

	if err := w.flush(); err != nil {
		return eris.Wrap(err, "failed to apply structural changes")
	}
	return nil
}

func (w *World) runSystem(ctx context.Context, s *systemEntry, hook SystemHook, sample *FrameSample) error {
	ctx, span := w.tracer.Start(ctx, "system."+s.name, trace.WithAttributes(
		attribute.String("hook", hook.String()),
		attribute.Int("rows", s.rows.Len()),
	))
	defer span.End()

	start := w.clock.now()
	err := s.run(ctx, hook)
	if sample != nil {
		sample.Spans = append(sample.Spans, SystemSpan{System: s.name, Hook: hook, Duration: w.clock.now().Sub(start)})
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error().Err(err).Str("hook", hook.String()).Uint64("frame", w.clock.Frame()).Msg("system failed")
		return eris.Wrapf(err, "system %s failed in %s", s.name, hook)
	}
	return nil
}

// FrameHistory returns the recorded frames, oldest first. It is empty unless the world was built
// with WithFrameHistory or LUMEN_FRAME_HISTORY.
func (w *World) FrameHistory() []FrameSample {
	if w.history == nil {
		return nil
	}
	return w.history.SnapshotInto(nil)
}
