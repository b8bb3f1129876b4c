package ecs

import (
	"time"

	"github.com/argus-labs/lumen/pkg/telemetry"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// worldConfig holds the values a world can be tuned with through the environment.
type worldConfig struct {
	// MaxEntities bounds the number of entity slots.
	MaxEntities uint32 `env:"LUMEN_MAX_ENTITIES" envDefault:"16777216"`

	// FrameHistory is the number of frame timelines to retain, 0 disables recording.
	FrameHistory int `env:"LUMEN_FRAME_HISTORY" envDefault:"0"`
}

func loadWorldConfig() (worldConfig, error) {
	cfg := worldConfig{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse world config")
	}
	return cfg, nil
}

func (cfg *worldConfig) applyToOptions(opt *worldOptions) {
	opt.maxEntities = cfg.MaxEntities
	opt.frameHistory = cfg.FrameHistory
}

type worldOptions struct {
	id           uuid.UUID
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	maxEntities  uint32
	frameHistory int
	components   []Type
}

func newDefaultOptions() worldOptions {
	return worldOptions{
		id:           uuid.New(),
		logger:       zerolog.Nop(),
		tracer:       noop.NewTracerProvider().Tracer("lumen"),
		now:          time.Now,
		maxEntities:  MaxEntities,
		frameHistory: 0,
	}
}

func (opt *worldOptions) validate() error {
	if opt.maxEntities == 0 || opt.maxEntities > MaxEntities {
		return eris.Wrapf(ErrConfiguration, "max entities must be between 1 and %d, got %d",
			MaxEntities, opt.maxEntities)
	}
	if opt.frameHistory < 0 {
		return eris.Wrapf(ErrConfiguration, "frame history cannot be negative, got %d", opt.frameHistory)
	}
	if opt.id == uuid.Nil {
		return eris.Wrap(ErrConfiguration, "world id cannot be nil")
	}
	if opt.now == nil {
		return eris.Wrap(ErrConfiguration, "time source cannot be nil")
	}
	return nil
}

// WorldOption configures a World. Options take precedence over LUMEN_* environment variables.
type WorldOption func(*worldOptions)

// WithTelemetry uses the logger and tracer of tel, and takes its instance id as the world id.
func WithTelemetry(tel *telemetry.Telemetry) WorldOption {
	return func(opt *worldOptions) {
		opt.logger = tel.GetLogger("world")
		opt.tracer = tel.Tracer
		if tel.InstanceID != uuid.Nil {
			opt.id = tel.InstanceID
		}
	}
}

// WithID sets the world id reported in logs and introspection.
func WithID(id uuid.UUID) WorldOption {
	return func(opt *worldOptions) { opt.id = id }
}

// WithLogger sets the logger of the world.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(opt *worldOptions) { opt.logger = logger }
}

// WithTracer sets the tracer frames and system hooks are recorded with.
func WithTracer(tracer trace.Tracer) WorldOption {
	return func(opt *worldOptions) { opt.tracer = tracer }
}

// WithTimeSource replaces time.Now as the frame clock source.
func WithTimeSource(now func() time.Time) WorldOption {
	return func(opt *worldOptions) { opt.now = now }
}

// WithMaxEntities bounds the number of entity slots.
func WithMaxEntities(n uint32) WorldOption {
	return func(opt *worldOptions) { opt.maxEntities = n }
}

// WithFrameHistory records the timeline of the last n frames, readable through FrameHistory.
func WithFrameHistory(n int) WorldOption {
	return func(opt *worldOptions) { opt.frameHistory = n }
}

// WithComponents registers component types up front so their TypeIDs don't depend on the order
// in which systems are declared or components first attached.
func WithComponents(types ...Type) WorldOption {
	return func(opt *worldOptions) { opt.components = append(opt.components, types...) }
}
