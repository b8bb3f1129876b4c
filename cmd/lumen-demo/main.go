// Command lumen-demo runs a headless scene. A spinning cube is updated at a fixed frame rate and
// its draw commands are submitted to a logging device until the process is interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/argus-labs/lumen/pkg/ecs"
	"github.com/argus-labs/lumen/pkg/render"
	"github.com/argus-labs/lumen/pkg/scene"
	"github.com/argus-labs/lumen/pkg/telemetry"
	"github.com/caarlos0/env/v11"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

type config struct {
	// FrameRate is the number of frames per second.
	FrameRate int `env:"LUMEN_FRAME_RATE" envDefault:"60"`

	// Frames stops the demo after this many frames, 0 runs until interrupted.
	Frames uint64 `env:"LUMEN_FRAMES" envDefault:"0"`
}

func main() {
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse demo config")
	}
	if cfg.FrameRate <= 0 {
		log.Fatal().Int("frame_rate", cfg.FrameRate).Msg("frame rate must be positive")
	}

	tel, err := telemetry.New(telemetry.Options{ServiceName: "lumen-demo"})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup telemetry")
	}

	code := 0
	if err := run(cfg, &tel); err != nil {
		tel.Logger.Error().Err(err).Msg("demo failed")
		code = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := tel.Shutdown(ctx); err != nil {
		tel.Logger.Error().Err(err).Msg("telemetry shutdown error")
	}
	cancel()
	os.Exit(code)
}

func run(cfg config, tel *telemetry.Telemetry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dev := render.NewLogDevice(tel.GetLogger("device"))
	world, err := ecs.NewWorld([]ecs.SystemDecl{
		scene.TransformSystemDecl(),
		scene.BoundsSystemDecl(),
		scene.CameraSystemDecl(),
		scene.RenderSystemDecl(dev, scene.RenderConfig{
			ClearColor: mgl32.Vec4{0.1, 0.1, 0.1, 1},
			Width:      1280,
			Height:     720,
		}),
	}, ecs.WithTelemetry(tel))
	if err != nil {
		return eris.Wrap(err, "failed to create world")
	}

	rs, err := ecs.SystemOf[*scene.RenderSystem](world, "Render")
	if err != nil {
		return err
	}
	defer func() {
		if err := rs.Close(); err != nil {
			tel.Logger.Error().Err(err).Msg("failed to release render commands")
		}
	}()

	cube, err := populate(world)
	if err != nil {
		return err
	}

	if data, err := world.Introspect().JSON(); err == nil {
		tel.Logger.Debug().RawJSON("world", data).Msg("world ready")
	}

	logger := tel.GetLogger("loop")
	logger.Info().Int("frame_rate", cfg.FrameRate).Msg("starting frame loop")

	ticker := time.NewTicker(time.Second / time.Duration(cfg.FrameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Uint64("frame", world.Clock().Frame()).Msg("stopping frame loop")
			return nil
		case <-ticker.C:
		}

		spin(cube, float32(world.Clock().DeltaSeconds()))
		dev.Reset()
		if err := world.Update(ctx); err != nil {
			return eris.Wrap(err, "frame failed")
		}
		logger.Debug().Uint64("frame", world.Clock().Frame()).Int("draws", dev.Draws).Msg("frame submitted")

		if cfg.Frames != 0 && world.Clock().Frame() >= cfg.Frames {
			logger.Info().Uint64("frame", world.Clock().Frame()).Msg("frame limit reached")
			return nil
		}
	}
}

// populate adds a camera looking at a cube placed at the origin and returns the cube transform.
func populate(w *ecs.World) (*scene.Transform3D, error) {
	camID, err := w.CreateEntity(scene.TransformType, scene.CameraType)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create camera")
	}
	camTransform, err := ecs.Get[scene.Transform3D](w, camID)
	if err != nil {
		return nil, err
	}
	camTransform.Translation = mgl32.Vec3{0, 2, 6}
	camTransform.Orientation = mgl32.QuatLookAtV(camTransform.Translation, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})

	cam, err := ecs.Get[scene.PerspectiveCamera](w, camID)
	if err != nil {
		return nil, err
	}
	cam.SetAspect(1280.0 / 720.0)
	cam.SetDepthRange(0.1, 100)

	cubeID, err := w.CreateEntity(scene.TransformType, scene.BoundsType, scene.RenderableType)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create cube")
	}
	bounds, err := ecs.Get[scene.Bounds3D](w, cubeID)
	if err != nil {
		return nil, err
	}
	bounds.Local = scene.Sphere{Radius: 0.87}

	r, err := ecs.Get[scene.Renderable](w, cubeID)
	if err != nil {
		return nil, err
	}
	r.Draw = &render.DrawElementsCommand{
		Vertices: render.VertexBuffer{Handle: 1, Count: 8},
		Indices:  render.IndexBuffer{Handle: 2, Count: 36},
		Topology: render.Triangles,
	}

	return ecs.Get[scene.Transform3D](w, cubeID)
}

func spin(t *scene.Transform3D, dt float32) {
	const radiansPerSecond = 1
	t.Orientation = t.Orientation.Mul(mgl32.QuatRotate(radiansPerSecond*dt, mgl32.Vec3{0, 1, 0})).Normalize()
	t.Dirty = true
}
