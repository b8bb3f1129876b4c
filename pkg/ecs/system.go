package ecs

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// System contains per-frame logic over the entities whose components cover its use list.
type System interface {
	// Update runs once per frame, before any system's PostUpdate.
	Update(ctx context.Context) error
}

// PostUpdater is implemented by systems that need a second pass after every system has updated.
type PostUpdater interface {
	PostUpdate(ctx context.Context) error
}

// SystemDecl declares a system: its name, the component types it reads, and how to build it.
// Declarations are registered once at world construction and their order is the execution order.
type SystemDecl struct {
	Name string
	Use  []Type
	New  func(w *World) (System, error)
}

// SystemHook identifies the phase of a frame a system is running in.
type SystemHook uint8

const (
	// Update is the main phase.
	Update SystemHook = 0
	// PostUpdate runs after every system's Update.
	PostUpdate SystemHook = 1
)

func (h SystemHook) String() string {
	switch h {
	case Update:
		return "update"
	case PostUpdate:
		return "post_update"
	default:
		return "unknown"
	}
}

// MarshalText encodes the hook by name.
func (h SystemHook) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// systemEntry is a registered, instantiated system.
type systemEntry struct {
	name   string
	use    []Type
	rows   *Rows
	system System
	post   PostUpdater // nil when the system has no post-update hook
	logger zerolog.Logger
}

func (s *systemEntry) run(ctx context.Context, hook SystemHook) error {
	switch hook {
	case Update:
		return s.system.Update(ctx)
	case PostUpdate:
		if s.post == nil {
			return nil
		}
		return s.post.PostUpdate(ctx)
	default:
		return eris.Errorf("unknown system hook %d", hook)
	}
}

// validateDecl checks a declaration before anything is instantiated.
func validateDecl(decl SystemDecl, seen map[string]struct{}) error {
	if decl.Name == "" {
		return eris.Wrap(ErrMissingSystemMetadata, "system name cannot be empty")
	}
	if decl.New == nil {
		return eris.Wrapf(ErrMissingSystemMetadata, "system %s has no constructor", decl.Name)
	}
	if _, exists := seen[decl.Name]; exists {
		return eris.Wrapf(ErrConfiguration, "system %s is registered twice", decl.Name)
	}
	if len(decl.Use) == 0 {
		return eris.Wrapf(ErrConfiguration, "system %s has an empty use list", decl.Name)
	}

	names := make(map[string]struct{}, len(decl.Use))
	for _, t := range decl.Use {
		if !t.valid() {
			return eris.Wrapf(ErrMissingSystemMetadata, "system %s uses an undeclared component type", decl.Name)
		}
		if _, dup := names[t.name]; dup {
			return eris.Wrapf(ErrConfiguration, "system %s uses component %s twice", decl.Name, t.name)
		}
		names[t.name] = struct{}{}
	}
	return nil
}
