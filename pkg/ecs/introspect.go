package ecs

import (
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
)

// Introspection is a point-in-time description of a world.
type Introspection struct {
	WorldID    string          `json:"world_id"`
	Stage      Stage           `json:"stage"`
	Frame      uint64          `json:"frame"`
	Entities   int             `json:"entities"`
	Systems    []SystemInfo    `json:"systems"`
	Components []ComponentInfo `json:"components"`
}

type SystemInfo struct {
	Name       string   `json:"name"`
	Use        []string `json:"use"`
	Rows       int      `json:"rows"`
	PostUpdate bool     `json:"post_update"`
}

type ComponentInfo struct {
	ID     TypeID             `json:"id"`
	Name   string             `json:"name"`
	Live   int                `json:"live"`
	Schema *jsonschema.Schema `json:"schema,omitempty"`
}

// Introspect describes the systems in execution order and the registered component types in
// TypeID order, with a JSON schema per component type.
func (w *World) Introspect() Introspection {
	reflector := &jsonschema.Reflector{
		Anonymous:      true, // Don't add $id based on package path
		ExpandedStruct: true, // Inline the struct fields directly
	}

	out := Introspection{
		WorldID:    w.id.String(),
		Stage:      w.stage,
		Frame:      w.clock.Frame(),
		Entities:   w.entities.live,
		Systems:    make([]SystemInfo, 0, len(w.systems)),
		Components: make([]ComponentInfo, 0, w.types.len()),
	}

	for _, s := range w.systems {
		out.Systems = append(out.Systems, SystemInfo{
			Name:       s.name,
			Use:        typeNames(s.use),
			Rows:       s.rows.Len(),
			PostUpdate: s.post != nil,
		})
	}

	for i := range w.types.len() {
		tid := TypeID(i) //nolint:gosec // won't overflow
		t := w.types.get(tid)
		out.Components = append(out.Components, ComponentInfo{
			ID:     tid,
			Name:   t.name,
			Live:   len(w.store.ofType(tid)),
			Schema: reflector.ReflectFromType(t.rtype),
		})
	}

	return out
}

// JSON encodes the introspection.
func (i Introspection) JSON() ([]byte, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode introspection")
	}
	return data, nil
}
