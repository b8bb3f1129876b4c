package ecs

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
)

// SearchParam selects entities by component names and an optional filter. Where is an expr
// language expression evaluated against a map of component name to component, plus "_id" holding
// the packed entity id. See https://expr-lang.org/docs/getting-started.
type SearchParam struct {
	Find  []string    // Component names to search for
	Match SearchMatch // How Find is matched against the components of an entity
	Where string      // Optional boolean filter
}

// SearchMatch is the type of match to use for a search.
type SearchMatch string

const (
	// MatchExact matches entities that have exactly the components in Find.
	MatchExact SearchMatch = "exact"
	// MatchContains matches entities that have at least the components in Find.
	MatchContains SearchMatch = "contains"
)

func (s *SearchParam) compile() (*vm.Program, error) {
	if len(s.Find) == 0 {
		return nil, eris.New("component list cannot be empty")
	}
	if s.Match != MatchExact && s.Match != MatchContains {
		return nil, eris.Errorf("invalid match %q: must be either %q or %q", s.Match, MatchExact, MatchContains)
	}
	if s.Where == "" {
		return nil, nil //nolint:nilnil // no filter
	}

	program, err := expr.Compile(s.Where, expr.AsBool())
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse where clause")
	}
	return program, nil
}

// Search returns the live entities matching params, in slot order, each as a map of component
// name to component with the entity id under "_id". Search reads the world as it is; changes
// queued by a running frame are not visible.
func (w *World) Search(params SearchParam) ([]map[string]any, error) {
	filter, err := params.compile()
	if err != nil {
		return nil, eris.Wrap(err, "invalid search params")
	}

	var mask bitmap.Bitmap
	for _, name := range params.Find {
		id, ok := w.types.catalog[name]
		if !ok {
			return nil, eris.Errorf("component %s is not registered", name)
		}
		mask.Set(id)
	}
	want := mask.Count()

	results := make([]map[string]any, 0)
	for _, rec := range w.store.records {
		if rec == nil {
			continue
		}
		matched := rec.set.Clone(nil)
		matched.And(mask)
		if matched.Count() != want || (params.Match == MatchExact && rec.set.Count() != want) {
			continue
		}

		entity := rec.toMap()
		if filter != nil {
			out, err := expr.Run(filter, entity)
			if err != nil {
				return nil, eris.Wrapf(err, "failed to run filter on entity %s", rec.id)
			}
			// The program is compiled without an environment, so a field access can still produce a
			// non-boolean at run time.
			ok, isBool := out.(bool)
			if !isBool {
				return nil, eris.New("where clause must evaluate to a boolean")
			}
			if !ok {
				continue
			}
		}
		results = append(results, entity)
	}
	return results, nil
}

func (r *entityRecord) toMap() map[string]any {
	data := make(map[string]any, len(r.components)+1)
	data["_id"] = uint32(r.id)
	for _, c := range r.components {
		data[c.Name()] = c
	}
	return data
}
