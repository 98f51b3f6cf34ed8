// Package profile loads the geometry profile: page surface size, reorder
// row height and the footprint of every field type.
//
// Profiles are CUE. A profile file is unified with the embedded schema and
// must be concrete after defaults are applied. An empty profile yields the
// built-in geometry.
package profile

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/placement"
)

//go:embed schema.cue
var schemaSrc string

// Profile is a decoded geometry profile.
type Profile struct {
	Surface placement.Surface             `json:"surface"`
	Reorder Reorder                       `json:"reorder"`
	Fields  map[string]placement.Geometry `json:"fields"`
}

// Reorder holds the signer list geometry.
type Reorder struct {
	RowHeight float64 `json:"row_height"`
}

// Error is a profile that failed to compile, unify or validate.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the built-in profile.
func Default() *Profile {
	p, err := Load(nil, "")
	if err != nil {
		panic(fmt.Sprintf("profile: embedded schema: %v", err))
	}
	return p
}

// LoadFile reads and loads a profile file.
func LoadFile(path string) (*Profile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Load(src, path)
}

// Load compiles src, unifies it with the schema and decodes the result.
// filename is only used in error positions.
func Load(src []byte, filename string) (*Profile, error) {
	ctx := cuecontext.New()

	v := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError("schema", err)
	}

	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, formatCUEError("syntax", err)
		}
		v = v.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError("constraint", err)
	}

	var p Profile
	if err := v.Decode(&p); err != nil {
		return nil, formatCUEError("decode", err)
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return &p, nil
}

// check enforces what the schema cannot: known field types and boxes that
// fit on the page.
func (p *Profile) check() error {
	for name, g := range p.Fields {
		if _, err := model.ParseFieldType(name); err != nil {
			return &Error{Field: "fields." + name, Message: err.Error()}
		}
		if g.Width > p.Surface.Width || g.Height > p.Surface.Height {
			return &Error{
				Field:   "fields." + name,
				Message: fmt.Sprintf("box %dx%d larger than surface %dx%d", g.Width, g.Height, p.Surface.Width, p.Surface.Height),
			}
		}
	}
	return nil
}

// Geometries returns the field footprints keyed by type.
func (p *Profile) Geometries() placement.Geometries {
	out := make(placement.Geometries, len(p.Fields))
	for name, g := range p.Fields {
		out[model.FieldType(name)] = g
	}
	return out
}

// BoardOptions configures a placement board with this profile.
func (p *Profile) BoardOptions() []placement.BoardOption {
	return []placement.BoardOption{
		placement.WithSurface(p.Surface),
		placement.WithGeometries(p.Geometries()),
	}
}

// RowHeight returns the reorder row height.
func (p *Profile) RowHeight() float64 {
	return p.Reorder.RowHeight
}

// Types returns the configured field types in sorted order.
func (p *Profile) Types() []string {
	out := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func formatCUEError(field string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Field: field, Message: err.Error()}
	}

	first := errs[0]
	e := &Error{Field: field, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
