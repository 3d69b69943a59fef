package mechanics

import (
	"errors"
	"fmt"

	"github.com/san-kum/kanedyn/internal/dynamo"
)

var (
	ErrFrameRedefined = errors.New("mechanics: frame redefined")
	ErrPointRedefined = errors.New("mechanics: point redefined")
	ErrUndeclared     = errors.New("mechanics: frame or point not declared in this graph")
	ErrAxisNotUnit    = errors.New("mechanics: rotation axis is not a unit vector")
	ErrBadSequence    = errors.New("mechanics: invalid rotation sequence")
	ErrNotBaseFrame   = errors.New("mechanics: velocities are prescribed in the base frame only")
	ErrInvalidGraph   = errors.New("mechanics: kinematic graph is invalid")
	ErrSharedPoint    = errors.New("mechanics: point already owned by another body")
	ErrDuplicateBody  = errors.New("mechanics: body name already used")
	ErrNoMass         = errors.New("mechanics: body mass is zero")
)

func construction(stage string, err error) error {
	return dynamo.Wrap(stage, dynamo.ErrConstruction, err)
}

func constructionf(stage string, sentinel error, format string, args ...any) error {
	return construction(stage, fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...))
}
