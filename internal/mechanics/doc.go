// Package mechanics describes the kinematics of a multibody mechanism:
// a tree of reference frames, a tree of points, and the bodies and loads
// attached to them.
//
// Frames are oriented relative to a parent by an axis rotation, an
// explicit direction cosine matrix or an Euler sequence. Angular
// velocities, point velocities and accelerations are derived on demand
// with the transport theorem, and may be overridden when a velocity is
// prescribed rather than derived.
package mechanics
