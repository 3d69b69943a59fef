// Package physics provides closed-form reference models used to check
// derived equations of motion numerically.
//
// Each model implements [dynamo.System], [dynamo.Configurable] and
// [dynamo.Hamiltonian]:
//
//   - [Pendulum]: single pendulum
//   - [DoublePendulum]: planar double pendulum
//
// Parameter names match the symbols of the corresponding mechanism, so a
// binding map can be applied with [Configure]:
//
//	ref := physics.NewDoublePendulum()
//	if err := physics.Configure(ref, params); err != nil {
//	    return err
//	}
//	xdot := ref.Derive(x)
package physics
