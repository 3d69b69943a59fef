// Package viz styles derivation output for the terminal with lipgloss.
//
// A [Styles] value is built from a [Theme]; there is no package-level
// style state:
//
//	st := viz.NewStyles(viz.GetTheme("ocean"))
//	fmt.Println(st.Equations("pendulum", res.Lines(format)))
package viz
