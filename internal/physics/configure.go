package physics

import "github.com/san-kum/kanedyn/internal/dynamo"

// Configure applies every value whose name the model knows. Names the
// model does not declare, such as state symbols, are skipped.
func Configure(c dynamo.Configurable, vals map[string]float64) error {
	known := c.GetParams()
	for name, v := range vals {
		if _, ok := known[name]; !ok {
			continue
		}
		if err := c.SetParam(name, v); err != nil {
			return err
		}
	}
	return nil
}
