package flowengine

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

// ParseCallerInputs extracts the caller's input bag: for GET, each query
// parameter value is tried as JSON first, falling back to the raw
// string; for non-GET, the body is parsed as JSON, and an empty body
// yields an empty map without error.
func ParseCallerInputs(c *fiber.Ctx) (map[string]any, error) {
	inputs := make(map[string]any)

	if c.Method() == fiber.MethodGet {
		c.Context().QueryArgs().VisitAll(func(key, value []byte) {
			k := string(key)
			v := string(value)

			var parsed any
			if err := json.Unmarshal([]byte(v), &parsed); err == nil {
				inputs[k] = parsed
			} else {
				inputs[k] = v
			}
		})
		return inputs, nil
	}

	body := c.Body()
	if len(body) == 0 {
		return inputs, nil
	}
	if err := json.Unmarshal(body, &inputs); err != nil {
		return nil, err
	}
	return inputs, nil
}
