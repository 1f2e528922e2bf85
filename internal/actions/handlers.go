package actions

import (
	"fmt"
	"strings"

	"github.com/wyrdbound/grimoire/pkg/flowctx"
)

// handleSetValue writes a value at a context path. The value and the path
// both accept templates; the value keeps its native type when the template
// is a single expression. When the path lands on a declared flow slot or a
// model attribute, the value is bent toward the declared type first.
func handleSetValue(env *Env, fc flowctx.Context, payload any) (flowctx.Context, error) {
	data, ok := payload.(map[string]any)
	if !ok {
		return fc, fmt.Errorf("set_value action requires 'path' field")
	}
	rawPath, ok := data["path"]
	if !ok {
		return fc, fmt.Errorf("set_value action requires 'path' field")
	}

	value, err := resolveIfTemplate(fc, data["value"])
	if err != nil {
		return fc, err
	}
	path, err := resolvePath(fc, rawPath)
	if err != nil {
		return fc, err
	}

	if env.Flow != nil && env.Objects != nil {
		if typ, ok := env.Objects.ExpectedType(env.Flow, path); ok {
			coerced, err := env.Objects.CoerceToType(value, typ)
			if err != nil {
				return fc, err
			}
			value = coerced
		}
	}

	env.logger().Debug("set value", "path", path, "value", value)
	return fc.Set(path, value), nil
}

// handleSwapValues exchanges the values at two context paths.
func handleSwapValues(env *Env, fc flowctx.Context, payload any) (flowctx.Context, error) {
	data, ok := payload.(map[string]any)
	if !ok {
		return fc, fmt.Errorf("swap_values requires both 'path1' and 'path2' fields")
	}
	raw1, ok1 := data["path1"]
	raw2, ok2 := data["path2"]
	if !ok1 || !ok2 {
		return fc, fmt.Errorf("swap_values requires both 'path1' and 'path2' fields")
	}

	path1, err := resolvePath(fc, raw1)
	if err != nil {
		return fc, err
	}
	path2, err := resolvePath(fc, raw2)
	if err != nil {
		return fc, err
	}

	v1, ok := fc.Get(path1)
	if !ok {
		return fc, fmt.Errorf("Cannot swap: path not found: %s", path1)
	}
	v2, ok := fc.Get(path2)
	if !ok {
		return fc, fmt.Errorf("Cannot swap: path not found: %s", path2)
	}

	env.logger().Debug("swap values", "path1", path1, "path2", path2)
	return fc.Set(path1, v2).Set(path2, v1), nil
}

// handleValidateValue runs full model validation on the object stored at a
// path. Values that are not model-tagged mappings are left alone.
func handleValidateValue(env *Env, fc flowctx.Context, payload any) (flowctx.Context, error) {
	path, err := payloadPath(fc, payload)
	if err != nil {
		return fc, err
	}

	value, ok := fc.Get(path)
	if !ok {
		return fc, fmt.Errorf("Cannot validate: path not found: %s", path)
	}

	data, ok := value.(map[string]any)
	if !ok {
		env.logger().Debug("skipping validation, value is not an object", "path", path)
		return fc, nil
	}
	if _, hasModel := data["model"]; !hasModel {
		env.logger().Debug("skipping validation, object has no model tag", "path", path)
		return fc, nil
	}

	if env.Objects == nil {
		return fc, nil
	}
	if ok, problems := env.Objects.Validate(data); !ok {
		return fc, fmt.Errorf("Validation failed for %s: %s", path, strings.Join(problems, "; "))
	}
	env.logger().Debug("validated object", "path", path)
	return fc, nil
}

// handleDisplayValue shows the value at a path. A missing path is reported
// to the player but is not an error; display must never kill a flow.
func handleDisplayValue(env *Env, fc flowctx.Context, payload any) (flowctx.Context, error) {
	path, err := payloadPath(fc, payload)
	if err != nil {
		return fc, err
	}

	value, ok := fc.Get(path)
	if !ok {
		text := fmt.Sprintf("Cannot display: path not found: %s", path)
		env.logger().Warn(text)
		env.message(text)
		env.notify(DisplayValue, text)
		return fc, nil
	}

	text := fmt.Sprintf("%s: %v", path, value)
	env.message(text)
	env.notify(DisplayValue, text)
	return fc, nil
}

// handleDisplayMessage renders a message template to the player.
func handleDisplayMessage(env *Env, fc flowctx.Context, payload any) (flowctx.Context, error) {
	raw := messageOf(payload)
	resolved, err := resolveIfTemplate(fc, raw)
	if err != nil {
		return fc, err
	}
	text := fmt.Sprint(resolved)

	env.logger().Debug("Display: " + text)
	env.message(text)
	env.notify(DisplayMessage, text)
	return fc, nil
}

// handleLogMessage writes to the structured log only, not to the player.
func handleLogMessage(env *Env, fc flowctx.Context, payload any) (flowctx.Context, error) {
	raw := messageOf(payload)
	resolved, err := resolveIfTemplate(fc, raw)
	if err != nil {
		return fc, err
	}
	env.logger().Info("Flow log: " + fmt.Sprint(resolved))
	return fc, nil
}

// handleLogEvent emits a structured event with a type tag and free-form
// data, resolved recursively.
func handleLogEvent(env *Env, fc flowctx.Context, payload any) (flowctx.Context, error) {
	eventType := "unknown"
	eventData := map[string]any{}

	if data, ok := payload.(map[string]any); ok {
		if t, ok := data["type"].(string); ok && t != "" {
			resolved, err := resolveIfTemplate(fc, t)
			if err != nil {
				return fc, err
			}
			eventType = fmt.Sprint(resolved)
		}
		if d, ok := data["data"].(map[string]any); ok {
			resolved, err := fc.ResolveMap(d)
			if err != nil {
				return fc, err
			}
			eventData = resolved
		}
	}

	env.logger().Info("Flow event", "type", eventType, "data", eventData)
	if env.Sink != nil {
		env.Sink.Event(eventType, eventData)
	}
	return fc, nil
}

// resolveIfTemplate resolves strings that still carry {{ }} markers and
// passes everything else through. Pre-resolved action data stays untouched.
func resolveIfTemplate(fc flowctx.Context, v any) (any, error) {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, "{{") {
		return v, nil
	}
	return fc.Resolve(s)
}

// resolvePath resolves a path that may itself be templated and renders it
// to a string.
func resolvePath(fc flowctx.Context, raw any) (string, error) {
	v, err := resolveIfTemplate(fc, raw)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("path must be a string, got %T", v)
	}
	return s, nil
}

// payloadPath accepts the two authored shapes for path-taking actions: a
// bare string or a mapping with a "path" key.
func payloadPath(fc flowctx.Context, payload any) (string, error) {
	switch p := payload.(type) {
	case string:
		return resolvePath(fc, p)
	case map[string]any:
		if raw, ok := p["path"]; ok {
			return resolvePath(fc, raw)
		}
	}
	return "", fmt.Errorf("action requires a path")
}

// messageOf accepts a bare string or a mapping with a "message" key.
func messageOf(payload any) any {
	if data, ok := payload.(map[string]any); ok {
		if msg, ok := data["message"]; ok {
			return msg
		}
		return ""
	}
	return payload
}
