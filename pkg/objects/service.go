// Package objects instantiates typed domain objects from model definitions:
// inheritance merging, defaults, primitive coercion, range and enum
// constraints, derived attributes and cross-attribute validation rules.
package objects

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/ports"
	"github.com/wyrdbound/grimoire/pkg/schema"
)

// Service builds and validates object instances for one system. The model
// inheritance graph is linearized once at construction and reused for every
// instantiation.
type Service struct {
	system   *domain.CompleteSystem
	resolver ports.TemplateResolver
	logger   *slog.Logger
	models   map[string]*resolvedModel
}

// Option configures the service.
type Option func(*Service)

// WithResolver supplies the expression engine used for derived attributes
// and validation rules. Without one, both are skipped.
func WithResolver(r ports.TemplateResolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService linearizes every model in the system and returns a ready
// service. Unknown parent models and inheritance cycles fail here, not at
// first use.
func NewService(system *domain.CompleteSystem, opts ...Option) (*Service, error) {
	s := &Service{
		system: system,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	models, err := buildRegistry(system)
	if err != nil {
		return nil, fmt.Errorf("Failed to initialize model registry: %w", err)
	}
	s.models = models
	return s, nil
}

// System returns the system this service instantiates objects for.
func (s *Service) System() *domain.CompleteSystem { return s.system }

// Create instantiates and fully validates an object. The data must be a
// mapping carrying a "model" key naming a known model. Violations are
// aggregated: the returned error lists every failure, not just the first.
func (s *Service) Create(data map[string]any) (*Instance, error) {
	inst, violations, err := s.build(data, true)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, fmt.Errorf("Failed to create %s object: %w", inst.ModelID(), &schema.AggregateError{Errors: violations})
	}
	s.logger.Debug("created object", "model", inst.ModelID())
	return inst, nil
}

// CreateDraft instantiates an object without constraint checks. Inheritance
// is still merged and defaults still apply, so drafts carry the full
// attribute surface; used for partial inputs and table hydration.
func (s *Service) CreateDraft(data map[string]any) (*Instance, error) {
	inst, _, err := s.build(data, false)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("created draft object", "model", inst.ModelID())
	return inst, nil
}

// Validate checks data against its model without constructing anything the
// caller keeps. Returns ok plus an ordered list of human-readable
// violations.
func (s *Service) Validate(data map[string]any) (bool, []string) {
	_, violations, err := s.build(data, true)
	if err != nil {
		return false, []string{err.Error()}
	}
	if len(violations) == 0 {
		return true, nil
	}
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.Error()
	}
	return false, msgs
}

// build does the shared work. Shape problems (not a mapping, missing or
// unknown model) return a hard error; constraint problems come back as the
// violation list when strict is set.
func (s *Service) build(data map[string]any, strict bool) (*Instance, []error, error) {
	if data == nil {
		return nil, nil, &domain.InputError{Reason: "Object data must be a dictionary"}
	}
	modelRaw, ok := data["model"]
	if !ok {
		return nil, nil, &domain.InputError{Reason: "Object data must contain 'model' field"}
	}
	modelID, ok := modelRaw.(string)
	if !ok {
		return nil, nil, domain.NewInputError("Model field must be a string, got %T", modelRaw)
	}
	rm, ok := s.models[modelID]
	if !ok {
		_, err := s.system.Model(modelID)
		return nil, nil, err
	}

	stored := make(map[string]any, len(data))
	for k, v := range data {
		if k == "model" {
			continue
		}
		if attr, declared := rm.attributes[k]; declared && attr.IsDerived() {
			// Derived values are recomputed on read; incoming copies are
			// dropped so stale values cannot shadow the formula.
			continue
		}
		stored[k] = deepCopy(v)
	}

	names := make([]string, 0, len(rm.attributes))
	for name := range rm.attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	// Defaults apply in both modes.
	for _, name := range names {
		attr := rm.attributes[name]
		if attr.IsDerived() {
			continue
		}
		if _, present := stored[name]; !present && attr.HasDefault() {
			stored[name] = deepCopy(attr.Default)
		}
	}

	var violations []error
	if strict {
		for _, name := range names {
			attr := rm.attributes[name]
			if attr.IsDerived() {
				continue
			}
			value, present := stored[name]
			if !present {
				if !attr.Optional {
					violations = append(violations, &schema.Violation{Path: name, Reason: "required"})
				}
				continue
			}
			coerced, attrViolations := s.checkAttribute(name, attr, value)
			if len(attrViolations) > 0 {
				violations = append(violations, attrViolations...)
				continue
			}
			stored[name] = coerced
		}

		inst := &Instance{rm: rm, data: stored, svc: s}
		violations = append(violations, s.checkRules(rm, inst)...)
		return inst, violations, nil
	}

	return &Instance{rm: rm, data: stored, svc: s}, nil, nil
}

// checkAttribute validates one attribute value and returns the coerced form.
func (s *Service) checkAttribute(name string, attr domain.AttributeDefinition, value any) (any, []error) {
	var violations []error

	switch {
	case schema.IsPrimitive(attr.Type):
		coerced, err := schema.Coerce(value, attr.Type, fmt.Sprintf("attribute '%s'", name))
		if err != nil {
			return value, []error{&schema.Violation{Path: name, Reason: err.Error(), Value: value}}
		}
		value = coerced

		if attr.Range != "" {
			r, err := schema.ParseRange(attr.Range)
			if err != nil {
				violations = append(violations, &schema.Violation{Path: name, Reason: err.Error()})
			} else if err := r.Check(value); err != nil {
				violations = append(violations, &schema.Violation{Path: name, Reason: err.Error(), Value: value})
			}
		}
		if len(attr.Enum) > 0 {
			if err := schema.Enum(attr.Enum).Check(value); err != nil {
				violations = append(violations, &schema.Violation{Path: name, Reason: err.Error(), Value: value})
			}
		}

	case attr.Type == "list":
		items, ok := value.([]any)
		if !ok {
			return value, []error{&schema.Violation{Path: name, Reason: fmt.Sprintf("expected list, got %T", value), Value: value}}
		}
		if attr.Of == "" {
			break
		}
		out := make([]any, len(items))
		for idx, item := range items {
			coerced, itemViolations := s.checkAttribute(fmt.Sprintf("%s[%d]", name, idx), domain.AttributeDefinition{Type: attr.Of}, item)
			if len(itemViolations) > 0 {
				violations = append(violations, itemViolations...)
				out[idx] = item
				continue
			}
			out[idx] = coerced
		}
		value = out

	default:
		if _, isModel := s.models[attr.Type]; isModel {
			child, ok := value.(map[string]any)
			if !ok {
				return value, []error{&schema.Violation{Path: name, Reason: fmt.Sprintf("expected %s object, got %T", attr.Type, value), Value: value}}
			}
			if _, has := child["model"]; !has {
				child = withModel(child, attr.Type)
			}
			nested, err := s.Create(child)
			if err != nil {
				return value, []error{&schema.Violation{Path: name, Reason: err.Error()}}
			}
			value = nested.ToMap()
		}
		// Unknown type tags pass through as-is; load-time validation
		// already reported them.
	}

	return value, violations
}

// checkRules evaluates the model's cross-attribute validation rules against
// the full object, derived attributes included.
func (s *Service) checkRules(rm *resolvedModel, inst *Instance) []error {
	if len(rm.validations) == 0 {
		return nil
	}
	if s.resolver == nil {
		s.logger.Debug("skipping validation rules, no resolver", "model", rm.def.ID)
		return nil
	}

	snapshot := inst.ToMap()
	var violations []error
	for _, rule := range rm.validations {
		ok, err := s.resolver.EvaluateBool(rule.Expression, snapshot)
		if err != nil {
			violations = append(violations, &schema.Violation{
				Path:   rm.def.ID,
				Reason: fmt.Sprintf("validation '%s' failed to evaluate: %v", rule.Expression, err),
			})
			continue
		}
		if !ok {
			reason := rule.Message
			if reason == "" {
				reason = fmt.Sprintf("validation failed: %s", rule.Expression)
			}
			violations = append(violations, &schema.Violation{Path: rm.def.ID, Reason: reason})
		}
	}
	return violations
}

// evalDerived evaluates a derived-attribute formula against sibling values.
// Formulas may be bare expressions or full {{ }} templates.
func (s *Service) evalDerived(formula string, data map[string]any) (any, error) {
	if s.resolver == nil {
		return nil, fmt.Errorf("no resolver for derived attribute")
	}
	t := formula
	if !strings.Contains(t, "{{") {
		t = "{{ " + t + " }}"
	}
	return s.resolver.Resolve(t, data)
}

func withModel(data map[string]any, modelID string) map[string]any {
	out := make(map[string]any, len(data)+1)
	out["model"] = modelID
	for k, v := range data {
		out[k] = v
	}
	return out
}
