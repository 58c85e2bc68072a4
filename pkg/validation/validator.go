// Package validation checks candidate workflow graphs and migrates older serialized formats.
package validation

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// Compatibility summarizes how well a candidate graph can be imported.
type Compatibility string

const (
	CompatibilityFull    Compatibility = "full"
	CompatibilityPartial Compatibility = "partial"
	CompatibilityNone    Compatibility = "none"
)

// Feature names reported for informational purposes.
const (
	FeatureLoop            = "loop"
	FeatureSubworkflow     = "subworkflow"
	FeatureExpertCondition = "expert-condition"
)

// SupportedFormatVersions lists the serialized formats the validator understands.
var SupportedFormatVersions = []string{models.CurrentFormatVersion}

// ValidationResult is the structured report returned by Validate.
type ValidationResult struct {
	Valid         bool          `json:"valid"`
	FormatVersion string        `json:"formatVersion,omitempty"`
	Errors        []string      `json:"errors"`
	Warnings      []string      `json:"warnings"`
	NodeCount     int           `json:"nodeCount"`
	EdgeCount     int           `json:"edgeCount"`
	Features      []string      `json:"features"`
	Compatibility Compatibility `json:"compatibility"`
}

// Validator checks candidates against a set of supported node types and,
// when built with NewSchemaValidator, each node's data against its type's schema.
type Validator struct {
	nodeTypes map[models.NodeType]struct{}
	schemas   map[models.NodeType]*gojsonschema.Schema
}

// NewValidator creates a validator accepting the given node types.
// With no types, every built-in node type is accepted.
func NewValidator(nodeTypes ...models.NodeType) *Validator {
	if len(nodeTypes) == 0 {
		nodeTypes = models.NodeTypes
	}

	supported := make(map[models.NodeType]struct{}, len(nodeTypes))
	for _, nodeType := range nodeTypes {
		supported[nodeType] = struct{}{}
	}

	return &Validator{nodeTypes: supported}
}

// NewSchemaValidator creates a validator accepting the node types of schemas
// and checking node data against the schema of its type. A nil schema leaves
// that type's data unchecked.
func NewSchemaValidator(schemas map[models.NodeType]map[string]any) (*Validator, error) {
	nodeTypes := make([]models.NodeType, 0, len(schemas))
	compiled := make(map[models.NodeType]*gojsonschema.Schema, len(schemas))

	for nodeType, schema := range schemas {
		nodeTypes = append(nodeTypes, nodeType)

		if schema == nil {
			continue
		}

		loaded, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
		if err != nil {
			return nil, fmt.Errorf("invalid %s node schema: %w", nodeType, err)
		}

		compiled[nodeType] = loaded
	}

	validator := NewValidator(nodeTypes...)
	validator.schemas = compiled

	return validator, nil
}

var defaultValidator = NewValidator()

// Validate checks candidate with the built-in node types.
func Validate(candidate any) ValidationResult {
	return defaultValidator.Validate(candidate)
}

// ValidateWorkflow checks a typed workflow with the built-in node types.
func ValidateWorkflow(workflow *models.Workflow) ValidationResult {
	return defaultValidator.ValidateWorkflow(workflow)
}

// ValidateWorkflow checks a typed workflow by validating its serialized form.
func (v *Validator) ValidateWorkflow(workflow *models.Workflow) ValidationResult {
	if workflow == nil {
		return v.Validate(nil)
	}

	return v.Validate(workflowDocument(workflow))
}

// Validate reports every defect of a candidate graph of unknown shape.
// It never panics: defects in the candidate become errors in the result.
func (v *Validator) Validate(candidate any) (result ValidationResult) {
	report := &report{}

	defer func() {
		if r := recover(); r != nil {
			report.errorf("candidate could not be validated: %v", r)
		}

		result = report.result()
	}()

	document, ok := asObject(candidate)
	if !ok {
		report.errorf("workflow must be a JSON object")

		return result
	}

	version := models.CurrentFormatVersion

	if raw, present := document["formatVersion"]; present {
		parsed, isString := raw.(string)
		if !isString || !slices.Contains(SupportedFormatVersions, parsed) {
			report.errorf("unsupported format version: %v", raw)

			return result
		}

		version = parsed
	}

	report.formatVersion = version

	name, nameOK := document["name"].(string)
	if !nameOK || name == "" {
		report.errorf("name is required and must be a string")
	}

	rawNodes, nodesOK := document["nodes"].([]any)
	if !nodesOK {
		report.errorf("nodes is required and must be an array")
	}

	rawEdges, edgesOK := document["edges"].([]any)
	if !edgesOK {
		report.errorf("edges is required and must be an array")
	}

	if !nodesOK || !edgesOK {
		return result
	}

	report.nodeCount = len(rawNodes)
	report.edgeCount = len(rawEdges)

	v.checkGraph(report, rawNodes, rawEdges)

	return result
}

func (v *Validator) checkGraph(report *report, rawNodes, rawEdges []any) {
	nodeTypes := make(map[string]models.NodeType, len(rawNodes))
	order := make([]string, 0, len(rawNodes))
	triggers := 0
	features := map[string]bool{}

	for index, raw := range rawNodes {
		node, ok := asObject(raw)
		if !ok {
			report.errorf("node at index %d must be an object", index)

			continue
		}

		id, idOK := node["id"].(string)
		if !idOK || id == "" {
			report.errorf("node at index %d is missing an id", index)
		} else if _, duplicate := nodeTypes[id]; duplicate {
			report.errorf("duplicate node id: %s", id)
		}

		label := id
		if label == "" {
			label = fmt.Sprintf("#%d", index)
		}

		nodeType, typeOK := node["type"].(string)

		switch {
		case !typeOK || nodeType == "":
			report.errorf("node %s is missing a type", label)
		case !v.supports(models.NodeType(nodeType)):
			report.errorf("node %s has unsupported type: %s", label, nodeType)
		}

		if !validPosition(node["position"]) {
			report.errorf("node %s must have a numeric position with x and y", label)
		}

		data, _ := asObject(node["data"])
		checkNodeData(report, label, models.NodeType(nodeType), data, features)
		v.checkSchema(report, label, models.NodeType(nodeType), node["data"])

		if models.NodeType(nodeType) == models.NodeTypeTrigger {
			triggers++
		}

		if idOK && id != "" && !hasNode(nodeTypes, id) {
			order = append(order, id)
			nodeTypes[id] = models.NodeType(nodeType)
		}
	}

	connected := make(map[string]bool, len(nodeTypes))

	for index, raw := range rawEdges {
		edge, ok := asObject(raw)
		if !ok {
			report.errorf("edge at index %d must be an object", index)

			continue
		}

		id, idOK := edge["id"].(string)
		if !idOK || id == "" {
			report.errorf("edge at index %d is missing an id", index)

			id = fmt.Sprintf("#%d", index)
		}

		for _, endpoint := range []string{"source", "target"} {
			ref, refOK := edge[endpoint].(string)

			switch {
			case !refOK || ref == "":
				report.errorf("edge %s is missing a %s", id, endpoint)
			case !hasNode(nodeTypes, ref):
				report.errorf("edge %s references unknown %s node: %s", id, endpoint, ref)
			default:
				connected[ref] = true
			}
		}
	}

	switch {
	case triggers == 0:
		report.warnf("workflow has no trigger node")
	case triggers > 1:
		report.warnf("workflow has %d trigger nodes", triggers)
	}

	for _, id := range order {
		if nodeTypes[id] == models.NodeTypeTrigger || connected[id] {
			continue
		}

		report.warnf("node %s is not connected to any edge", id)
	}

	for _, feature := range []string{FeatureLoop, FeatureSubworkflow, FeatureExpertCondition} {
		if features[feature] {
			report.features = append(report.features, feature)
		}
	}
}

func checkNodeData(report *report, label string, nodeType models.NodeType, data map[string]any, features map[string]bool) {
	switch nodeType {
	case models.NodeTypeConditional:
		_, hasCondition := asObject(data["condition"])
		group, hasGroup := asObject(data["conditionGroup"])

		if !hasCondition && !hasGroup {
			report.errorf("conditional node %s requires a condition or conditionGroup", label)
		}

		if hasGroup {
			if nested, ok := group["groups"].([]any); ok && len(nested) > 0 {
				features[FeatureExpertCondition] = true
			}
		}
	case models.NodeTypeLoop:
		features[FeatureLoop] = true

		loopType, _ := data["loopType"].(string)

		switch models.LoopType(loopType) {
		case models.LoopTypeCount, models.LoopTypeForEach, models.LoopTypeWhile:
		case "":
			report.errorf("loop node %s requires a loopType", label)
		default:
			report.errorf("loop node %s has unsupported loopType: %s", label, loopType)
		}
	case models.NodeTypeSubworkflow:
		features[FeatureSubworkflow] = true

		if ref, _ := data["workflowId"].(string); ref == "" {
			report.errorf("subworkflow node %s requires a workflowId", label)
		}
	case models.NodeTypeTask:
		if ref, _ := data["taskTemplateId"].(string); ref == "" {
			report.errorf("task node %s requires a taskTemplateId", label)
		}
	}
}

// checkSchema reports data that does not satisfy its node type's schema.
// Absent data is checked as an empty object.
func (v *Validator) checkSchema(report *report, label string, nodeType models.NodeType, data any) {
	schema, ok := v.schemas[nodeType]
	if !ok {
		return
	}

	if data == nil {
		data = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		report.errorf("node %s data could not be checked: %v", label, err)

		return
	}

	if result.Valid() {
		return
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, resultError := range result.Errors() {
		messages = append(messages, resultError.String())
	}

	sort.Strings(messages)

	report.errorf("node %s data is invalid: %s", label, strings.Join(messages, "; "))
}

func (v *Validator) supports(nodeType models.NodeType) bool {
	_, ok := v.nodeTypes[nodeType]

	return ok
}

func hasNode(nodes map[string]models.NodeType, id string) bool {
	_, ok := nodes[id]

	return ok
}

func validPosition(raw any) bool {
	position, ok := asObject(raw)
	if !ok {
		return false
	}

	_, xOK := toFloat(position["x"])
	_, yOK := toFloat(position["y"])

	return xOK && yOK
}

func toFloat(raw any) (float64, bool) {
	switch value := raw.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case json.Number:
		f, err := value.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

func asObject(raw any) (map[string]any, bool) {
	switch value := raw.(type) {
	case map[string]any:
		return value, true
	case nil:
		return nil, false
	case []byte:
		var decoded map[string]any
		if err := json.Unmarshal(value, &decoded); err != nil {
			return nil, false
		}

		return decoded, decoded != nil
	case json.RawMessage:
		return asObject([]byte(value))
	case string, bool, float64, int, []any:
		return nil, false
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, false
		}

		var decoded map[string]any
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			return nil, false
		}

		return decoded, decoded != nil
	}
}

func workflowDocument(workflow *models.Workflow) map[string]any {
	document, ok := asObject(workflow)
	if !ok {
		return nil
	}

	for _, key := range []string{"nodes", "edges"} {
		if document[key] == nil {
			document[key] = []any{}
		}
	}

	return document
}

type report struct {
	formatVersion string
	errors        []string
	warnings      []string
	nodeCount     int
	edgeCount     int
	features      []string
}

func (r *report) errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *report) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *report) result() ValidationResult {
	compatibility := CompatibilityFull

	switch {
	case len(r.errors) > 0:
		compatibility = CompatibilityNone
	case len(r.warnings) > 0:
		compatibility = CompatibilityPartial
	}

	features := r.features
	if features == nil {
		features = []string{}
	}

	errs := r.errors
	if errs == nil {
		errs = []string{}
	}

	warnings := r.warnings
	if warnings == nil {
		warnings = []string{}
	}

	return ValidationResult{
		Valid:         len(errs) == 0,
		FormatVersion: r.formatVersion,
		Errors:        errs,
		Warnings:      warnings,
		NodeCount:     r.nodeCount,
		EdgeCount:     r.edgeCount,
		Features:      features,
		Compatibility: compatibility,
	}
}
