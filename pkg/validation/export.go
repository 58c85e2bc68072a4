package validation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
)

// DetectFeatures returns the advanced features used by nodes, in a stable order.
func DetectFeatures(nodes []*models.Node) []string {
	found := map[string]bool{}

	for _, node := range nodes {
		if node == nil {
			continue
		}

		switch node.Type {
		case models.NodeTypeLoop:
			found[FeatureLoop] = true
		case models.NodeTypeSubworkflow:
			found[FeatureSubworkflow] = true
		case models.NodeTypeConditional:
			data, ok := node.Data.(*models.ConditionalData)
			if ok && data.ConditionGroup != nil && len(data.ConditionGroup.Groups) > 0 {
				found[FeatureExpertCondition] = true
			}
		}
	}

	features := []string{}

	for _, feature := range []string{FeatureLoop, FeatureSubworkflow, FeatureExpertCondition} {
		if found[feature] {
			features = append(features, feature)
		}
	}

	return features
}

// ComputeComplexity labels a graph by its size and number of advanced features.
func ComputeComplexity(nodeCount, advancedFeatures int) models.Complexity {
	switch {
	case nodeCount > 20 || advancedFeatures > 2:
		return models.ComplexityComplex
	case nodeCount > 10 || advancedFeatures > 0:
		return models.ComplexityMedium
	default:
		return models.ComplexitySimple
	}
}

// Export builds the export document of a workflow.
func Export(workflow *models.Workflow, exportedAt time.Time) *models.ExportFile {
	features := DetectFeatures(workflow.Nodes)

	nodes := workflow.Nodes
	if nodes == nil {
		nodes = []*models.Node{}
	}

	edges := workflow.Edges
	if edges == nil {
		edges = []*models.Edge{}
	}

	file := &models.ExportFile{
		FormatVersion:  models.CurrentFormatVersion,
		ExportedAt:     exportedAt.UTC(),
		Name:           workflow.Name,
		Description:    workflow.Description,
		Nodes:          nodes,
		Edges:          edges,
		AutoCreateTask: workflow.AutoCreateTask,
		NodeCount:      len(nodes),
		EdgeCount:      len(edges),
		Complexity:     ComputeComplexity(len(nodes), len(features)),
	}

	if len(features) > 0 {
		file.UsesAdvancedFeatures = features
	}

	return file
}

// Import validates and migrates a serialized graph with the built-in node
// types, then decodes it.
func Import(document map[string]any) (*models.ExportFile, ValidationResult, error) {
	return defaultValidator.Import(document)
}

// Import validates and migrates a serialized graph, then decodes it.
// An invalid document returns the report and no export file.
func (v *Validator) Import(document map[string]any) (*models.ExportFile, ValidationResult, error) {
	result := v.Validate(document)
	if !result.Valid {
		return nil, result, nil
	}

	encoded, err := json.Marshal(MigrateFormat(document))
	if err != nil {
		return nil, result, fmt.Errorf("failed to encode migrated document: %w", err)
	}

	var file models.ExportFile
	if err := json.Unmarshal(encoded, &file); err != nil {
		return nil, result, fmt.Errorf("failed to decode migrated document: %w", err)
	}

	return &file, result, nil
}
