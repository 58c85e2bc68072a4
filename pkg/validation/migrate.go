package validation

import (
	"fmt"
	"maps"

	"github.com/dukex/flowgraph/pkg/models"
)

type migration func(document map[string]any) map[string]any

// migrations maps a serialized format version to the transform that brings it
// to the current shape.
var migrations = map[string]migration{
	"1.0": migrateV1,
}

// MigrateFormat normalizes a serialized graph into the current shape.
// Documents without formatVersion are treated as "1.0". Unknown versions are
// returned unchanged. The input is never modified.
func MigrateFormat(document map[string]any) map[string]any {
	if document == nil {
		return nil
	}

	version := models.CurrentFormatVersion

	if raw, present := document["formatVersion"]; present {
		parsed, ok := raw.(string)
		if !ok {
			return document
		}

		version = parsed
	}

	migrate, ok := migrations[version]
	if !ok {
		return document
	}

	return migrate(maps.Clone(document))
}

func migrateV1(document map[string]any) map[string]any {
	document["formatVersion"] = models.CurrentFormatVersion

	if _, ok := document["description"].(string); !ok {
		document["description"] = ""
	}

	if _, ok := document["autoCreateTask"].(bool); !ok {
		document["autoCreateTask"] = false
	}

	rawNodes, _ := document["nodes"].([]any)
	nodes := make([]any, len(rawNodes))

	var typed []*models.Node

	for i, raw := range rawNodes {
		node, ok := raw.(map[string]any)
		if !ok {
			nodes[i] = raw

			continue
		}

		node = maps.Clone(node)

		if _, ok := node["position"].(map[string]any); !ok {
			node["position"] = map[string]any{"x": float64(0), "y": float64(0)}
		}

		if _, ok := node["data"].(map[string]any); !ok {
			node["data"] = map[string]any{}
		}

		nodes[i] = node
		typed = append(typed, summaryNode(node))
	}

	rawEdges, _ := document["edges"].([]any)
	edges := make([]any, len(rawEdges))

	for i, raw := range rawEdges {
		edge, ok := raw.(map[string]any)
		if !ok {
			edges[i] = raw

			continue
		}

		edge = maps.Clone(edge)

		if id, _ := edge["id"].(string); id == "" {
			edge["id"] = fmt.Sprintf("edge-%v-%v-%d", edge["source"], edge["target"], i)
		}

		edges[i] = edge
	}

	features := DetectFeatures(typed)

	document["nodes"] = nodes
	document["edges"] = edges
	document["nodeCount"] = float64(len(nodes))
	document["edgeCount"] = float64(len(edges))
	document["complexity"] = string(ComputeComplexity(len(nodes), len(features)))

	if len(features) > 0 {
		featureList := make([]any, len(features))
		for i, feature := range features {
			featureList[i] = feature
		}

		document["usesAdvancedFeatures"] = featureList
	} else {
		delete(document, "usesAdvancedFeatures")
	}

	return document
}

// summaryNode extracts the fields feature detection reads from an untyped node.
func summaryNode(node map[string]any) *models.Node {
	nodeType, _ := node["type"].(string)
	summary := &models.Node{Type: models.NodeType(nodeType)}

	if summary.Type == models.NodeTypeConditional {
		data, _ := node["data"].(map[string]any)
		if group, ok := data["conditionGroup"].(map[string]any); ok {
			conditional := &models.ConditionalData{ConditionGroup: &models.ConditionGroup{}}
			if nested, ok := group["groups"].([]any); ok {
				conditional.ConditionGroup.Groups = make([]models.ConditionGroup, len(nested))
			}

			summary.Data = conditional
		}
	}

	return summary
}
