// Package graph computes execution levels over a workflow graph.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/flowgraph/pkg/models"
)

// Level is a set of nodes with no dependency among them.
type Level []*models.Node

// IDs returns the node ids of the level in order.
func (l Level) IDs() []string {
	ids := make([]string, len(l))
	for i, node := range l {
		ids[i] = node.ID
	}

	return ids
}

// CyclicGraphError is returned when some nodes cannot be placed on any level.
type CyclicGraphError struct {
	Unplaced []string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("workflow graph contains a cycle involving nodes: %s", strings.Join(e.Unplaced, ", "))
}

// IsCyclicGraph reports whether err is a CyclicGraphError.
func IsCyclicGraph(err error) bool {
	var cyclic *CyclicGraphError

	return errors.As(err, &cyclic)
}

// ComputeLevels groups nodes into levels using Kahn in-degree leveling.
// Every edge source lands on a strictly earlier level than its target.
// Edges that reference unknown nodes are ignored.
// Within a level, nodes keep the order in which they appear in nodes.
func ComputeLevels(nodes []*models.Node, edges []*models.Edge) ([]Level, error) {
	position := make(map[string]int, len(nodes))
	for i, node := range nodes {
		position[node.ID] = i
	}

	inDegree := make([]int, len(nodes))
	successors := make([][]int, len(nodes))

	for _, edge := range edges {
		source, okSource := position[edge.Source]
		target, okTarget := position[edge.Target]

		if !okSource || !okTarget {
			continue
		}

		successors[source] = append(successors[source], target)
		inDegree[target]++
	}

	var frontier []int

	for i := range nodes {
		if inDegree[i] == 0 {
			frontier = append(frontier, i)
		}
	}

	levels := make([]Level, 0)
	placed := make([]bool, len(nodes))
	placedCount := 0

	for len(frontier) > 0 {
		level := make(Level, 0, len(frontier))

		var next []int

		for _, index := range frontier {
			level = append(level, nodes[index])
			placed[index] = true
			placedCount++

			for _, successor := range successors[index] {
				inDegree[successor]--
				if inDegree[successor] == 0 {
					next = append(next, successor)
				}
			}
		}

		slices.Sort(next)

		levels = append(levels, level)
		frontier = next
	}

	if placedCount < len(nodes) {
		unplaced := make([]string, 0, len(nodes)-placedCount)

		for i, node := range nodes {
			if !placed[i] {
				unplaced = append(unplaced, node.ID)
			}
		}

		return nil, &CyclicGraphError{Unplaced: unplaced}
	}

	return levels, nil
}

// IncomingEdges indexes edges by target node id, dropping edges whose
// endpoints are not in nodes.
func IncomingEdges(nodes []*models.Node, edges []*models.Edge) map[string][]*models.Edge {
	known := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		known[node.ID] = struct{}{}
	}

	incoming := make(map[string][]*models.Edge, len(nodes))

	for _, edge := range edges {
		if _, ok := known[edge.Source]; !ok {
			continue
		}

		if _, ok := known[edge.Target]; !ok {
			continue
		}

		incoming[edge.Target] = append(incoming[edge.Target], edge)
	}

	return incoming
}
