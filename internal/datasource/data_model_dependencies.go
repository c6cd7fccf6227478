package datasource

import (
	"github.com/launchdarkly/go-server-sdk-core/internal/toposort"
	st "github.com/launchdarkly/go-server-sdk-core/subsystems/ldstoretypes"
)

// dependencyTracker maintains a bidirectional dependency graph between flags and segments, so that
// when an item is updated, we can determine the full set of items whose evaluation results might be
// affected by that update (for the purposes of flag change events).
type dependencyTracker struct {
	dependenciesFrom map[toposort.Vertex]toposort.Neighbors
	dependenciesTo   map[toposort.Vertex]toposort.Neighbors
}

func newDependencyTracker() *dependencyTracker {
	return &dependencyTracker{
		dependenciesFrom: make(map[toposort.Vertex]toposort.Neighbors),
		dependenciesTo:   make(map[toposort.Vertex]toposort.Neighbors),
	}
}

// updateDependenciesFrom updates the dependency graph when an item has changed.
func (d *dependencyTracker) updateDependenciesFrom(
	kind st.DataKind,
	fromKey string,
	fromItem st.ItemDescriptor,
) {
	fromWhat := toposort.NewVertex(kind, fromKey)
	updatedDependencies := toposort.GetNeighbors(kind, fromItem)

	oldDependencySet := d.dependenciesFrom[fromWhat]
	for oldDep := range oldDependencySet {
		delete(d.dependenciesTo[oldDep], fromWhat)
	}

	d.dependenciesFrom[fromWhat] = updatedDependencies
	for newDep := range updatedDependencies {
		depsToThisNewDep := d.dependenciesTo[newDep]
		if depsToThisNewDep == nil {
			depsToThisNewDep = make(toposort.Neighbors)
			d.dependenciesTo[newDep] = depsToThisNewDep
		}
		depsToThisNewDep.Add(fromWhat)
	}
}

func (d *dependencyTracker) reset() {
	d.dependenciesFrom = make(map[toposort.Vertex]toposort.Neighbors)
	d.dependenciesTo = make(map[toposort.Vertex]toposort.Neighbors)
}

// addAffectedItems populates the given set with the union of the initial item and all items that
// directly or indirectly depend on it.
func (d *dependencyTracker) addAffectedItems(itemsOut toposort.Neighbors, initialModifiedItem toposort.Vertex) {
	if !itemsOut.Contains(initialModifiedItem) {
		itemsOut.Add(initialModifiedItem)
		for affectedItem := range d.dependenciesTo[initialModifiedItem] {
			d.addAffectedItems(itemsOut, affectedItem)
		}
	}
}
