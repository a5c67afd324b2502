package query

import "encoding/json"

const (
	DirectionPredecessors = "predecessors"
	DirectionSuccessors   = "successors"
)

type DependencyArgs struct {
	TaskSearch   *string `json:"taskSearch,omitempty"`
	TaskID       *string `json:"taskId,omitempty"`
	Direction    *string `json:"direction,omitempty"`
	IncludeChain *bool   `json:"includeChain,omitempty"`
}

// DependencyLink is one resolved edge. With includeChain the next level is
// attached under Predecessors or Successors; a task already visited in the
// walk gets an empty list.
type DependencyLink struct {
	Task           TaskSummary       `json:"task"`
	DependencyType string            `json:"dependencyType"`
	Lag            float64           `json:"lag"`
	Predecessors   *[]DependencyLink `json:"predecessors,omitempty"`
	Successors     *[]DependencyLink `json:"successors,omitempty"`
}

type Dependencies struct {
	TargetTask   TaskSummary
	Direction    string
	IncludeChain bool
	Links        []DependencyLink
}

func (d Dependencies) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"targetTask":   d.TargetTask,
		"direction":    d.Direction,
		"includeChain": d.IncludeChain,
		d.Direction:    d.Links,
		"count":        len(d.Links),
	})
}

// ResolveDependencies finds the target task (exact id, then first fuzzy match
// on name and parent context) and walks its predecessors or successors.
func ResolveDependencies(idx *ScheduleIndex, args DependencyArgs) (Dependencies, error) {
	target := -1
	if i, ok := idx.ByID(str(args.TaskID)); ok {
		target = i
	}
	if q := str(args.TaskSearch); target < 0 && q != "" {
		for i, t := range idx.Tasks {
			if idx.Matches(t, q) {
				target = i
				break
			}
		}
	}
	if target < 0 {
		searched := str(args.TaskID)
		if searched == "" {
			searched = str(args.TaskSearch)
		}
		return Dependencies{}, &LookupError{
			Message:     "Task not found",
			SearchedFor: searched,
			Hints:       map[string]any{"availableTasks": idx.Names(10)},
		}
	}

	direction := DirectionPredecessors
	if str(args.Direction) == DirectionSuccessors {
		direction = DirectionSuccessors
	}
	chain := flag(args.IncludeChain)
	visited := map[int]bool{}
	var links []DependencyLink
	if direction == DirectionPredecessors {
		links = predecessors(idx, target, chain, visited)
	} else {
		links = successors(idx, target, chain, visited)
	}
	return Dependencies{
		TargetTask:   Summarize(idx.Tasks[target]),
		Direction:    direction,
		IncludeChain: chain,
		Links:        links,
	}, nil
}

func predecessors(idx *ScheduleIndex, pos int, chain bool, visited map[int]bool) []DependencyLink {
	links := []DependencyLink{}
	if visited[pos] {
		return links
	}
	visited[pos] = true
	for _, dep := range idx.Tasks[pos].Dependencies {
		pred, ok := idx.ByRef(dep.Ref())
		if !ok {
			continue
		}
		link := DependencyLink{
			Task:           Summarize(idx.Tasks[pred]),
			DependencyType: dep.Kind(),
			Lag:            dep.Lag.Float(),
		}
		if chain {
			next := predecessors(idx, pred, chain, visited)
			link.Predecessors = &next
		}
		links = append(links, link)
	}
	return links
}

// successors scans the schedule for tasks naming pos as predecessor, by id or
// by legacy index. Each successor contributes its first matching dependency.
func successors(idx *ScheduleIndex, pos int, chain bool, visited map[int]bool) []DependencyLink {
	links := []DependencyLink{}
	if visited[pos] {
		return links
	}
	visited[pos] = true
	id := idx.Tasks[pos].ID
	key := idx.Tasks[pos].IndexKey()
	for i, t := range idx.Tasks {
		for _, dep := range t.Dependencies {
			ref := dep.Ref()
			if ref == "" || (ref != id && ref != key) {
				continue
			}
			link := DependencyLink{
				Task:           Summarize(t),
				DependencyType: dep.Kind(),
				Lag:            dep.Lag.Float(),
			}
			if chain {
				next := successors(idx, i, chain, visited)
				link.Successors = &next
			}
			links = append(links, link)
			break
		}
	}
	return links
}

