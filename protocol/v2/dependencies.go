package v2

import (
	"strings"
)

// ParseDependencies parses the OData Dependencies property:
// "id:range:framework|id:range:framework|...". Entries sharing a framework
// are grouped in first-seen order. An entry with an empty id (":" + framework)
// declares a framework with no dependencies.
func ParseDependencies(s string) []DependencyGroup {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var groups []DependencyGroup
	index := make(map[string]int)

	for _, part := range strings.Split(s, "|") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 3)
		id := strings.TrimSpace(fields[0])
		var rng, framework string
		if len(fields) > 1 {
			rng = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			framework = strings.TrimSpace(fields[2])
		}
		if id == "" && framework == "" {
			continue
		}

		key := strings.ToLower(framework)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DependencyGroup{TargetFramework: framework})
		}
		if id != "" {
			groups[i].Dependencies = append(groups[i].Dependencies, Dependency{ID: id, Range: rng})
		}
	}
	return groups
}
