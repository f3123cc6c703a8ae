package workflow

import (
	"clipforge/internal/deps"
)

// StageHealth summarizes the readiness of a pipeline dependency.
type StageHealth struct {
	Name   string
	Ready  bool
	Detail string
}

// HealthyStage constructs a ready StageHealth record.
func HealthyStage(name string) StageHealth {
	return StageHealth{Name: name, Ready: true}
}

// UnhealthyStage constructs an unhealthy StageHealth record with context detail.
func UnhealthyStage(name, detail string) StageHealth {
	return StageHealth{Name: name, Ready: false, Detail: detail}
}

func (m *Manager) engineHealth() []StageHealth {
	statuses := deps.CheckBinaries(deps.MediaRequirements(m.cfg))
	out := make([]StageHealth, 0, len(statuses)+1)
	for _, status := range statuses {
		if status.Available {
			out = append(out, HealthyStage(status.Name))
		} else {
			out = append(out, UnhealthyStage(status.Name, status.Detail))
		}
	}
	if m.publisher != nil {
		out = append(out, HealthyStage("Publish ("+m.publisher.Name()+")"))
	}
	return out
}
