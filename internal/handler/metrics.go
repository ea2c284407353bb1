package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"eventreg/internal/service"
)

const (
	outcomeAdmitted          = "admitted"
	outcomeRejectedFields    = "rejected_fields"
	outcomeRejectedCapacity  = "rejected_capacity"
	outcomeRejectedDuplicate = "rejected_duplicate"
	outcomeError             = "error"
)

var admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eventreg_admissions_total",
	Help: "Registration admission attempts by outcome",
}, []string{"outcome"})

// rejectionOutcome picks the metric label for a rejected admission. When a
// submission has several problems, capacity and duplicate outrank plain
// field errors since they are the rules operators watch.
func rejectionOutcome(f *service.ValidationFailure) string {
	switch {
	case f.CapacityExceeded():
		return outcomeRejectedCapacity
	case f.Duplicate():
		return outcomeRejectedDuplicate
	default:
		return outcomeRejectedFields
	}
}
