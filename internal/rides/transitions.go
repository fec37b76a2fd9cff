package rides

import (
	"fmt"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/models"
)

// rideTransitions is the allowed-transition table for the ride status machine.
// cancelled is reachable from scheduled and in_progress, never from completed.
var rideTransitions = map[models.RideStatus][]models.RideStatus{
	models.RideStatusScheduled: {
		models.RideStatusInProgress,
		models.RideStatusCancelled,
	},
	models.RideStatusInProgress: {
		models.RideStatusCompleted,
		models.RideStatusCancelled,
	},
	models.RideStatusCompleted: {},
	models.RideStatusCancelled: {},
}

// passengerTransitions is the allowed-transition table for the per-entry
// passenger sub-state machine. Accepted passengers can still cancel before
// or during the ride; rejected is terminal.
var passengerTransitions = map[models.PassengerStatus][]models.PassengerStatus{
	models.PassengerStatusPending: {
		models.PassengerStatusAccepted,
		models.PassengerStatusRejected,
		models.PassengerStatusCancelled,
	},
	models.PassengerStatusAccepted: {
		models.PassengerStatusCancelled,
	},
	models.PassengerStatusRejected:  {},
	models.PassengerStatusCancelled: {},
}

// ValidateRideTransition returns an InvalidTransition error unless the ride
// status change is listed in the transition table.
func ValidateRideTransition(from, to models.RideStatus) error {
	for _, allowed := range rideTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return common.NewInvalidTransitionError(
		fmt.Sprintf("ride cannot move from %s to %s", from, to),
	)
}

// ValidatePassengerTransition returns an InvalidTransition error unless the
// passenger status change is listed in the transition table.
func ValidatePassengerTransition(from, to models.PassengerStatus) error {
	for _, allowed := range passengerTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return common.NewInvalidTransitionError(
		fmt.Sprintf("passenger request cannot move from %s to %s", from, to),
	)
}
