package rides

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecopool/carpool/pkg/models"
)

func TestValidateRideTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.RideStatus
		to      models.RideStatus
		allowed bool
	}{
		{"scheduled to in_progress", models.RideStatusScheduled, models.RideStatusInProgress, true},
		{"scheduled to cancelled", models.RideStatusScheduled, models.RideStatusCancelled, true},
		{"scheduled to completed", models.RideStatusScheduled, models.RideStatusCompleted, false},
		{"in_progress to completed", models.RideStatusInProgress, models.RideStatusCompleted, true},
		{"in_progress to cancelled", models.RideStatusInProgress, models.RideStatusCancelled, true},
		{"in_progress to scheduled", models.RideStatusInProgress, models.RideStatusScheduled, false},
		{"in_progress to in_progress", models.RideStatusInProgress, models.RideStatusInProgress, false},
		{"completed to cancelled", models.RideStatusCompleted, models.RideStatusCancelled, false},
		{"cancelled to in_progress", models.RideStatusCancelled, models.RideStatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRideTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidatePassengerTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.PassengerStatus
		to      models.PassengerStatus
		allowed bool
	}{
		{"pending to accepted", models.PassengerStatusPending, models.PassengerStatusAccepted, true},
		{"pending to rejected", models.PassengerStatusPending, models.PassengerStatusRejected, true},
		{"pending to cancelled", models.PassengerStatusPending, models.PassengerStatusCancelled, true},
		{"accepted to cancelled", models.PassengerStatusAccepted, models.PassengerStatusCancelled, true},
		{"accepted to rejected", models.PassengerStatusAccepted, models.PassengerStatusRejected, false},
		{"rejected to accepted", models.PassengerStatusRejected, models.PassengerStatusAccepted, false},
		{"cancelled to pending", models.PassengerStatusCancelled, models.PassengerStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassengerTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
