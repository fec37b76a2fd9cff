// Package impact derives the environmental savings of a shared ride.
//
// The model: each accepted passenger would otherwise have driven the same
// distance alone, so the fuel they didn't burn is distance divided by the
// shared vehicle's efficiency, once per passenger. The driver was making
// the trip anyway and contributes no savings of their own.
package impact

import "github.com/ecopool/carpool/pkg/models"

const (
	// DefaultFuelEfficiencyKmPerLiter is used when the vehicle snapshot
	// carries no efficiency figure.
	DefaultFuelEfficiencyKmPerLiter = 15.0

	// CO2KgPerLiter is the combustion emission factor for a liter of petrol.
	CO2KgPerLiter = 2.3

	// CO2KgPerTreeYear is how much CO2 one tree absorbs in a year.
	CO2KgPerTreeYear = 22.0
)

// Calculate returns the trip-level impact for the given distance, vehicle
// efficiency and accepted-passenger count. Zero passengers means zero
// impact: a solo trip saves nothing.
func Calculate(distanceKm, fuelEfficiency float64, passengerCount int) models.EnvironmentalImpact {
	if passengerCount <= 0 || distanceKm <= 0 {
		return models.EnvironmentalImpact{}
	}
	if fuelEfficiency <= 0 {
		fuelEfficiency = DefaultFuelEfficiencyKmPerLiter
	}

	fuelSaved := distanceKm * float64(passengerCount) / fuelEfficiency
	co2Saved := fuelSaved * CO2KgPerLiter

	return models.EnvironmentalImpact{
		FuelSavedLiters: fuelSaved,
		CO2SavedKg:      co2Saved,
		TreesEquivalent: co2Saved / CO2KgPerTreeYear,
	}
}

// Share splits a trip impact evenly across the accepted passengers.
// Each passenger's share is the whole divided by the head count.
func Share(total models.EnvironmentalImpact, passengerCount int) models.EnvironmentalImpact {
	if passengerCount <= 0 {
		return models.EnvironmentalImpact{}
	}
	n := float64(passengerCount)
	return models.EnvironmentalImpact{
		FuelSavedLiters: total.FuelSavedLiters / n,
		CO2SavedKg:      total.CO2SavedKg / n,
		TreesEquivalent: total.TreesEquivalent / n,
	}
}
