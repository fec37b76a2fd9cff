package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents user role type
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// FuelType represents the vehicle's fuel type
type FuelType string

const (
	FuelTypePetrol   FuelType = "petrol"
	FuelTypeDiesel   FuelType = "diesel"
	FuelTypeHybrid   FuelType = "hybrid"
	FuelTypeElectric FuelType = "electric"
)

// Vehicle holds a driver's vehicle profile. Rides copy it as a snapshot at
// creation time, so later profile edits never affect existing rides.
type Vehicle struct {
	Make          string   `json:"make" db:"make"`
	Model         string   `json:"model" db:"model"`
	Color         string   `json:"color" db:"color"`
	PlateNumber   string   `json:"plate_number" db:"plate_number"`
	Capacity      int      `json:"capacity" db:"capacity"`
	FuelType      FuelType `json:"fuel_type" db:"fuel_type"`
	FuelEfficiency float64 `json:"fuel_efficiency" db:"fuel_efficiency"` // km per liter (or kWh)
}

// RoleRating is the per-role rating aggregate, recomputed from the full
// review set on every submission.
type RoleRating struct {
	Average float64 `json:"average" db:"average"`
	Count   int     `json:"count" db:"count"`
}

// UserRating splits a user's rating by the role they were reviewed in.
type UserRating struct {
	AsDriver    RoleRating `json:"as_driver"`
	AsPassenger RoleRating `json:"as_passenger"`
}

// EnvironmentalStats accumulates a user's lifetime impact savings.
// All fields are monotonically non-decreasing.
type EnvironmentalStats struct {
	CO2SavedKg      float64 `json:"co2_saved_kg" db:"co2_saved_kg"`
	FuelSavedLiters float64 `json:"fuel_saved_liters" db:"fuel_saved_liters"`
	TreesEquivalent float64 `json:"trees_equivalent" db:"trees_equivalent"`
}

// User represents a user in the system (drivers and passengers share one account type)
type User struct {
	ID           uuid.UUID          `json:"id" db:"id"`
	Email        string             `json:"email" db:"email"`
	PhoneNumber  string             `json:"phone_number" db:"phone_number"`
	PasswordHash string             `json:"-" db:"password_hash"`
	FirstName    string             `json:"first_name" db:"first_name"`
	LastName     string             `json:"last_name" db:"last_name"`
	Role         UserRole           `json:"role" db:"role"`
	IsActive     bool               `json:"is_active" db:"is_active"`
	IsVerified   bool               `json:"is_verified" db:"is_verified"`
	Vehicle      *Vehicle           `json:"vehicle,omitempty" db:"vehicle"`
	Rating       UserRating         `json:"rating"`
	Impact       EnvironmentalStats `json:"environmental_impact"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}

// UpdateVehicleRequest updates the driver's vehicle profile
type UpdateVehicleRequest struct {
	Make           string   `json:"make" binding:"required"`
	Model          string   `json:"model" binding:"required"`
	Color          string   `json:"color"`
	PlateNumber    string   `json:"plate_number" binding:"required"`
	Capacity       int      `json:"capacity" binding:"required,min=1,max=8"`
	FuelType       FuelType `json:"fuel_type" binding:"required,oneof=petrol diesel hybrid electric"`
	FuelEfficiency float64  `json:"fuel_efficiency" binding:"omitempty,gt=0"`
}
