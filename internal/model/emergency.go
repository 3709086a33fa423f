package model

import (
	"time"
)

type EmergencyContact struct {
	Name   string `json:"name" yaml:"name"`
	Number string `json:"number" yaml:"number"`
	Icon   string `json:"icon" yaml:"icon"`
}

type Hospital struct {
	Name     string `json:"name" yaml:"name"`
	Distance string `json:"distance" yaml:"distance"`
	Phone    string `json:"phone" yaml:"phone"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type EmergencyCallRequest struct {
	Number   string    `json:"number" validate:"required"`
	Location *Location `json:"location"`
}

type ShareLocationRequest struct {
	Location *Location `json:"location"`
}

type DispatchStatus string

const (
	DispatchAccepted DispatchStatus = "accepted"
	DispatchFailed   DispatchStatus = "failed"
)

// DispatchResult is the explicit outcome of an emergency request.
type DispatchResult struct {
	Reference   string         `json:"reference"`
	Service     string         `json:"service"`
	Number      string         `json:"number"`
	Status      DispatchStatus `json:"status"`
	Message     string         `json:"message"`
	Description string         `json:"description"`
	At          time.Time      `json:"at"`
}

type EmergencyDirectory struct {
	Contacts  []EmergencyContact `json:"contacts" yaml:"contacts"`
	Hospitals []Hospital         `json:"hospitals" yaml:"hospitals"`
}
