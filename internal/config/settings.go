package config

import "sync"

// SimulationSettings holds runtime-adjustable simulation distance.
type SimulationSettings struct {
	mu       sync.RWMutex
	distance int // in chunks
}

var globalSimulationSettings = &SimulationSettings{
	distance: 4, // default value
}

// GetSimulationDistance returns the current simulation distance in chunks
func GetSimulationDistance() int {
	globalSimulationSettings.mu.RLock()
	defer globalSimulationSettings.mu.RUnlock()
	return globalSimulationSettings.distance
}

// SetSimulationDistance sets the simulation distance in chunks
func SetSimulationDistance(distance int) {
	globalSimulationSettings.mu.Lock()
	defer globalSimulationSettings.mu.Unlock()

	// Clamp to reasonable values
	if distance < 0 {
		distance = 0
	}
	if distance > 32 {
		distance = 32
	}

	globalSimulationSettings.distance = distance
}

// GetChunkLoadRadius returns radius for chunk loading
func GetChunkLoadRadius() int {
	return GetSimulationDistance()
}

// GetChunkEvictRadius returns radius for chunk eviction (larger than load radius)
func GetChunkEvictRadius() int {
	return GetSimulationDistance() * 2
}
