package strava

import "time"

// ActivityType is a Strava activity type after normalization
type ActivityType string

const (
	Run  ActivityType = "Run"
	Ride ActivityType = "Ride"
)

// Activity represents a Strava activity from the API. After FetchActivities the
// Type field holds the normalized type.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Distance           float64   `json:"distance"`
	MovingTime         int       `json:"moving_time"`
	ElapsedTime        int       `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	// StartDateLocal carries the athlete's wall clock tagged as UTC ("...Z")
	StartDateLocal time.Time `json:"start_date_local"`
	Timezone       string    `json:"timezone"`
}

// TypeFilter decides which raw activity types are kept and what they collapse to
type TypeFilter struct {
	// Accepted raw types. Anything else is dropped.
	Accepted map[string]bool
	// Mapping from a raw type to its base type. Unmapped types keep their name.
	Mapping map[string]ActivityType
}

// DefaultTypeFilter keeps runs and rides and folds virtual rides into rides.
// VirtualRun has a mapping but is not accepted, so indoor runs are dropped.
func DefaultTypeFilter() TypeFilter {
	return TypeFilter{
		Accepted: map[string]bool{
			"Run":         true,
			"VirtualRide": true,
			"Ride":        true,
		},
		Mapping: map[string]ActivityType{
			"VirtualRun":  Run,
			"VirtualRide": Ride,
		},
	}
}

// Normalize maps a raw type to its base type
func (f TypeFilter) Normalize(rawType string) ActivityType {
	if mapped, ok := f.Mapping[rawType]; ok {
		return mapped
	}
	return ActivityType(rawType)
}

// Apply returns the accepted activities, in order, with normalized types
func (f TypeFilter) Apply(activities []Activity) []Activity {
	kept := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if !f.Accepted[a.Type] {
			continue
		}
		a.Type = string(f.Normalize(a.Type))
		kept = append(kept, a)
	}
	return kept
}
