package constants

import (
	"database/sql/driver"
	"fmt"
)

// ActivityType is the fixed vocabulary of activity kinds a record can carry.
type ActivityType string

const (
	ActivitySteps         ActivityType = "steps"
	ActivityActiveMinutes ActivityType = "active_minutes"
	ActivityWorkouts      ActivityType = "workouts"
	ActivityDistance      ActivityType = "distance"
	ActivityCalories      ActivityType = "calories"
	ActivityCustom        ActivityType = "custom"
)

// AllActivityTypes lists the vocabulary in its canonical order.
var AllActivityTypes = []ActivityType{
	ActivitySteps,
	ActivityActiveMinutes,
	ActivityWorkouts,
	ActivityDistance,
	ActivityCalories,
	ActivityCustom,
}

// DefaultUnits is used when a provider omits the unit on a sample.
var DefaultUnits = map[ActivityType]string{
	ActivitySteps:         "count",
	ActivityActiveMinutes: "min",
	ActivityWorkouts:      "min",
	ActivityDistance:      "m",
	ActivityCalories:      "kcal",
	ActivityCustom:        "count",
}

func (a ActivityType) String() string { return string(a) }

// IsValid reports whether a belongs to the vocabulary.
func (a ActivityType) IsValid() bool {
	_, ok := DefaultUnits[a]
	return ok
}

// DefaultUnit returns the unit recorded when the provider sent none.
func (a ActivityType) DefaultUnit() string {
	if unit, ok := DefaultUnits[a]; ok {
		return unit
	}
	return "count"
}

// Permission returns the permission tag guarding reads of this type.
// Custom activity has no dedicated permission.
func (a ActivityType) Permission() (PermissionTag, bool) {
	switch a {
	case ActivitySteps:
		return PermissionSteps, true
	case ActivityActiveMinutes:
		return PermissionActiveMinutes, true
	case ActivityWorkouts:
		return PermissionWorkouts, true
	case ActivityDistance:
		return PermissionDistance, true
	case ActivityCalories:
		return PermissionCalories, true
	default:
		return "", false
	}
}

// ParseActivityType validates a raw string against the vocabulary.
func ParseActivityType(raw string) (ActivityType, error) {
	a := ActivityType(raw)
	if !a.IsValid() {
		return "", fmt.Errorf("unknown activity type %q", raw)
	}
	return a, nil
}

// Scan implements the sql.Scanner interface
func (a *ActivityType) Scan(src interface{}) error {
	if src == nil {
		*a = ""
		return nil
	}
	switch v := src.(type) {
	case string:
		*a = ActivityType(v)
	case []byte:
		*a = ActivityType(v)
	default:
		return fmt.Errorf("ActivityType: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (a ActivityType) Value() (driver.Value, error) { return string(a), nil }

// PermissionTag is one grantable data-access category on the sensor side.
type PermissionTag string

const (
	PermissionSteps         PermissionTag = "steps"
	PermissionActiveMinutes PermissionTag = "activeMinutes"
	PermissionWorkouts      PermissionTag = "workouts"
	PermissionDistance      PermissionTag = "distance"
	PermissionCalories      PermissionTag = "calories"
	PermissionHeartRate     PermissionTag = "heartRate"
	PermissionSleep         PermissionTag = "sleep"
)

// AllPermissions lists the permission vocabulary in its canonical order.
var AllPermissions = []PermissionTag{
	PermissionSteps,
	PermissionActiveMinutes,
	PermissionWorkouts,
	PermissionDistance,
	PermissionCalories,
	PermissionHeartRate,
	PermissionSleep,
}

// IsValid reports whether p belongs to the vocabulary.
func (p PermissionTag) IsValid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// PermissionsFor returns the distinct permissions needed to read the given types.
func PermissionsFor(types []ActivityType) []PermissionTag {
	seen := make(map[PermissionTag]bool)
	out := make([]PermissionTag, 0, len(types))
	for _, t := range types {
		p, ok := t.Permission()
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
