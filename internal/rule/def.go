package rule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Def is the JSON form of a saved rule. Fields are pointers so a partial
// file can be told apart from explicit zero values; omitted fields fall
// back to defaults at compile time.
type Def struct {
	ID      *string `json:"id,omitempty"`
	Name    *string `json:"name,omitempty"`
	Camera  *string `json:"camera,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`

	// Coordinate space the rule geometry is expressed in. Defaults to
	// 320x240, the size rules are drawn against.
	CoordWidth  *int `json:"coord_width,omitempty"`
	CoordHeight *int `json:"coord_height,omitempty"`

	Where    *WhereDef    `json:"where,omitempty"`
	Duration *DurationDef `json:"duration,omitempty"`

	MinHeight *int        `json:"min_height,omitempty"`
	Targets   []TargetDef `json:"targets,omitempty"`

	Schedule *ScheduleDef `json:"schedule,omitempty"`
}

// WhereDef selects the spatial part of a rule. Kind is one of "line",
// "region", "door", "scene" or "full_frame"; a nil WhereDef means
// full_frame (any motion anywhere).
type WhereDef struct {
	Kind   *string  `json:"kind,omitempty"`
	Points [][2]int `json:"points,omitempty"`

	// Line rules.
	Direction *string `json:"direction,omitempty"` // any | left | right

	// Region rules.
	RegionKind *string `json:"region_kind,omitempty"` // inside | outside | entering | exiting | crosses

	// Door rules.
	DoorDirection *string `json:"door_direction,omitempty"` // any | entering | exiting

	// Scene rules.
	EnterExit *string `json:"enter_exit,omitempty"` // both | enter | exit

	TrackPoint *string `json:"track_point,omitempty"` // center | top | bottom | left | right
}

// DurationDef bounds how long the spatial part must hold. Both bounds set
// means "between": the compiled tree requires both for the same object.
type DurationDef struct {
	MoreThanMs *int64 `json:"more_than_ms,omitempty"`
	LessThanMs *int64 `json:"less_than_ms,omitempty"`
}

// TargetDef names an object class the rule applies to.
type TargetDef struct {
	Class  string `json:"class"`
	Action string `json:"action,omitempty"`
}

// ScheduleDef restricts when a realtime rule is armed, as minutes past
// midnight. Start > Stop wraps past midnight. A nil ScheduleDef means
// always armed.
type ScheduleDef struct {
	StartMinute int `json:"start_minute"`
	StopMinute  int `json:"stop_minute"`
}

const maxDefFileSize = 1 * 1024 * 1024

// LoadDef reads and validates a rule definition from a JSON file.
func LoadDef(path string) (*Def, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("rule file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat rule file: %w", err)
	}
	if info.Size() > maxDefFileSize {
		return nil, fmt.Errorf("rule file too large: %d bytes (max %d)", info.Size(), maxDefFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var def Def
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse rule JSON: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	return &def, nil
}

// Validate checks the structural constraints a Def must satisfy before
// compilation. Enum values are checked at compile time by the parse
// functions they feed.
func (d *Def) Validate() error {
	if d.CoordWidth != nil && *d.CoordWidth < 2 {
		return fmt.Errorf("coord_width must be at least 2, got %d", *d.CoordWidth)
	}
	if d.CoordHeight != nil && *d.CoordHeight < 2 {
		return fmt.Errorf("coord_height must be at least 2, got %d", *d.CoordHeight)
	}

	if d.Where != nil {
		kind := ""
		if d.Where.Kind != nil {
			kind = *d.Where.Kind
		}
		switch kind {
		case "", "full_frame", "scene":
		case "line":
			if len(d.Where.Points) != 2 {
				return fmt.Errorf("line rule needs exactly 2 points, got %d", len(d.Where.Points))
			}
		case "region", "door":
			if len(d.Where.Points) < 3 {
				return fmt.Errorf("%s rule needs at least 3 points, got %d", kind, len(d.Where.Points))
			}
		default:
			return fmt.Errorf("unknown where kind %q", kind)
		}
	}

	if d.Duration != nil {
		if d.Duration.MoreThanMs != nil && *d.Duration.MoreThanMs < 0 {
			return fmt.Errorf("more_than_ms must not be negative")
		}
		if d.Duration.LessThanMs != nil && *d.Duration.LessThanMs <= 0 {
			return fmt.Errorf("less_than_ms must be positive")
		}
		if d.Duration.MoreThanMs != nil && d.Duration.LessThanMs != nil &&
			*d.Duration.MoreThanMs >= *d.Duration.LessThanMs {
			return fmt.Errorf("more_than_ms %d must be below less_than_ms %d",
				*d.Duration.MoreThanMs, *d.Duration.LessThanMs)
		}
	}

	if d.MinHeight != nil && *d.MinHeight < 0 {
		return fmt.Errorf("min_height must not be negative")
	}
	for i, t := range d.Targets {
		if t.Class == "" {
			return fmt.Errorf("target %d has no class", i)
		}
	}

	if d.Schedule != nil {
		if d.Schedule.StartMinute < 0 || d.Schedule.StartMinute >= 24*60 {
			return fmt.Errorf("schedule start_minute out of range: %d", d.Schedule.StartMinute)
		}
		if d.Schedule.StopMinute < 0 || d.Schedule.StopMinute >= 24*60 {
			return fmt.Errorf("schedule stop_minute out of range: %d", d.Schedule.StopMinute)
		}
	}

	return nil
}
