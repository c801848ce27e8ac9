package macro

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxSlugLength     = 50
	maxActions        = 500
	maxDescriptionLen = 500
	maxTextLength     = 10000
	maxKeys           = 5
	maxWaitMS         = 3600000 // 1 hour
	maxDelayMS        = 300000  // 5 minutes
	slugPattern       = `^[a-z0-9]+(?:-[a-z0-9]+)*$`
)

var slugRegex = regexp.MustCompile(slugPattern)

// Pre-computed validation set for O(1) kind lookups.
var validKinds map[Kind]struct{}

func init() {
	validKinds = make(map[Kind]struct{}, len(AllKinds()))
	for _, k := range AllKinds() {
		validKinds[k] = struct{}{}
	}
}

// ValidateSequence checks every action in a sequence.
// Returns an error describing the first failure found.
func ValidateSequence(s Sequence) error {
	if len(s) == 0 {
		return ErrEmptySequence
	}
	if len(s) > maxActions {
		return fmt.Errorf("%w: exceeds maximum of %d actions", ErrInvalidAction, maxActions)
	}
	for i, a := range s {
		if err := ValidateAction(a); err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateAction checks that exactly the fields relevant to the action's
// kind are populated.
func ValidateAction(a Action) error {
	if _, ok := validKinds[a.Kind]; !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}

	// Position present iff the kind needs screen coordinates.
	if a.Kind.RequiresPosition() {
		if a.Position == nil {
			return fmt.Errorf("%w: %s requires a position", ErrInvalidAction, a.Kind)
		}
		if a.Position.X < 0 || a.Position.Y < 0 {
			return fmt.Errorf("%w: position must be non-negative", ErrInvalidAction)
		}
	} else if a.Position != nil {
		return fmt.Errorf("%w: %s does not take a position", ErrInvalidAction, a.Kind)
	}

	// Keys present iff the kind is key-bearing.
	if a.Kind.RequiresKeys() {
		if len(a.Keys) == 0 {
			return fmt.Errorf("%w: %s requires key names", ErrInvalidAction, a.Kind)
		}
		if len(a.Keys) > maxKeys {
			return fmt.Errorf("%w: exceeds %d keys", ErrInvalidAction, maxKeys)
		}
		if a.Kind != KindHotkey && len(a.Keys) != 1 {
			return fmt.Errorf("%w: %s takes exactly one key", ErrInvalidAction, a.Kind)
		}
		for _, k := range a.Keys {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("%w: empty key name", ErrInvalidAction)
			}
		}
	} else if len(a.Keys) > 0 {
		return fmt.Errorf("%w: %s does not take keys", ErrInvalidAction, a.Kind)
	}

	// Per-kind scalar fields.
	switch a.Kind {
	case KindTypeText:
		if a.Text == "" {
			return fmt.Errorf("%w: type_text requires text", ErrInvalidAction)
		}
		if len(a.Text) > maxTextLength {
			return fmt.Errorf("%w: text exceeds %d characters", ErrInvalidAction, maxTextLength)
		}
	case KindWait:
		if a.DurationMS <= 0 || a.DurationMS > maxWaitMS {
			return fmt.Errorf("%w: wait duration must be 1-%d ms", ErrInvalidAction, maxWaitMS)
		}
	case KindHoldStart, KindHoldRelease:
		switch a.Button {
		case "", "left", "right", "center":
		default:
			return fmt.Errorf("%w: unknown button %q", ErrInvalidAction, a.Button)
		}
	}
	if a.Kind != KindTypeText && a.Text != "" {
		return fmt.Errorf("%w: %s does not take text", ErrInvalidAction, a.Kind)
	}
	if a.Kind != KindWait && a.DurationMS != 0 {
		return fmt.Errorf("%w: %s does not take a duration", ErrInvalidAction, a.Kind)
	}

	return nil
}

// ValidateRunConfig checks run configuration bounds.
func ValidateRunConfig(c RunConfig) error {
	if c.Cycles < 0 {
		return fmt.Errorf("%w: cycles must be 0 (until stopped) or positive", ErrInvalidConfig)
	}
	if c.InterStepDelayMS < 0 || c.InterStepDelayMS > maxDelayMS {
		return fmt.Errorf("%w: inter_step_delay_ms must be 0-%d", ErrInvalidConfig, maxDelayMS)
	}
	if c.MoveDurationMS < 0 {
		return fmt.Errorf("%w: move_duration_ms must be >= 0", ErrInvalidConfig)
	}
	if c.MoveSpeed < 0 {
		return fmt.Errorf("%w: move_speed cannot be negative (0 = default)", ErrInvalidConfig)
	}
	if c.InitialDelayMS < 0 {
		return fmt.Errorf("%w: initial_delay_ms must be >= 0", ErrInvalidConfig)
	}
	if c.FailsafeCornerMarginPx < 0 {
		return fmt.Errorf("%w: failsafe_corner_margin_px must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// ValidateProfile performs comprehensive validation on a profile.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return ErrInvalidProfile
	}

	if err := ValidateName(p.Name); err != nil {
		return err
	}

	// Empty slug will be generated from the name.
	if p.Slug != "" {
		if err := ValidateSlug(p.Slug); err != nil {
			return err
		}
	}

	if p.Description != nil && len(*p.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidProfile, maxDescriptionLen)
	}

	if err := ValidateSequence(p.Sequence); err != nil {
		return err
	}

	if err := ValidateRunConfig(p.Config); err != nil {
		return err
	}

	return nil
}

// ValidateName checks if a profile name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks if a slug format is valid.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug cannot be empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: must be lowercase alphanumeric with hyphens", ErrInvalidSlug)
	}
	return nil
}

// GenerateSlug creates a URL-safe slug from a name.
// It lowercases, replaces spaces/underscores with hyphens, removes
// non-alphanumeric characters, and trims to maxSlugLength.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	slug = result.String()

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.TrimRight(slug, "-")
	}

	return slug
}

// GenerateID creates a new UUID for a profile or run.
func GenerateID() string {
	return uuid.New().String()
}
